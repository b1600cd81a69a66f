package dataprocessing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loandash/pkg/contracts/domain"
)

func portfolio(t *testing.T) *domain.Table {
	t.Helper()
	return cleanTable(t, false,
		loan(func(l *domain.LoanApplication) { l.LoanType = "LOA"; l.ScoreClass = "C"; l.BankDecision = "Refusé" }),
		loan(func(l *domain.LoanApplication) { l.RequestYear = 2022; l.RequestMonth = 1; l.PostalCode = "13001" }),
		loan(func(l *domain.LoanApplication) { l.ScoreClass = "A"; l.VehicleType = "VU"; l.LoanAmount = domain.Float(20000) }),
		loan(func(l *domain.LoanApplication) { l.RequestMonth = 13; l.BankDecision = "Refusé"; l.ClientDecision = "Refusé" }),
		loan(func(l *domain.LoanApplication) { l.VehiclePurpose = "Professionnel"; l.LoanAmount = domain.NullFloat{} }),
	)
}

func TestApplyMatchEverything(t *testing.T) {
	table := portfolio(t)

	res := Apply(table, domain.Filters{})
	assert.Equal(t, table.Len(), res.Count)
	assert.Len(t, res.Records, table.Len())

}

func TestApplyEmptySetMatchesNothing(t *testing.T) {
	table := portfolio(t)

	for _, field := range domain.FilterFields {
		t.Run(string(field), func(t *testing.T) {
			res := Apply(table, domain.Filters{field: domain.NewValueSet()})
			assert.Equal(t, 0, res.Count)
			assert.True(t, res.Empty())
			assert.False(t, res.MeanAmount.Available)
			assert.False(t, res.GrantRate.Available)
			assert.False(t, res.MeanDebtRatio.Available)
			assert.Zero(t, res.TotalAmount)
			assert.Empty(t, res.ByLoanType)
			assert.Empty(t, res.TopDepartments)
			assert.False(t, res.HasTimeSeries())
		})
	}
}

func TestApplyAndAcrossFieldsOrWithinField(t *testing.T) {
	table := portfolio(t)

	res := Apply(table, domain.Filters{
		domain.FieldScoreClass:  domain.NewValueSet("A", "C"),
		domain.FieldRequestYear: domain.NewValueSet("2021"),
	})
	assert.Equal(t, 2, res.Count)

	res = Apply(table, domain.Filters{
		domain.FieldScoreClass:  domain.NewValueSet("A", "C"),
		domain.FieldVehicleType: domain.NewValueSet("VU"),
		domain.FieldRequestYear: domain.NewValueSet("2021", "2022"),
	})
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "A", res.Records[0].ScoreClass)
}

func TestApplyMonotonicity(t *testing.T) {
	table := portfolio(t)
	opts := Options(table)

	for _, field := range domain.FilterFields {
		values := opts[field]
		prev := Apply(table, domain.Filters{}).Count
		for n := len(values); n >= 0; n-- {
			count := Apply(table, domain.Filters{}.With(field, values[:n]...)).Count
			assert.LessOrEqual(t, count, prev, "field %s with %d values", field, n)
			prev = count
		}
	}
}

func TestApplyGrantRate(t *testing.T) {
	table := cleanTable(t, false,
		loan(nil),
		loan(nil),
		loan(func(l *domain.LoanApplication) { l.BankDecision = "Refusé" }),
		loan(func(l *domain.LoanApplication) { l.BankDecision = "" }),
	)

	res := Apply(table, domain.Filters{})
	require.True(t, res.GrantRate.Available)
	assert.Equal(t, 50.0, res.GrantRate.Value)
}

func TestApplyKPIs(t *testing.T) {
	res := Apply(portfolio(t), domain.Filters{})

	assert.Equal(t, 5, res.Count)
	assert.Equal(t, 50000.0, res.TotalAmount)
	require.True(t, res.MeanAmount.Available)
	assert.Equal(t, 12500.0, res.MeanAmount.Value, "missing amounts are skipped")
	require.True(t, res.MeanDebtRatio.Available)
	assert.Equal(t, 30.0, res.MeanDebtRatio.Value)
	assert.False(t, res.MeanAge.Available, "age exists only in the extended variant")
}

func TestApplyMeanAge(t *testing.T) {
	table := cleanTable(t, true,
		loan(func(l *domain.LoanApplication) { l.BirthYear = 1981 }),
		loan(func(l *domain.LoanApplication) { l.BirthYear = 1991 }),
		loan(func(l *domain.LoanApplication) { l.BirthYear = 2010 }),
	)

	res := Apply(table, domain.Filters{})
	assert.Equal(t, 2, res.Count)
	require.True(t, res.MeanAge.Available)
	assert.Equal(t, 35.0, res.MeanAge.Value)
}

func TestApplyGroupings(t *testing.T) {
	res := Apply(portfolio(t), domain.Filters{})

	assert.Equal(t, []domain.GroupCount{{Key: "Crédit classique", Count: 4}, {Key: "LOA", Count: 1}}, res.ByLoanType)
	assert.Equal(t, []domain.GroupCount{{Key: "A", Count: 1}, {Key: "B", Count: 3}, {Key: "C", Count: 1}}, res.ByScoreClass,
		"score classes are ordered by key")
	assert.Equal(t, []domain.GroupCount{{Key: domain.GrantedDecision, Count: 3}, {Key: "Refusé", Count: 2}}, res.ByBankDecision)
	assert.Equal(t, []domain.GroupCount{{Key: "Accepté", Count: 4}, {Key: "Refusé", Count: 1}}, res.ByClientDecision)
	assert.Equal(t, []domain.GroupCount{{Key: "Particulier", Count: 4}, {Key: "Professionnel", Count: 1}}, res.ByVehiclePurpose)
	assert.Equal(t, []domain.GroupCount{{Key: "VP", Count: 4}, {Key: "VU", Count: 1}}, res.ByVehicleType)
}

func TestApplyMonthlySeries(t *testing.T) {
	res := Apply(portfolio(t), domain.Filters{})

	require.True(t, res.HasTimeSeries())
	require.Len(t, res.Monthly, 2)
	assert.Equal(t, "2021-03-01", res.Monthly[0].Date.Format(domain.DateLayout))
	assert.Equal(t, 3, res.Monthly[0].Count)
	assert.Equal(t, "2022-01-01", res.Monthly[1].Date.Format(domain.DateLayout))
	assert.Equal(t, 1, res.Monthly[1].Count)

	// The month 13 record is counted but has no point in the series.
	assert.Equal(t, 5, res.Count)
}

func TestApplyInsufficientDateData(t *testing.T) {
	table := cleanTable(t, false,
		loan(func(l *domain.LoanApplication) { l.RequestMonth = 13 }),
		loan(func(l *domain.LoanApplication) { l.RequestMonth = 0 }),
	)

	res := Apply(table, domain.Filters{})
	assert.Equal(t, 2, res.Count)
	assert.False(t, res.HasTimeSeries())
	assert.Empty(t, res.Monthly)
}

func TestApplyTopDepartments(t *testing.T) {
	var records []domain.LoanApplication
	add := func(postal string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, loan(func(l *domain.LoanApplication) { l.PostalCode = postal }))
		}
	}
	add("75001", 10)
	add("13001", 10)
	add("69001", 5)

	res := Apply(cleanTable(t, false, records...), domain.Filters{})
	assert.Equal(t, []domain.GroupCount{
		{Key: "13", Count: 10},
		{Key: "75", Count: 10},
		{Key: "69", Count: 5},
	}, res.TopDepartments)
}

func TestApplyTopDepartmentsLimit(t *testing.T) {
	var records []domain.LoanApplication
	for dept := 10; dept < 30; dept++ {
		postal := domain.Float(float64(dept*1000 + 1)).String()
		for i := 0; i <= dept%3; i++ {
			records = append(records, loan(func(l *domain.LoanApplication) { l.PostalCode = postal }))
		}
	}

	res := Apply(cleanTable(t, false, records...), domain.Filters{})
	require.Len(t, res.TopDepartments, TopDepartmentsLimit)
	for i := 1; i < len(res.TopDepartments); i++ {
		prev, cur := res.TopDepartments[i-1], res.TopDepartments[i]
		assert.True(t, prev.Count > cur.Count || (prev.Count == cur.Count && prev.Key < cur.Key))
	}
}

func TestApplyDebtRatioBoxStats(t *testing.T) {
	table := cleanTable(t, false,
		loan(func(l *domain.LoanApplication) { l.ScoreClass = "B"; l.DebtRatio = domain.Float(10) }),
		loan(func(l *domain.LoanApplication) { l.ScoreClass = "B"; l.DebtRatio = domain.Float(50) }),
		loan(func(l *domain.LoanApplication) { l.ScoreClass = "B"; l.DebtRatio = domain.Float(30) }),
		loan(func(l *domain.LoanApplication) { l.ScoreClass = "A"; l.DebtRatio = domain.Float(20) }),
	)

	res := Apply(table, domain.Filters{})
	require.Len(t, res.DebtRatioByScoreClass, 2)

	a, b := res.DebtRatioByScoreClass[0], res.DebtRatioByScoreClass[1]
	assert.Equal(t, "A", a.ScoreClass)
	assert.Equal(t, 1, a.Count)
	assert.Equal(t, 20.0, a.Min)
	assert.Equal(t, 20.0, a.Max)

	assert.Equal(t, "B", b.ScoreClass)
	assert.Equal(t, 3, b.Count)
	assert.Equal(t, 10.0, b.Min)
	assert.Equal(t, 50.0, b.Max)
	assert.Equal(t, 30.0, b.Mean)
	assert.LessOrEqual(t, b.Min, b.Q1)
	assert.LessOrEqual(t, b.Q1, b.Median)
	assert.LessOrEqual(t, b.Median, b.Q3)
	assert.LessOrEqual(t, b.Q3, b.Max)
}

func TestFilteredResultJSON(t *testing.T) {
	res := Apply(portfolio(t), domain.Filters{domain.FieldLoanType: domain.NewValueSet()})

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded["mean_amount"])
	assert.Nil(t, decoded["grant_rate"])
	assert.Equal(t, 0.0, decoded["count"])
	assert.NotContains(t, decoded, "Records")
}

func TestOptions(t *testing.T) {
	table := cleanTable(t, false,
		loan(func(l *domain.LoanApplication) { l.RequestYear = 2021; l.ScoreClass = "C" }),
		loan(func(l *domain.LoanApplication) { l.RequestYear = 2019; l.ScoreClass = "A" }),
		loan(func(l *domain.LoanApplication) { l.RequestYear = 2020; l.ScoreClass = "A" }),
		loan(func(l *domain.LoanApplication) { l.ScoreClass = "D"; l.DebtRatio = domain.Float(120) }),
		loan(func(l *domain.LoanApplication) { l.ClientDecision = "" }),
	)

	opts := Options(table)
	assert.Equal(t, []string{"2019", "2020", "2021"}, opts[domain.FieldRequestYear])
	assert.Equal(t, []string{"A", "B", "C"}, opts[domain.FieldScoreClass], "classes removed by cleaning are not offered")
	assert.Equal(t, []string{"Accepté"}, opts[domain.FieldClientDecision])
	assert.Len(t, opts, len(domain.FilterFields))
}
