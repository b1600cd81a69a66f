package dataprocessing

import (
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"loandash/pkg/contracts/domain"
)

// TopDepartmentsLimit is the number of departments in the ranking.
const TopDepartmentsLimit = 15

// Apply filters table and aggregates the matching records. It never fails:
// an empty selection yields zero counts, empty groupings and unavailable
// KPIs.
func Apply(table *domain.Table, filters domain.Filters) *domain.FilteredResult {
	var view []domain.LoanApplication
	table.Each(func(l domain.LoanApplication) bool {
		if filters.Matches(l) {
			view = append(view, l)
		}
		return true
	})
	return Aggregate(view, table.Extended())
}

// Aggregate computes the KPIs and groupings of a filtered view.
func Aggregate(view []domain.LoanApplication, extended bool) *domain.FilteredResult {
	res := &domain.FilteredResult{
		Records: view,
		Count:   len(view),
	}

	var (
		amounts    []float64
		debtRatios []float64
		ages       []float64
		granted    int

		loanTypes       = newCounter()
		scoreClasses    = newCounter()
		bankDecisions   = newCounter()
		clientDecisions = newCounter()
		purposes        = newCounter()
		vehicleTypes    = newCounter()
		departments     = newCounter()
		months          = make(map[time.Time]int)
		ratiosByClass   = make(map[string][]float64)
	)

	for _, l := range view {
		if l.LoanAmount.Valid {
			amounts = append(amounts, l.LoanAmount.Float64)
			res.TotalAmount += l.LoanAmount.Float64
		}
		if l.DebtRatio.Valid {
			debtRatios = append(debtRatios, l.DebtRatio.Float64)
			if l.ScoreClass != "" {
				ratiosByClass[l.ScoreClass] = append(ratiosByClass[l.ScoreClass], l.DebtRatio.Float64)
			}
		}
		if extended {
			ages = append(ages, float64(l.Age))
		}
		if l.Granted() {
			granted++
		}

		loanTypes.add(l.LoanType)
		scoreClasses.add(l.ScoreClass)
		bankDecisions.add(l.BankDecision)
		clientDecisions.add(l.ClientDecision)
		purposes.add(l.VehiclePurpose)
		vehicleTypes.add(l.VehicleType)
		departments.add(l.Department)

		if l.RequestDate.Valid {
			months[l.RequestDate.Time]++
		}
	}

	res.MeanAmount = mean(amounts)
	res.MeanDebtRatio = mean(debtRatios)
	if extended {
		res.MeanAge = mean(ages)
	}
	if res.Count > 0 {
		res.GrantRate = domain.Available(100 * float64(granted) / float64(res.Count))
	}

	res.ByLoanType = loanTypes.byCount()
	res.ByScoreClass = scoreClasses.byKey()
	res.ByBankDecision = bankDecisions.byCount()
	res.ByClientDecision = clientDecisions.byCount()
	res.ByVehiclePurpose = purposes.byCount()
	res.ByVehicleType = vehicleTypes.byCount()
	res.TopDepartments = topN(departments.byCount(), TopDepartmentsLimit)
	res.Monthly = monthlySeries(months)
	res.DebtRatioByScoreClass = boxStats(ratiosByClass)

	return res
}

func mean(values []float64) domain.KPI {
	if len(values) == 0 {
		return domain.NotAvailable
	}
	return domain.Available(stat.Mean(values, nil))
}

type counter map[string]int

func newCounter() counter { return make(counter) }

// add counts key; missing values are not a category.
func (c counter) add(key string) {
	if key != "" {
		c[key]++
	}
}

func (c counter) groups() []domain.GroupCount {
	out := make([]domain.GroupCount, 0, len(c))
	for k, n := range c {
		out = append(out, domain.GroupCount{Key: k, Count: n})
	}
	return out
}

// byCount orders by count descending, then key ascending.
func (c counter) byCount() []domain.GroupCount {
	out := c.groups()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// byKey orders by key ascending.
func (c counter) byKey() []domain.GroupCount {
	out := c.groups()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func topN(groups []domain.GroupCount, n int) []domain.GroupCount {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func monthlySeries(months map[time.Time]int) []domain.MonthlyCount {
	out := make([]domain.MonthlyCount, 0, len(months))
	for d, n := range months {
		out = append(out, domain.MonthlyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func boxStats(byClass map[string][]float64) []domain.BoxStats {
	out := make([]domain.BoxStats, 0, len(byClass))
	for class, values := range byClass {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		out = append(out, domain.BoxStats{
			ScoreClass: class,
			Count:      len(sorted),
			Min:        sorted[0],
			Q1:         stat.Quantile(0.25, stat.LinInterp, sorted, nil),
			Median:     stat.Quantile(0.5, stat.LinInterp, sorted, nil),
			Q3:         stat.Quantile(0.75, stat.LinInterp, sorted, nil),
			Max:        sorted[len(sorted)-1],
			Mean:       stat.Mean(sorted, nil),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScoreClass < out[j].ScoreClass })
	return out
}

// Options lists, for every filterable field, the distinct values present in
// the table. Values absent from the cleaned data are never offered. Years
// sort numerically, everything else lexically.
func Options(table *domain.Table) domain.FilterOptions {
	sets := make(map[domain.Field]map[string]struct{}, len(domain.FilterFields))
	for _, f := range domain.FilterFields {
		sets[f] = make(map[string]struct{})
	}
	table.Each(func(l domain.LoanApplication) bool {
		for _, f := range domain.FilterFields {
			if v := f.Value(l); v != "" {
				sets[f][v] = struct{}{}
			}
		}
		return true
	})

	opts := make(domain.FilterOptions, len(sets))
	for f, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		if f == domain.FieldRequestYear {
			sort.Slice(values, func(i, j int) bool {
				a, _ := strconv.Atoi(values[i])
				b, _ := strconv.Atoi(values[j])
				return a < b
			})
		} else {
			sort.Strings(values)
		}
		opts[f] = values
	}
	return opts
}
