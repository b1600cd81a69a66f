package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Field identifies a filterable column.
type Field string

const (
	FieldLoanType       Field = "loan_type"
	FieldVehicleType    Field = "vehicle_type"
	FieldVehiclePurpose Field = "vehicle_purpose"
	FieldScoreClass     Field = "score_class"
	FieldRequestYear    Field = "request_year"
	FieldBankDecision   Field = "bank_decision"
	FieldClientDecision Field = "client_decision"
)

// FilterFields lists the filterable fields in display order.
var FilterFields = []Field{
	FieldLoanType,
	FieldVehicleType,
	FieldVehiclePurpose,
	FieldScoreClass,
	FieldRequestYear,
	FieldBankDecision,
	FieldClientDecision,
}

// ErrUnknownField is returned for filters on a column that is not filterable.
var ErrUnknownField = errors.New("unknown filter field")

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	for _, f := range FilterFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownField, name)
}

// Value returns the record's value for the field as compared by filters.
// Missing values are returned as "".
func (f Field) Value(l LoanApplication) string {
	switch f {
	case FieldLoanType:
		return l.LoanType
	case FieldVehicleType:
		return l.VehicleType
	case FieldVehiclePurpose:
		return l.VehiclePurpose
	case FieldScoreClass:
		return l.ScoreClass
	case FieldRequestYear:
		if l.RequestYear == 0 {
			return ""
		}
		return strconv.Itoa(l.RequestYear)
	case FieldBankDecision:
		return l.BankDecision
	case FieldClientDecision:
		return l.ClientDecision
	}
	return ""
}

// ValueSet is a set of accepted values for one field.
type ValueSet map[string]struct{}

// NewValueSet builds a set from values. NewValueSet() is the empty set,
// which accepts nothing.
func NewValueSet(values ...string) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s ValueSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the set members in ascending order.
func (s ValueSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Filters maps a field to its accepted values. A field absent from the map
// is unconstrained; a field mapped to an empty set matches no record.
type Filters map[Field]ValueSet

// Matches reports whether the record passes every constrained field.
func (f Filters) Matches(l LoanApplication) bool {
	for field, accepted := range f {
		if !accepted.Contains(field.Value(l)) {
			return false
		}
	}
	return true
}

// With returns a copy of f with field constrained to values.
func (f Filters) With(field Field, values ...string) Filters {
	out := make(Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[field] = NewValueSet(values...)
	return out
}

// GroupCount is one bar of a grouped count.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// MonthlyCount is one point of the monthly time series.
type MonthlyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// BoxStats summarises the debt ratio distribution of one score class.
type BoxStats struct {
	ScoreClass string  `json:"score_class"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Q1         float64 `json:"q1"`
	Median     float64 `json:"median"`
	Q3         float64 `json:"q3"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
}

// FilteredResult is the filtered view of a table with its aggregates.
type FilteredResult struct {
	Records []LoanApplication `json:"-"`

	Count         int     `json:"count"`
	TotalAmount   float64 `json:"total_amount"`
	MeanAmount    KPI     `json:"mean_amount"`
	GrantRate     KPI     `json:"grant_rate"`
	MeanDebtRatio KPI     `json:"mean_debt_ratio"`
	MeanAge       KPI     `json:"mean_age"`

	ByLoanType       []GroupCount `json:"by_loan_type"`
	ByScoreClass     []GroupCount `json:"by_score_class"`
	ByBankDecision   []GroupCount `json:"by_bank_decision"`
	ByClientDecision []GroupCount `json:"by_client_decision"`
	ByVehiclePurpose []GroupCount `json:"by_vehicle_purpose"`
	ByVehicleType    []GroupCount `json:"by_vehicle_type"`

	Monthly               []MonthlyCount `json:"monthly"`
	TopDepartments        []GroupCount   `json:"top_departments"`
	DebtRatioByScoreClass []BoxStats     `json:"debt_ratio_by_score_class"`
}

// Empty reports whether no record matched.
func (r *FilteredResult) Empty() bool { return r.Count == 0 }

// HasTimeSeries is false when every matching record lacks a request date.
func (r *FilteredResult) HasTimeSeries() bool { return len(r.Monthly) > 0 }

// Preview returns at most n records from the start of the view.
func (r *FilteredResult) Preview(n int) []LoanApplication {
	if n < 0 || n > len(r.Records) {
		n = len(r.Records)
	}
	return r.Records[:n:n]
}

// FilterOptions lists the selectable values per field.
type FilterOptions map[Field][]string
