package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// DateLayout is the textual form of request dates.
const DateLayout = "2006-01-02"

// NullFloat is a float64 that may be missing. It encodes as JSON null when
// not valid, so NaN never reaches an encoder.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat.
func Float(v float64) NullFloat {
	if math.IsNaN(v) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// String formats the value in its shortest decimal form, or "" when missing.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*n = NullFloat{}
		return nil
	}
	*n = Float(*v)
	return nil
}

// NullDate is a calendar date that may be missing.
type NullDate struct {
	Time  time.Time
	Valid bool
}

// MonthStart returns the first day of year/month, or an invalid NullDate
// when the pair does not form a calendar month.
func MonthStart(year, month int) NullDate {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return NullDate{}
	}
	return NullDate{Time: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), Valid: true}
}

func (d NullDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d NullDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *NullDate) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = NullDate{}
		return nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return err
	}
	*d = NullDate{Time: t, Valid: true}
	return nil
}

// KPI is a scalar statistic that is not available for empty selections.
type KPI struct {
	Value     float64
	Available bool
}

// Available wraps v, treating NaN as not available.
func Available(v float64) KPI {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return KPI{}
	}
	return KPI{Value: v, Available: true}
}

// NotAvailable is the KPI for an empty selection.
var NotAvailable = KPI{}

func (k KPI) MarshalJSON() ([]byte, error) {
	if !k.Available {
		return []byte("null"), nil
	}
	return json.Marshal(k.Value)
}
