package domain

import (
	"time"
)

// GrantedDecision is the bank decision value counted by the grant rate.
const GrantedDecision = "Octroyé"

// LoanApplication represents one row of the loan applications dataset.
// Integer fields use 0 for a missing value; categorical fields use "".
type LoanApplication struct {
	LoanType           string    `json:"loan_type"`
	VehicleType        string    `json:"vehicle_type"`
	VehiclePurpose     string    `json:"vehicle_purpose"`
	ScoreClass         string    `json:"score_class"`
	BankDecision       string    `json:"bank_decision"`
	ClientDecision     string    `json:"client_decision"`
	PostalCode         string    `json:"postal_code"`
	RequestYear        int       `json:"request_year"`
	RequestMonth       int       `json:"request_month"`
	BirthYear          int       `json:"birth_year,omitempty"`
	LoanAmount         NullFloat `json:"loan_amount"`
	PurchasePrice      NullFloat `json:"purchase_price"`
	InterestRate       NullFloat `json:"interest_rate"`
	LoanDurationMonths int       `json:"loan_duration_months"`
	DebtRatio          NullFloat `json:"debt_ratio"`

	// Derived during cleaning
	Department  string   `json:"department"`
	RequestDate NullDate `json:"request_date"`
	Age         int      `json:"age,omitempty"`
}

// Granted reports whether the bank granted the loan.
func (l LoanApplication) Granted() bool {
	return l.BankDecision == GrantedDecision
}

// Column names of the cleaned table in export order.
const (
	ColumnLoanType           = "loan_type"
	ColumnVehicleType        = "vehicle_type"
	ColumnVehiclePurpose     = "vehicle_purpose"
	ColumnScoreClass         = "score_class"
	ColumnBankDecision       = "bank_decision"
	ColumnClientDecision     = "client_decision"
	ColumnPostalCode         = "postal_code"
	ColumnRequestYear        = "request_year"
	ColumnRequestMonth       = "request_month"
	ColumnBirthYear          = "birth_year"
	ColumnLoanAmount         = "loan_amount"
	ColumnPurchasePrice      = "purchase_price"
	ColumnInterestRate       = "interest_rate"
	ColumnLoanDurationMonths = "loan_duration_months"
	ColumnDebtRatio          = "debt_ratio"
	ColumnDepartment         = "department"
	ColumnRequestDate        = "request_date"
	ColumnAge                = "age"
)

// SourceColumns returns the columns read from the source, in schema order.
// birth_year is only part of the extended variant.
func SourceColumns(extended bool) []string {
	cols := []string{
		ColumnLoanType,
		ColumnVehicleType,
		ColumnVehiclePurpose,
		ColumnScoreClass,
		ColumnBankDecision,
		ColumnClientDecision,
		ColumnPostalCode,
		ColumnRequestYear,
		ColumnRequestMonth,
	}
	if extended {
		cols = append(cols, ColumnBirthYear)
	}
	return append(cols,
		ColumnLoanAmount,
		ColumnPurchasePrice,
		ColumnInterestRate,
		ColumnLoanDurationMonths,
		ColumnDebtRatio,
	)
}

// TableColumns returns the cleaned table's field order: source columns
// followed by the derived ones.
func TableColumns(extended bool) []string {
	cols := append(SourceColumns(extended), ColumnDepartment, ColumnRequestDate)
	if extended {
		cols = append(cols, ColumnAge)
	}
	return cols
}

// Table is the cleaned, immutable dataset. It is safe to share between
// goroutines; every accessor returns copies.
type Table struct {
	records  []LoanApplication
	extended bool
	source   string
	digest   string
	loadedAt time.Time
}

// TableMeta identifies where a table came from.
type TableMeta struct {
	Source   string
	Digest   string
	Extended bool
	LoadedAt time.Time
}

// NewTable copies records into a new immutable table.
func NewTable(records []LoanApplication, meta TableMeta) *Table {
	rows := make([]LoanApplication, len(records))
	copy(rows, records)
	return &Table{
		records:  rows,
		extended: meta.Extended,
		source:   meta.Source,
		digest:   meta.Digest,
		loadedAt: meta.LoadedAt,
	}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record.
func (t *Table) At(i int) LoanApplication {
	return t.records[i]
}

// Records returns a copy of all records.
func (t *Table) Records() []LoanApplication {
	if t == nil {
		return nil
	}
	rows := make([]LoanApplication, len(t.records))
	copy(rows, t.records)
	return rows
}

// Each calls fn for every record in table order until fn returns false.
func (t *Table) Each(fn func(LoanApplication) bool) {
	if t == nil {
		return
	}
	for _, r := range t.records {
		if !fn(r) {
			return
		}
	}
}

// Extended reports whether the table carries birth_year and age.
func (t *Table) Extended() bool { return t != nil && t.extended }

// Columns returns the cleaned table's field order.
func (t *Table) Columns() []string { return TableColumns(t.Extended()) }

// Meta returns the table's identity.
func (t *Table) Meta() TableMeta {
	return TableMeta{
		Source:   t.source,
		Digest:   t.digest,
		Extended: t.extended,
		LoadedAt: t.loadedAt,
	}
}

// DatasetInfo describes the loaded table for API clients.
type DatasetInfo struct {
	Source   string    `json:"source"`
	Digest   string    `json:"digest"`
	Rows     int       `json:"rows"`
	Extended bool      `json:"extended"`
	Columns  []string  `json:"columns"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Info summarises the table.
func (t *Table) Info() DatasetInfo {
	return DatasetInfo{
		Source:   t.source,
		Digest:   t.digest,
		Rows:     len(t.records),
		Extended: t.extended,
		Columns:  t.Columns(),
		LoadedAt: t.loadedAt,
	}
}
