package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"loandash/pkg/contracts/domain"
)

// columnAliases maps each source column to the header spellings accepted for
// it. The French names are those of the historical export.
var columnAliases = map[string][]string{
	domain.ColumnLoanType:           {"type_pret"},
	domain.ColumnVehicleType:        {"type_vehicule"},
	domain.ColumnVehiclePurpose:     {"usage_vehicule"},
	domain.ColumnScoreClass:         {"classe_de_score"},
	domain.ColumnBankDecision:       {"etat_demande"},
	domain.ColumnClientDecision:     {"decision_client"},
	domain.ColumnPostalCode:         {"code_postal"},
	domain.ColumnRequestYear:        {"annee_demande"},
	domain.ColumnRequestMonth:       {"mois_demande"},
	domain.ColumnBirthYear:          {"annee_naissance"},
	domain.ColumnLoanAmount:         {"montant_pret"},
	domain.ColumnPurchasePrice:      {"prix_achat"},
	domain.ColumnInterestRate:       {"taux_interet"},
	domain.ColumnLoanDurationMonths: {"duree_pret_mois"},
	domain.ColumnDebtRatio:          {"taux_endettement"},
}

// Schema is the position of every known column in a source header.
type Schema struct {
	index    map[string]int
	Extended bool
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// ParseHeader maps header cells to columns. Every column of the base schema
// must be present; birth_year is optional and enables the extended variant.
// The error names all missing columns.
func ParseHeader(header []string) (*Schema, error) {
	lookup := make(map[string]string)
	for col, aliases := range columnAliases {
		lookup[col] = col
		for _, a := range aliases {
			lookup[a] = col
		}
	}

	s := &Schema{index: make(map[string]int)}
	for i, cell := range header {
		col, ok := lookup[normalizeHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := s.index[col]; !seen {
			s.index[col] = i
		}
	}

	var missing []string
	for _, col := range domain.SourceColumns(false) {
		if _, ok := s.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	_, s.Extended = s.index[domain.ColumnBirthYear]
	return s, nil
}

func (s *Schema) cell(row []string, col string) string {
	i, ok := s.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseRows converts data rows to records. Blank rows are skipped. line is
// the 1-based sheet row of the first data row and is used in errors.
func (s *Schema) ParseRows(rows [][]string, line int) ([]domain.LoanApplication, error) {
	out := make([]domain.LoanApplication, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		rec, err := s.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line+i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Schema) parseRow(row []string) (domain.LoanApplication, error) {
	year, err := parseDatePart(s.cell(row, domain.ColumnRequestYear))
	if err != nil {
		return domain.LoanApplication{}, fmt.Errorf("%s: %w", domain.ColumnRequestYear, err)
	}
	month, err := parseDatePart(s.cell(row, domain.ColumnRequestMonth))
	if err != nil {
		return domain.LoanApplication{}, fmt.Errorf("%s: %w", domain.ColumnRequestMonth, err)
	}

	rec := domain.LoanApplication{
		LoanType:           s.cell(row, domain.ColumnLoanType),
		VehicleType:        s.cell(row, domain.ColumnVehicleType),
		VehiclePurpose:     s.cell(row, domain.ColumnVehiclePurpose),
		ScoreClass:         s.cell(row, domain.ColumnScoreClass),
		BankDecision:       s.cell(row, domain.ColumnBankDecision),
		ClientDecision:     s.cell(row, domain.ColumnClientDecision),
		PostalCode:         s.cell(row, domain.ColumnPostalCode),
		RequestYear:        year,
		RequestMonth:       month,
		LoanAmount:         parseNumber(s.cell(row, domain.ColumnLoanAmount)),
		PurchasePrice:      parseNumber(s.cell(row, domain.ColumnPurchasePrice)),
		InterestRate:       parseNumber(s.cell(row, domain.ColumnInterestRate)),
		LoanDurationMonths: parseWhole(s.cell(row, domain.ColumnLoanDurationMonths)),
		DebtRatio:          parseNumber(s.cell(row, domain.ColumnDebtRatio)),
	}
	if s.Extended {
		rec.BirthYear = parseWhole(s.cell(row, domain.ColumnBirthYear))
	}
	return rec, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var digitGroupSeparators = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// parseNumber accepts plain decimals as well as French formatting
// ("1 234,5"). Anything else is treated as missing.
func parseNumber(raw string) domain.NullFloat {
	if raw == "" {
		return domain.NullFloat{}
	}
	s := digitGroupSeparators.Replace(raw)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NullFloat{}
	}
	return domain.Float(v)
}

// parseWhole returns the integral value of raw, or 0 when raw is missing or
// not a whole number.
func parseWhole(raw string) int {
	n := parseNumber(raw)
	if !n.Valid || n.Float64 != math.Trunc(n.Float64) {
		return 0
	}
	return int(n.Float64)
}

// parseDatePart is strict: a present value that is not a whole number makes
// the whole source unusable.
func parseDatePart(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n := parseNumber(raw)
	if !n.Valid || n.Float64 != math.Trunc(n.Float64) || math.Abs(n.Float64) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDateParts, raw)
	}
	return int(n.Float64), nil
}
