package dataprocessing

import (
	"math"
	"strconv"
	"strings"

	"loandash/pkg/contracts/domain"
)

// PostalCodeLength is the width postal codes are padded to.
const PostalCodeLength = 5

// MinimumAge is the youngest applicant kept in the extended variant.
const MinimumAge = 18

// CleaningRule is one named step of the cleaning pipeline. Apply may update
// the record in place and returns false to drop it.
type CleaningRule struct {
	Name  string
	Apply func(*domain.LoanApplication) bool
}

// Rule names, also used as metric labels.
const (
	RuleDebtRatioInRange    = "debt_ratio_in_range"
	RuleAdultApplicant      = "adult_applicant"
	RuleNormalizePostalCode = "normalize_postal_code"
	RuleDeriveRequestDate   = "derive_request_date"
)

// DebtRatioInRange keeps records whose debt ratio is present and within
// [0, 100].
var DebtRatioInRange = CleaningRule{
	Name: RuleDebtRatioInRange,
	Apply: func(l *domain.LoanApplication) bool {
		return l.DebtRatio.Valid && l.DebtRatio.Float64 >= 0 && l.DebtRatio.Float64 <= 100
	},
}

// AdultApplicant derives the age and keeps applicants of at least
// MinimumAge. Records lacking either year cannot be aged and are dropped.
var AdultApplicant = CleaningRule{
	Name: RuleAdultApplicant,
	Apply: func(l *domain.LoanApplication) bool {
		if l.RequestYear == 0 || l.BirthYear == 0 {
			return false
		}
		l.Age = l.RequestYear - l.BirthYear
		return l.Age >= MinimumAge
	},
}

// NormalizePostalCode left pads the postal code with zeros and derives the
// department. Codes that are empty, not numeric or longer than
// PostalCodeLength are rejected.
var NormalizePostalCode = CleaningRule{
	Name: RuleNormalizePostalCode,
	Apply: func(l *domain.LoanApplication) bool {
		code, ok := normalizePostalCode(l.PostalCode)
		if !ok {
			return false
		}
		l.PostalCode = code
		l.Department = code[:2]
		return true
	},
}

// DeriveRequestDate sets the request date to the first day of the request
// month. Invalid year/month pairs leave the date null; the record is kept.
var DeriveRequestDate = CleaningRule{
	Name: RuleDeriveRequestDate,
	Apply: func(l *domain.LoanApplication) bool {
		l.RequestDate = domain.MonthStart(l.RequestYear, l.RequestMonth)
		return true
	},
}

func normalizePostalCode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	// Numeric cells can come through as "1000.0".
	if strings.ContainsAny(s, ".,") {
		v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil || v < 0 || v != math.Trunc(v) {
			return "", false
		}
		s = strconv.FormatFloat(v, 'f', 0, 64)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if len(s) > PostalCodeLength {
		return "", false
	}
	return strings.Repeat("0", PostalCodeLength-len(s)) + s, true
}

// DefaultRules returns the pipeline in application order.
func DefaultRules(extended bool) []CleaningRule {
	rules := []CleaningRule{DebtRatioInRange}
	if extended {
		rules = append(rules, AdultApplicant)
	}
	return append(rules, NormalizePostalCode, DeriveRequestDate)
}

// CleaningReport counts the records each rule dropped.
type CleaningReport struct {
	Input   int
	Kept    int
	Dropped map[string]int
}

// Clean runs rules over copies of records and returns the survivors in
// input order. A record is kept only if every rule keeps it.
func Clean(records []domain.LoanApplication, rules []CleaningRule) ([]domain.LoanApplication, CleaningReport) {
	report := CleaningReport{Input: len(records), Dropped: make(map[string]int)}
	out := make([]domain.LoanApplication, 0, len(records))

next:
	for _, rec := range records {
		for _, rule := range rules {
			if !rule.Apply(&rec) {
				report.Dropped[rule.Name]++
				continue next
			}
		}
		out = append(out, rec)
	}

	report.Kept = len(out)
	return out, report
}
