package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"loandash/internal/dataprocessing"
	"loandash/pkg/contracts/domain"
)

// LoanHeader is the base-variant source header.
var LoanHeader = []string{
	"loan_type", "vehicle_type", "vehicle_purpose", "score_class", "bank_decision",
	"client_decision", "postal_code", "request_year", "request_month",
	"loan_amount", "purchase_price", "interest_rate", "loan_duration_months", "debt_ratio",
}

// Loan builds a raw record that survives cleaning; mutate adjusts it.
func Loan(mutate func(*domain.LoanApplication)) domain.LoanApplication {
	l := domain.LoanApplication{
		LoanType:           "Crédit classique",
		VehicleType:        "VP",
		VehiclePurpose:     "Particulier",
		ScoreClass:         "B",
		BankDecision:       domain.GrantedDecision,
		ClientDecision:     "Accepté",
		PostalCode:         "75001",
		RequestYear:        2021,
		RequestMonth:       3,
		LoanAmount:         domain.Float(10000),
		PurchasePrice:      domain.Float(12000),
		InterestRate:       domain.Float(4.5),
		LoanDurationMonths: 48,
		DebtRatio:          domain.Float(30),
	}
	if mutate != nil {
		mutate(&l)
	}
	return l
}

// Table cleans records with the default rules and wraps them in a table.
func Table(t testing.TB, extended bool, records ...domain.LoanApplication) *domain.Table {
	t.Helper()
	cleaned, _ := dataprocessing.Clean(records, dataprocessing.DefaultRules(extended))
	return domain.NewTable(cleaned, domain.TableMeta{Source: "testutil", Extended: extended})
}

// WriteLoansCSV writes records as a base-variant CSV source into dir and
// returns its path.
func WriteLoansCSV(t testing.TB, dir, name string, records ...domain.LoanApplication) string {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(LoanHeader))
	for _, l := range records {
		require.NoError(t, w.Write([]string{
			l.LoanType, l.VehicleType, l.VehiclePurpose, l.ScoreClass, l.BankDecision,
			l.ClientDecision, l.PostalCode, itoa(l.RequestYear), itoa(l.RequestMonth),
			l.LoanAmount.String(), l.PurchasePrice.String(), l.InterestRate.String(),
			itoa(l.LoanDurationMonths), l.DebtRatio.String(),
		}))
	}
	w.Flush()
	require.NoError(t, w.Error())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func itoa(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}
