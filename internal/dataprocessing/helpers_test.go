package dataprocessing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"loandash/pkg/contracts/domain"
)

var baseHeader = []string{
	"loan_type", "vehicle_type", "vehicle_purpose", "score_class", "bank_decision",
	"client_decision", "postal_code", "request_year", "request_month",
	"loan_amount", "purchase_price", "interest_rate", "loan_duration_months", "debt_ratio",
}

var extendedHeader = []string{
	"loan_type", "vehicle_type", "vehicle_purpose", "score_class", "bank_decision",
	"client_decision", "postal_code", "request_year", "request_month", "birth_year",
	"loan_amount", "purchase_price", "interest_rate", "loan_duration_months", "debt_ratio",
}

// writeWorkbook saves header and rows to a fresh workbook and returns its
// path.
func writeWorkbook(t *testing.T, header []string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Demandes"
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &headerRow))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	path := filepath.Join(t.TempDir(), "demandes.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// row builds a base-variant source row.
func row(loanType, scoreClass, decision, postal string, year, month int, amount, debt float64) []interface{} {
	return []interface{}{
		loanType, "VP", "Particulier", scoreClass, decision, "Accepté",
		postal, year, month, amount, amount * 1.2, 4.5, 48, debt,
	}
}

// loan builds a record that survives cleaning.
func loan(mutate func(*domain.LoanApplication)) domain.LoanApplication {
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

// cleanTable runs the default pipeline over records.
func cleanTable(t *testing.T, extended bool, records ...domain.LoanApplication) *domain.Table {
	t.Helper()
	cleaned, _ := Clean(records, DefaultRules(extended))
	return domain.NewTable(cleaned, domain.TableMeta{Source: "test", Extended: extended})
}
