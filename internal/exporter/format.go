package exporter

import (
	"strconv"

	"loandash/pkg/contracts/domain"
)

// formatInt formats an integer field; 0 is the missing value and is written
// as an empty cell.
func formatInt(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}

// cellText returns the textual value of column col for l.
func cellText(l domain.LoanApplication, col string) string {
	switch col {
	case domain.ColumnLoanType:
		return l.LoanType
	case domain.ColumnVehicleType:
		return l.VehicleType
	case domain.ColumnVehiclePurpose:
		return l.VehiclePurpose
	case domain.ColumnScoreClass:
		return l.ScoreClass
	case domain.ColumnBankDecision:
		return l.BankDecision
	case domain.ColumnClientDecision:
		return l.ClientDecision
	case domain.ColumnPostalCode:
		return l.PostalCode
	case domain.ColumnRequestYear:
		return formatInt(l.RequestYear)
	case domain.ColumnRequestMonth:
		return formatInt(l.RequestMonth)
	case domain.ColumnBirthYear:
		return formatInt(l.BirthYear)
	case domain.ColumnLoanAmount:
		return l.LoanAmount.String()
	case domain.ColumnPurchasePrice:
		return l.PurchasePrice.String()
	case domain.ColumnInterestRate:
		return l.InterestRate.String()
	case domain.ColumnLoanDurationMonths:
		return formatInt(l.LoanDurationMonths)
	case domain.ColumnDebtRatio:
		return l.DebtRatio.String()
	case domain.ColumnDepartment:
		return l.Department
	case domain.ColumnRequestDate:
		return l.RequestDate.String()
	case domain.ColumnAge:
		return formatInt(l.Age)
	}
	return ""
}

// cellValue returns a typed spreadsheet value for column col, nil when
// missing. Postal codes and departments stay text to keep leading zeros.
func cellValue(l domain.LoanApplication, col string) interface{} {
	num := func(n domain.NullFloat) interface{} {
		if !n.Valid {
			return nil
		}
		return n.Float64
	}
	whole := func(i int) interface{} {
		if i == 0 {
			return nil
		}
		return i
	}

	switch col {
	case domain.ColumnRequestYear:
		return whole(l.RequestYear)
	case domain.ColumnRequestMonth:
		return whole(l.RequestMonth)
	case domain.ColumnBirthYear:
		return whole(l.BirthYear)
	case domain.ColumnLoanDurationMonths:
		return whole(l.LoanDurationMonths)
	case domain.ColumnAge:
		return whole(l.Age)
	case domain.ColumnLoanAmount:
		return num(l.LoanAmount)
	case domain.ColumnPurchasePrice:
		return num(l.PurchasePrice)
	case domain.ColumnInterestRate:
		return num(l.InterestRate)
	case domain.ColumnDebtRatio:
		return num(l.DebtRatio)
	}
	if s := cellText(l, col); s != "" {
		return s
	}
	return nil
}

// LoanRow returns the CSV cells of l in the given column order.
func LoanRow(l domain.LoanApplication, cols []string) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = cellText(l, c)
	}
	return row
}
