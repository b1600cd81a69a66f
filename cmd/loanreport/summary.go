package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"loandash/internal/dataprocessing"
	"loandash/internal/services"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print KPIs and grouped counts for the filtered view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if top < 0 || top > dataprocessing.TopDepartmentsLimit {
				return fmt.Errorf("--top must be between 0 and %d, got %d", dataprocessing.TopDepartmentsLimit, top)
			}
			filters, err := parseFilters(root.filters)
			if err != nil {
				return err
			}
			svc, err := root.load(cmd.Context(), root.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			summary, err := svc.Summary(cmd.Context(), filters)
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), summary, top)
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", dataprocessing.TopDepartmentsLimit,
		fmt.Sprintf("Number of departments to list (0 to %d)", dataprocessing.TopDepartmentsLimit))
	return cmd
}

func writeSummary(w io.Writer, s *services.Summary, top int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTitle("LOAN APPLICATIONS  "+s.Dataset.Source))
	fmt.Fprintln(w)

	if s.Empty() {
		fmt.Fprintln(w, "  No loan applications match the selected filters.")
		return
	}

	kpis := [][]string{
		{"Applications", formatCount(s.Count)},
		{"Total amount", formatAmount(s.TotalAmount)},
		{"Mean amount", formatKPI(s.MeanAmount, formatAmount)},
		{"Grant rate", formatKPI(s.GrantRate, formatPercent)},
		{"Mean debt ratio", formatKPI(s.MeanDebtRatio, formatRatio)},
	}
	if s.Dataset.Extended {
		kpis = append(kpis, []string{"Mean age", formatKPI(s.MeanAge, formatYears)})
	}
	fmt.Fprint(w, renderTable(table{Title: "Indicators", Headers: []string{"KPI", "Value"}, Rows: kpis}))

	groups := []struct {
		title string
		rows  [][]string
	}{
		{"Loan type", groupRows(s.ByLoanType, s.Count)},
		{"Score class", groupRows(s.ByScoreClass, s.Count)},
		{"Bank decision", groupRows(s.ByBankDecision, s.Count)},
		{"Client decision", groupRows(s.ByClientDecision, s.Count)},
		{"Vehicle purpose", groupRows(s.ByVehiclePurpose, s.Count)},
		{"Vehicle type", groupRows(s.ByVehicleType, s.Count)},
	}
	for _, g := range groups {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderTable(table{Title: g.title, Headers: []string{g.title, "Count", "Share"}, Rows: g.rows}))
	}

	departments := s.TopDepartments
	if top < len(departments) {
		departments = departments[:top]
	}
	if len(departments) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderTable(table{
			Title:   fmt.Sprintf("Top %d departments", len(departments)),
			Headers: []string{"Department", "Count", "Share"},
			Rows:    groupRows(departments, s.Count),
		}))
	}

	fmt.Fprintln(w)
	if !s.HasTimeSeries() {
		fmt.Fprintln(w, mutedStyle.Render("  No request dates in the selection."))
	} else {
		rows := make([][]string, 0, len(s.Monthly))
		for _, m := range s.Monthly {
			rows = append(rows, []string{m.Date.Format("2006-01"), formatCount(m.Count)})
		}
		fmt.Fprint(w, renderTable(table{Title: "Applications per month", Headers: []string{"Month", "Count"}, Rows: rows}))
	}

	if len(s.DebtRatioByScoreClass) > 0 {
		rows := make([][]string, 0, len(s.DebtRatioByScoreClass))
		for _, b := range s.DebtRatioByScoreClass {
			rows = append(rows, []string{
				b.ScoreClass, formatCount(b.Count),
				formatRatio(b.Min), formatRatio(b.Q1), formatRatio(b.Median),
				formatRatio(b.Q3), formatRatio(b.Max), formatRatio(b.Mean),
			})
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, renderTable(table{
			Title:   "Debt ratio by score class",
			Headers: []string{"Class", "Count", "Min", "Q1", "Median", "Q3", "Max", "Mean"},
			Rows:    rows,
		}))
	}
}
