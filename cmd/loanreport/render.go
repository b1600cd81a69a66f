package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"loandash/pkg/contracts/domain"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorMuted  = lipgloss.Color("#6F6E69")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Width(55).
			Align(lipgloss.Center).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// table is a plain-text table with a bold header row.
type table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func renderTitle(title string) string {
	return titleStyle.Render(title)
}

func renderTable(t table) string {
	if len(t.Rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	cells := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		cells[i] = headerStyle.Render(pad(h, widths[i], i))
	}
	b.WriteString("  " + strings.Join(cells, "  ") + "\n")

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	b.WriteString("  " + mutedStyle.Render(strings.Join(rule, "  ")) + "\n")

	for _, row := range t.Rows {
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = pad(cell, widths[i], i)
		}
		b.WriteString("  " + strings.Join(cells, "  ") + "\n")
	}
	return b.String()
}

// pad left-aligns the first column and right-aligns the others.
func pad(s string, width, col int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if col == 0 {
		return s + strings.Repeat(" ", gap)
	}
	return strings.Repeat(" ", gap) + s
}

const notAvailable = "n/a"

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func formatAmount(v float64) string {
	return humanize.CommafWithDigits(v, 2) + " €"
}

func formatKPI(k domain.KPI, format func(float64) string) string {
	if !k.Available {
		return notAvailable
	}
	return format(k.Value)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatYears(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func groupRows(groups []domain.GroupCount, total int) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		share := notAvailable
		if total > 0 {
			share = formatPercent(100 * float64(g.Count) / float64(total))
		}
		rows = append(rows, []string{g.Key, formatCount(g.Count), share})
	}
	return rows
}
