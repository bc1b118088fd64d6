package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"MarketLens/internal/collector"
	"MarketLens/internal/model"
	"MarketLens/internal/presenter"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// renderReport prints the newest indicator rows per symbol followed by the returns table.
func renderReport(rep *collector.Report, tail int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MarketLens | " + rep.Start.Format(model.DateLayout) + " .. " + rep.End.Format(model.DateLayout)))
	b.WriteString("\n")

	for _, sym := range rep.Symbols {
		ind := rep.Indicators[sym]
		b.WriteString(headerStyle.Render(sym) + "\n")
		if ind.Empty() {
			b.WriteString(noteStyle.Render("  insufficient data") + "\n\n")
			continue
		}
		b.WriteString(renderTable(presenter.IndicatorRows(ind, tail)))
		b.WriteString("\n\n")
	}

	b.WriteString(headerStyle.Render("Cumulative returns") + "\n")
	b.WriteString(renderTable(presenter.ReturnRows(rep.Returns, rep.Symbols, tail)))
	b.WriteString("\n")

	for _, n := range rep.Notes {
		b.WriteString(noteStyle.Render("! "+n) + "\n")
	}
	return b.String()
}
