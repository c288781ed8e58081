package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/trogers1052/portfolio-dashboard/internal/render"
	"github.com/trogers1052/portfolio-dashboard/internal/trading"
)

var columns = []struct {
	title string
	width int
}{
	{"SYMBOL", 8}, {"QTY", 10}, {"INVESTED", 14}, {"PRICE", 12},
	{"VALUE", 14}, {"P/L", 14}, {"P/L %", 9},
}

func cell(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Portfolio"))
	b.WriteString("  ")
	b.WriteString(statusBadge(m.connected))
	b.WriteString("\n\n")

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = cell(c.title, c.width)
	}
	b.WriteString(colHeaderStyle.Render(strings.Join(header, " ")))
	b.WriteString("\n")

	if len(m.dash.Rows) == 0 {
		b.WriteString(dimStyle.Render("No holdings"))
		b.WriteString("\n")
	}
	for i, row := range m.dash.Rows {
		b.WriteString(m.renderRow(i, row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n")

	if p := m.renderPrompt(); p != "" {
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(p))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString("\n")
		if m.isError {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(m.message)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select • s sell • d delete • p price • q quit"))
	return b.String()
}

func (m Model) renderRow(i int, row render.Row) string {
	trend := classStyle(row.TrendClass)
	result := classStyle(row.ResultClass)
	cells := []string{
		symbolStyle.Width(columns[0].width).Render(row.Symbol),
		cell(row.Quantity, columns[1].width),
		cell(row.InvestedAmount, columns[2].width),
		trend.Width(columns[3].width).Render(row.CurrentPrice),
		trend.Width(columns[4].width).Render(row.CurrentValue),
		result.Width(columns[5].width).Render(row.ProfitLoss),
		result.Width(columns[6].width).Render(row.ProfitLossPct),
	}
	line := strings.Join(cells, " ")
	if i == m.selected {
		return lipgloss.NewStyle().Background(selectedBG).Render("> " + line)
	}
	return "  " + line
}

func (m Model) renderSummary() string {
	s := m.dash.Summary
	style := classStyle(s.Class)
	return fmt.Sprintf("Total value %s   Invested %s   P/L %s (%s)",
		s.TotalCurrentValue,
		s.TotalInvestment,
		style.Render(s.TotalProfitLoss),
		style.Render(s.TotalProfitLossPct))
}

func (m Model) renderPrompt() string {
	switch m.mode {
	case modeSell:
		return fmt.Sprintf("Sell %s (max %s shares)\nQuantity: %s_\n\nenter confirm • a sell all • esc cancel",
			m.draft.Symbol, m.draft.MaxSharesDisplay, m.input)
	case modeConfirmDelete:
		return trading.DeletePrompt(m.draft) + " (y/n)"
	case modePrice:
		return fmt.Sprintf("Symbol: %s_\n\nenter look up • esc cancel", m.input)
	}
	return ""
}
