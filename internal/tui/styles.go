package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/trogers1052/portfolio-dashboard/internal/render"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	liveStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")).Padding(0, 1)
	offlineStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Padding(0, 1)
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedBG     = lipgloss.Color("236")
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	promptStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("11")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// classStyle maps a render class onto a color
func classStyle(class string) lipgloss.Style {
	switch class {
	case render.ClassUp, render.ClassPositive:
		return gainStyle
	case render.ClassDown, render.ClassNegative:
		return lossStyle
	default:
		return lipgloss.NewStyle()
	}
}

func statusBadge(connected bool) string {
	if connected {
		return liveStyle.Render(render.StatusLabel(true))
	}
	return offlineStyle.Render(render.StatusLabel(false))
}
