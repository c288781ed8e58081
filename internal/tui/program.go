package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
)

// sender is the part of *tea.Program the adapter needs
type sender interface {
	Send(msg tea.Msg)
}

// ProgramView forwards row model changes and live status into a running
// program.
type ProgramView struct {
	p sender
}

// NewProgramView wraps a program
func NewProgramView(p *tea.Program) *ProgramView {
	return &ProgramView{p: p}
}

// Render implements portfolio.View
func (v *ProgramView) Render(s portfolio.Snapshot) {
	v.p.Send(SnapshotMsg{Snapshot: s})
}

// Status is a live.StatusFunc
func (v *ProgramView) Status(connected bool) {
	v.p.Send(StatusMsg{Connected: connected})
}
