package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Tiliavir/horas/internal/worklog"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	outcomeStyles = map[worklog.Outcome]lipgloss.Style{
		worklog.OutcomeCreated:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		worklog.OutcomeUpdated:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		worklog.OutcomeUnchanged: faintStyle,
		worklog.OutcomeUnmatched: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		worklog.OutcomeFailed:    errorStyle,
	}
	outcomeMarks = map[worklog.Outcome]string{
		worklog.OutcomeCreated:   "✓ Created: ",
		worklog.OutcomeUpdated:   "↑ Updated: ",
		worklog.OutcomeUnchanged: "– Same:    ",
		worklog.OutcomeUnmatched: "? No ticket:",
		worklog.OutcomeFailed:    "! Failed:  ",
	}
)

func renderOutcome(o worklog.Outcome) string {
	return outcomeStyles[o].Render(outcomeMarks[o])
}
