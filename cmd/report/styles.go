package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for report metric labels.
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(18)
)

// FormatPnL renders a signed PnL with a direction indicator.
func FormatPnL(pnl float64) string {
	formatted := fmt.Sprintf("%+.2f", pnl)

	if pnl > 0 {
		return formatted + " ▲"
	} else if pnl < 0 {
		return formatted + " ▼"
	}

	return formatted
}
