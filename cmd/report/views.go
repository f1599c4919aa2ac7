package main

import (
	"fmt"
	"math"
	"strings"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	switch m.state {
	case StateRunDetail:
		return m.detailView()
	default:
		return m.listView()
	}
}

func (m Model) listView() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Backtest Runs"))
	b.WriteString("\n\n")

	if len(m.results) == 0 {
		b.WriteString("No results found.\n\n")
		b.WriteString(HelpStyle.Render("q: quit"))

		return b.String()
	}

	b.WriteString(m.runTable.View())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("↑/↓: navigate • enter: details • q: quit"))

	return b.String()
}

func (m Model) detailView() string {
	result := m.results[m.selected]
	report := result.Report

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Run " + result.ID))
	b.WriteString("\n\n")

	profitFactor := fmt.Sprintf("%.2f", report.ProfitFactor)
	if math.IsInf(report.ProfitFactor, 1) {
		profitFactor = "+Inf"
	}

	lines := []struct {
		label string
		value string
	}{
		{"Strategy", result.StrategyName},
		{"Symbol", fmt.Sprintf("%s (%s)", result.Symbol, result.Interval)},
		{"Period", fmt.Sprintf("%s → %s", result.StartTime.Format("2006-01-02"), result.EndTime.Format("2006-01-02"))},
		{"Balance", fmt.Sprintf("%.2f → %.2f", result.InitialBalance, result.FinalBalance)},
		{"Total return", fmt.Sprintf("%+.2f%%", report.TotalReturnPct)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", report.MaxDrawdownPct)},
		{"Win rate", fmt.Sprintf("%.1f%% (%d/%d)", report.WinRate*100, report.WinningTrades, report.TotalTrades)},
		{"Profit factor", profitFactor},
		{"Sharpe ratio", fmt.Sprintf("%.2f", report.SharpeRatio)},
		{"Avg hold time", fmt.Sprintf("%.1fh", report.AvgHoldTimeHours)},
		{"Decision failures", fmt.Sprintf("%d", result.DecisionFailures)},
	}

	for _, line := range lines {
		b.WriteString(LabelStyle.Render(line.label))
		b.WriteString(line.value)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Trades"))
	b.WriteString("\n")

	if len(result.ClosedTrades) == 0 {
		b.WriteString("No trades.\n")
	} else {
		b.WriteString(m.tradeTable.View())
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("esc: back • q: quit"))

	return b.String()
}
