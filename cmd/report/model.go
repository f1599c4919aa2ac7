package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/internal/version"
)

// Application states.
const (
	StateRunList = iota
	StateRunDetail
)

// Model is the Bubble Tea model for the results browser.
type Model struct {
	state      int
	results    []types.BacktestResult
	runTable   table.Model
	tradeTable table.Model
	selected   int
	err        error
	width      int
	height     int
}

// NewModel creates a model over the given results.
func NewModel(results []types.BacktestResult) Model {
	sort.Slice(results, func(i, j int) bool {
		return results[i].StartTime.After(results[j].StartTime)
	})

	return Model{
		state:      StateRunList,
		results:    results,
		runTable:   NewRunTable(results),
		tradeTable: NewTradeTable(nil),
	}
}

// LoadResults reads every compatible result file in dir.
func LoadResults(dir string) ([]types.BacktestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var results []types.BacktestResult

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		result, err := types.ReadBacktestResult(filepath.Join(dir, name))
		if err != nil {
			continue
		}

		if err := version.CheckResultSchema(result.SchemaVersion); err != nil {
			continue
		}

		results = append(results, result)
	}

	return results, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "enter":
			if m.state == StateRunList && len(m.results) > 0 {
				m.selected = m.runTable.Cursor()
				m.tradeTable = NewTradeTable(m.results[m.selected].ClosedTrades)
				m.state = StateRunDetail
			}

			return m, nil

		case "esc":
			if m.state == StateRunDetail {
				m.state = StateRunList
			}

			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd

	switch m.state {
	case StateRunList:
		m.runTable, cmd = m.runTable.Update(msg)
	case StateRunDetail:
		m.tradeTable, cmd = m.tradeTable.Update(msg)
	}

	return m, cmd
}

// NewRunTable builds the run list table.
func NewRunTable(results []types.BacktestResult) table.Model {
	columns := []table.Column{
		{Title: "Run", Width: 34},
		{Title: "Strategy", Width: 14},
		{Title: "Return", Width: 10},
		{Title: "Trades", Width: 7},
		{Title: "Win Rate", Width: 9},
		{Title: "Sharpe", Width: 7},
	}

	rows := make([]table.Row, 0, len(results))
	for _, result := range results {
		rows = append(rows, table.Row{
			result.ID,
			result.StrategyName,
			fmt.Sprintf("%+.2f%%", result.Report.TotalReturnPct),
			fmt.Sprintf("%d", result.Report.TotalTrades),
			fmt.Sprintf("%.1f%%", result.Report.WinRate*100),
			fmt.Sprintf("%.2f", result.Report.SharpeRatio),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return t
}

// NewTradeTable builds the per-run trade table.
func NewTradeTable(trades []types.ClosedTrade) table.Model {
	columns := []table.Column{
		{Title: "Trade", Width: 14},
		{Title: "Side", Width: 6},
		{Title: "Entry", Width: 11},
		{Title: "Exit", Width: 11},
		{Title: "PnL", Width: 12},
		{Title: "Reason", Width: 14},
	}

	rows := make([]table.Row, 0, len(trades))
	for _, trade := range trades {
		rows = append(rows, table.Row{
			trade.ID,
			string(trade.Direction),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			FormatPnL(trade.RealizedPnL),
			string(trade.ExitReason),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	return t
}
