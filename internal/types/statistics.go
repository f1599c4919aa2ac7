package types

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is one mark-to-market snapshot of the account, appended once
// per replayed bar in series order.
type EquityPoint struct {
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// CashBalance is the cash component only.
	CashBalance float64 `yaml:"cash_balance" json:"cash_balance" csv:"cash_balance"`
	// Equity is cash plus the open position valued at the bar close.
	Equity float64 `yaml:"equity" json:"equity" csv:"equity"`
}

// PerformanceReport is derived wholesale from the closed-trade list and the
// equity curve. It is recomputed on demand and never mutated incrementally.
type PerformanceReport struct {
	TotalReturnPct float64 `yaml:"total_return_pct" json:"total_return_pct"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	// WinRate is winning trades over total closed trades, 0 when no trades.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross profit over gross loss. +Inf is a legal sentinel
	// when there are wins and no losses.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	SharpeRatio  float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// AvgHoldTimeHours is the mean closed-trade hold time in hours.
	AvgHoldTimeHours float64 `yaml:"avg_hold_time_hours" json:"avg_hold_time_hours"`
	TotalTrades      int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades    int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades     int     `yaml:"losing_trades" json:"losing_trades"`
}

// MarshalJSON renders the +Inf profit-factor sentinel as a string so the
// report always survives JSON encoding for dashboard consumers.
func (r PerformanceReport) MarshalJSON() ([]byte, error) {
	type alias PerformanceReport

	out := struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{
		alias:        alias(r),
		ProfitFactor: r.ProfitFactor,
	}

	if math.IsInf(r.ProfitFactor, 1) {
		out.ProfitFactor = "+Inf"
	}

	return json.Marshal(out)
}

// BacktestResult is the complete, serializable outcome of one backtest run.
// It is written once at run completion, never appended incrementally.
type BacktestResult struct {
	ID            string    `yaml:"id" json:"id"`
	SchemaVersion string    `yaml:"schema_version" json:"schema_version"`
	Symbol        string    `yaml:"symbol" json:"symbol"`
	Interval      Interval  `yaml:"interval" json:"interval"`
	StartTime     time.Time `yaml:"start_time" json:"start_time"`
	EndTime       time.Time `yaml:"end_time" json:"end_time"`
	StrategyName  string    `yaml:"strategy_name" json:"strategy_name"`

	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"`
	FinalBalance   float64 `yaml:"final_balance" json:"final_balance"`

	// DecisionFailures counts bars where the decision procedure failed or
	// timed out and the engine substituted HOLD.
	DecisionFailures int `yaml:"decision_failures" json:"decision_failures"`

	ClosedTrades []ClosedTrade     `yaml:"closed_trades" json:"closed_trades"`
	EquityCurve  []EquityPoint     `yaml:"equity_curve" json:"equity_curve"`
	Report       PerformanceReport `yaml:"report" json:"report"`
}

// WriteBacktestResult marshals the result to YAML and writes it in one shot.
// Writing once at completion avoids partial files on crash.
func WriteBacktestResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}

// ReadBacktestResult loads a previously written result file.
func ReadBacktestResult(path string) (BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("failed to read backtest result: %w", err)
	}

	var result BacktestResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return BacktestResult{}, fmt.Errorf("failed to unmarshal backtest result: %w", err)
	}

	return result, nil
}
