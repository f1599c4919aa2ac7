package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ProjectTradeAI/agentrader/internal/agent"
	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/internal/version"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// ProgressCallback is invoked after each processed bar. current is 1-based.
type ProgressCallback func(current, total int)

// Engine replays a bar series through a decision procedure against a fresh
// ledger and produces a complete BacktestResult.
//
// The replay is strictly sequential and deterministic: the same series, the
// same config and the same procedure always produce the same result. Exits
// are evaluated before the procedure is consulted, in fixed precedence:
// stop-loss, then take-profit, then trailing stop, all against the bar close.
type Engine struct {
	config     Config
	logger     *logger.Logger
	onProgress ProgressCallback
}

// NewEngine creates an engine for the given config. The config must already
// be validated.
func NewEngine(config Config, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		logger: log,
	}, nil
}

// SetProgressCallback registers a per-bar progress hook. Pass nil to clear.
func (e *Engine) SetProgressCallback(callback ProgressCallback) {
	e.onProgress = callback
}

// Run executes one backtest over the series. The series must be validated,
// strictly time-ordered and longer than the warmup window.
func (e *Engine) Run(ctx context.Context, series []types.Bar, procedure agent.DecisionProcedure) (types.BacktestResult, error) {
	if len(series) <= e.config.WarmupBars {
		return types.BacktestResult{}, errors.NewInsufficientDataErrorf(
			e.config.WarmupBars+1, len(series), e.config.Symbol,
			"series has %d bars but warmup needs at least %d", len(series), e.config.WarmupBars+1)
	}

	if err := types.ValidateSeries(series); err != nil {
		return types.BacktestResult{}, err
	}

	ledger, err := NewPositionLedger(e.config.InitialBalance, e.logger)
	if err != nil {
		return types.BacktestResult{}, err
	}

	symbol := e.config.Symbol
	total := len(series) - e.config.WarmupBars

	equityCurve := make([]types.EquityPoint, 0, total)
	decisionFailures := 0

	e.logger.Info("Starting backtest",
		zap.String("symbol", symbol),
		zap.String("strategy", procedure.Name()),
		zap.Int("bars", total),
		zap.Float64("initial_balance", e.config.InitialBalance),
	)

	for i := e.config.WarmupBars; i < len(series); i++ {
		if err := ctx.Err(); err != nil {
			return types.BacktestResult{}, errors.Wrap(errors.ErrCodeBacktestAborted, "backtest cancelled", err)
		}

		bar := series[i]

		equityCurve = append(equityCurve, types.EquityPoint{
			Time:        bar.Time,
			CashBalance: ledger.CashBalance(),
			Equity:      ledger.CashBalance() + ledger.MarkToMarket(symbol, bar.Close),
		})

		exited, err := e.applyExits(ledger, bar)
		if err != nil {
			return types.BacktestResult{}, err
		}

		if !exited {
			ledger.UpdateTrailingStop(symbol, bar.Close)

			decision, ok := e.decide(ctx, procedure, symbol, series[i-e.config.WarmupBars:i+1], bar)
			if !ok {
				if err := ctx.Err(); err != nil {
					return types.BacktestResult{}, errors.Wrap(errors.ErrCodeBacktestAborted, "backtest cancelled", err)
				}

				decisionFailures++
				decision = types.Hold("decision procedure failed")
			}

			if err := e.applyDecision(ledger, bar, decision); err != nil {
				return types.BacktestResult{}, err
			}
		}

		if e.onProgress != nil {
			e.onProgress(i-e.config.WarmupBars+1, total)
		}
	}

	// Force-close whatever is still open so every run ends flat.
	finalBar := series[len(series)-1]
	if ledger.Position(symbol).IsSome() {
		if _, err := ledger.ClosePosition(symbol, finalBar.Close, finalBar.Time, types.ExitReasonEndOfData); err != nil {
			return types.BacktestResult{}, err
		}
	}

	trades := ledger.ClosedTrades()
	report := NewPerformanceCalculator(e.config.Interval).Calculate(equityCurve, trades)

	result := types.BacktestResult{
		ID:               e.runID(series),
		SchemaVersion:    version.ResultSchemaVersion,
		Symbol:           symbol,
		Interval:         e.config.Interval,
		StartTime:        series[e.config.WarmupBars].Time,
		EndTime:          finalBar.Time,
		StrategyName:     procedure.Name(),
		InitialBalance:   e.config.InitialBalance,
		FinalBalance:     ledger.CashBalance(),
		DecisionFailures: decisionFailures,
		ClosedTrades:     trades,
		EquityCurve:      equityCurve,
		Report:           report,
	}

	e.logger.Info("Backtest finished",
		zap.String("symbol", symbol),
		zap.Float64("final_balance", result.FinalBalance),
		zap.Int("trades", len(trades)),
		zap.Int("decision_failures", decisionFailures),
	)

	return result, nil
}

// applyExits checks the open position against the bar close in fixed
// precedence and closes on the first level hit. Returns true when an exit
// fired; the procedure is not consulted on that bar.
func (e *Engine) applyExits(ledger *PositionLedger, bar types.Bar) (bool, error) {
	position, ok := ledger.Position(bar.Symbol).Take()
	if ok != nil {
		return false, nil
	}

	reason, hit := exitReason(position, bar.Close)
	if !hit {
		return false, nil
	}

	if _, err := ledger.ClosePosition(bar.Symbol, bar.Close, bar.Time, reason); err != nil {
		return false, err
	}

	return true, nil
}

// exitReason evaluates stop-loss, take-profit and trailing stop in that
// order against the close price.
func exitReason(position types.Position, close float64) (types.ExitReason, bool) {
	long := position.Direction == types.DirectionLong

	breached := func(level float64, lossSide bool) bool {
		if long == lossSide {
			return close <= level
		}

		return close >= level
	}

	if position.StopLoss.IsSome() && breached(position.StopLoss.Unwrap(), true) {
		return types.ExitReasonStopLoss, true
	}

	if position.TakeProfit.IsSome() && breached(position.TakeProfit.Unwrap(), false) {
		return types.ExitReasonTakeProfit, true
	}

	if position.TrailingStopPrice.IsSome() && breached(position.TrailingStopPrice.Unwrap(), true) {
		return types.ExitReasonTrailingStop, true
	}

	return "", false
}

// decide calls the procedure under the configured deadline. Any failure,
// timeout or invalid decision degrades to HOLD; only parent-context
// cancellation aborts the run, which the caller detects via ctx.Err().
func (e *Engine) decide(ctx context.Context, procedure agent.DecisionProcedure, symbol string, window []types.Bar, bar types.Bar) (types.Decision, bool) {
	callCtx := ctx

	if e.config.DecisionTimeout > 0 {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, e.config.DecisionTimeout)
		defer cancel()
	}

	decision, err := procedure.Decide(callCtx, symbol, window)
	if err == nil {
		err = decision.Validate()
	}

	if err != nil {
		if ctx.Err() != nil {
			return types.Decision{}, false
		}

		code := errors.ErrCodeDecisionFailed
		if callCtx.Err() == context.DeadlineExceeded {
			code = errors.ErrCodeDecisionTimeout
		}

		e.logger.Warn("Decision procedure failed, holding",
			zap.String("symbol", symbol),
			zap.Time("bar_time", bar.Time),
			zap.Int("code", int(code)),
			zap.Error(err),
		)

		return types.Decision{}, false
	}

	return decision, true
}

// applyDecision turns a decision into ledger mutations. Entry signals while
// any position is open are logged no-ops; SELL while long closes with reason
// SIGNAL; SELL while flat opens a short only when the decision explicitly
// asks for one.
func (e *Engine) applyDecision(ledger *PositionLedger, bar types.Bar, decision types.Decision) error {
	position, positionErr := ledger.Position(bar.Symbol).Take()
	hasPosition := positionErr == nil

	switch decision.Action {
	case types.ActionHold:
		return nil

	case types.ActionBuy:
		if hasPosition {
			e.logEntryIgnored(bar, position)

			return nil
		}

		return e.openFromDecision(ledger, bar, types.DirectionLong)

	case types.ActionSell:
		if hasPosition {
			if position.Direction == types.DirectionLong {
				_, err := ledger.ClosePosition(bar.Symbol, bar.Close, bar.Time, types.ExitReasonSignal)

				return err
			}

			e.logEntryIgnored(bar, position)

			return nil
		}

		if direction, err := decision.Direction.Take(); err == nil && direction == types.DirectionShort {
			return e.openFromDecision(ledger, bar, types.DirectionShort)
		}

		return nil
	}

	return errors.Newf(errors.ErrCodeInvalidDecision, "unhandled action %s", decision.Action)
}

func (e *Engine) openFromDecision(ledger *PositionLedger, bar types.Bar, direction types.Direction) error {
	if bar.Close <= 0 {
		e.logger.Warn("Skipping entry on non-positive close",
			zap.String("symbol", bar.Symbol),
			zap.Time("bar_time", bar.Time),
		)

		return nil
	}

	size := ledger.EntrySize(bar.Close, e.config.PositionSizePct)
	if size <= 0 {
		return nil
	}

	_, err := ledger.OpenPosition(OpenPositionParams{
		Symbol:          bar.Symbol,
		Direction:       direction,
		Price:           bar.Close,
		Size:            size,
		Timestamp:       bar.Time,
		StopLossPct:     e.config.StopLossPct,
		TakeProfitPct:   e.config.TakeProfitPct,
		TrailingStopPct: e.config.TrailingStopPct,
	})

	return err
}

func (e *Engine) logEntryIgnored(bar types.Bar, position types.Position) {
	e.logger.Debug("Ignoring entry signal while position open",
		zap.String("symbol", bar.Symbol),
		zap.String("open_direction", string(position.Direction)),
		zap.Time("bar_time", bar.Time),
	)
}

// runID derives a stable identifier from the run parameters so repeated runs
// over the same inputs produce identical results.
func (e *Engine) runID(series []types.Bar) string {
	first := series[e.config.WarmupBars].Time.Unix()
	last := series[len(series)-1].Time.Unix()

	return fmt.Sprintf("%s-%s-%d-%d", e.config.Symbol, e.config.Interval, first, last)
}
