package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// scriptedProcedure replays a fixed decision per absolute bar index and
// holds everywhere else. The index is recovered from the newest bar's
// timestamp, so the scripting is independent of the window the engine
// passes. errOn injects a failure at one index.
type scriptedProcedure struct {
	start     time.Time
	decisions map[int]types.Decision
	errOn     int
	delay     time.Duration
}

func newScriptedProcedure(start time.Time) *scriptedProcedure {
	return &scriptedProcedure{
		start:     start,
		decisions: make(map[int]types.Decision),
		errOn:     -1,
	}
}

func (p *scriptedProcedure) Name() string { return "scripted" }

func (p *scriptedProcedure) Decide(ctx context.Context, symbol string, window []types.Bar) (types.Decision, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return types.Decision{}, ctx.Err()
		}
	}

	index := int(window[len(window)-1].Time.Sub(p.start) / time.Hour)
	if index == p.errOn {
		return types.Decision{}, errors.New(errors.ErrCodeDecisionFailed, "scripted failure")
	}

	if decision, ok := p.decisions[index]; ok {
		return decision, nil
	}

	return types.Hold("scripted hold"), nil
}

// windowRecorder captures every window the engine passes, holding always.
type windowRecorder struct {
	windows [][]types.Bar
}

func (p *windowRecorder) Name() string { return "recorder" }

func (p *windowRecorder) Decide(ctx context.Context, symbol string, window []types.Bar) (types.Decision, error) {
	p.windows = append(p.windows, window)

	return types.Hold("recorded hold"), nil
}

func buy(confidence float64) types.Decision {
	return types.Decision{
		Action:     types.ActionBuy,
		Confidence: confidence,
		Reasoning:  "scripted buy",
		Direction:  optional.None[types.Direction](),
	}
}

func sell() types.Decision {
	return types.Decision{
		Action:     types.ActionSell,
		Confidence: 0.9,
		Reasoning:  "scripted sell",
		Direction:  optional.None[types.Direction](),
	}
}

func sellShort() types.Decision {
	return types.Decision{
		Action:     types.ActionSell,
		Confidence: 0.9,
		Reasoning:  "scripted short entry",
		Direction:  optional.Some(types.DirectionShort),
	}
}

type EngineTestSuite struct {
	suite.Suite
	start time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *EngineTestSuite) series(closes ...float64) []types.Bar {
	bars := make([]types.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, types.Bar{
			Symbol: "BTCUSDT",
			Time:   suite.start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		})
	}

	return bars
}

func (suite *EngineTestSuite) config() Config {
	return Config{
		Symbol:          "BTCUSDT",
		Interval:        types.Interval1h,
		InitialBalance:  10000,
		WarmupBars:      0,
		PositionSizePct: 1.0,
		StopLossPct:     optional.None[float64](),
		TakeProfitPct:   optional.None[float64](),
		TrailingStopPct: optional.None[float64](),
	}
}

func (suite *EngineTestSuite) run(config Config, series []types.Bar, procedure *scriptedProcedure) types.BacktestResult {
	engine, err := NewEngine(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	result, err := engine.Run(context.Background(), series, procedure)
	suite.Require().NoError(err)

	return result
}

func (suite *EngineTestSuite) TestFlatHoldRunProducesNoTrades() {
	series := suite.series(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)

	result := suite.run(suite.config(), series, newScriptedProcedure(suite.start))

	suite.Empty(result.ClosedTrades)
	suite.InDelta(10000, result.FinalBalance, 1e-9)
	suite.Len(result.EquityCurve, 10)
	suite.Equal(0, result.DecisionFailures)
	suite.Equal(0.0, result.Report.WinRate)
	suite.Equal(0.0, result.Report.ProfitFactor)
	suite.Equal(0.0, result.Report.SharpeRatio)

	for _, point := range result.EquityCurve {
		suite.InDelta(10000, point.Equity, 1e-9)
	}
}

func (suite *EngineTestSuite) TestTakeProfitFiresAtExactLevel() {
	config := suite.config()
	config.TakeProfitPct = optional.Some(0.20)

	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[1] = buy(0.9)

	// Entry at 100 on bar 1; bar 3 closes exactly at the 120 level.
	series := suite.series(100, 100, 110, 120, 120)

	result := suite.run(config, series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	trade := result.ClosedTrades[0]
	suite.Equal(types.ExitReasonTakeProfit, trade.ExitReason)
	suite.InDelta(100, trade.EntryPrice, 1e-9)
	suite.InDelta(120, trade.ExitPrice, 1e-9)
	suite.Greater(trade.RealizedPnL, 0.0)
	suite.InDelta(12000, result.FinalBalance, 1e-6)
}

func (suite *EngineTestSuite) TestStopLossFiresBeforeDecision() {
	config := suite.config()
	config.StopLossPct = optional.Some(0.05)

	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)
	// A SELL is also scripted on the stop bar; the exit must win and the
	// procedure must not be consulted there.
	procedure.decisions[1] = sell()

	series := suite.series(100, 90, 90)

	result := suite.run(config, series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	trade := result.ClosedTrades[0]
	suite.Equal(types.ExitReasonStopLoss, trade.ExitReason)
	suite.InDelta(90, trade.ExitPrice, 1e-9)
	suite.Less(trade.RealizedPnL, 0.0)
}

func (suite *EngineTestSuite) TestStopLossTakesPrecedenceOverTakeProfit() {
	config := suite.config()
	config.StopLossPct = optional.Some(0.05)
	config.TakeProfitPct = optional.Some(0.20)

	// Degenerate single-price crash: close breaches both sides is impossible
	// with one price, so craft a stop breach and verify reason is STOP_LOSS
	// even with both levels armed.
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)

	series := suite.series(100, 80, 80)

	result := suite.run(config, series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	suite.Equal(types.ExitReasonStopLoss, result.ClosedTrades[0].ExitReason)
}

func (suite *EngineTestSuite) TestTrailingStopRatchetsAndFires() {
	config := suite.config()
	config.TrailingStopPct = optional.Some(0.10)

	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)

	// Rise to 150 ratchets the stop to 135; the drop to 130 fires it.
	series := suite.series(100, 120, 150, 130, 130)

	result := suite.run(config, series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	trade := result.ClosedTrades[0]
	suite.Equal(types.ExitReasonTrailingStop, trade.ExitReason)
	suite.InDelta(130, trade.ExitPrice, 1e-9)
	suite.Greater(trade.RealizedPnL, 0.0)
}

func (suite *EngineTestSuite) TestDecisionFailureDegradesToHold() {
	procedure := newScriptedProcedure(suite.start)
	procedure.errOn = 10

	series := suite.series(
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100,
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100,
	)

	result := suite.run(suite.config(), series, procedure)

	suite.Equal(1, result.DecisionFailures)
	suite.Empty(result.ClosedTrades)
	suite.Len(result.EquityCurve, 20)
}

func (suite *EngineTestSuite) TestDecisionTimeoutDegradesToHold() {
	config := suite.config()
	config.DecisionTimeout = 10 * time.Millisecond

	procedure := newScriptedProcedure(suite.start)
	procedure.delay = 50 * time.Millisecond

	series := suite.series(100, 100, 100)

	result := suite.run(config, series, procedure)

	suite.Equal(3, result.DecisionFailures)
	suite.Empty(result.ClosedTrades)
}

func (suite *EngineTestSuite) TestEndOfDataForceCloses() {
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[1] = buy(0.9)

	series := suite.series(100, 100, 110, 115)

	result := suite.run(suite.config(), series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	trade := result.ClosedTrades[0]
	suite.Equal(types.ExitReasonEndOfData, trade.ExitReason)
	suite.InDelta(115, trade.ExitPrice, 1e-9)
	suite.InDelta(11500, result.FinalBalance, 1e-6)
}

func (suite *EngineTestSuite) TestSignalExitOnSell() {
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)
	procedure.decisions[2] = sell()

	series := suite.series(100, 105, 110, 110)

	result := suite.run(suite.config(), series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	suite.Equal(types.ExitReasonSignal, result.ClosedTrades[0].ExitReason)
	suite.InDelta(110, result.ClosedTrades[0].ExitPrice, 1e-9)
}

func (suite *EngineTestSuite) TestShortEntryRequiresExplicitDirection() {
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = sell()
	procedure.decisions[2] = sellShort()

	series := suite.series(100, 100, 100, 90, 90)

	result := suite.run(suite.config(), series, procedure)

	// Bare SELL while flat is a no-op; the explicit short opens on bar 2 and
	// force-closes profitably at end of data.
	suite.Require().Len(result.ClosedTrades, 1)
	trade := result.ClosedTrades[0]
	suite.Equal(types.DirectionShort, trade.Direction)
	suite.Greater(trade.RealizedPnL, 0.0)
}

func (suite *EngineTestSuite) TestBuyWhileLongIsNoOp() {
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)
	procedure.decisions[1] = buy(0.9)
	procedure.decisions[2] = buy(0.9)

	series := suite.series(100, 100, 100, 100)

	result := suite.run(suite.config(), series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	suite.Equal(types.ExitReasonEndOfData, result.ClosedTrades[0].ExitReason)
}

func (suite *EngineTestSuite) TestInsufficientData() {
	config := suite.config()
	config.WarmupBars = 10

	engine, err := NewEngine(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	_, err = engine.Run(context.Background(), suite.series(100, 100, 100), newScriptedProcedure(suite.start))
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *EngineTestSuite) TestCorruptSeriesAborts() {
	engine, err := NewEngine(suite.config(), logger.NewNopLogger())
	suite.Require().NoError(err)

	series := suite.series(100, 100, 100)
	series[1].High = 50 // below close

	_, err = engine.Run(context.Background(), series, newScriptedProcedure(suite.start))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidMarketData))
}

func (suite *EngineTestSuite) TestCancelledContextAborts() {
	engine, err := NewEngine(suite.config(), logger.NewNopLogger())
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = engine.Run(ctx, suite.series(100, 100, 100), newScriptedProcedure(suite.start))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestAborted))
}

func (suite *EngineTestSuite) TestWarmupDelaysFirstDecision() {
	config := suite.config()
	config.WarmupBars = 3

	procedure := newScriptedProcedure(suite.start)
	// Indices 0-2 are warmup; the first consulted bar is index 3.
	procedure.decisions[3] = buy(0.9)

	series := suite.series(100, 100, 100, 100, 100, 100)

	result := suite.run(config, series, procedure)

	suite.Len(result.EquityCurve, 3)
	suite.Require().Len(result.ClosedTrades, 1)
	suite.Equal(suite.start.Add(3*time.Hour), result.ClosedTrades[0].EntryTimestamp)
}

func (suite *EngineTestSuite) TestDeterminism() {
	config := suite.config()
	config.StopLossPct = optional.Some(0.05)
	config.TakeProfitPct = optional.Some(0.20)

	build := func() (*scriptedProcedure, []types.Bar) {
		procedure := newScriptedProcedure(suite.start)
		procedure.decisions[0] = buy(0.9)
		procedure.decisions[5] = sellShort()

		return procedure, suite.series(100, 105, 112, 120, 118, 118, 110, 108, 115, 113)
	}

	firstProcedure, firstSeries := build()
	first := suite.run(config, firstSeries, firstProcedure)

	secondProcedure, secondSeries := build()
	second := suite.run(config, secondSeries, secondProcedure)

	suite.Equal(first, second)
}

func (suite *EngineTestSuite) TestProgressCallback() {
	engine, err := NewEngine(suite.config(), logger.NewNopLogger())
	suite.Require().NoError(err)

	var calls []int
	engine.SetProgressCallback(func(current, total int) {
		suite.Equal(4, total)
		calls = append(calls, current)
	})

	_, err = engine.Run(context.Background(), suite.series(100, 100, 100, 100), newScriptedProcedure(suite.start))
	suite.Require().NoError(err)

	suite.Equal([]int{1, 2, 3, 4}, calls)
}

func (suite *EngineTestSuite) TestFullBalanceEntryOnNonRoundPrice() {
	// PositionSizePct of 1 must never trip the ledger's cost check, even when
	// price*size lands a hair above cash in float arithmetic.
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)

	price := 38200.54221788187
	series := suite.series(price, price, price)

	result := suite.run(suite.config(), series, procedure)

	suite.Require().Len(result.ClosedTrades, 1)
	suite.Equal(types.ExitReasonEndOfData, result.ClosedTrades[0].ExitReason)
	suite.InDelta(10000, result.FinalBalance, 1e-6)
}

func (suite *EngineTestSuite) TestDecisionWindowSlidesOverWarmupSpan() {
	config := suite.config()
	config.WarmupBars = 2

	series := suite.series(100, 101, 102, 103, 104, 105)

	engine, err := NewEngine(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	recorder := &windowRecorder{}
	_, err = engine.Run(context.Background(), series, recorder)
	suite.Require().NoError(err)

	// One window per consulted bar, each spanning warmup+1 bars and sliding
	// forward one bar at a time.
	suite.Require().Len(recorder.windows, 4)

	for call, window := range recorder.windows {
		suite.Require().Len(window, 3)
		suite.Equal(series[call].Time, window[0].Time)
		suite.Equal(series[call+2].Time, window[len(window)-1].Time)
	}
}

func (suite *EngineTestSuite) TestBuyWhileShortIsNoOp() {
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = sellShort()
	procedure.decisions[1] = buy(0.9)

	series := suite.series(100, 100, 90, 90)

	result := suite.run(suite.config(), series, procedure)

	// The BUY on bar 1 must not touch the short; it rides to end of data.
	suite.Require().Len(result.ClosedTrades, 1)
	trade := result.ClosedTrades[0]
	suite.Equal(types.DirectionShort, trade.Direction)
	suite.Equal(types.ExitReasonEndOfData, trade.ExitReason)
	suite.Equal(suite.start, trade.EntryTimestamp)
	suite.Greater(trade.RealizedPnL, 0.0)
}

func (suite *EngineTestSuite) TestEquityCurveMarksOpenPosition() {
	procedure := newScriptedProcedure(suite.start)
	procedure.decisions[0] = buy(0.9)

	series := suite.series(100, 110, 120)

	result := suite.run(suite.config(), series, procedure)

	// Bar 0 equity is pre-entry cash; bars 1-2 mark the open position.
	suite.InDelta(10000, result.EquityCurve[0].Equity, 1e-9)
	suite.InDelta(11000, result.EquityCurve[1].Equity, 1e-6)
	suite.InDelta(12000, result.EquityCurve[2].Equity, 1e-6)
}
