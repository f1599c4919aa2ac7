package backtest

import (
	"fmt"
	"time"

	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PositionLedger is the single source of truth for the at-most-one open
// position per symbol, the cash balance, and the append-only closed-trade
// log. All cash mutations run through decimal arithmetic.
//
// The ledger is not safe for concurrent use; each backtest run owns its own
// instance.
type PositionLedger struct {
	logger    *logger.Logger
	cash      decimal.Decimal
	positions map[string]*types.Position
	closed    []types.ClosedTrade
}

// OpenPositionParams carries everything needed to open a position. The stop,
// take-profit and trailing percentages are relative to the entry price; None
// leaves the corresponding level unarmed.
type OpenPositionParams struct {
	Symbol          string
	Direction       types.Direction
	Price           float64
	Size            float64
	Timestamp       time.Time
	StopLossPct     optional.Option[float64]
	TakeProfitPct   optional.Option[float64]
	TrailingStopPct optional.Option[float64]
}

// NewPositionLedger creates a ledger holding the initial cash balance.
func NewPositionLedger(initialBalance float64, log *logger.Logger) (*PositionLedger, error) {
	if initialBalance <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial balance must be positive, got %f", initialBalance)
	}

	return &PositionLedger{
		logger:    log,
		cash:      decimal.NewFromFloat(initialBalance),
		positions: make(map[string]*types.Position),
		closed:    nil,
	}, nil
}

// CashBalance returns the current cash component.
func (l *PositionLedger) CashBalance() float64 {
	cash, _ := l.cash.Float64()

	return cash
}

// Position returns the open position for the symbol, if any.
func (l *PositionLedger) Position(symbol string) optional.Option[types.Position] {
	position, ok := l.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(*position)
}

// ClosedTrades returns the realized trade log in close order.
func (l *PositionLedger) ClosedTrades() []types.ClosedTrade {
	trades := make([]types.ClosedTrade, len(l.closed))
	copy(trades, l.closed)

	return trades
}

// EntrySize returns the largest size whose cost at price stays within pct of
// the current cash balance, truncated to 8 decimal places. Sizing runs in
// decimal end to end so a size produced here always passes the cost check in
// OpenPosition, even at pct=1 with non-round prices.
func (l *PositionLedger) EntrySize(price, pct float64) float64 {
	if price <= 0 || pct <= 0 {
		return 0
	}

	priceDec := decimal.NewFromFloat(price)
	budget := l.cash.Mul(decimal.NewFromFloat(pct))

	size := budget.Div(priceDec).Truncate(8)
	if priceDec.Mul(size).GreaterThan(budget) {
		size = size.Sub(decimal.New(1, -8))
	}

	if size.IsNegative() {
		return 0
	}

	result, _ := size.Float64()

	return result
}

// OpenPosition opens a new position, deducting price*size from cash. The
// engine computes sizing before calling; an insufficient balance here is an
// invariant violation, not a recoverable condition.
func (l *PositionLedger) OpenPosition(params OpenPositionParams) (types.Position, error) {
	if _, exists := l.positions[params.Symbol]; exists {
		return types.Position{}, errors.Newf(errors.ErrCodePositionAlreadyOpen,
			"position already open for %s", params.Symbol)
	}

	if params.Size <= 0 {
		return types.Position{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"position size must be positive, got %f", params.Size)
	}

	if params.Price <= 0 {
		return types.Position{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"entry price must be positive, got %f", params.Price)
	}

	cost := decimal.NewFromFloat(params.Price).Mul(decimal.NewFromFloat(params.Size))
	if l.cash.LessThan(cost) {
		return types.Position{}, errors.Newf(errors.ErrCodeInsufficientBalance,
			"entry cost %s exceeds cash balance %s", cost.String(), l.cash.String())
	}

	position := &types.Position{
		Symbol:            params.Symbol,
		Direction:         params.Direction,
		EntryPrice:        params.Price,
		Size:              params.Size,
		EntryTimestamp:    params.Timestamp,
		StopLoss:          levelFromPct(params.Direction, params.Price, params.StopLossPct, false),
		TakeProfit:        levelFromPct(params.Direction, params.Price, params.TakeProfitPct, true),
		TrailingStopPct:   params.TrailingStopPct,
		TrailingStopPrice: levelFromPct(params.Direction, params.Price, params.TrailingStopPct, false),
	}

	l.cash = l.cash.Sub(cost)
	l.positions[params.Symbol] = position

	l.logger.Debug("Opened position",
		zap.String("symbol", params.Symbol),
		zap.String("direction", string(params.Direction)),
		zap.Float64("price", params.Price),
		zap.Float64("size", params.Size),
		zap.Float64("cash", l.CashBalance()),
	)

	return *position, nil
}

// UpdateTrailingStop ratchets the trailing level toward the current price
// when the position is in profit. The level only ever moves in the
// position's favor; adverse moves leave it untouched. No-op when the
// position has no trailing configuration.
func (l *PositionLedger) UpdateTrailingStop(symbol string, currentPrice float64) {
	position, ok := l.positions[symbol]
	if !ok || position.TrailingStopPct.IsNone() {
		return
	}

	pct := position.TrailingStopPct.Unwrap()

	if position.Direction == types.DirectionLong {
		if currentPrice <= position.EntryPrice {
			return
		}

		implied := currentPrice * (1 - pct)
		if position.TrailingStopPrice.IsNone() || implied > position.TrailingStopPrice.Unwrap() {
			position.TrailingStopPrice = optional.Some(implied)
		}

		return
	}

	// SHORT: ratchet the stop downward as price falls below entry.
	if currentPrice >= position.EntryPrice {
		return
	}

	implied := currentPrice * (1 + pct)
	if position.TrailingStopPrice.IsNone() || implied < position.TrailingStopPrice.Unwrap() {
		position.TrailingStopPrice = optional.Some(implied)
	}
}

// ClosePosition realizes the open position at exitPrice, credits the
// settlement back to cash, and appends an immutable ClosedTrade.
//
// LONG settlement credits exit_price*size. SHORT settlement credits
// 2*entry_price*size - exit_price*size: the margin deducted at entry plus
// the inverse price move, the 1x-margin model.
func (l *PositionLedger) ClosePosition(symbol string, exitPrice float64, timestamp time.Time, reason types.ExitReason) (types.ClosedTrade, error) {
	position, ok := l.positions[symbol]
	if !ok {
		return types.ClosedTrade{}, errors.Newf(errors.ErrCodeNoOpenPosition, "no open position for %s", symbol)
	}

	entryDec := decimal.NewFromFloat(position.EntryPrice).Mul(decimal.NewFromFloat(position.Size))
	exitDec := decimal.NewFromFloat(exitPrice).Mul(decimal.NewFromFloat(position.Size))

	var pnlDec, creditDec decimal.Decimal

	if position.Direction == types.DirectionShort {
		pnlDec = entryDec.Sub(exitDec)
		creditDec = entryDec.Add(pnlDec)
	} else {
		pnlDec = exitDec.Sub(entryDec)
		creditDec = exitDec
	}

	pnl, _ := pnlDec.Float64()

	pnlPct := 0.0
	if !entryDec.IsZero() {
		pnlPct, _ = pnlDec.Div(entryDec).Mul(decimal.NewFromInt(100)).Float64()
	}

	trade := types.ClosedTrade{
		ID:             fmt.Sprintf("%s-%04d", symbol, len(l.closed)+1),
		Symbol:         symbol,
		Direction:      position.Direction,
		EntryPrice:     position.EntryPrice,
		ExitPrice:      exitPrice,
		Size:           position.Size,
		EntryTimestamp: position.EntryTimestamp,
		ExitTimestamp:  timestamp,
		ExitReason:     reason,
		RealizedPnL:    pnl,
		RealizedPnLPct: pnlPct,
	}

	l.cash = l.cash.Add(creditDec)
	delete(l.positions, symbol)
	l.closed = append(l.closed, trade)

	l.logger.Debug("Closed position",
		zap.String("symbol", symbol),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("cash", l.CashBalance()),
	)

	return trade, nil
}

// MarkToMarket returns the settlement value of the open position at the
// current price without mutating state, 0 when the symbol is flat. Adding
// this to the cash balance yields mark-to-market equity.
func (l *PositionLedger) MarkToMarket(symbol string, currentPrice float64) float64 {
	position, ok := l.positions[symbol]
	if !ok {
		return 0
	}

	margin, _ := decimal.NewFromFloat(position.EntryPrice).
		Mul(decimal.NewFromFloat(position.Size)).Float64()

	return margin + position.UnrealizedPnL(currentPrice)
}

// levelFromPct derives an absolute level from a percentage off the entry
// price. favorable=true places the level on the profit side (take-profit),
// favorable=false on the loss side (stop levels). Mirrored for SHORT.
func levelFromPct(direction types.Direction, price float64, pct optional.Option[float64], favorable bool) optional.Option[float64] {
	if pct.IsNone() {
		return optional.None[float64]()
	}

	p := pct.Unwrap()

	long := direction == types.DirectionLong
	if long == favorable {
		return optional.Some(price * (1 + p))
	}

	return optional.Some(price * (1 - p))
}
