package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Direction is the side of an open exposure.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonStopLoss     ExitReason = "STOP_LOSS"
	ExitReasonTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitReasonTrailingStop ExitReason = "TRAILING_STOP"
	ExitReasonSignal       ExitReason = "SIGNAL"
	ExitReasonEndOfData    ExitReason = "END_OF_DATA"
	ExitReasonManual       ExitReason = "MANUAL"
)

// Position is an open, unrealized exposure for one symbol. At most one
// position exists per symbol at any time; the ledger enforces this.
type Position struct {
	Symbol         string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Direction      Direction `yaml:"direction" json:"direction" csv:"direction"`
	EntryPrice     float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	Size           float64   `yaml:"size" json:"size" csv:"size"`
	EntryTimestamp time.Time `yaml:"entry_timestamp" json:"entry_timestamp" csv:"entry_timestamp"`
	// StopLoss and TakeProfit are absolute price levels derived from the
	// entry percentages at open time. None means the level is not armed.
	StopLoss   optional.Option[float64] `yaml:"stop_loss" json:"stop_loss" csv:"stop_loss"`
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit" csv:"take_profit"`
	// TrailingStopPct is the configured trailing distance (0 < pct < 1).
	TrailingStopPct optional.Option[float64] `yaml:"trailing_stop_pct" json:"trailing_stop_pct" csv:"trailing_stop_pct"`
	// TrailingStopPrice is the derived ratcheting level. It only ever moves
	// in the position's favor.
	TrailingStopPrice optional.Option[float64] `yaml:"trailing_stop_price" json:"trailing_stop_price" csv:"trailing_stop_price"`
}

// UnrealizedPnL values the position at the given price without realizing it.
func (p *Position) UnrealizedPnL(currentPrice float64) float64 {
	entryDec := decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromFloat(p.Size))
	currentDec := decimal.NewFromFloat(currentPrice).Mul(decimal.NewFromFloat(p.Size))

	var pnl decimal.Decimal
	if p.Direction == DirectionShort {
		pnl = entryDec.Sub(currentDec)
	} else {
		pnl = currentDec.Sub(entryDec)
	}

	result, _ := pnl.Float64()

	return result
}

// ClosedTrade is a fully realized, immutable trade record.
type ClosedTrade struct {
	ID             string     `yaml:"id" json:"id" csv:"id"`
	Symbol         string     `yaml:"symbol" json:"symbol" csv:"symbol"`
	Direction      Direction  `yaml:"direction" json:"direction" csv:"direction"`
	EntryPrice     float64    `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice      float64    `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Size           float64    `yaml:"size" json:"size" csv:"size"`
	EntryTimestamp time.Time  `yaml:"entry_timestamp" json:"entry_timestamp" csv:"entry_timestamp"`
	ExitTimestamp  time.Time  `yaml:"exit_timestamp" json:"exit_timestamp" csv:"exit_timestamp"`
	ExitReason     ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
	RealizedPnL    float64    `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	RealizedPnLPct float64    `yaml:"realized_pnl_pct" json:"realized_pnl_pct" csv:"realized_pnl_pct"`
}

// HoldTime returns how long the trade was open.
func (t *ClosedTrade) HoldTime() time.Duration {
	return t.ExitTimestamp.Sub(t.EntryTimestamp)
}
