package agent

import (
	"context"
	"fmt"

	"github.com/ProjectTradeAI/agentrader/internal/indicator"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/moznion/go-optional"
)

// Analyst is one member of a committee. Analysts see the same bar window and
// each produce an independent decision with a confidence weight.
type Analyst interface {
	Name() string
	Analyze(ctx context.Context, symbol string, window []types.Bar, snapshot indicator.Snapshot) (types.Decision, error)
}

// TechnicalAnalyst votes from the indicator snapshot: RSI extremes first,
// then the SMA fast/slow relationship.
type TechnicalAnalyst struct{}

// Name implements Analyst.
func (a *TechnicalAnalyst) Name() string { return "technical" }

// Analyze implements Analyst.
func (a *TechnicalAnalyst) Analyze(ctx context.Context, symbol string, window []types.Bar, snapshot indicator.Snapshot) (types.Decision, error) {
	if err := ctx.Err(); err != nil {
		return types.Decision{}, err
	}

	if snapshot.RSI.IsSome() {
		rsi := snapshot.RSI.Unwrap()

		if rsi < 30 {
			return types.Decision{
				Action:     types.ActionBuy,
				Confidence: 0.8,
				Reasoning:  fmt.Sprintf("RSI oversold (%.2f)", rsi),
				Direction:  optional.None[types.Direction](),
			}, nil
		}

		if rsi > 70 {
			return types.Decision{
				Action:     types.ActionSell,
				Confidence: 0.8,
				Reasoning:  fmt.Sprintf("RSI overbought (%.2f)", rsi),
				Direction:  optional.None[types.Direction](),
			}, nil
		}
	}

	if snapshot.SMAFast.IsSome() && snapshot.SMASlow.IsSome() {
		fast, slow := snapshot.SMAFast.Unwrap(), snapshot.SMASlow.Unwrap()

		if fast > slow {
			return types.Decision{
				Action:     types.ActionBuy,
				Confidence: 0.5,
				Reasoning:  fmt.Sprintf("fast SMA %.4f above slow SMA %.4f", fast, slow),
				Direction:  optional.None[types.Direction](),
			}, nil
		}

		if fast < slow {
			return types.Decision{
				Action:     types.ActionSell,
				Confidence: 0.5,
				Reasoning:  fmt.Sprintf("fast SMA %.4f below slow SMA %.4f", fast, slow),
				Direction:  optional.None[types.Direction](),
			}, nil
		}
	}

	return types.Hold("no technical edge"), nil
}

// SentimentAnalyst approximates market sentiment from volume-weighted
// momentum over the tail of the window. It stands in for the LLM sentiment
// agent of the full system and is fully deterministic.
type SentimentAnalyst struct {
	// Lookback is how many trailing bars feed the momentum estimate.
	Lookback int
}

// Name implements Analyst.
func (a *SentimentAnalyst) Name() string { return "sentiment" }

// Analyze implements Analyst.
func (a *SentimentAnalyst) Analyze(ctx context.Context, symbol string, window []types.Bar, snapshot indicator.Snapshot) (types.Decision, error) {
	if err := ctx.Err(); err != nil {
		return types.Decision{}, err
	}

	lookback := a.Lookback
	if lookback <= 0 {
		lookback = 12
	}

	if len(window) < lookback+1 {
		return types.Hold("not enough history for sentiment"), nil
	}

	tail := window[len(window)-lookback-1:]

	var upVolume, downVolume float64

	for i := 1; i < len(tail); i++ {
		if tail[i].Close > tail[i-1].Close {
			upVolume += tail[i].Volume
		} else if tail[i].Close < tail[i-1].Close {
			downVolume += tail[i].Volume
		}
	}

	total := upVolume + downVolume
	if total == 0 {
		return types.Hold("flat tape, neutral sentiment"), nil
	}

	// score in [-1, 1]: positive when buying volume dominates.
	score := (upVolume - downVolume) / total

	switch {
	case score > 0.2:
		return types.Decision{
			Action:     types.ActionBuy,
			Confidence: score,
			Reasoning:  fmt.Sprintf("bullish volume flow (score %.2f)", score),
			Direction:  optional.None[types.Direction](),
		}, nil
	case score < -0.2:
		return types.Decision{
			Action:     types.ActionSell,
			Confidence: -score,
			Reasoning:  fmt.Sprintf("bearish volume flow (score %.2f)", score),
			Direction:  optional.None[types.Direction](),
		}, nil
	default:
		return types.Hold(fmt.Sprintf("mixed volume flow (score %.2f)", score)), nil
	}
}

// RiskAnalyst vetoes entries when volatility is out of proportion to price.
// It only ever votes HOLD (veto) or abstains with zero confidence.
type RiskAnalyst struct {
	// MaxATRRatio is the ATR/price ratio above which entries are vetoed.
	MaxATRRatio float64
}

// Name implements Analyst.
func (a *RiskAnalyst) Name() string { return "risk" }

// Analyze implements Analyst.
func (a *RiskAnalyst) Analyze(ctx context.Context, symbol string, window []types.Bar, snapshot indicator.Snapshot) (types.Decision, error) {
	if err := ctx.Err(); err != nil {
		return types.Decision{}, err
	}

	maxRatio := a.MaxATRRatio
	if maxRatio <= 0 {
		maxRatio = 0.05
	}

	if snapshot.ATR.IsNone() || len(window) == 0 {
		return types.Hold("no volatility estimate"), nil
	}

	lastClose := window[len(window)-1].Close
	if lastClose <= 0 {
		return types.Hold("no valid price"), nil
	}

	ratio := snapshot.ATR.Unwrap() / lastClose
	if ratio > maxRatio {
		return types.Decision{
			Action:     types.ActionHold,
			Confidence: 1.0,
			Reasoning:  fmt.Sprintf("volatility veto: ATR/price %.4f exceeds %.4f", ratio, maxRatio),
			Direction:  optional.None[types.Direction](),
		}, nil
	}

	return types.Hold("volatility within bounds"), nil
}
