package agent

import (
	"context"
	"fmt"

	"github.com/ProjectTradeAI/agentrader/internal/indicator"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/moznion/go-optional"
)

// SMACrossoverConfig holds the fast/slow periods of the crossover rule.
type SMACrossoverConfig struct {
	FastPeriod int `yaml:"fast_period" json:"fast_period" validate:"gt=0"`
	SlowPeriod int `yaml:"slow_period" json:"slow_period" validate:"gt=0,gtfield=FastPeriod"`
}

// DefaultSMACrossoverConfig returns the conventional 10/30 pairing.
func DefaultSMACrossoverConfig() SMACrossoverConfig {
	return SMACrossoverConfig{
		FastPeriod: 10,
		SlowPeriod: 30,
	}
}

// SMACrossover is the rule-based fallback decision procedure: BUY when the
// fast SMA crosses above the slow SMA on this bar, SELL when it crosses
// below, HOLD otherwise.
type SMACrossover struct {
	config SMACrossoverConfig
}

// NewSMACrossover creates the crossover procedure.
func NewSMACrossover(config SMACrossoverConfig) *SMACrossover {
	return &SMACrossover{config: config}
}

// Name implements DecisionProcedure.
func (s *SMACrossover) Name() string {
	return StrategySMACrossover
}

// Decide implements DecisionProcedure.
func (s *SMACrossover) Decide(ctx context.Context, symbol string, window []types.Bar) (types.Decision, error) {
	if err := ctx.Err(); err != nil {
		return types.Decision{}, err
	}

	// A cross is detected by comparing the SMA relationship on this bar with
	// the relationship one bar earlier, so both computations must succeed.
	if len(window) < s.config.SlowPeriod+1 {
		return types.Hold(fmt.Sprintf("warming up: %d of %d bars", len(window), s.config.SlowPeriod+1)), nil
	}

	currentFast, err := indicator.SMA(window, s.config.FastPeriod)
	if err != nil {
		return types.Decision{}, err
	}

	currentSlow, err := indicator.SMA(window, s.config.SlowPeriod)
	if err != nil {
		return types.Decision{}, err
	}

	previous := window[:len(window)-1]

	previousFast, err := indicator.SMA(previous, s.config.FastPeriod)
	if err != nil {
		return types.Decision{}, err
	}

	previousSlow, err := indicator.SMA(previous, s.config.SlowPeriod)
	if err != nil {
		return types.Decision{}, err
	}

	switch {
	case previousFast <= previousSlow && currentFast > currentSlow:
		return types.Decision{
			Action:     types.ActionBuy,
			Confidence: crossoverConfidence(currentFast, currentSlow),
			Reasoning:  fmt.Sprintf("fast SMA(%d)=%.4f crossed above slow SMA(%d)=%.4f", s.config.FastPeriod, currentFast, s.config.SlowPeriod, currentSlow),
			Direction:  optional.None[types.Direction](),
		}, nil
	case previousFast >= previousSlow && currentFast < currentSlow:
		return types.Decision{
			Action:     types.ActionSell,
			Confidence: crossoverConfidence(currentSlow, currentFast),
			Reasoning:  fmt.Sprintf("fast SMA(%d)=%.4f crossed below slow SMA(%d)=%.4f", s.config.FastPeriod, currentFast, s.config.SlowPeriod, currentSlow),
			Direction:  optional.None[types.Direction](),
		}, nil
	default:
		return types.Hold("no crossover"), nil
	}
}

// crossoverConfidence scales with the separation of the two averages,
// saturating at 1 for a 2% spread.
func crossoverConfidence(higher, lower float64) float64 {
	if lower <= 0 {
		return 0.5
	}

	spread := (higher - lower) / lower

	confidence := 0.5 + spread*25
	if confidence > 1 {
		confidence = 1
	}

	return confidence
}
