// Package agent holds the decision procedures a backtest can replay against.
//
// The engine only knows the DecisionProcedure contract. Implementations range
// from a single moving-average rule to a committee of analyst agents whose
// votes an orchestrator merges into one decision. In the full research system
// the analysts are LLM-backed; here they are deterministic rule agents with
// the same contract.
package agent

import (
	"context"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// DecisionProcedure produces one trading decision per bar from the warmup
// window ending at that bar. Implementations must honor ctx cancellation:
// the engine enforces its per-bar timeout through the context deadline.
type DecisionProcedure interface {
	// Name identifies the procedure in logs and results.
	Name() string
	// Decide returns the decision for the bar at the end of window.
	Decide(ctx context.Context, symbol string, window []types.Bar) (types.Decision, error)
}

// Strategy identifiers accepted by NewDecisionProcedure.
const (
	StrategySMACrossover = "sma_crossover"
	StrategyCommittee    = "committee"
)

// NewDecisionProcedure builds a decision procedure by its CLI identifier.
func NewDecisionProcedure(name string) (DecisionProcedure, error) {
	switch name {
	case StrategySMACrossover:
		return NewSMACrossover(DefaultSMACrossoverConfig()), nil
	case StrategyCommittee:
		return NewCommittee(DefaultCommitteeConfig()), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy: %s", name)
	}
}
