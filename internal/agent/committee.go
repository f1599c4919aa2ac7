package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProjectTradeAI/agentrader/internal/indicator"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/moznion/go-optional"
)

// CommitteeConfig configures the analyst committee.
type CommitteeConfig struct {
	Indicators indicator.Config `yaml:"indicators" json:"indicators"`
	// MinConfidence is the weighted-vote threshold below which the committee
	// abstains with HOLD.
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"gte=0,lte=1"`
}

// DefaultCommitteeConfig returns the standard committee setup.
func DefaultCommitteeConfig() CommitteeConfig {
	return CommitteeConfig{
		Indicators:    indicator.DefaultConfig(),
		MinConfidence: 0.35,
	}
}

// Committee is the orchestrator over a set of analysts: every analyst votes
// with a confidence, votes are summed per action, and the strongest action
// wins if it clears the confidence threshold. The committee itself satisfies
// the DecisionProcedure contract, so the engine cannot tell it apart from a
// single-rule strategy.
type Committee struct {
	config   CommitteeConfig
	analysts []Analyst
}

// NewCommittee creates a committee with the standard analyst bench.
func NewCommittee(config CommitteeConfig) *Committee {
	return &Committee{
		config: config,
		analysts: []Analyst{
			&TechnicalAnalyst{},
			&SentimentAnalyst{},
			&RiskAnalyst{},
		},
	}
}

// NewCommitteeWithAnalysts creates a committee over a caller-supplied bench.
func NewCommitteeWithAnalysts(config CommitteeConfig, analysts ...Analyst) *Committee {
	return &Committee{
		config:   config,
		analysts: analysts,
	}
}

// Name implements DecisionProcedure.
func (c *Committee) Name() string {
	return StrategyCommittee
}

// Decide implements DecisionProcedure.
func (c *Committee) Decide(ctx context.Context, symbol string, window []types.Bar) (types.Decision, error) {
	if len(c.analysts) == 0 {
		return types.Decision{}, errors.New(errors.ErrCodeDecisionFailed, "committee has no analysts")
	}

	// One snapshot feeds every analyst: indicators are computed exactly once
	// per bar, never re-derived ad hoc inside an agent.
	snapshot := indicator.ComputeSnapshot(window, c.config.Indicators)

	votes := map[types.Action]float64{}

	var reasons []string

	for _, analyst := range c.analysts {
		decision, err := analyst.Analyze(ctx, symbol, window, snapshot)
		if err != nil {
			return types.Decision{}, errors.Wrapf(errors.ErrCodeDecisionFailed, err, "analyst %s failed", analyst.Name())
		}

		votes[decision.Action] += decision.Confidence

		if decision.Confidence > 0 {
			reasons = append(reasons, fmt.Sprintf("%s: %s (%.2f)", analyst.Name(), decision.Reasoning, decision.Confidence))
		}
	}

	action, confidence := strongestVote(votes)

	if action == types.ActionHold || confidence < c.config.MinConfidence {
		return types.Hold(joinReasons(reasons, "committee abstains")), nil
	}

	// Normalize so downstream consumers still see a [0,1] confidence.
	normalized := confidence / float64(len(c.analysts))
	if normalized > 1 {
		normalized = 1
	}

	return types.Decision{
		Action:     action,
		Confidence: normalized,
		Reasoning:  joinReasons(reasons, string(action)),
		Direction:  optional.None[types.Direction](),
	}, nil
}

// strongestVote picks the action with the highest summed confidence. A HOLD
// vote total that matches or beats the best entry vote wins: the committee
// only acts on clear consensus.
func strongestVote(votes map[types.Action]float64) (types.Action, float64) {
	best, bestScore := types.ActionHold, votes[types.ActionHold]

	for _, action := range []types.Action{types.ActionBuy, types.ActionSell} {
		if votes[action] > bestScore {
			best, bestScore = action, votes[action]
		}
	}

	return best, bestScore
}

func joinReasons(reasons []string, prefix string) string {
	if len(reasons) == 0 {
		return prefix
	}

	return prefix + ": " + strings.Join(reasons, "; ")
}
