package types

import (
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
)

// Action is the trading action requested by a decision procedure.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the typed output of one decision-procedure call for one bar.
// Confidence expresses how strongly the procedure believes in the action and
// is used by the committee orchestrator for weighted voting.
type Decision struct {
	Action     Action  `yaml:"action" json:"action" validate:"required,oneof=BUY SELL HOLD"`
	Confidence float64 `yaml:"confidence" json:"confidence" validate:"gte=0,lte=1"`
	Reasoning  string  `yaml:"reasoning" json:"reasoning"`
	// Direction requests a SHORT entry on SELL. When absent, SELL only ever
	// closes an open LONG and never opens a SHORT.
	Direction optional.Option[Direction] `yaml:"direction" json:"direction"`
}

// Hold returns a HOLD decision with the given reasoning. Used by the engine
// as the substitute when a decision procedure fails or times out.
func Hold(reasoning string) Decision {
	return Decision{
		Action:     ActionHold,
		Confidence: 0,
		Reasoning:  reasoning,
		Direction:  optional.None[Direction](),
	}
}

// Validate validates the Decision struct.
func (d *Decision) Validate() error {
	validate := validator.New()
	if err := validate.Struct(d); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDecision, "invalid decision", err)
	}

	return nil
}
