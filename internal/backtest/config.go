package backtest

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v2"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// Config drives one backtest run. Loaded from YAML; validated before the
// engine starts.
type Config struct {
	Symbol   string         `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,description=Trading pair symbol such as BTCUSDT"`
	Interval types.Interval `yaml:"interval" json:"interval" validate:"required" jsonschema:"title=Interval,description=Candle interval of the market data series"`

	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance" validate:"gt=0" jsonschema:"title=Initial Balance,description=Starting cash balance in quote currency,minimum=0"`

	// WarmupBars is how many leading bars feed indicators before the first
	// decision is requested.
	WarmupBars int `yaml:"warmup_bars" json:"warmup_bars" validate:"gte=0" jsonschema:"title=Warmup Bars,description=Number of leading bars reserved for indicator warmup,minimum=0"`

	// PositionSizePct is the fraction of current cash committed per entry.
	PositionSizePct float64 `yaml:"position_size_pct" json:"position_size_pct" validate:"gt=0,lte=1" jsonschema:"title=Position Size,description=Fraction of cash committed per entry,minimum=0,maximum=1"`

	// Risk levels as fractions of the entry price. None disables the level.
	StopLossPct     optional.Option[float64] `yaml:"stop_loss_pct" json:"stop_loss_pct" jsonschema:"title=Stop Loss,description=Stop loss distance as a fraction of entry price"`
	TakeProfitPct   optional.Option[float64] `yaml:"take_profit_pct" json:"take_profit_pct" jsonschema:"title=Take Profit,description=Take profit distance as a fraction of entry price"`
	TrailingStopPct optional.Option[float64] `yaml:"trailing_stop_pct" json:"trailing_stop_pct" jsonschema:"title=Trailing Stop,description=Trailing stop distance as a fraction of the best price"`

	// DecisionTimeout bounds each decision procedure call. Zero disables the
	// per-bar deadline.
	DecisionTimeout time.Duration `yaml:"decision_timeout" json:"decision_timeout" jsonschema:"title=Decision Timeout,description=Per-bar deadline for the decision procedure"`

	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
}

// UnmarshalYAML implements custom unmarshaling for Config
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		Symbol          string         `yaml:"symbol"`
		Interval        types.Interval `yaml:"interval"`
		InitialBalance  float64        `yaml:"initial_balance"`
		WarmupBars      int            `yaml:"warmup_bars"`
		PositionSizePct float64        `yaml:"position_size_pct"`
		StopLossPct     *float64       `yaml:"stop_loss_pct"`
		TakeProfitPct   *float64       `yaml:"take_profit_pct"`
		TrailingStopPct *float64       `yaml:"trailing_stop_pct"`
		DecisionTimeout time.Duration  `yaml:"decision_timeout"`
		StartTime       *time.Time     `yaml:"start_time"`
		EndTime         *time.Time     `yaml:"end_time"`
	}

	var config plain
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Symbol = config.Symbol
	c.Interval = config.Interval
	c.InitialBalance = config.InitialBalance
	c.WarmupBars = config.WarmupBars
	c.PositionSizePct = config.PositionSizePct
	c.DecisionTimeout = config.DecisionTimeout

	if config.StopLossPct != nil {
		c.StopLossPct = optional.Some(*config.StopLossPct)
	}
	if config.TakeProfitPct != nil {
		c.TakeProfitPct = optional.Some(*config.TakeProfitPct)
	}
	if config.TrailingStopPct != nil {
		c.TrailingStopPct = optional.Some(*config.TrailingStopPct)
	}
	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}
	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// ParseConfig parses and validates a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks structural constraints plus the fraction ranges the
// validator tags cannot express for optional fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	if _, err := c.Interval.Duration(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	for name, pct := range map[string]optional.Option[float64]{
		"stop_loss_pct":     c.StopLossPct,
		"take_profit_pct":   c.TakeProfitPct,
		"trailing_stop_pct": c.TrailingStopPct,
	} {
		if pct.IsNone() {
			continue
		}

		if v := pct.Unwrap(); v <= 0 || v >= 1 {
			return errors.Newf(errors.ErrCodeBacktestConfigError, "%s must be in (0, 1), got %f", name, v)
		}
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.EndTime.Unwrap().After(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeBacktestConfigError, "end_time must be after start_time")
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[time.Time]":
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case "optional.Option[float64]":
				return &jsonschema.Schema{
					Type: "number",
				}
			case "types.Interval":
				enum := make([]any, 0, len(types.AllIntervals))
				for _, interval := range types.AllIntervals {
					enum = append(enum, string(interval))
				}

				return &jsonschema.Schema{
					Type: "string",
					Enum: enum,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// DefaultConfig returns a runnable starting point for new config files.
func DefaultConfig() Config {
	return Config{
		Symbol:          "BTCUSDT",
		Interval:        types.Interval1h,
		InitialBalance:  10000,
		WarmupBars:      30,
		PositionSizePct: 0.95,
		StopLossPct:     optional.Some(0.05),
		TakeProfitPct:   optional.Some(0.15),
		TrailingStopPct: optional.None[float64](),
		DecisionTimeout: 30 * time.Second,
		StartTime:       optional.None[time.Time](),
		EndTime:         optional.None[time.Time](),
	}
}
