// Package indicator computes technical indicator snapshots over bar windows.
//
// Indicators are computed once per bar, before any decision procedure runs,
// into a Snapshot with explicit optional fields. A consumer never probes for
// "is this indicator present" by side channels: a None field means the window
// was too short for that calculation.
package indicator

import (
	"math"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/moznion/go-optional"
)

// Config holds the periods used for snapshot computation.
type Config struct {
	SMAFastPeriod int `yaml:"sma_fast_period" json:"sma_fast_period" validate:"gt=0"`
	SMASlowPeriod int `yaml:"sma_slow_period" json:"sma_slow_period" validate:"gt=0"`
	EMAPeriod     int `yaml:"ema_period" json:"ema_period" validate:"gt=0"`
	RSIPeriod     int `yaml:"rsi_period" json:"rsi_period" validate:"gt=0"`
	ATRPeriod     int `yaml:"atr_period" json:"atr_period" validate:"gt=0"`
}

// DefaultConfig returns the conventional periods.
func DefaultConfig() Config {
	return Config{
		SMAFastPeriod: 10,
		SMASlowPeriod: 30,
		EMAPeriod:     20,
		RSIPeriod:     14,
		ATRPeriod:     14,
	}
}

// Snapshot is the indicator state of one bar window. Fields are None when the
// window does not carry enough bars for the corresponding period.
type Snapshot struct {
	SMAFast optional.Option[float64]
	SMASlow optional.Option[float64]
	EMA     optional.Option[float64]
	RSI     optional.Option[float64]
	ATR     optional.Option[float64]
}

// ComputeSnapshot runs all configured indicators over the window. Individual
// indicators that lack data produce None fields rather than failing the
// snapshot.
func ComputeSnapshot(window []types.Bar, config Config) Snapshot {
	snapshot := Snapshot{
		SMAFast: optional.None[float64](),
		SMASlow: optional.None[float64](),
		EMA:     optional.None[float64](),
		RSI:     optional.None[float64](),
		ATR:     optional.None[float64](),
	}

	if value, err := SMA(window, config.SMAFastPeriod); err == nil {
		snapshot.SMAFast = optional.Some(value)
	}

	if value, err := SMA(window, config.SMASlowPeriod); err == nil {
		snapshot.SMASlow = optional.Some(value)
	}

	if value, err := EMA(window, config.EMAPeriod); err == nil {
		snapshot.EMA = optional.Some(value)
	}

	if value, err := RSI(window, config.RSIPeriod); err == nil {
		snapshot.RSI = optional.Some(value)
	}

	if value, err := ATR(window, config.ATRPeriod); err == nil {
		snapshot.ATR = optional.Some(value)
	}

	return snapshot
}

// SMA returns the simple moving average of the last period closes.
func SMA(window []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "SMA period must be positive, got %d", period)
	}

	if len(window) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(window), symbolOf(window),
			"SMA(%d) needs %d bars, have %d", period, period, len(window))
	}

	sum := 0.0
	for _, bar := range window[len(window)-period:] {
		sum += bar.Close
	}

	return sum / float64(period), nil
}

// EMA returns the exponential moving average of closes, seeded with the SMA
// of the first period bars.
func EMA(window []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "EMA period must be positive, got %d", period)
	}

	if len(window) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(window), symbolOf(window),
			"EMA(%d) needs %d bars, have %d", period, period, len(window))
	}

	seed := 0.0
	for _, bar := range window[:period] {
		seed += bar.Close
	}

	ema := seed / float64(period)
	multiplier := 2.0 / (float64(period) + 1.0)

	for _, bar := range window[period:] {
		ema = (bar.Close-ema)*multiplier + ema
	}

	return ema, nil
}

// RSI returns the Wilder-smoothed relative strength index of closes.
// The result is clamped to [0, 100]; an all-gain window yields 100.
func RSI(window []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "RSI period must be positive, got %d", period)
	}

	if len(window) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(window), symbolOf(window),
			"RSI(%d) needs %d bars, have %d", period, period+1, len(window))
	}

	var avgGain, avgLoss float64

	for i := 1; i <= period; i++ {
		change := window[i].Close - window[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(window); i++ {
		change := window[i].Close - window[i-1].Close

		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs), nil
}

// ATR returns the Wilder-smoothed average true range.
func ATR(window []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "ATR period must be positive, got %d", period)
	}

	if len(window) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(window), symbolOf(window),
			"ATR(%d) needs %d bars, have %d", period, period+1, len(window))
	}

	trueRange := func(current, previous types.Bar) float64 {
		highLow := current.High - current.Low
		highClose := math.Abs(current.High - previous.Close)
		lowClose := math.Abs(current.Low - previous.Close)

		return math.Max(highLow, math.Max(highClose, lowClose))
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRange(window[i], window[i-1])
	}

	atr /= float64(period)

	for i := period + 1; i < len(window); i++ {
		atr = (atr*float64(period-1) + trueRange(window[i], window[i-1])) / float64(period)
	}

	return atr, nil
}

func symbolOf(window []types.Bar) string {
	if len(window) == 0 {
		return ""
	}

	return window[0].Symbol
}
