package types

import (
	"math"
	"time"

	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// Interval is the candle duration of a market data series.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// AllIntervals lists the supported candle intervals.
var AllIntervals = []Interval{
	Interval1m,
	Interval5m,
	Interval15m,
	Interval30m,
	Interval1h,
	Interval4h,
	Interval1d,
}

// Duration returns the wall-clock length of one bar of this interval.
func (i Interval) Duration() (time.Duration, error) {
	switch i {
	case Interval1m:
		return time.Minute, nil
	case Interval5m:
		return 5 * time.Minute, nil
	case Interval15m:
		return 15 * time.Minute, nil
	case Interval30m:
		return 30 * time.Minute, nil
	case Interval1h:
		return time.Hour, nil
	case Interval4h:
		return 4 * time.Hour, nil
	case Interval1d:
		return 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", i)
	}
}

// PeriodsPerYear returns how many bars of this interval fit in a year.
// Used to annualize per-bar return statistics. Crypto markets trade 24/7,
// so a year is 365 full days.
func (i Interval) PeriodsPerYear() (float64, error) {
	d, err := i.Duration()
	if err != nil {
		return 0, err
	}

	return float64(365*24*time.Hour) / float64(d), nil
}

// Bar is one OHLCV candle. Bars are immutable once loaded.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks a single bar for numeric corruption and structural
// violations. A bar that fails here must abort the whole run: a ledger built
// on corrupt prices is worse than no ledger.
func (b *Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidMarketData,
				"bar %s@%s contains NaN or Inf price", b.Symbol, b.Time.Format(time.RFC3339))
		}
	}

	if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 {
		return errors.Newf(errors.ErrCodeInvalidMarketData,
			"bar %s@%s contains negative value", b.Symbol, b.Time.Format(time.RFC3339))
	}

	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return errors.Newf(errors.ErrCodeInvalidMarketData,
			"bar %s@%s violates OHLC ordering (open=%f high=%f low=%f close=%f)",
			b.Symbol, b.Time.Format(time.RFC3339), b.Open, b.High, b.Low, b.Close)
	}

	return nil
}

// ValidateSeries checks a whole series: every bar must be individually valid
// and timestamps must be strictly increasing. The index of the first offending
// bar is included in the error for post-mortem review.
func ValidateSeries(series []Bar) error {
	for i := range series {
		if err := series[i].Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidMarketData, err, "bar %d is invalid", i)
		}

		if i > 0 && !series[i].Time.After(series[i-1].Time) {
			return errors.Newf(errors.ErrCodeInvalidMarketData,
				"bar %d timestamp %s is not after bar %d timestamp %s",
				i, series[i].Time.Format(time.RFC3339), i-1, series[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}
