package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

// barsFromCloses builds a flat-range bar series from close prices.
func barsFromCloses(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, len(closes))

	for i, c := range closes {
		bars = append(bars, types.Bar{
			Symbol: "BTCUSDT",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		})
	}

	return bars
}

func (suite *IndicatorTestSuite) TestSMA() {
	bars := barsFromCloses(1, 2, 3, 4, 5)

	value, err := SMA(bars, 5)
	suite.Require().NoError(err)
	suite.InDelta(3.0, value, 0.0001)

	value, err = SMA(bars, 2)
	suite.Require().NoError(err)
	suite.InDelta(4.5, value, 0.0001)
}

func (suite *IndicatorTestSuite) TestSMAInsufficientData() {
	bars := barsFromCloses(1, 2, 3)

	_, err := SMA(bars, 5)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestSMAInvalidPeriod() {
	_, err := SMA(barsFromCloses(1, 2, 3), 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *IndicatorTestSuite) TestEMAFlatSeries() {
	bars := barsFromCloses(10, 10, 10, 10, 10, 10)

	value, err := EMA(bars, 3)
	suite.Require().NoError(err)
	suite.InDelta(10.0, value, 0.0001)
}

func (suite *IndicatorTestSuite) TestEMATracksRecentPrices() {
	rising := barsFromCloses(10, 11, 12, 13, 14, 15, 16, 17, 18, 19)

	ema, err := EMA(rising, 3)
	suite.Require().NoError(err)

	sma, err := SMA(rising, 10)
	suite.Require().NoError(err)

	// EMA weights recent closes more heavily than the full-window mean.
	suite.Greater(ema, sma)
}

func (suite *IndicatorTestSuite) TestRSIAllGains() {
	bars := barsFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)

	value, err := RSI(bars, 14)
	suite.Require().NoError(err)
	suite.InDelta(100.0, value, 0.0001)
}

func (suite *IndicatorTestSuite) TestRSIFlatSeriesIsNeutralOrCapped() {
	bars := barsFromCloses(5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)

	value, err := RSI(bars, 14)
	suite.Require().NoError(err)
	// No losses at all: RSI caps at 100 by convention.
	suite.InDelta(100.0, value, 0.0001)
}

func (suite *IndicatorTestSuite) TestATRFlatSeriesIsZero() {
	bars := barsFromCloses(5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)

	value, err := ATR(bars, 14)
	suite.Require().NoError(err)
	suite.InDelta(0.0, value, 0.0001)
}

func (suite *IndicatorTestSuite) TestComputeSnapshotShortWindow() {
	bars := barsFromCloses(1, 2, 3)
	snapshot := ComputeSnapshot(bars, DefaultConfig())

	suite.True(snapshot.SMAFast.IsNone())
	suite.True(snapshot.SMASlow.IsNone())
	suite.True(snapshot.RSI.IsNone())
}

func (suite *IndicatorTestSuite) TestComputeSnapshotFullWindow() {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	snapshot := ComputeSnapshot(barsFromCloses(closes...), DefaultConfig())

	suite.True(snapshot.SMAFast.IsSome())
	suite.True(snapshot.SMASlow.IsSome())
	suite.True(snapshot.EMA.IsSome())
	suite.True(snapshot.RSI.IsSome())
	suite.True(snapshot.ATR.IsSome())
	suite.Greater(snapshot.SMAFast.Unwrap(), snapshot.SMASlow.Unwrap())
}
