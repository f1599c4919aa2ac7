package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func validBar(ts time.Time) Bar {
	return Bar{
		Symbol: "BTCUSDT",
		Time:   ts,
		Open:   100.0,
		High:   105.0,
		Low:    98.0,
		Close:  102.0,
		Volume: 1500.0,
	}
}

func (suite *MarketTestSuite) TestValidateOK() {
	bar := validBar(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	suite.NoError(bar.Validate())
}

func (suite *MarketTestSuite) TestValidateNaN() {
	bar := validBar(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	bar.Close = math.NaN()

	err := bar.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidMarketData))
}

func (suite *MarketTestSuite) TestValidateNegativePrice() {
	bar := validBar(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	bar.Low = -1.0

	err := bar.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidMarketData))
}

func (suite *MarketTestSuite) TestValidateHighBelowClose() {
	bar := validBar(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	bar.High = 101.0
	bar.Close = 102.0

	suite.Error(bar.Validate())
}

func (suite *MarketTestSuite) TestValidateSeriesOrdering() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := []Bar{
		validBar(start),
		validBar(start.Add(time.Hour)),
		validBar(start.Add(time.Hour)), // duplicate timestamp
	}

	err := ValidateSeries(series)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidMarketData))
}

func (suite *MarketTestSuite) TestValidateSeriesOK() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := []Bar{
		validBar(start),
		validBar(start.Add(time.Hour)),
		validBar(start.Add(2 * time.Hour)),
	}

	suite.NoError(ValidateSeries(series))
}

func (suite *MarketTestSuite) TestIntervalDuration() {
	d, err := Interval1h.Duration()
	suite.NoError(err)
	suite.Equal(time.Hour, d)

	_, err = Interval("3m").Duration()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInterval))
}

func (suite *MarketTestSuite) TestIntervalPeriodsPerYear() {
	periods, err := Interval1h.PeriodsPerYear()
	suite.NoError(err)
	suite.InDelta(365*24, periods, 0.001)

	periods, err = Interval1d.PeriodsPerYear()
	suite.NoError(err)
	suite.InDelta(365, periods, 0.001)
}
