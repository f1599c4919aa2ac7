package market

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

type MemoryDataSourceTestSuite struct {
	suite.Suite
	source *MemoryDataSource
	start  time.Time
}

func TestMemoryDataSourceSuite(t *testing.T) {
	suite.Run(t, new(MemoryDataSourceTestSuite))
}

func (suite *MemoryDataSourceTestSuite) SetupTest() {
	suite.source = NewMemoryDataSource()
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series := make([]types.Bar, 0, 10)
	for i := 0; i < 10; i++ {
		price := 100.0 + float64(i)
		series = append(series, types.Bar{
			Symbol: "BTCUSDT",
			Time:   suite.start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 10,
		})
	}

	suite.source.AddSeries("BTCUSDT", series)
}

func (suite *MemoryDataSourceTestSuite) TestGetSeriesAll() {
	bars, err := suite.source.GetSeries(context.Background(), "BTCUSDT", types.Interval1h,
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Len(bars, 10)
}

func (suite *MemoryDataSourceTestSuite) TestGetSeriesBounded() {
	bars, err := suite.source.GetSeries(context.Background(), "BTCUSDT", types.Interval1h,
		optional.Some(suite.start.Add(2*time.Hour)), optional.Some(suite.start.Add(5*time.Hour)))
	suite.Require().NoError(err)
	suite.Len(bars, 4)
	suite.True(bars[0].Time.Equal(suite.start.Add(2 * time.Hour)))
}

func (suite *MemoryDataSourceTestSuite) TestGetSeriesUnknownSymbol() {
	_, err := suite.source.GetSeries(context.Background(), "DOGEUSDT", types.Interval1h,
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *MemoryDataSourceTestSuite) TestGetSeriesCorruptBar() {
	corrupt := []types.Bar{
		{
			Symbol: "ETHUSDT",
			Time:   suite.start,
			Open:   100,
			High:   101,
			Low:    99,
			Close:  math.NaN(),
			Volume: 1,
		},
	}
	suite.source.AddSeries("ETHUSDT", corrupt)

	_, err := suite.source.GetSeries(context.Background(), "ETHUSDT", types.Interval1h,
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidMarketData))
}

func (suite *MemoryDataSourceTestSuite) TestCount() {
	count, err := suite.source.Count(context.Background(), "BTCUSDT", types.Interval1h,
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(10, count)

	count, err = suite.source.Count(context.Background(), "DOGEUSDT", types.Interval1h,
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(0, count)
}
