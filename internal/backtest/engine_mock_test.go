package backtest_test

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/ProjectTradeAI/agentrader/internal/backtest"
	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/mocks"
)

type EngineMockTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
}

func TestEngineMockSuite(t *testing.T) {
	suite.Run(t, new(EngineMockTestSuite))
}

func (suite *EngineMockTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
}

func (suite *EngineMockTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *EngineMockTestSuite) TestProcedureConsultedOncePerBar() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series := make([]types.Bar, 0, 8)
	for i := 0; i < 8; i++ {
		series = append(series, types.Bar{
			Symbol: "BTCUSDT",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   100, High: 100, Low: 100, Close: 100,
			Volume: 10,
		})
	}

	config := backtest.Config{
		Symbol:          "BTCUSDT",
		Interval:        types.Interval1h,
		InitialBalance:  10000,
		WarmupBars:      3,
		PositionSizePct: 1.0,
	}

	procedure := mocks.NewMockDecisionProcedure(suite.ctrl)
	procedure.EXPECT().Name().Return("mocked").AnyTimes()
	// 8 bars minus 3 warmup: exactly 5 decisions, newest window each time.
	procedure.EXPECT().
		Decide(gomock.Any(), "BTCUSDT", gomock.Any()).
		Return(types.Hold("mock hold"), nil).
		Times(5)

	engine, err := backtest.NewEngine(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	result, err := engine.Run(context.Background(), series, procedure)
	suite.Require().NoError(err)
	suite.Equal("mocked", result.StrategyName)
	suite.Empty(result.ClosedTrades)
}

func (suite *EngineMockTestSuite) TestMockDataSourceFeedsEngine() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series := make([]types.Bar, 0, 5)
	for i := 0; i < 5; i++ {
		series = append(series, types.Bar{
			Symbol: "ETHUSDT",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   2000, High: 2000, Low: 2000, Close: 2000,
			Volume: 10,
		})
	}

	source := mocks.NewMockDataSource(suite.ctrl)
	source.EXPECT().
		GetSeries(gomock.Any(), "ETHUSDT", types.Interval1h, gomock.Any(), gomock.Any()).
		Return(series, nil)

	fetched, err := source.GetSeries(context.Background(), "ETHUSDT", types.Interval1h,
		optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)

	config := backtest.Config{
		Symbol:          "ETHUSDT",
		Interval:        types.Interval1h,
		InitialBalance:  10000,
		PositionSizePct: 0.5,
	}

	procedure := mocks.NewMockDecisionProcedure(suite.ctrl)
	procedure.EXPECT().Name().Return("mocked").AnyTimes()
	procedure.EXPECT().
		Decide(gomock.Any(), "ETHUSDT", gomock.Any()).
		Return(types.Hold("mock hold"), nil).
		AnyTimes()

	engine, err := backtest.NewEngine(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	result, err := engine.Run(context.Background(), fetched, procedure)
	suite.Require().NoError(err)
	suite.Len(result.EquityCurve, 5)
}
