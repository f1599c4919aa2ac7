package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/internal/version"
)

type RecorderTestSuite struct {
	suite.Suite
	recorder *Recorder
	result   types.BacktestResult
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (suite *RecorderTestSuite) SetupTest() {
	recorder, err := NewRecorder("", logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.recorder = recorder

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	suite.result = types.BacktestResult{
		ID:             "BTCUSDT-1h-test",
		SchemaVersion:  version.ResultSchemaVersion,
		Symbol:         "BTCUSDT",
		Interval:       types.Interval1h,
		StartTime:      start,
		EndTime:        start.Add(3 * time.Hour),
		StrategyName:   "sma_crossover",
		InitialBalance: 10000,
		FinalBalance:   10500,
		ClosedTrades: []types.ClosedTrade{
			{
				ID:             "BTCUSDT-0001",
				Symbol:         "BTCUSDT",
				Direction:      types.DirectionLong,
				EntryPrice:     100,
				ExitPrice:      105,
				Size:           100,
				EntryTimestamp: start,
				ExitTimestamp:  start.Add(3 * time.Hour),
				ExitReason:     types.ExitReasonEndOfData,
				RealizedPnL:    500,
				RealizedPnLPct: 5,
			},
		},
		EquityCurve: []types.EquityPoint{
			{Time: start, CashBalance: 10000, Equity: 10000},
			{Time: start.Add(time.Hour), CashBalance: 0, Equity: 10200},
			{Time: start.Add(2 * time.Hour), CashBalance: 0, Equity: 10400},
			{Time: start.Add(3 * time.Hour), CashBalance: 0, Equity: 10500},
		},
		Report: types.PerformanceReport{
			TotalReturnPct: 5,
			WinRate:        1,
			TotalTrades:    1,
			WinningTrades:  1,
		},
	}
}

func (suite *RecorderTestSuite) TearDownTest() {
	suite.recorder.Close()
}

func (suite *RecorderTestSuite) TestRecordAndList() {
	suite.Require().NoError(suite.recorder.Record(suite.result))

	runs, err := suite.recorder.Runs()
	suite.Require().NoError(err)
	suite.Require().Len(runs, 1)

	run := runs[0]
	suite.Equal("BTCUSDT-1h-test", run.ID)
	suite.Equal("sma_crossover", run.StrategyName)
	suite.Equal(10500.0, run.FinalBalance)
	suite.Equal(1, run.TotalTrades)

	trades, err := suite.recorder.TradeCount(run.ID)
	suite.Require().NoError(err)
	suite.Equal(1, trades)

	equity, err := suite.recorder.EquityCount(run.ID)
	suite.Require().NoError(err)
	suite.Equal(4, equity)
}

func (suite *RecorderTestSuite) TestRecordTwiceReplaces() {
	suite.Require().NoError(suite.recorder.Record(suite.result))
	suite.Require().NoError(suite.recorder.Record(suite.result))

	runs, err := suite.recorder.Runs()
	suite.Require().NoError(err)
	suite.Len(runs, 1)

	trades, err := suite.recorder.TradeCount(suite.result.ID)
	suite.Require().NoError(err)
	suite.Equal(1, trades)
}

func (suite *RecorderTestSuite) TestEmptyStoreListsNothing() {
	runs, err := suite.recorder.Runs()
	suite.Require().NoError(err)
	suite.Empty(runs)
}

func (suite *RecorderTestSuite) TestExportParquet() {
	suite.Require().NoError(suite.recorder.Record(suite.result))

	dir := suite.T().TempDir()
	suite.Require().NoError(suite.recorder.Export(dir))

	for _, name := range []string{"runs.parquet", "trades.parquet", "equity.parquet"} {
		info, err := os.Stat(filepath.Join(dir, name))
		suite.Require().NoError(err)
		suite.Greater(info.Size(), int64(0))
	}
}
