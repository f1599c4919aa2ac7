package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

type CrossoverTestSuite struct {
	suite.Suite
	procedure *SMACrossover
}

func TestCrossoverSuite(t *testing.T) {
	suite.Run(t, new(CrossoverTestSuite))
}

func (suite *CrossoverTestSuite) SetupTest() {
	suite.procedure = NewSMACrossover(DefaultSMACrossoverConfig())
}

func barsWithCloses(closes []float64) []types.Bar {
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

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}

	return closes
}

func (suite *CrossoverTestSuite) TestWarmingUpHolds() {
	window := barsWithCloses(flatCloses(10, 100))

	decision, err := suite.procedure.Decide(context.Background(), "BTCUSDT", window)
	suite.Require().NoError(err)
	suite.Equal(types.ActionHold, decision.Action)
}

func (suite *CrossoverTestSuite) TestGoldenCrossBuys() {
	// Flat tape, then a sharp up-bar: fast SMA jumps above slow SMA on the
	// final bar while both were equal one bar earlier.
	closes := append(flatCloses(39, 100), 200)
	window := barsWithCloses(closes)

	decision, err := suite.procedure.Decide(context.Background(), "BTCUSDT", window)
	suite.Require().NoError(err)
	suite.Equal(types.ActionBuy, decision.Action)
	suite.Greater(decision.Confidence, 0.0)
	suite.True(decision.Direction.IsNone())
}

func (suite *CrossoverTestSuite) TestDeathCrossSells() {
	closes := append(flatCloses(39, 100), 50)
	window := barsWithCloses(closes)

	decision, err := suite.procedure.Decide(context.Background(), "BTCUSDT", window)
	suite.Require().NoError(err)
	suite.Equal(types.ActionSell, decision.Action)
}

func (suite *CrossoverTestSuite) TestNoCrossHolds() {
	window := barsWithCloses(flatCloses(40, 100))

	decision, err := suite.procedure.Decide(context.Background(), "BTCUSDT", window)
	suite.Require().NoError(err)
	suite.Equal(types.ActionHold, decision.Action)
}

func (suite *CrossoverTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.procedure.Decide(ctx, "BTCUSDT", barsWithCloses(flatCloses(40, 100)))
	suite.Error(err)
}

func (suite *CrossoverTestSuite) TestDeterminism() {
	closes := append(flatCloses(39, 100), 200)
	window := barsWithCloses(closes)

	first, err := suite.procedure.Decide(context.Background(), "BTCUSDT", window)
	suite.Require().NoError(err)

	second, err := suite.procedure.Decide(context.Background(), "BTCUSDT", window)
	suite.Require().NoError(err)

	suite.Equal(first, second)
}

func (suite *CrossoverTestSuite) TestFactory() {
	procedure, err := NewDecisionProcedure(StrategySMACrossover)
	suite.Require().NoError(err)
	suite.Equal(StrategySMACrossover, procedure.Name())

	procedure, err = NewDecisionProcedure(StrategyCommittee)
	suite.Require().NoError(err)
	suite.Equal(StrategyCommittee, procedure.Name())

	_, err = NewDecisionProcedure("martingale")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))
}
