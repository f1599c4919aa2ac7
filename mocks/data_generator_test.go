package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ProjectTradeAI/agentrader/internal/types"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestGeneratedSeriesIsValid() {
	gen := NewDataGenerator(42)
	series := gen.Generate(DefaultGeneratorConfig())

	suite.Len(series, 1000)
	suite.NoError(types.ValidateSeries(series))
}

func (suite *DataGeneratorTestSuite) TestSameSeedIsReproducible() {
	config := DefaultGeneratorConfig()
	config.Count = 200

	first := NewDataGenerator(7).Generate(config)
	second := NewDataGenerator(7).Generate(config)

	suite.Equal(first, second)
}

func (suite *DataGeneratorTestSuite) TestDifferentSeedsDiffer() {
	config := DefaultGeneratorConfig()
	config.Count = 200

	first := NewDataGenerator(1).Generate(config)
	second := NewDataGenerator(2).Generate(config)

	suite.NotEqual(first, second)
}

func (suite *DataGeneratorTestSuite) TestTrendMovesPrice() {
	bullish := GenerateTrending("BTCUSDT", 2000, 0.5)
	bearish := GenerateTrending("BTCUSDT", 2000, -0.5)

	suite.Greater(bullish[len(bullish)-1].Close/bullish[0].Close,
		bearish[len(bearish)-1].Close/bearish[0].Close)
}

func (suite *DataGeneratorTestSuite) TestIntervalSpacing() {
	config := DefaultGeneratorConfig()
	config.Count = 10
	config.Interval = 15 * time.Minute

	series := NewDataGenerator(42).Generate(config)

	for i := 1; i < len(series); i++ {
		suite.Equal(15*time.Minute, series[i].Time.Sub(series[i-1].Time))
	}
}

func (suite *DataGeneratorTestSuite) TestMultiSymbol() {
	gen := NewDataGenerator(42)
	config := DefaultGeneratorConfig()
	config.Count = 50

	series := gen.GenerateMultiSymbol([]string{"BTCUSDT", "ETHUSDT"}, config)

	suite.Len(series, 100)
	suite.Equal("BTCUSDT", series[0].Symbol)
	suite.Equal("ETHUSDT", series[50].Symbol)
}
