package indicator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CrossoverTestSuite struct {
	suite.Suite
	start time.Time
}

func TestCrossoverSuite(t *testing.T) {
	suite.Run(t, new(CrossoverTestSuite))
}

func (suite *CrossoverTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *CrossoverTestSuite) series(closes ...float64) []types.MarketData {
	prices := make([]types.MarketData, len(closes))
	for i, c := range closes {
		prices[i] = types.MarketData{
			Symbol: "TEST",
			Time:   suite.start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return prices
}

func (suite *CrossoverTestSuite) TestConstantPriceSixtyDays() {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}

	prices := suite.series(closes...)

	signals, err := GenerateSignals(prices, 10, 50)
	suite.Require().NoError(err)
	suite.Require().Len(signals, 10)

	for i, s := range signals {
		suite.Equal(prices[50+i].Time, s.Time)
		suite.Equal(100.0, s.ShortMA)
		suite.Equal(100.0, s.LongMA)
		suite.Equal(0, s.Signal)
		suite.Equal(types.PositionHold, s.Position)
	}
}

func (suite *CrossoverTestSuite) TestSingleCrossUpAndDown() {
	prices := suite.series(10, 10, 10, 10, 10, 20, 20, 20, 5, 5, 5, 5)

	signals, err := GenerateSignals(prices, 2, 4)
	suite.Require().NoError(err)
	suite.Require().Len(signals, 8)

	positions := make([]int, len(signals))
	for i, s := range signals {
		positions[i] = s.Position
	}

	suite.Equal([]int{0, 1, 0, 0, -1, 0, 0, 0}, positions)

	suite.Equal(15.0, signals[1].ShortMA)
	suite.Equal(12.5, signals[1].LongMA)
	suite.Equal(1, signals[1].Signal)
	suite.Equal(12.5, signals[4].ShortMA)
	suite.Equal(16.25, signals[4].LongMA)
	suite.Equal(0, signals[4].Signal)
}

func (suite *CrossoverTestSuite) TestTieCountsAsNotAbove() {
	// short and long both average 10 on the last bar
	prices := suite.series(10, 10, 10, 10, 10, 10)

	signals, err := GenerateSignals(prices, 2, 3)
	suite.Require().NoError(err)

	for _, s := range signals {
		suite.Equal(0, s.Signal)
	}
}

func (suite *CrossoverTestSuite) TestPassesThroughOHLCV() {
	prices := suite.series(1, 2, 3, 4, 5)
	prices[4].Open = 4.5
	prices[4].Volume = 42

	signals, err := GenerateSignals(prices, 1, 3)
	suite.Require().NoError(err)
	suite.Require().Len(signals, 2)
	suite.Equal(prices[4], signals[1].MarketData)
}

func (suite *CrossoverTestSuite) TestInvalidWindows() {
	prices := suite.series(1, 2, 3)

	tests := []struct {
		name  string
		short int
		long  int
	}{
		{name: "zero short", short: 0, long: 5},
		{name: "negative long", short: 2, long: -1},
		{name: "short equals long", short: 5, long: 5},
		{name: "short above long", short: 6, long: 5},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signals, err := GenerateSignals(prices, tc.short, tc.long)
			suite.Nil(signals)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
		})
	}
}

func TestGenerateSignalsShortSeriesIsEmpty(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for n := 0; n <= 50; n++ {
		prices := make([]types.MarketData, n)
		for i := range prices {
			prices[i] = types.MarketData{Time: start.AddDate(0, 0, i), Close: float64(100 + i%7)}
		}

		signals, err := GenerateSignals(prices, 10, 50)
		require.NoError(t, err)
		assert.Empty(t, signals, "length %d", n)
	}
}

func TestGenerateSignalsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for run := 0; run < 20; run++ {
		n := 60 + rng.Intn(200)
		prices := make([]types.MarketData, n)
		price := 100.0

		for i := range prices {
			price *= 1 + (rng.Float64()-0.5)*0.06
			prices[i] = types.MarketData{Time: start.AddDate(0, 0, i), Close: price}
		}

		first, err := GenerateSignals(prices, 10, 50)
		require.NoError(t, err)

		second, err := GenerateSignals(prices, 10, 50)
		require.NoError(t, err)

		// pure function of its input
		assert.Equal(t, first, second)
		require.Len(t, first, n-50)

		for i, s := range first {
			assert.Equal(t, prices[50+i].Time, s.Time)
			assert.Contains(t, []int{0, 1}, s.Signal)
			assert.Contains(t, []int{-1, 0, 1}, s.Position)

			if i > 0 {
				assert.Equal(t, s.Signal-first[i-1].Signal, s.Position)
				assert.True(t, s.Time.After(first[i-1].Time))
			}
		}
	}
}
