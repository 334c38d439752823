package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/sma-backtest/internal/types"
)

// DataGenerator generates daily price series for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	Symbol    string
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	Count    int
	// InitialPrice is the starting close
	InitialPrice float64
	// Volatility is the standard deviation of the per-bar return (0.01 = 1%)
	Volatility float64
	// Trend is the total drift spread over the series (-0.5 to 0.5 for bearish to bullish)
	Trend      float64
	VolumeBase float64
}

// DefaultConfig returns one year of daily bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "TEST",
		StartTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     24 * time.Hour,
		Count:        252,
		InitialPrice: 100.0,
		Volatility:   0.015,
		Trend:        0.0,
		VolumeBase:   1_000_000,
	}
}

// Generate creates a geometric random walk. Closes are always positive and times strictly increasing.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	drift := 0.0
	if config.Count > 0 {
		drift = config.Trend / float64(config.Count)
	}

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		spread := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		high := math.Max(open, close) + spread
		low := math.Max(math.Min(open, close)-spread, math.Min(open, close)*0.99)

		data[i] = types.MarketData{
			Symbol: config.Symbol,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  math.Max(roundToDecimals(close, 4), 0.0001),
			Volume: roundToDecimals(config.VolumeBase*(0.5+g.rng.Float64()), 0),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// FromCloses builds daily bars with the given closes, starting at start.
func FromCloses(symbol string, start time.Time, closes []float64) []types.MarketData {
	data := make([]types.MarketData, len(closes))

	for i, c := range closes {
		data[i] = types.MarketData{
			Symbol: symbol,
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
		}
	}

	return data
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
