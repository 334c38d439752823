package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/stretchr/testify/assert"
)

func series(vals ...float64) []types.PortfolioValuePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	points := make([]types.PortfolioValuePoint, len(vals))
	for i, v := range vals {
		points[i] = types.PortfolioValuePoint{Time: start.AddDate(0, 0, i), Value: v}
	}

	return points
}

func TestTotalReturn(t *testing.T) {
	tests := []struct {
		name   string
		values []types.PortfolioValuePoint
		want   float64
	}{
		{"empty", nil, 0},
		{"single point", series(100), 0},
		{"gain", series(100, 90, 150), 50},
		{"loss", series(200, 150), -25},
		{"zero start", series(0, 10), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, TotalReturn(tc.values), 1e-9)
		})
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []types.PortfolioValuePoint
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic up", series(1, 2, 3), 0},
		{"single dip", series(100, 80, 120), 20},
		// peak is never reset, the later smaller dip does not win
		{"two dips", series(100, 60, 150, 130), 40},
		{"deeper later dip", series(100, 90, 150, 80), 70},
		{"declining from start", series(100, 90, 80), 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MaxDrawdown(tc.values)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestBuyAndHoldReturn(t *testing.T) {
	signals := []types.SignalPoint{
		{MarketData: types.MarketData{Close: 50}},
		{MarketData: types.MarketData{Close: 75}},
	}

	assert.InDelta(t, 50.0, BuyAndHoldReturn(signals), 1e-9)
	assert.Equal(t, 0.0, BuyAndHoldReturn(nil))
}

func TestCountTrades(t *testing.T) {
	trades := []types.TradeRecord{
		{Side: types.SignalTypeBuyLong, Executed: true},
		{Side: types.SignalTypeBuyLong, Executed: false},
		{Side: types.SignalTypeSellLong, Executed: true},
		{Side: types.SignalTypeSellLong, Executed: false},
		{Side: types.SignalTypeSellLong, Executed: false},
	}

	assert.Equal(t, types.TradeCounts{Buys: 1, SkippedBuys: 1, Sells: 1, SkippedSells: 2}, CountTrades(trades))
}
