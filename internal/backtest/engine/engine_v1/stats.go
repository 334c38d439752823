package engine

import (
	"github.com/rxtech-lab/sma-backtest/internal/types"
)

// TotalReturn is the percent change from the first to the last portfolio value.
// Returns 0 for an empty series or a non-positive starting value.
func TotalReturn(values []types.PortfolioValuePoint) float64 {
	if len(values) == 0 {
		return 0
	}

	first := values[0].Value
	if first <= 0 {
		return 0
	}

	return (values[len(values)-1].Value - first) / first * 100
}

// MaxDrawdown is the largest gap between the running peak of the portfolio
// value and the current value. The peak is tracked from the first point and
// never reset, so this is the single worst peak-to-trough decline.
func MaxDrawdown(values []types.PortfolioValuePoint) float64 {
	if len(values) == 0 {
		return 0
	}

	peak := values[0].Value
	maxDrawdown := 0.0

	for _, point := range values {
		if point.Value > peak {
			peak = point.Value
		}

		if drawdown := peak - point.Value; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// BuyAndHoldReturn is the percent change of the close over the signal window.
func BuyAndHoldReturn(signals []types.SignalPoint) float64 {
	if len(signals) == 0 {
		return 0
	}

	first := signals[0].Close
	if first <= 0 {
		return 0
	}

	return (signals[len(signals)-1].Close - first) / first * 100
}

// CountTrades tallies executed and skipped trades by side.
func CountTrades(trades []types.TradeRecord) types.TradeCounts {
	counts := types.TradeCounts{}

	for _, trade := range trades {
		switch {
		case trade.Side == types.SignalTypeBuyLong && trade.Executed:
			counts.Buys++
		case trade.Side == types.SignalTypeBuyLong:
			counts.SkippedBuys++
		case trade.Side == types.SignalTypeSellLong && trade.Executed:
			counts.Sells++
		case trade.Side == types.SignalTypeSellLong:
			counts.SkippedSells++
		}
	}

	return counts
}
