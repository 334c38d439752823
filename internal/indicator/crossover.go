package indicator

import (
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
)

// ValidateWindows checks that both windows are positive and short < long.
func ValidateWindows(shortWindow, longWindow int) error {
	if shortWindow <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "short window must be a positive integer, got %d", shortWindow)
	}

	if longWindow <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "long window must be a positive integer, got %d", longWindow)
	}

	if shortWindow >= longWindow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "short window (%d) must be smaller than long window (%d)", shortWindow, longWindow)
	}

	return nil
}

// GenerateSignals computes the short and long moving averages of the closes,
// the "short above long" indicator and its change from the previous bar.
//
// prices must be ordered by time. Bars whose averages or change are undefined
// are left out, so the output starts at prices[longWindow] and holds
// len(prices)-longWindow points (none when len(prices) <= longWindow).
// A tie between the averages counts as "not above".
func GenerateSignals(prices []types.MarketData, shortWindow, longWindow int) ([]types.SignalPoint, error) {
	if err := ValidateWindows(shortWindow, longWindow); err != nil {
		return nil, err
	}

	if len(prices) <= longWindow {
		return []types.SignalPoint{}, nil
	}

	shortMA, err := NewSlidingSMA(shortWindow)
	if err != nil {
		return nil, err
	}

	longMA, err := NewSlidingSMA(longWindow)
	if err != nil {
		return nil, err
	}

	signals := make([]types.SignalPoint, 0, len(prices)-longWindow)

	previous := 0
	hasPrevious := false

	for _, price := range prices {
		shortMean, shortReady := shortMA.Push(price.Close)
		longMean, longReady := longMA.Push(price.Close)

		if !shortReady || !longReady {
			continue
		}

		signal := 0
		if shortMean.GreaterThan(longMean) {
			signal = 1
		}

		// the first bar with both averages has no previous state to diff against
		if !hasPrevious {
			previous = signal
			hasPrevious = true

			continue
		}

		signals = append(signals, types.SignalPoint{
			MarketData: price,
			ShortMA:    shortMean.InexactFloat64(),
			LongMA:     longMean.InexactFloat64(),
			Signal:     signal,
			Position:   signal - previous,
		})

		previous = signal
	}

	return signals, nil
}
