package indicator

import (
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// SlidingSMA is a simple moving average over a fixed window, updated in O(1)
// per value. The running sum is kept in decimal so a window of identical
// prices always averages back to exactly that price.
type SlidingSMA struct {
	window int
	values []decimal.Decimal
	next   int
	count  int
	sum    decimal.Decimal
}

// NewSlidingSMA creates a moving average over the last window values.
func NewSlidingSMA(window int) (*SlidingSMA, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "window must be a positive integer, got %d", window)
	}

	return &SlidingSMA{
		window: window,
		values: make([]decimal.Decimal, window),
		next:   0,
		count:  0,
		sum:    decimal.Zero,
	}, nil
}

// Window returns the configured window size.
func (s *SlidingSMA) Window() int {
	return s.window
}

// Push adds the next value and returns the mean of the trailing window.
// The boolean is false until window values have been pushed.
func (s *SlidingSMA) Push(value float64) (decimal.Decimal, bool) {
	v := decimal.NewFromFloat(value)

	if s.count == s.window {
		s.sum = s.sum.Sub(s.values[s.next])
	} else {
		s.count++
	}

	s.values[s.next] = v
	s.sum = s.sum.Add(v)
	s.next = (s.next + 1) % s.window

	if !s.Ready() {
		return decimal.Zero, false
	}

	return s.sum.Div(decimal.NewFromInt(int64(s.window))), true
}

// Ready reports whether the window is full.
func (s *SlidingSMA) Ready() bool {
	return s.count == s.window
}

// Reset drops all pushed values.
func (s *SlidingSMA) Reset() {
	for i := range s.values {
		s.values[i] = decimal.Zero
	}

	s.next = 0
	s.count = 0
	s.sum = decimal.Zero
}
