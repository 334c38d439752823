package engine

import (
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// BacktestState is the cash and share bookkeeping of one simulated account.
// Cash is tracked in decimal so repeated buys and sells do not drift.
type BacktestState struct {
	cash      decimal.Decimal
	shares    int
	tradeSize int
}

func NewBacktestState(initialCapital float64, tradeSize int) (*BacktestState, error) {
	if initialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %v", initialCapital)
	}

	if tradeSize <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidTradeSize, "trade size must be a positive integer, got %d", tradeSize)
	}

	return &BacktestState{
		cash:      decimal.NewFromFloat(initialCapital),
		shares:    0,
		tradeSize: tradeSize,
	}, nil
}

// Buy spends tradeSize*price to add one lot. Returns false and leaves the
// state untouched when cash does not cover the lot.
func (s *BacktestState) Buy(price float64) bool {
	cost := s.lotAmount(price)
	if s.cash.LessThan(cost) {
		return false
	}

	s.cash = s.cash.Sub(cost)
	s.shares += s.tradeSize

	return true
}

// Sell removes one lot at price. Returns false and leaves the state untouched
// when fewer than tradeSize shares are held.
func (s *BacktestState) Sell(price float64) bool {
	if s.shares < s.tradeSize {
		return false
	}

	s.cash = s.cash.Add(s.lotAmount(price))
	s.shares -= s.tradeSize

	return true
}

// Value marks the account to price: cash + shares*price.
func (s *BacktestState) Value(price float64) float64 {
	holdings := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(s.shares)))

	return s.cash.Add(holdings).InexactFloat64()
}

func (s *BacktestState) Cash() float64 {
	return s.cash.InexactFloat64()
}

func (s *BacktestState) Shares() int {
	return s.shares
}

func (s *BacktestState) TradeSize() int {
	return s.tradeSize
}

// LotAmount is the cash value of one lot at price.
func (s *BacktestState) LotAmount(price float64) float64 {
	return s.lotAmount(price).InexactFloat64()
}

func (s *BacktestState) Snapshot() types.PortfolioState {
	return types.PortfolioState{
		Cash:   s.Cash(),
		Shares: s.shares,
	}
}

func (s *BacktestState) lotAmount(price float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(s.tradeSize)))
}
