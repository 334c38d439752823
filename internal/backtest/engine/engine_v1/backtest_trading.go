package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"go.uber.org/zap"
)

// SimulationResult is the output of one pass of the fixed-lot strategy.
type SimulationResult struct {
	// Portfolio holds one value point per signal point, in the same order.
	Portfolio []types.PortfolioValuePoint
	// Trades holds every buy or sell signal, executed or skipped.
	Trades []types.TradeRecord
	Final  types.PortfolioState
}

// BacktestTrading replays crossover signals against a BacktestState, buying
// one lot on every upward cross and selling one lot on every downward cross.
type BacktestTrading struct {
	state *BacktestState
	log   *logger.Logger
}

func NewBacktestTrading(initialCapital float64, tradeSize int, log *logger.Logger) (*BacktestTrading, error) {
	state, err := NewBacktestState(initialCapital, tradeSize)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestTrading{
		state: state,
		log:   log,
	}, nil
}

// Simulate runs the fixed-lot strategy over signals with a fresh account.
func Simulate(signals []types.SignalPoint, initialCapital float64, tradeSize int, log *logger.Logger) (SimulationResult, error) {
	trading, err := NewBacktestTrading(initialCapital, tradeSize, log)
	if err != nil {
		return SimulationResult{}, err
	}

	return trading.Run(signals), nil
}

// Run consumes signals in order. Each step depends on the state left by the
// previous one. A lot that cannot be afforded or is not held is skipped, never
// queued.
func (b *BacktestTrading) Run(signals []types.SignalPoint) SimulationResult {
	result, _ := b.RunWithProgress(context.Background(), signals, nil)

	return result
}

// RunWithProgress is Run with cancellation and a per-step callback. It stops
// at the first error from ctx or onStep and returns the partial result.
func (b *BacktestTrading) RunWithProgress(ctx context.Context, signals []types.SignalPoint, onStep func(current int) error) (SimulationResult, error) {
	result := SimulationResult{
		Portfolio: make([]types.PortfolioValuePoint, 0, len(signals)),
		Trades:    []types.TradeRecord{},
		Final:     types.PortfolioState{},
	}

	for i, point := range signals {
		if err := ctx.Err(); err != nil {
			result.Final = b.state.Snapshot()

			return result, err
		}

		if record, ok := b.apply(point); ok {
			result.Trades = append(result.Trades, record)
		}

		result.Portfolio = append(result.Portfolio, types.PortfolioValuePoint{
			Time:   point.Time,
			Value:  b.state.Value(point.Close),
			Cash:   b.state.Cash(),
			Shares: b.state.Shares(),
		})

		if onStep != nil {
			if err := onStep(i + 1); err != nil {
				result.Final = b.state.Snapshot()

				return result, err
			}
		}
	}

	result.Final = b.state.Snapshot()

	return result, nil
}

// State exposes the account after Run.
func (b *BacktestTrading) State() *BacktestState {
	return b.state
}

// apply acts on a single signal point. The boolean is false on hold.
func (b *BacktestTrading) apply(point types.SignalPoint) (types.TradeRecord, bool) {
	side := point.Action()
	if side == types.SignalTypeNoAction {
		return types.TradeRecord{}, false
	}

	var (
		executed bool
		reason   types.SkipReason
	)

	switch side {
	case types.SignalTypeBuyLong:
		executed = b.state.Buy(point.Close)
		if !executed {
			reason = types.SkipReasonInsufficientCash
		}
	case types.SignalTypeSellLong:
		executed = b.state.Sell(point.Close)
		if !executed {
			reason = types.SkipReasonInsufficientShares
		}
	}

	record := types.TradeRecord{
		Id:          uuid.New().String(),
		Symbol:      point.Symbol,
		Time:        point.Time,
		Side:        side,
		Quantity:    b.state.TradeSize(),
		Price:       point.Close,
		Amount:      b.state.LotAmount(point.Close),
		CashAfter:   b.state.Cash(),
		SharesAfter: b.state.Shares(),
		Executed:    executed,
		SkipReason:  reason,
	}

	if !executed {
		b.log.Info("Signal skipped",
			zap.String("symbol", point.Symbol),
			zap.Time("time", point.Time),
			zap.String("side", string(side)),
			zap.String("reason", string(reason)),
			zap.Float64("cash", record.CashAfter),
			zap.Int("shares", record.SharesAfter),
		)
	}

	return record, true
}
