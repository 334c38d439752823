package engine

import (
	"testing"

	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) TestNewBacktestStateInvalid() {
	_, err := NewBacktestState(0, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCapital))

	_, err = NewBacktestState(1000, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTradeSize))
}

func (suite *BacktestStateTestSuite) TestBuyAndSell() {
	state, err := NewBacktestState(1000, 10)
	suite.Require().NoError(err)

	suite.True(state.Buy(20))
	suite.Equal(800.0, state.Cash())
	suite.Equal(10, state.Shares())
	suite.Equal(1050.0, state.Value(25))

	suite.True(state.Sell(25))
	suite.Equal(1050.0, state.Cash())
	suite.Equal(0, state.Shares())
}

func (suite *BacktestStateTestSuite) TestBuyInsufficientCashLeavesState() {
	state, err := NewBacktestState(100, 10)
	suite.Require().NoError(err)

	suite.False(state.Buy(10.01))
	suite.Equal(types.PortfolioState{Cash: 100, Shares: 0}, state.Snapshot())

	// exactly affordable
	suite.True(state.Buy(10))
	suite.Equal(types.PortfolioState{Cash: 0, Shares: 10}, state.Snapshot())
}

func (suite *BacktestStateTestSuite) TestSellWithoutSharesLeavesState() {
	state, err := NewBacktestState(100, 10)
	suite.Require().NoError(err)

	suite.False(state.Sell(5))
	suite.Equal(types.PortfolioState{Cash: 100, Shares: 0}, state.Snapshot())
}

func (suite *BacktestStateTestSuite) TestRepeatedTradesDoNotDrift() {
	state, err := NewBacktestState(10000, 10)
	suite.Require().NoError(err)

	for i := 0; i < 1000; i++ {
		suite.Require().True(state.Buy(0.1))
		suite.Require().True(state.Sell(0.1))
	}

	suite.Equal(10000.0, state.Cash())
	suite.Equal(1.0, state.LotAmount(0.1))
	suite.Equal(10, state.TradeSize())
}
