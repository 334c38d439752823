package indicator

import (
	"testing"

	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SlidingSMATestSuite struct {
	suite.Suite
}

func TestSlidingSMASuite(t *testing.T) {
	suite.Run(t, new(SlidingSMATestSuite))
}

func (suite *SlidingSMATestSuite) TestNewSlidingSMAInvalidWindow() {
	for _, window := range []int{0, -1, -50} {
		sma, err := NewSlidingSMA(window)
		suite.Nil(sma)
		suite.Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
	}
}

func (suite *SlidingSMATestSuite) TestNotReadyUntilWindowFull() {
	sma, err := NewSlidingSMA(3)
	suite.Require().NoError(err)
	suite.Equal(3, sma.Window())

	_, ok := sma.Push(1)
	suite.False(ok)
	_, ok = sma.Push(2)
	suite.False(ok)
	suite.False(sma.Ready())

	mean, ok := sma.Push(3)
	suite.True(ok)
	suite.True(sma.Ready())
	suite.Equal(2.0, mean.InexactFloat64())
}

func (suite *SlidingSMATestSuite) TestSlidesOverTrailingWindow() {
	sma, err := NewSlidingSMA(3)
	suite.Require().NoError(err)

	values := []float64{1, 2, 3, 4, 5, 10}
	expected := []float64{0, 0, 2, 3, 4, 19.0 / 3.0}

	for i, v := range values {
		mean, ok := sma.Push(v)
		if i < 2 {
			suite.False(ok)

			continue
		}

		suite.True(ok)
		suite.InDelta(expected[i], mean.InexactFloat64(), 1e-12)
	}
}

func (suite *SlidingSMATestSuite) TestConstantPricesAverageExactly() {
	sma, err := NewSlidingSMA(7)
	suite.Require().NoError(err)

	for i := 0; i < 100; i++ {
		mean, ok := sma.Push(100.1)
		if ok {
			suite.Equal("100.1", mean.String())
		}
	}
}

func (suite *SlidingSMATestSuite) TestWindowOfOne() {
	sma, err := NewSlidingSMA(1)
	suite.Require().NoError(err)

	for _, v := range []float64{3.5, 7.25, 1} {
		mean, ok := sma.Push(v)
		suite.True(ok)
		suite.Equal(v, mean.InexactFloat64())
	}
}

func (suite *SlidingSMATestSuite) TestReset() {
	sma, err := NewSlidingSMA(2)
	suite.Require().NoError(err)

	sma.Push(10)
	sma.Push(20)
	suite.True(sma.Ready())

	sma.Reset()
	suite.False(sma.Ready())

	_, ok := sma.Push(4)
	suite.False(ok)

	mean, ok := sma.Push(6)
	suite.True(ok)
	suite.Equal(5.0, mean.InexactFloat64())
}
