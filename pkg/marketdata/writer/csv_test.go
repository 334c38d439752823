package writer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CSVWriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestCSVWriterSuite(t *testing.T) {
	suite.Run(t, new(CSVWriterTestSuite))
}

func (suite *CSVWriterTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *CSVWriterTestSuite) TestWriteWithoutInitialize() {
	writer := NewCSVWriter(filepath.Join(suite.tempDir, "AAPL.csv"))

	err := writer.Write(bar(2, 100))
	suite.Error(err)
	suite.Equal(errors.ErrCodeMarketDataWriteFailed, errors.GetCode(err))
}

func (suite *CSVWriterTestSuite) TestFinalizeSortsAndFormats() {
	outputPath := filepath.Join(suite.tempDir, "out", "AAPL.csv")
	writer := NewCSVWriter(outputPath)
	suite.Require().NoError(writer.Initialize())
	defer writer.Close()

	suite.Require().NoError(writer.Write(bar(3, 102.5)))
	suite.Require().NoError(writer.Write(bar(2, 101)))

	path, err := writer.Finalize()
	suite.Require().NoError(err)
	suite.Equal(outputPath, path)

	content, err := os.ReadFile(outputPath)
	suite.Require().NoError(err)

	expected := "Date,Open,High,Low,Close,Volume\n" +
		"2024-01-02,100,102,99,101,1000\n" +
		"2024-01-03,101.5,103.5,100.5,102.5,1000\n"
	suite.Equal(expected, string(content))
}

func (suite *CSVWriterTestSuite) TestIntradayTimesKeepClock() {
	outputPath := filepath.Join(suite.tempDir, "BTCUSDT.csv")
	writer := NewCSVWriter(outputPath)
	suite.Require().NoError(writer.Initialize())
	defer writer.Close()

	suite.Require().NoError(writer.Write(types.MarketData{
		Symbol: "BTCUSDT",
		Time:   time.Date(2024, 1, 2, 13, 30, 0, 0, time.UTC),
		Close:  42000,
	}))

	_, err := writer.Finalize()
	suite.Require().NoError(err)

	content, err := os.ReadFile(outputPath)
	suite.Require().NoError(err)
	suite.Contains(string(content), "2024-01-02T13:30:00Z,0,0,0,42000,0")
}
