package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
	tempDir string
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *StatisticsTestSuite) TestWriteRunStats() {
	stats := []RunStats{
		{
			ID:               "run-1",
			Timestamp:        time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC),
			Symbol:           "AAPL",
			Bars:             2515,
			SignalPoints:     2465,
			ShortWindow:      10,
			LongWindow:       50,
			InitialCapital:   10000,
			TradeSize:        10,
			TotalReturn:      12.5,
			MaxDrawdown:      310.25,
			BuyAndHoldReturn: 480.1,
			Trades: TradeCounts{
				Buys:         40,
				Sells:        39,
				SkippedBuys:  2,
				SkippedSells: 0,
			},
			Final:      PortfolioState{Cash: 9050.5, Shares: 10},
			FinalValue: 11250,
		},
	}

	filePath := filepath.Join(suite.tempDir, "stats.yaml")
	suite.Require().NoError(WriteRunStats(filePath, stats))

	data, err := os.ReadFile(filePath)
	suite.Require().NoError(err)
	suite.Contains(string(data), "total_return_pct: 12.5")
	suite.Contains(string(data), "skipped_buys: 2")

	var readStats []RunStats
	suite.Require().NoError(yaml.Unmarshal(data, &readStats))
	suite.Require().Len(readStats, 1)
	suite.Equal(stats[0], readStats[0])
}

func (suite *StatisticsTestSuite) TestReadRunStatsRoundTrip() {
	stats := []RunStats{{Symbol: "AAPL"}, {Symbol: "TSLA"}}

	filePath := filepath.Join(suite.tempDir, "multiple.yaml")
	suite.Require().NoError(WriteRunStats(filePath, stats))

	readStats, err := ReadRunStats(filePath)
	suite.Require().NoError(err)
	suite.Len(readStats, 2)
	suite.Equal("TSLA", readStats[1].Symbol)
}

func (suite *StatisticsTestSuite) TestWriteRunStatsInvalidPath() {
	filePath := filepath.Join(suite.tempDir, "nonexistent", "dir", "stats.yaml")
	err := WriteRunStats(filePath, []RunStats{{Symbol: "AAPL"}})
	suite.Error(err)
}

func (suite *StatisticsTestSuite) TestReadRunStatsMissingFile() {
	_, err := ReadRunStats(filepath.Join(suite.tempDir, "missing.yaml"))
	suite.Error(err)
}
