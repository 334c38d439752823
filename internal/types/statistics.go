package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeCounts struct {
	// Executed buy trades.
	Buys int `yaml:"buys"`
	// Executed sell trades.
	Sells int `yaml:"sells"`
	// Buy signals ignored because cash did not cover the lot.
	SkippedBuys int `yaml:"skipped_buys"`
	// Sell signals ignored because fewer shares than a lot were held.
	SkippedSells int `yaml:"skipped_sells"`
}

type RunStats struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the instrument.
	Symbol string `yaml:"symbol"`
	// Number of bars loaded from the data file.
	Bars int `yaml:"bars"`
	// Number of signal points left after the leading window was dropped.
	SignalPoints int `yaml:"signal_points"`
	ShortWindow  int `yaml:"short_window"`
	LongWindow   int `yaml:"long_window"`
	// Starting cash.
	InitialCapital float64 `yaml:"initial_capital"`
	// Shares per trade.
	TradeSize int `yaml:"trade_size"`
	// Total return in percent, first to last portfolio value.
	TotalReturn float64 `yaml:"total_return_pct"`
	// Largest drop from the running peak of the portfolio value, in currency.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// Return in percent of holding the instrument from the first to the last signal point.
	BuyAndHoldReturn float64        `yaml:"buy_and_hold_return_pct"`
	Trades           TradeCounts    `yaml:"trades"`
	Final            PortfolioState `yaml:"final"`
	FinalValue       float64        `yaml:"final_value"`
	// DataPath is the price file used for this run.
	DataPath string `yaml:"data_path" json:"data_path"`
	// SignalsFilePath is the path to the signals parquet file.
	SignalsFilePath string `yaml:"signals_file_path" json:"signals_file_path"`
	// PortfolioFilePath is the path to the portfolio value parquet file.
	PortfolioFilePath string `yaml:"portfolio_file_path" json:"portfolio_file_path"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
}

func WriteRunStats(path string, stats []RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}

// ReadRunStats loads a stats file written by WriteRunStats.
func ReadRunStats(path string) ([]RunStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run stats file: %w", err)
	}

	var stats []RunStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run stats: %w", err)
	}

	return stats, nil
}
