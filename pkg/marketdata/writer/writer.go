package writer

import (
	"github.com/rxtech-lab/sma-backtest/internal/types"
)

// MarketDataWriter defines the interface for writing downloaded bars to a price file.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single market data point.
	Write(data types.MarketData) error
	// Finalize completes the writing process and returns the written file.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer. It is safe to call more than once.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
