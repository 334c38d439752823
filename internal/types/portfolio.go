package types

import "time"

// PortfolioState is a snapshot of the simulated account.
type PortfolioState struct {
	Cash   float64 `yaml:"cash"`
	Shares int     `yaml:"shares"`
}

// PortfolioValuePoint is the account value marked at one bar's close.
type PortfolioValuePoint struct {
	Time   time.Time
	Value  float64
	Cash   float64
	Shares int
}

// InstrumentResult is everything a single instrument run hands to reporting.
type InstrumentResult struct {
	RunID     string
	Symbol    string
	DataPath  string
	Signals   []SignalPoint
	Portfolio []PortfolioValuePoint
	Trades    []TradeRecord
	Final     PortfolioState
	Stats     RunStats
	// ResultFolder is where the result files were written, empty if nothing was written.
	ResultFolder string
	// Skipped is set when the instrument could not be run. Err holds the reason.
	Skipped bool
	Err     error
}
