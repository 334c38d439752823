package engine

import (
	"context"

	"github.com/rxtech-lab/sma-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/sma-backtest/internal/types"
)

// Lifecycle callback types for backtest phases.
// Instruments run in parallel, so run-level callbacks may be invoked from several goroutines at once.
// All callbacks with error return can abort execution if they return an error.

// OnBacktestStartCallback is called when the entire backtest begins.
type OnBacktestStartCallback func(totalInstruments int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when processing of an instrument begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, symbol string, dataFilePath string, totalDataPoints int) error

// OnRunEndCallback is called when processing of an instrument ends, whether it succeeded or not.
// resultFolderPath is empty when nothing was written.
type OnRunEndCallback func(symbol string, dataFilePath string, resultFolderPath string, err error)

// OnProcessDataCallback is called for each signal point simulated.
type OnProcessDataCallback func(symbol string, current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
}

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataPath sets the folder holding one <ticker>.parquet or <ticker>.csv price file per instrument.
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	// Each instrument gets its own folder: <results>/<symbol>, or
	// <results>/<start>_<end>/<symbol> when the config limits the period.
	SetResultsFolder(folder string) error
	// SetDataSourceFactory overrides how price files are opened.
	SetDataSourceFactory(factory datasource.Factory) error
	// Run backtests every configured instrument and returns one result per instrument,
	// in config order. Instruments whose data is missing or unreadable are returned with
	// Skipped set. The context can be used to cancel the backtest operation.
	Run(ctx context.Context, callbacks LifecycleCallbacks) ([]types.InstrumentResult, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
