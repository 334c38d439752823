package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/sma-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/sma-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/sma-backtest/internal/backtest/engine/engine_v1/writers"
	"github.com/rxtech-lab/sma-backtest/internal/indicator"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result file names inside an instrument folder.
const (
	StatsFileName     = "stats.yaml"
	SignalsFileName   = "signals.parquet"
	PortfolioFileName = "portfolio.parquet"
	TradesFileName    = "trades.parquet"
)

type BacktestEngineV1 struct {
	config            BacktestEngineV1Config
	initialized       bool
	dataPath          string
	resultsFolder     string
	log               *logger.Logger
	dataSourceFactory datasource.Factory
	// callbackMu serializes user callbacks across instrument goroutines
	callbackMu sync.Mutex
}

func NewBacktestEngineV1() engine.Engine {
	return NewBacktestEngineV1WithLogger(nil)
}

// NewBacktestEngineV1WithLogger creates an engine that logs to log instead of
// creating its own production logger in Initialize.
func NewBacktestEngineV1WithLogger(log *logger.Logger) engine.Engine {
	return &BacktestEngineV1{
		config:            EmptyConfig(),
		initialized:       false,
		dataPath:          "",
		resultsFolder:     "",
		log:               log,
		dataSourceFactory: nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if b.log == nil {
		log, err := logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}

		b.log = log
	}

	parsed, err := ParseConfig(config)
	if err != nil {
		b.log.Error("Invalid backtest config", zap.Error(err))

		return err
	}

	b.config = parsed
	b.initialized = true

	if b.dataSourceFactory == nil {
		b.dataSourceFactory = datasource.NewFactory(b.log)
	}

	b.log.Debug("Backtest engine initialized",
		zap.Strings("instruments", b.config.Instruments),
		zap.Int("short_window", b.config.ShortWindow),
		zap.Int("long_window", b.config.LongWindow),
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.Int("trade_size", b.config.TradeSize),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "failed to resolve data path %s", path)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "data path %s is not accessible", absPath)
	}

	if !info.IsDir() {
		return errors.Newf(errors.ErrCodeBacktestDataPathError, "data path %s is not a directory", absPath)
	}

	b.dataPath = absPath

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	if folder == "" {
		b.resultsFolder = ""

		return nil
	}

	absPath, err := filepath.Abs(folder)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestNoResultsDir, err, "failed to resolve results folder %s", folder)
	}

	b.resultsFolder = absPath

	return nil
}

// SetDataSourceFactory implements engine.Engine.
func (b *BacktestEngineV1) SetDataSourceFactory(factory datasource.Factory) error {
	if factory == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "data source factory is nil")
	}

	b.dataSourceFactory = factory

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (results []types.InstrumentResult, err error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(b.config.Instruments)); err != nil {
			return nil, err
		}
	}

	if _, statErr := os.Stat(b.resultsFolder); statErr == nil {
		if err := os.RemoveAll(b.resultsFolder); err != nil {
			return nil, errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to clear results folder", err)
		}
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create results folder", err)
	}

	results = make([]types.InstrumentResult, len(b.config.Instruments))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.MaxParallel)

	for i, symbol := range b.config.Instruments {
		group.Go(func() error {
			result, err := b.runInstrument(groupCtx, symbol, callbacks)
			results[i] = result

			return err
		})
	}

	if err := group.Wait(); err != nil {
		b.log.Error("Backtest aborted", zap.Error(err))

		return results, err
	}

	if err := b.writeSummaryStats(results); err != nil {
		return results, err
	}

	return results, nil
}

// runInstrument loads, simulates and writes one instrument. Data problems are
// reported on the result and never returned; the returned error aborts the
// whole backtest (cancellation or a callback error).
func (b *BacktestEngineV1) runInstrument(ctx context.Context, symbol string, callbacks engine.LifecycleCallbacks) (result types.InstrumentResult, fatal error) {
	result = types.InstrumentResult{
		RunID:  uuid.New().String(),
		Symbol: symbol,
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	runLog := b.log.With(zap.String("symbol", symbol), zap.String("run_id", result.RunID))

	defer func() {
		if callbacks.OnRunEnd == nil {
			return
		}

		runErr := result.Err
		if fatal != nil {
			runErr = fatal
		}

		b.invoke(func() error {
			(*callbacks.OnRunEnd)(symbol, result.DataPath, result.ResultFolder, runErr)

			return nil
		})
	}()

	skip := func(err error) (types.InstrumentResult, error) {
		runLog.Warn("Skipping instrument", zap.String("path", result.DataPath), zap.Error(err))

		result.Skipped = true
		result.Err = err

		return result, nil
	}

	path, err := datasource.FindDataFile(b.dataPath, symbol)
	if err != nil {
		return skip(err)
	}

	result.DataPath = path

	source, err := b.dataSourceFactory(path)
	if err != nil {
		return skip(err)
	}
	defer source.Close()

	count, err := source.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return skip(errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count bars in %s", path))
	}

	if callbacks.OnRunStart != nil {
		if err := b.invoke(func() error {
			return (*callbacks.OnRunStart)(result.RunID, symbol, path, count)
		}); err != nil {
			return result, err
		}
	}

	prices, err := datasource.Load(source, path, b.config.StartTime, b.config.EndTime)
	if err != nil {
		return skip(err)
	}

	if len(prices) == 0 {
		return skip(errors.Newf(errors.ErrCodeNoDataFound, "no price data for %s in %s", symbol, path))
	}

	for i := range prices {
		if prices[i].Symbol == "" {
			prices[i].Symbol = symbol
		}
	}

	signals, err := indicator.GenerateSignals(prices, b.config.ShortWindow, b.config.LongWindow)
	if err != nil {
		return skip(errors.Wrap(errors.ErrCodeSignalCalculation, "failed to generate signals", err))
	}

	if len(signals) == 0 {
		runLog.Warn("Not enough bars for the long window, nothing to trade",
			zap.Int("bars", len(prices)),
			zap.Int("long_window", b.config.LongWindow),
		)
	}

	trading, err := NewBacktestTrading(b.config.InitialCapital, b.config.TradeSize, runLog)
	if err != nil {
		return skip(err)
	}

	var onStep func(current int) error
	if callbacks.OnProcessData != nil {
		onStep = func(current int) error {
			return b.invoke(func() error {
				return (*callbacks.OnProcessData)(symbol, current, len(signals))
			})
		}
	}

	simulation, err := trading.RunWithProgress(ctx, signals, onStep)
	if err != nil {
		return result, err
	}

	result.Signals = signals
	result.Portfolio = simulation.Portfolio
	result.Trades = simulation.Trades
	result.Final = simulation.Final
	result.Stats = b.buildStats(result, len(prices))

	resultFolder := getResultFolder(b.resultsFolder, symbol, b.config)
	if err := b.writeResults(resultFolder, &result); err != nil {
		runLog.Error("Failed to write results", zap.String("folder", resultFolder), zap.Error(err))

		result.Err = err

		return result, nil
	}

	result.ResultFolder = resultFolder

	runLog.Info("Instrument backtest finished",
		zap.Int("signal_points", len(signals)),
		zap.Float64("total_return_pct", result.Stats.TotalReturn),
		zap.Float64("max_drawdown", result.Stats.MaxDrawdown),
	)

	return result, nil
}

// invoke runs a user callback while holding callbackMu.
func (b *BacktestEngineV1) invoke(fn func() error) error {
	b.callbackMu.Lock()
	defer b.callbackMu.Unlock()

	return fn()
}

func (b *BacktestEngineV1) buildStats(result types.InstrumentResult, bars int) types.RunStats {
	finalValue := b.config.InitialCapital
	if len(result.Portfolio) > 0 {
		finalValue = result.Portfolio[len(result.Portfolio)-1].Value
	}

	return types.RunStats{
		ID:               result.RunID,
		Timestamp:        time.Now(),
		Symbol:           result.Symbol,
		Bars:             bars,
		SignalPoints:     len(result.Signals),
		ShortWindow:      b.config.ShortWindow,
		LongWindow:       b.config.LongWindow,
		InitialCapital:   b.config.InitialCapital,
		TradeSize:        b.config.TradeSize,
		TotalReturn:      TotalReturn(result.Portfolio),
		MaxDrawdown:      MaxDrawdown(result.Portfolio),
		BuyAndHoldReturn: BuyAndHoldReturn(result.Signals),
		Trades:           CountTrades(result.Trades),
		Final:            result.Final,
		FinalValue:       finalValue,
		DataPath:         result.DataPath,
	}
}

func (b *BacktestEngineV1) writeResults(resultFolder string, result *types.InstrumentResult) error {
	if err := os.MkdirAll(resultFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create result folder", err)
	}

	signalsPath := filepath.Join(resultFolder, SignalsFileName)
	if err := writeParquet(writers.NewSignalsWriter(signalsPath), result.Signals); err != nil {
		return err
	}

	portfolioPath := filepath.Join(resultFolder, PortfolioFileName)
	if err := writeParquet(writers.NewPortfolioWriter(portfolioPath), result.Portfolio); err != nil {
		return err
	}

	tradesPath := filepath.Join(resultFolder, TradesFileName)
	if err := writeParquet(writers.NewTradesWriter(tradesPath), result.Trades); err != nil {
		return err
	}

	result.Stats.SignalsFilePath = signalsPath
	result.Stats.PortfolioFilePath = portfolioPath
	result.Stats.TradesFilePath = tradesPath

	if err := types.WriteRunStats(filepath.Join(resultFolder, StatsFileName), []types.RunStats{result.Stats}); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write stats", err)
	}

	return nil
}

// writeSummaryStats writes the stats of every instrument that ran to <results>/stats.yaml.
func (b *BacktestEngineV1) writeSummaryStats(results []types.InstrumentResult) error {
	stats := []types.RunStats{}

	for _, result := range results {
		if result.Skipped {
			continue
		}

		stats = append(stats, result.Stats)
	}

	if err := types.WriteRunStats(filepath.Join(b.resultsFolder, StatsFileName), stats); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write summary stats", err)
	}

	return nil
}

func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestConfigError, "engine not initialized")
	}

	if b.dataPath == "" {
		b.log.Error("No data path set")

		return errors.New(errors.ErrCodeBacktestDataPathError, "no data path set")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	// The results folder is wiped before each run, so it must not hold the input data.
	if containsPath(b.resultsFolder, b.dataPath) {
		b.log.Error("Results folder contains the data path",
			zap.String("results_folder", b.resultsFolder),
			zap.String("data_path", b.dataPath),
		)

		return errors.Newf(errors.ErrCodeBacktestNoResultsDir,
			"results folder %s must not contain the data path %s", b.resultsFolder, b.dataPath)
	}

	if b.dataSourceFactory == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}
