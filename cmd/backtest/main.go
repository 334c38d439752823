package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/sma-backtest/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/sma-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/report"
	"github.com/rxtech-lab/sma-backtest/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	backtester := enginev1.NewBacktestEngineV1WithLogger(log)

	if err := backtester.Initialize(string(config)); err != nil {
		return err
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	var progressOut io.Writer = os.Stderr
	if cmd.Bool("quiet") {
		progressOut = io.Discard
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(totalInstruments int) error {
		bar = progressbar.NewOptions(totalInstruments,
			progressbar.OptionSetWriter(progressOut),
			progressbar.OptionSetDescription("Backtesting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		return nil
	})
	onRunEnd := engine.OnRunEndCallback(func(symbol, _, _ string, err error) {
		if err != nil {
			bar.Describe(fmt.Sprintf("%s skipped", symbol))
		} else {
			bar.Describe(symbol)
		}

		_ = bar.Add(1)
	})
	onEnd := engine.OnBacktestEndCallback(func(error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	results, err := backtester.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnRunStart:      nil,
		OnRunEnd:        &onRunEnd,
		OnProcessData:   nil,
	})
	if err != nil {
		log.Error("Backtest failed", zap.Error(err))

		return err
	}

	if err := report.WriteSummary(os.Stdout, results); err != nil {
		return err
	}

	fmt.Printf("\nResults written to %s\n", cmd.String("results"))

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := enginev1.NewBacktestEngineV1().GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Backtest a moving-average crossover strategy on historical prices",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the backtest for every instrument in the config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the backtest config `FILE`",
						Value:   "config/backtest_config.yaml",
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Folder holding one <TICKER>.parquet or <TICKER>.csv per instrument",
						Value:   "data",
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Folder the results are written to. It is emptied first",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "warn",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Hide the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the backtest config",
				Action: schemaAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
