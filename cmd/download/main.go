package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// progressSteps is the resolution of the download progress bar.
const progressSteps = 1000

// newProgress returns a progress callback drawing one bar per ticker.
func newProgress(out io.Writer) (func(current, total float64, message string), func()) {
	var bar *progressbar.ProgressBar

	onProgress := func(current, total float64, message string) {
		if bar == nil {
			bar = progressbar.NewOptions(progressSteps,
				progressbar.OptionSetWriter(out),
				progressbar.OptionSetDescription(message),
				progressbar.OptionClearOnFinish(),
			)
		}

		if total <= 0 {
			return
		}

		step := int(current / total * progressSteps)
		_ = bar.Set(min(max(step, 0), progressSteps))
	}

	reset := func() {
		if bar != nil {
			_ = bar.Finish()
		}

		bar = nil
	}

	return onProgress, reset
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	interval, err := marketdata.ParseTimespan(cmd.String("interval"))
	if err != nil {
		return err
	}

	var writerType marketdata.WriterType

	switch cmd.String("format") {
	case "parquet":
		writerType = marketdata.WriterDuckDB
	case "csv":
		writerType = marketdata.WriterCSV
	default:
		return fmt.Errorf("unsupported format %q, expected parquet or csv", cmd.String("format"))
	}

	apiKey := cmd.String("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("POLYGON_API_KEY")
	}

	var progressOut io.Writer = os.Stderr
	if cmd.Bool("quiet") {
		progressOut = io.Discard
	}

	onProgress, resetProgress := newProgress(progressOut)

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  marketdata.ProviderType(cmd.String("provider")),
		WriterType:    writerType,
		DataPath:      cmd.String("data"),
		PolygonApiKey: apiKey,
		SkipExisting:  cmd.Bool("skip-existing"),
	}, log, onProgress)
	if err != nil {
		return err
	}

	startDate := cmd.Timestamp("start").UTC()
	endDate := cmd.Timestamp("end").UTC()

	var failed []string

	for _, ticker := range cmd.StringSlice("tickers") {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}

		result, err := client.Download(ctx, marketdata.DownloadParams{
			Ticker:     ticker,
			StartDate:  startDate,
			EndDate:    endDate,
			Multiplier: interval.Multiplier(),
			Timespan:   interval.Timespan(),
		})

		resetProgress()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			log.Error("Download failed", zap.String("ticker", ticker), zap.Error(err))
			failed = append(failed, ticker)

			continue
		}

		if result.Skipped {
			fmt.Printf("%s: already present at %s\n", ticker, result.Path)
		} else {
			fmt.Printf("%s: saved to %s\n", ticker, result.Path)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to download: %s", strings.Join(failed, ", "))
	}

	return nil
}

func providersAction(_ context.Context, _ *cli.Command) error {
	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		auth := ""
		if info.RequiresAuth {
			auth = " (requires API key)"
		}

		fmt.Printf("%-10s %s%s\n           %s\n", info.Name, info.DisplayName, auth, info.Description)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := marketdata.GetDownloadConfigSchema(cmd.String("provider"))
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// Default download covers the instruments and period of the sample backtest config.
var (
	defaultTickers = []string{"AAPL", "TSLA", "BTC-USD"}
	defaultStart   = time.Date(2015, 3, 29, 0, 0, 0, 0, time.UTC)
	defaultEnd     = time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC)
)

func newProviderFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   fmt.Sprintf("Data provider to use (%s)", strings.Join(marketdata.GetSupportedProviders(), ", ")),
		Value:   string(marketdata.ProviderPolygon),
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download daily price files for the backtester",
		Flags: []cli.Flag{
			newProviderFlag(),
			&cli.StringSliceFlag{
				Name:    "tickers",
				Aliases: []string{"t"},
				Usage:   "Ticker symbols, repeated or comma separated",
				Value:   defaultTickers,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Value:   defaultStart,
				Config: cli.TimestampConfig{
					Layouts: []string{time.DateOnly, time.RFC3339},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format",
				Value:   defaultEnd,
				Config: cli.TimestampConfig{
					Layouts: []string{time.DateOnly, time.RFC3339},
				},
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval, e.g. 1d or 1h",
				Value:   string(marketdata.TimespanOneDay),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Price file format (parquet or csv)",
				Value:   "parquet",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Polygon.io API key. Defaults to $POLYGON_API_KEY",
			},
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Leave tickers whose price file already exists alone",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide the progress bar",
			},
		},
		Action: downloadAction,
		Commands: []*cli.Command{
			{
				Name:   "providers",
				Usage:  "List the supported data providers",
				Action: providersAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of a provider's download config",
				Flags:  []cli.Flag{newProviderFlag()},
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
