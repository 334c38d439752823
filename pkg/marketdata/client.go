package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/rxtech-lab/sma-backtest/pkg/marketdata/provider"
	"github.com/rxtech-lab/sma-backtest/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// WriterType defines the file format downloaded bars are stored in.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
	WriterCSV    WriterType = "csv"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=polygon binance"`
	WriterType    WriterType   `validate:"required,oneof=duckdb csv"`
	DataPath      string       `validate:"required"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
	// SkipExisting leaves an instrument alone when its price file is already present.
	SkipExisting bool
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Ticker     string          `validate:"required"`
	StartDate  time.Time       `validate:"required"`
	EndDate    time.Time       `validate:"required,gtfield=StartDate"`
	Multiplier int             `validate:"required,min=1"`
	Timespan   models.Timespan `validate:"required"`
}

// DownloadResult describes the price file of one ticker.
type DownloadResult struct {
	Ticker string
	Path   string
	// Skipped is set when the file already existed and SkipExisting was on.
	Skipped bool
}

// Client downloads bars from a provider and stores them as <DataPath>/<TICKER>.parquet or .csv,
// the layout the backtest engine looks for.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	log        *logger.Logger
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, log *logger.Logger, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var (
		marketProvider provider.Provider
		err            error
	)

	switch config.ProviderType {
	case ProviderPolygon:
		marketProvider, err = provider.NewPolygonClient(config.PolygonApiKey)
	case ProviderBinance:
		marketProvider, err = provider.NewBinanceClient()
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider type: %s", config.ProviderType)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidProvider, err, "failed to create %s client", config.ProviderType)
	}

	return newClient(config, validate, marketProvider, log, onProgress), nil
}

// NewClientWithProvider creates a client around an existing provider.
func NewClientWithProvider(config ClientConfig, marketProvider provider.Provider, log *logger.Logger, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	return newClient(config, validate, marketProvider, log, onProgress), nil
}

func newClient(config ClientConfig, validate *validator.Validate, marketProvider provider.Provider, log *logger.Logger, onProgress provider.OnDownloadProgress) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		log:        log,
		onProgress: onProgress,
	}
}

// OutputPath returns the price file the given ticker is written to.
func (c *Client) OutputPath(ticker string) string {
	ext := ".parquet"
	if c.config.WriterType == WriterCSV {
		ext = ".csv"
	}

	return filepath.Join(c.config.DataPath, types.TickerFileName(ticker, ext))
}

// Download downloads the bars described by params.
// The context can be used to cancel the download operation.
func (c *Client) Download(ctx context.Context, params DownloadParams) (DownloadResult, error) {
	result := DownloadResult{
		Ticker:  params.Ticker,
		Path:    c.OutputPath(params.Ticker),
		Skipped: false,
	}

	if err := c.validate.Struct(params); err != nil {
		return result, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	if c.config.SkipExisting {
		if _, err := os.Stat(result.Path); err == nil {
			c.log.Info("Price file already exists, skipping download",
				zap.String("ticker", params.Ticker),
				zap.String("path", result.Path),
			)

			result.Skipped = true

			return result, nil
		}
	}

	marketWriter, err := c.setupWriter(result.Path)
	if err != nil {
		return result, err
	}

	defer func() {
		if err := marketWriter.Close(); err != nil {
			c.log.Warn("Failed to close writer", zap.String("path", result.Path), zap.Error(err))
		}
	}()

	c.provider.ConfigWriter(marketWriter)

	path, err := c.provider.Download(
		ctx,
		params.Ticker,
		params.StartDate,
		params.EndDate,
		params.Multiplier,
		params.Timespan,
		c.onProgress,
	)
	if err != nil {
		return result, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "download of %s failed", params.Ticker)
	}

	if path != "" {
		result.Path = path
	}

	c.log.Info("Downloaded price file",
		zap.String("ticker", params.Ticker),
		zap.String("path", result.Path),
	)

	return result, nil
}

// setupWriter creates the writer for the configured format. The provider initializes it.
func (c *Client) setupWriter(outputPath string) (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		return writer.NewDuckDBWriter(outputPath), nil
	case WriterCSV:
		return writer.NewCSVWriter(outputPath), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported writer type: %s", c.config.WriterType)
	}
}
