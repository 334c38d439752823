package datasource

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
)

// Supported price file extensions, in lookup order.
const (
	ExtensionParquet = ".parquet"
	ExtensionCSV     = ".csv"
)

// DataSource reads the price series of a single instrument.
type DataSource interface {
	// Initialize loads the price file at path
	Initialize(path string) error
	// ReadAll yields the bars between start and end (inclusive) ordered by time
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// Count returns the number of bars between start and end (inclusive)
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources
	Close() error
}

// Factory creates an initialized data source for path.
type Factory func(path string) (DataSource, error)

// NewFromPath picks the data source by file extension and initializes it with path.
func NewFromPath(path string, log *logger.Logger) (DataSource, error) {
	var source DataSource

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtensionParquet:
		duck, err := NewDataSource(log)
		if err != nil {
			return nil, err
		}

		source = duck
	case ExtensionCSV:
		source = NewCSVDataSource(log)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedDataFormat, "unsupported price file format: %s", path)
	}

	if err := source.Initialize(path); err != nil {
		_ = source.Close()

		return nil, err
	}

	return source, nil
}

// NewFactory returns a Factory backed by NewFromPath.
func NewFactory(log *logger.Logger) Factory {
	return func(path string) (DataSource, error) {
		return NewFromPath(path, log)
	}
}

// FindDataFile returns the price file of ticker inside dir, preferring parquet over csv.
// The upper-cased file name written by the downloader is tried before the ticker as given.
func FindDataFile(dir string, ticker string) (string, error) {
	for _, ext := range []string{ExtensionParquet, ExtensionCSV} {
		for _, name := range []string{types.TickerFileName(ticker, ext), ticker + ext} {
			path := filepath.Join(dir, name)

			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	return "", errors.Newf(errors.ErrCodeDataNotFound, "no %s or %s price file for %s in %s", ExtensionParquet, ExtensionCSV, ticker, dir)
}

// Load drains the source into memory. It fails on the first read error, on a
// close that is not a positive finite number, and on bars that are not in
// strictly increasing time order.
func Load(source DataSource, path string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.MarketData, error) {
	prices := []types.MarketData{}

	for data, err := range source.ReadAll(start, end) {
		if err != nil {
			if errors.GetCode(err) != errors.ErrCodeUnknown {
				return nil, err
			}

			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s", path)
		}

		row := len(prices) + 1

		if !validPrice(data.Close) {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid price data",
				errors.NewRowError(path, 0, "close", fmt.Sprintf("bar %d (%s): close must be a positive number, got %v", row, data.Time.Format(time.DateOnly), data.Close)))
		}

		if len(prices) > 0 && !data.Time.After(prices[len(prices)-1].Time) {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid price data",
				errors.NewRowError(path, 0, "time", fmt.Sprintf("bar %d (%s) is not after the previous bar", row, data.Time.Format(time.RFC3339))))
		}

		prices = append(prices, data)
	}

	return prices, nil
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// inRange reports whether t lies within the optional bounds (inclusive).
func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}
