package writer

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
)

// csvBar is the on-disk layout of a plain-header price file.
type csvBar struct {
	Date   string  `csv:"Date"`
	Open   float64 `csv:"Open"`
	High   float64 `csv:"High"`
	Low    float64 `csv:"Low"`
	Close  float64 `csv:"Close"`
	Volume float64 `csv:"Volume"`
}

// CSVWriter collects bars in memory and writes them as a Date,Open,High,Low,Close,Volume file.
type CSVWriter struct {
	outputPath  string
	bars        []types.MarketData
	initialized bool
}

// NewCSVWriter creates a new CSVWriter writing to outputPath.
func NewCSVWriter(outputPath string) MarketDataWriter {
	return &CSVWriter{
		outputPath:  outputPath,
		bars:        nil,
		initialized: false,
	}
}

func (w *CSVWriter) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create output directory", err)
	}

	w.bars = w.bars[:0]
	w.initialized = true

	return nil
}

func (w *CSVWriter) Write(data types.MarketData) error {
	if !w.initialized {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	w.bars = append(w.bars, data)

	return nil
}

// Finalize sorts the bars by time and writes the file. Bars at midnight UTC
// are written with a date-only timestamp.
func (w *CSVWriter) Finalize() (string, error) {
	if !w.initialized {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer not initialized")
	}

	sort.SliceStable(w.bars, func(i, j int) bool {
		return w.bars[i].Time.Before(w.bars[j].Time)
	})

	rows := make([]csvBar, 0, len(w.bars))
	for _, bar := range w.bars {
		rows = append(rows, csvBar{
			Date:   formatBarTime(bar.Time),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create csv file", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write csv file", err)
	}

	return w.outputPath, nil
}

func (w *CSVWriter) Close() error {
	w.bars = nil
	w.initialized = false

	return nil
}

func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}

func formatBarTime(t time.Time) string {
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(time.DateOnly)
	}

	return t.Format(time.RFC3339)
}
