package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"go.uber.org/zap"
)

// Column headers understood by the CSV data source.
const (
	columnDate   = "Date"
	columnOpen   = "Open"
	columnHigh   = "High"
	columnLow    = "Low"
	columnClose  = "Close"
	columnVolume = "Volume"
)

// yfinance writes three header rows: Price/Ticker/Date.
const (
	yfinancePriceLabel  = "Price"
	yfinanceTickerLabel = "Ticker"
	yfinanceDateLabel   = "Date"
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	time.DateTime,
}

var dateAliases = map[string]bool{
	"Date":      true,
	"Datetime":  true,
	"Time":      true,
	"Timestamp": true,
}

type csvRow struct {
	Date   string `csv:"Date"`
	Open   string `csv:"Open"`
	High   string `csv:"High"`
	Low    string `csv:"Low"`
	Close  string `csv:"Close"`
	Volume string `csv:"Volume"`
}

// CSVDataSource keeps a whole CSV price file in memory.
type CSVDataSource struct {
	logger *logger.Logger
	path   string
	data   []types.MarketData
}

// NewCSVDataSource creates an empty CSV data source.
func NewCSVDataSource(log *logger.Logger) *CSVDataSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CSVDataSource{logger: log}
}

// Initialize implements DataSource. The file is parsed eagerly so malformed rows fail here.
func (c *CSVDataSource) Initialize(path string) error {
	c.logger.Debug("Initializing CSV data source", zap.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open %s", path)
	}
	defer file.Close()

	data, err := parseCSV(file, path)
	if err != nil {
		return err
	}

	c.path = path
	c.data = data

	c.logger.Debug("Loaded CSV price data", zap.String("path", path), zap.Int("bars", len(data)))

	return nil
}

// ReadAll implements DataSource.
func (c *CSVDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		for _, data := range c.data {
			if !inRange(data.Time, start, end) {
				continue
			}

			if !yield(data, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (c *CSVDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, data := range c.data {
		if inRange(data.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (c *CSVDataSource) Close() error {
	c.data = nil

	return nil
}

// recordReader feeds already split records to gocsv.
type recordReader struct {
	records [][]string
	next    int
}

func (r *recordReader) Read() ([]string, error) {
	if r.next >= len(r.records) {
		return nil, io.EOF
	}

	record := r.records[r.next]
	r.next++

	return record, nil
}

func (r *recordReader) ReadAll() ([][]string, error) {
	rest := r.records[r.next:]
	r.next = len(r.records)

	return rest, nil
}

func parseCSV(in io.Reader, path string) ([]types.MarketData, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "malformed csv", errors.NewRowError(path, lineOf(err), "", err.Error()))
	}

	if len(records) == 0 {
		return []types.MarketData{}, nil
	}

	symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	header := normalizeHeader(records[0])
	body := records[1:]
	firstLine := 2

	if strings.TrimSpace(records[0][0]) == yfinancePriceLabel {
		header[0] = columnDate

		for len(body) > 0 && isYFinanceMetaRow(body[0]) {
			if strings.TrimSpace(body[0][0]) == yfinanceTickerLabel && len(body[0]) > 1 && strings.TrimSpace(body[0][1]) != "" {
				symbol = strings.TrimSpace(body[0][1])
			}

			body = body[1:]
			firstLine++
		}
	}

	for _, required := range []string{columnDate, columnClose} {
		if !contains(header, required) {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "malformed csv header",
				errors.NewRowError(path, 1, required, "missing column"))
		}
	}

	rows := []csvRow{}

	err = gocsv.UnmarshalCSV(&recordReader{records: append([][]string{header}, body...)}, &rows)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to map csv columns", err)
	}

	data := make([]types.MarketData, 0, len(rows))
	lines := make(map[time.Time]int, len(rows))

	for i, row := range rows {
		line := firstLine + i

		bar, err := row.toMarketData(path, line, symbol)
		if err != nil {
			return nil, err
		}

		if previous, ok := lines[bar.Time]; ok {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid price data",
				errors.NewRowError(path, line, columnDate, fmt.Sprintf("duplicate date %s (first seen on line %d)", row.Date, previous)))
		}

		lines[bar.Time] = line
		data = append(data, bar)
	}

	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Time.Before(data[j].Time)
	})

	return data, nil
}

func (r csvRow) toMarketData(path string, line int, symbol string) (types.MarketData, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return types.MarketData{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid price data",
			errors.NewRowError(path, line, columnDate, fmt.Sprintf("cannot parse %q", r.Date)))
	}

	closePrice, err := parseNumber(r.Close, false)
	if err != nil || !validPrice(closePrice) {
		return types.MarketData{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid price data",
			errors.NewRowError(path, line, columnClose, fmt.Sprintf("close must be a positive number, got %q", r.Close)))
	}

	bar := types.MarketData{
		Symbol: symbol,
		Time:   date,
		Close:  closePrice,
	}

	optionalColumns := []struct {
		name  string
		raw   string
		field *float64
	}{
		{columnOpen, r.Open, &bar.Open},
		{columnHigh, r.High, &bar.High},
		{columnLow, r.Low, &bar.Low},
		{columnVolume, r.Volume, &bar.Volume},
	}

	for _, column := range optionalColumns {
		value, err := parseNumber(column.raw, true)
		if err != nil {
			return types.MarketData{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid price data",
				errors.NewRowError(path, line, column.name, fmt.Sprintf("cannot parse %q", column.raw)))
		}

		*column.field = value
	}

	return bar, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	var lastErr error

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}

func parseNumber(raw string, allowEmpty bool) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" && allowEmpty {
		return 0, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(v) {
		return 0, fmt.Errorf("not a number")
	}

	return v, nil
}

func normalizeHeader(record []string) []string {
	header := make([]string, len(record))

	for i, cell := range record {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			header[i] = cell

			continue
		}

		cell = strings.ToUpper(cell[:1]) + strings.ToLower(cell[1:])
		if dateAliases[cell] {
			cell = columnDate
		}

		header[i] = cell
	}

	return header
}

func isYFinanceMetaRow(record []string) bool {
	if len(record) == 0 {
		return false
	}

	label := strings.TrimSpace(record[0])
	if label == yfinanceTickerLabel {
		return true
	}

	// the Date row carries no values
	if label != yfinanceDateLabel {
		return false
	}

	for _, cell := range record[1:] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}

	return false
}

func lineOf(err error) int {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Line
	}

	return 0
}
