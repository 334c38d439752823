package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/internal/types"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBDataSource reads a parquet price file through an in-memory DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	path   string
	// hasSymbol is false for files written without a symbol column.
	hasSymbol bool
}

// requiredColumns must be present in every parquet price file.
var requiredColumns = []string{"time", "open", "high", "low", "close", "volume"}

// NewDataSource opens an in-memory DuckDB database. Call Initialize to attach a parquet file.
func NewDataSource(log *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// CREATE VIEW cannot be expressed with squirrel
	query := fmt.Sprintf(`CREATE VIEW market_data AS SELECT * FROM read_parquet('%s');`, escapeLiteral(path))

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read parquet file %s", path)
	}

	columns, err := d.columns()
	if err != nil {
		return err
	}

	for _, name := range requiredColumns {
		if !columns[name] {
			return errors.Newf(errors.ErrCodeUnsupportedDataFormat, "parquet file %s has no %s column", path, name)
		}
	}

	d.path = path
	d.hasSymbol = columns["symbol"]

	return nil
}

// columns returns the lower-cased column names of the market_data view.
func (d *DuckDBDataSource) columns() (map[string]bool, error) {
	query, args, err := d.sq.Select("column_name").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": "market_data"}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build column query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list parquet columns", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns[strings.ToLower(name)] = true
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list parquet columns", err)
	}

	return columns, nil
}

// selectColumns normalizes the parquet types to the ones MarketData scans into.
// Numeric columns may be DECIMAL, BIGINT or FLOAT depending on the writer.
func (d *DuckDBDataSource) selectColumns() []string {
	symbol := "CAST('' AS VARCHAR) AS symbol"
	if d.hasSymbol {
		symbol = "COALESCE(CAST(symbol AS VARCHAR), '') AS symbol"
	}

	return []string{
		"CAST(time AS TIMESTAMP) AS time",
		symbol,
		"CAST(open AS DOUBLE) AS open",
		"CAST(high AS DOUBLE) AS high",
		"CAST(low AS DOUBLE) AS low",
		"CAST(close AS DOUBLE) AS close",
		"COALESCE(CAST(volume AS DOUBLE), 0) AS volume",
	}
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := d.withRange(d.sq.Select("COUNT(*)").From("market_data"), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int

	err = d.db.QueryRow(query, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count market data", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		query, args, err := d.withRange(
			d.sq.Select(d.selectColumns()...).From("market_data"),
			start, end,
		).OrderBy("time ASC").ToSql()
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build select query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err))

			return
		}
		defer rows.Close()

		row := 0

		for rows.Next() {
			row++

			var data types.MarketData

			err := rows.Scan(&data.Time, &data.Symbol, &data.Open, &data.High, &data.Low, &data.Close, &data.Volume)
			if err != nil {
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to scan market data",
					errors.NewRowError(d.path, row, "", err.Error())))

				return
			}

			if !yield(data, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate market data", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func (d *DuckDBDataSource) withRange(builder squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return builder
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
