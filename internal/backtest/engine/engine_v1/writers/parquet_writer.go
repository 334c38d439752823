package writers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
)

// parquetWriter buffers rows in an in-memory DuckDB table and exports them with COPY.
type parquetWriter struct {
	db         *sql.DB
	sq         squirrel.StatementBuilderType
	table      string
	schema     string
	orderBy    string
	outputPath string
	mu         sync.Mutex
}

func newParquetWriter(outputPath, table, schema, orderBy string) *parquetWriter {
	return &parquetWriter{
		sq:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		table:      table,
		schema:     schema,
		orderBy:    orderBy,
		outputPath: outputPath,
	}
}

// Initialize opens the database and creates the table.
func (w *parquetWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.outputPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create result directory", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to open DuckDB connection", err)
	}

	_, err = db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", w.table, w.schema))
	if err != nil {
		db.Close()

		return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to create %s table", w.table)
	}

	w.db = db

	return nil
}

// insert adds rows in a single transaction.
func (w *parquetWriter) insert(columns []string, rows [][]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeBacktestWriteFailed, "writer not initialized")
	}

	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to begin transaction", err)
	}

	for _, row := range rows {
		query, args, err := w.sq.Insert(w.table).Columns(columns...).Values(row...).ToSql()
		if err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to build insert", err)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			_ = tx.Rollback()

			return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to insert into %s", w.table)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to commit", err)
	}

	return nil
}

// Flush exports the table to the parquet file, replacing it.
func (w *parquetWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeBacktestWriteFailed, "writer not initialized")
	}

	_, err := w.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY %s) TO '%s' (FORMAT PARQUET)`,
		w.table, w.orderBy, strings.ReplaceAll(w.outputPath, "'", "''")))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to export %s to parquet", w.table)
	}

	return nil
}

// Count returns the number of buffered rows.
func (w *parquetWriter) Count() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodeBacktestWriteFailed, "writer not initialized")
	}

	query, args, err := w.sq.Select("COUNT(*)").From(w.table).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := w.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count %s", w.table)
	}

	return count, nil
}

// GetOutputPath returns the parquet file path.
func (w *parquetWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *parquetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}

		w.db = nil
	}

	return nil
}
