package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/sma-backtest/internal/logger"
	"github.com/rxtech-lab/sma-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	path   string
	source *DuckDBDataSource
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	suite.path = filepath.Join(suite.T().TempDir(), "SPY.parquet")

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	// written out of order on purpose
	_, err = db.Exec(fmt.Sprintf(`
		COPY (
			SELECT * FROM (VALUES
				(TIMESTAMP '2024-01-03 00:00:00', 'SPY', 3.0, 3.5, 2.5, 3.2, 300.0),
				(TIMESTAMP '2024-01-01 00:00:00', 'SPY', 1.0, 1.5, 0.5, 1.2, 100.0),
				(TIMESTAMP '2024-01-02 00:00:00', 'SPY', 2.0, 2.5, 1.5, 2.2, 200.0)
			) AS t(time, symbol, open, high, low, close, volume)
		) TO '%s' (FORMAT PARQUET);
	`, suite.path))
	suite.Require().NoError(err)

	suite.source, err = NewDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.source.Initialize(suite.path))
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	suite.NoError(suite.source.Close())
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllOrdered() {
	var closes []float64

	for data, err := range suite.source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		suite.Equal("SPY", data.Symbol)

		closes = append(closes, data.Close)
	}

	suite.Equal([]float64{1.2, 2.2, 3.2}, closes)
}

func (suite *DuckDBDataSourceTestSuite) TestCountWithRange() {
	count, err := suite.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(3, count)

	count, err = suite.source.Count(
		optional.Some(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		optional.Some(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
	)
	suite.Require().NoError(err)
	suite.Equal(2, count)
}

func (suite *DuckDBDataSourceTestSuite) TestLoadWithStart() {
	prices, err := Load(suite.source, suite.path, optional.Some(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(prices, 2)
	suite.Equal(2.2, prices[0].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeMissingFile() {
	source, err := NewDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	defer source.Close()

	err = source.Initialize(filepath.Join(suite.T().TempDir(), "missing.parquet"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

// writeParquet exports the rows of a DuckDB select to a parquet file.
func (suite *DuckDBDataSourceTestSuite) writeParquet(name, selectSQL string) string {
	path := filepath.Join(suite.T().TempDir(), name)

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT PARQUET);`, selectSQL, path))
	suite.Require().NoError(err)

	return path
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllDecimalColumns() {
	path := suite.writeParquet("DEC.parquet", `
		SELECT TIMESTAMP '2024-01-01 00:00:00' AS time, 'DEC' AS symbol,
			CAST(10.125 AS DECIMAL(18,3)) AS open, CAST(11.5 AS DECIMAL(18,3)) AS high,
			CAST(9.75 AS DECIMAL(18,3)) AS low, CAST(10.5 AS DECIMAL(18,3)) AS close,
			CAST(1200 AS DECIMAL(18,0)) AS volume
	`)

	source, err := NewDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	defer source.Close()
	suite.Require().NoError(source.Initialize(path))

	prices, err := Load(source, path, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(prices, 1)
	suite.Equal("DEC", prices[0].Symbol)
	suite.InDelta(10.125, prices[0].Open, 1e-9)
	suite.InDelta(10.5, prices[0].Close, 1e-9)
	suite.InDelta(1200.0, prices[0].Volume, 1e-9)
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllWithoutSymbolColumn() {
	path := suite.writeParquet("NOSYM.parquet", `
		SELECT * FROM (VALUES
			(TIMESTAMP '2024-01-02 00:00:00', CAST(2 AS BIGINT), CAST(3 AS BIGINT), CAST(1 AS BIGINT), CAST(2 AS BIGINT), CAST(50 AS BIGINT)),
			(TIMESTAMP '2024-01-01 00:00:00', CAST(1 AS BIGINT), CAST(2 AS BIGINT), CAST(1 AS BIGINT), CAST(1 AS BIGINT), CAST(40 AS BIGINT))
		) AS t(time, open, high, low, close, volume)
	`)

	source, err := NewDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	defer source.Close()
	suite.Require().NoError(source.Initialize(path))

	var closes []float64

	for data, err := range source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		suite.Empty(data.Symbol)

		closes = append(closes, data.Close)
	}

	suite.Equal([]float64{1, 2}, closes)
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeMissingColumn() {
	path := suite.writeParquet("NOCLOSE.parquet", `
		SELECT TIMESTAMP '2024-01-01 00:00:00' AS time, 1.0 AS open, 1.0 AS high, 1.0 AS low, 1.0 AS volume
	`)

	source, err := NewDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	defer source.Close()

	err = source.Initialize(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedDataFormat))
}
