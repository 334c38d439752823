package writers

import "github.com/rxtech-lab/sma-backtest/internal/types"

// PortfolioWriter writes the portfolio value series to portfolio.parquet.
type PortfolioWriter struct {
	*parquetWriter
}

// NewPortfolioWriter creates a new PortfolioWriter.
func NewPortfolioWriter(outputPath string) *PortfolioWriter {
	return &PortfolioWriter{
		parquetWriter: newParquetWriter(outputPath, "portfolio", `
			time TIMESTAMP,
			value DOUBLE,
			cash DOUBLE,
			shares INTEGER
		`, "time ASC"),
	}
}

// Write buffers the value points.
func (w *PortfolioWriter) Write(points []types.PortfolioValuePoint) error {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Time, p.Value, p.Cash, p.Shares})
	}

	return w.insert([]string{"time", "value", "cash", "shares"}, rows)
}
