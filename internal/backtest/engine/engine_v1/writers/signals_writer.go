package writers

import "github.com/rxtech-lab/sma-backtest/internal/types"

// SignalsWriter writes signal points to signals.parquet.
type SignalsWriter struct {
	*parquetWriter
}

// NewSignalsWriter creates a new SignalsWriter.
// outputPath is the full path to the parquet file.
func NewSignalsWriter(outputPath string) *SignalsWriter {
	return &SignalsWriter{
		parquetWriter: newParquetWriter(outputPath, "signals", `
			time TIMESTAMP,
			symbol TEXT,
			close DOUBLE,
			short_ma DOUBLE,
			long_ma DOUBLE,
			signal INTEGER,
			position INTEGER,
			action TEXT
		`, "time ASC"),
	}
}

// Write buffers the signal points.
func (w *SignalsWriter) Write(signals []types.SignalPoint) error {
	rows := make([][]any, 0, len(signals))
	for _, s := range signals {
		rows = append(rows, []any{s.Time, s.Symbol, s.Close, s.ShortMA, s.LongMA, s.Signal, s.Position, string(s.Action())})
	}

	return w.insert([]string{"time", "symbol", "close", "short_ma", "long_ma", "signal", "position", "action"}, rows)
}
