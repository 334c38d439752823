package writers

import "github.com/rxtech-lab/sma-backtest/internal/types"

// TradesWriter writes executed and skipped trades to trades.parquet.
type TradesWriter struct {
	*parquetWriter
}

// NewTradesWriter creates a new TradesWriter.
func NewTradesWriter(outputPath string) *TradesWriter {
	return &TradesWriter{
		parquetWriter: newParquetWriter(outputPath, "trades", `
			id TEXT,
			symbol TEXT,
			time TIMESTAMP,
			side TEXT,
			quantity INTEGER,
			price DOUBLE,
			amount DOUBLE,
			cash_after DOUBLE,
			shares_after INTEGER,
			executed BOOLEAN,
			skip_reason TEXT
		`, "time ASC, id ASC"),
	}
}

// Write buffers the trade records.
func (w *TradesWriter) Write(trades []types.TradeRecord) error {
	rows := make([][]any, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []any{
			t.Id, t.Symbol, t.Time, string(t.Side), t.Quantity, t.Price, t.Amount,
			t.CashAfter, t.SharesAfter, t.Executed, string(t.SkipReason),
		})
	}

	return w.insert([]string{
		"id", "symbol", "time", "side", "quantity", "price", "amount",
		"cash_after", "shares_after", "executed", "skip_reason",
	}, rows)
}
