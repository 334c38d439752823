package types

import (
	"strings"
	"time"
)

// TickerFileName returns the price file name of ticker. Tickers are stored
// upper-cased so a lookup matches the downloaded file regardless of case.
func TickerFileName(ticker, ext string) string {
	return strings.ToUpper(strings.TrimSpace(ticker)) + ext
}

// MarketData is a single OHLCV bar of an instrument. Only Time and Close feed
// the crossover signal; the remaining fields are carried through untouched.
type MarketData struct {
	Id     string    `csv:"-"`
	Symbol string    `csv:"-"`
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}
