package types

import "time"

type SkipReason string

const (
	SkipReasonNone               SkipReason = ""
	SkipReasonInsufficientCash   SkipReason = "insufficient_cash"
	SkipReasonInsufficientShares SkipReason = "insufficient_shares"
)

// TradeRecord is one buy or sell signal acted upon by the simulator.
// Skipped signals are recorded too, with Executed=false.
type TradeRecord struct {
	Id       string
	Symbol   string
	Time     time.Time
	Side     SignalType
	Quantity int
	Price    float64
	// Amount is Quantity * Price, the cash that moved (or would have moved).
	Amount float64
	// CashAfter is the cash balance after the record was applied.
	CashAfter float64
	// SharesAfter is the share count after the record was applied.
	SharesAfter int
	Executed    bool
	SkipReason  SkipReason
}
