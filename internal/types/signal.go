package types

type SignalType string

const (
	// SignalTypeBuyLong is emitted when the short average crosses above the long average
	SignalTypeBuyLong SignalType = "buy_long"
	// SignalTypeSellLong is emitted when the short average crosses back below the long average
	SignalTypeSellLong SignalType = "sell_long"
	// SignalTypeNoAction is emitted when the crossover state did not change
	SignalTypeNoAction SignalType = "no_action"
)

// Position transitions of the crossover indicator.
const (
	PositionExit  = -1
	PositionHold  = 0
	PositionEnter = 1
)

// SignalPoint is a bar augmented with both moving averages and the crossover state.
type SignalPoint struct {
	MarketData
	// ShortMA is the mean close over the short window, ending at this bar.
	ShortMA float64
	// LongMA is the mean close over the long window, ending at this bar.
	LongMA float64
	// Signal is 1 while ShortMA is strictly above LongMA, 0 otherwise.
	Signal int
	// Position is Signal minus the previous bar's Signal: 1 entered, -1 exited, 0 unchanged.
	Position int
}

// Action maps the position transition to the trade it asks for.
func (s SignalPoint) Action() SignalType {
	switch s.Position {
	case PositionEnter:
		return SignalTypeBuyLong
	case PositionExit:
		return SignalTypeSellLong
	default:
		return SignalTypeNoAction
	}
}
