package backtest

import "vela/internal/domain"

// State is the mutable simulation accumulator: free cash plus the open
// position, if any. Each run owns its own State, so independent runs can be
// executed in parallel with no shared mutable state.
type State struct {
	Cash     float64
	Position *domain.Position
}

// NewState creates a flat State with the given starting balance.
func NewState(balance float64) *State {
	return &State{Cash: balance}
}

// PortfolioValue returns cash plus the mark-to-market value of the open
// position at the given reference price.
func (s *State) PortfolioValue(price float64) float64 {
	return s.Cash + s.Position.MarketValue(price)
}

// SkipReason explains why a signal produced no trade. Skips are expected,
// frequent outcomes of the simulation, not errors.
type SkipReason int

const (
	// SkipNone means the trade executed.
	SkipNone SkipReason = iota
	// SkipDegenerateRisk means the stop-loss sat on the entry price, making
	// risk-based sizing impossible.
	SkipDegenerateRisk
	// SkipInsufficientFunds means cash could not cover notional plus
	// commission.
	SkipInsufficientFunds
	// SkipNoPosition means a sell arrived with nothing to close.
	SkipNoPosition
	// SkipPositionOpen means a buy arrived while a position was already open;
	// the simulation never pyramids.
	SkipPositionOpen
)

// String returns a short label for logging.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipDegenerateRisk:
		return "degenerate_risk"
	case SkipInsufficientFunds:
		return "insufficient_funds"
	case SkipNoPosition:
		return "no_position"
	case SkipPositionOpen:
		return "position_open"
	default:
		return "unknown"
	}
}
