// Package builtins provides built-in strategy implementations that ship with
// the vela platform.
package builtins

import (
	"context"
	"fmt"

	"vela/internal/domain"
	"vela/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy over
// closing prices. It emits a buy signal while the close sits above the fast
// SMA and the fast SMA sits above the slow SMA, and a sell signal in the
// mirrored configuration. With fewer than fastPeriod closes it emits nothing;
// with fewer than slowPeriod closes the slow SMA falls back to the fast one.
type SMACross struct {
	fastPeriod int
	slowPeriod int
}

// NewSMACross creates a new SMACross strategy with the specified fast and
// slow moving average periods.
func NewSMACross(fast, slow int) *SMACross {
	return &SMACross{
		fastPeriod: fast,
		slowPeriod: slow,
	}
}

// Name returns the strategy identifier, e.g. "sma-cross-20-50".
func (s *SMACross) Name() string {
	return fmt.Sprintf("sma-cross-%d-%d", s.fastPeriod, s.slowPeriod)
}

// Evaluate inspects the bars seen so far and returns a signal for the last
// bar in the prefix, or nil when no crossover condition holds.
func (s *SMACross) Evaluate(_ context.Context, bars []domain.Bar, cfg strategy.Config) (*domain.Signal, error) {
	if len(bars) < s.fastPeriod {
		return nil, nil
	}

	fast := trailingSMA(bars, s.fastPeriod)
	slow := fast
	if len(bars) >= s.slowPeriod {
		slow = trailingSMA(bars, s.slowPeriod)
	}

	price := bars[len(bars)-1].Close
	slFrac := cfg.StopLossPct / 100
	tpFrac := cfg.TakeProfitPct / 100

	switch {
	case price > fast && fast > slow:
		return &domain.Signal{
			Symbol:     cfg.Symbol,
			Action:     domain.SignalBuy,
			EntryPrice: price,
			StopLoss:   price * (1 - slFrac),
			TakeProfit: price * (1 + tpFrac),
			Confidence: 75,
			Reason:     fmt.Sprintf("price above SMA%d, SMA%d above SMA%d", s.fastPeriod, s.fastPeriod, s.slowPeriod),
		}, nil
	case price < fast && fast < slow:
		return &domain.Signal{
			Symbol:     cfg.Symbol,
			Action:     domain.SignalSell,
			EntryPrice: price,
			StopLoss:   price * (1 + slFrac),
			TakeProfit: price * (1 - tpFrac),
			Confidence: 75,
			Reason:     fmt.Sprintf("price below SMA%d, SMA%d below SMA%d", s.fastPeriod, s.fastPeriod, s.slowPeriod),
		}, nil
	}
	return nil, nil
}

// trailingSMA averages the last n closes. Callers guarantee len(bars) >= n.
func trailingSMA(bars []domain.Bar, n int) float64 {
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Close
	}
	return sum / float64(n)
}
