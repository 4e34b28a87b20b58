// Package strategy defines the Strategy interface for signal generation and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"vela/internal/domain"
)

// Config holds the per-run strategy parameters. It is immutable for the
// duration of one backtest.
type Config struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	Interval       string  `json:"interval" yaml:"interval"`
	RiskPct        float64 `json:"risk_pct" yaml:"risk_pct"`               // 1.0 == risk 1% of balance per trade
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"` // fraction of notional, e.g. 0.001
	StopLossPct    float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`     // 2.0 == 2% below entry
	TakeProfitPct  float64 `json:"take_profit_pct" yaml:"take_profit_pct"` // 4.0 == 4% above entry
}

// Default strategy parameters, matching the reference crossover policy.
const (
	DefaultRiskPct        = 1.0
	DefaultCommissionRate = 0.001
	DefaultStopLossPct    = 2.0
	DefaultTakeProfitPct  = 4.0
	DefaultInterval       = "1h"
)

// Normalize fills zero-valued optional fields with defaults.
func (c Config) Normalize() Config {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.RiskPct == 0 {
		c.RiskPct = DefaultRiskPct
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = DefaultStopLossPct
	}
	if c.TakeProfitPct == 0 {
		c.TakeProfitPct = DefaultTakeProfitPct
	}
	return c
}

// Validate checks that the configuration is usable for a simulation run.
// The whole run depends on these values, so invalid input fails fast here
// rather than mid-loop.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol is required")
	}
	if c.RiskPct <= 0 || math.IsNaN(c.RiskPct) || math.IsInf(c.RiskPct, 0) {
		return fmt.Errorf("config: risk_pct = %v, want > 0", c.RiskPct)
	}
	if c.CommissionRate < 0 || math.IsNaN(c.CommissionRate) || math.IsInf(c.CommissionRate, 0) {
		return fmt.Errorf("config: commission_rate = %v, want >= 0", c.CommissionRate)
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		return fmt.Errorf("config: stop_loss_pct = %v, want in (0, 100)", c.StopLossPct)
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("config: take_profit_pct = %v, want > 0", c.TakeProfitPct)
	}
	return nil
}

// Strategy is the interface all signal generators implement.
//
// Evaluate receives the prefix of the bar series ending at the current bar,
// inclusive, and returns a signal, or nil for hold. Callers must never pass
// bars beyond the current one; the prefix slice is the lookahead boundary.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Evaluate produces a trade decision from the bars seen so far.
	Evaluate(ctx context.Context, bars []domain.Bar, cfg Config) (*domain.Signal, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
