package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vela/internal/domain"
	"vela/internal/feed"
	"vela/internal/strategy"
)

// ErrBadRequest marks failures caused by the request itself rather than by
// the run. Callers distinguish them with errors.Is, the same way they test
// for feed.ErrDataUnavailable.
var ErrBadRequest = errors.New("backtest: invalid request")

// Backtester replays historical bar data through a strategy and computes
// performance metrics. A single run is strictly sequential; independent runs
// share nothing and may execute concurrently.
type Backtester struct {
	feed     feed.Provider
	registry *strategy.Registry
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given provider
// and looks up strategies in the provided registry.
func NewBacktester(provider feed.Provider, registry *strategy.Registry, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{
		feed:     provider,
		registry: registry,
		log:      log.With("component", "backtester"),
	}
}

// Request describes one backtest run.
type Request struct {
	Strategy       string
	Config         strategy.Config
	Start, End     time.Time
	InitialBalance float64
}

// Validate checks the request before any data is fetched. All failures wrap
// ErrBadRequest.
func (r Request) Validate() error {
	if err := r.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, err)
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start %s not before end %s", ErrBadRequest, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	if r.InitialBalance <= 0 {
		return fmt.Errorf("%w: initial balance = %v, want > 0", ErrBadRequest, r.InitialBalance)
	}
	return nil
}

// Run executes a backtest for the named strategy over the requested range.
// It returns feed.ErrDataUnavailable when the provider has no bars for the
// range.
func (bt *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	req.Config = req.Config.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	strat, ok := bt.registry.Get(req.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrBadRequest, req.Strategy)
	}

	bars, err := bt.feed.Fetch(ctx, req.Config.Symbol, req.Start, req.End, req.Config.Interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, feed.ErrDataUnavailable
	}

	bt.log.Info("starting backtest",
		"strategy", strat.Name(),
		"symbol", req.Config.Symbol,
		"bars", len(bars),
		"initial_balance", req.InitialBalance,
	)

	res, err := bt.RunBars(ctx, strat, req.Config, bars, req.InitialBalance, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	bt.log.Info("backtest finished",
		"strategy", strat.Name(),
		"symbol", req.Config.Symbol,
		"trades", res.TotalTrades,
		"total_return_pct", res.TotalReturnPct,
		"max_drawdown_pct", res.MaxDrawdownPct,
	)
	return res, nil
}

// RunBars executes the simulation over an in-memory bar series. It is the
// deterministic core: for fixed bars, config, balance, and a deterministic
// strategy, two calls produce identical results.
//
// The loop is a strict left-to-right fold: each bar is visited exactly once,
// an equity point is recorded unconditionally, and the strategy only ever
// sees the prefix of the series ending at the current bar.
func (bt *Backtester) RunBars(
	ctx context.Context,
	strat strategy.Strategy,
	cfg strategy.Config,
	bars []domain.Bar,
	initialBalance float64,
	start, end time.Time,
) (*Result, error) {
	if len(bars) == 0 {
		return nil, feed.ErrDataUnavailable
	}
	if err := domain.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("backtest: invalid bar series: %w", err)
	}

	state := NewState(initialBalance)
	sim := NewSimulator(cfg)
	trades := make([]TradeRecord, 0)
	curve := make([]EquityPoint, 0, len(bars))

	for i := range bars {
		bar := bars[i]
		price := bar.Close

		curve = append(curve, EquityPoint{
			Timestamp:      bar.Timestamp,
			Cash:           state.Cash,
			PortfolioValue: state.PortfolioValue(price),
			Price:          price,
		})

		// Only the prefix up to and including the current bar is visible to
		// the strategy.
		sig, err := strat.Evaluate(ctx, bars[:i+1], cfg)
		if err != nil {
			return nil, fmt.Errorf("backtest: strategy %q at bar %d: %w", strat.Name(), i, err)
		}
		if sig == nil {
			continue
		}

		rec, skip := sim.Apply(state, sig, bar.Timestamp, price)
		if skip != SkipNone {
			bt.log.Debug("trade skipped",
				"bar", i,
				"action", string(sig.Action),
				"reason", skip.String(),
			)
			continue
		}
		trades = append(trades, *rec)
	}

	// Mark any still-open position to market at the last close.
	finalBalance := state.PortfolioValue(bars[len(bars)-1].Close)

	return computeResult(strat.Name(), cfg.Symbol, trades, curve, initialBalance, finalBalance, start, end), nil
}
