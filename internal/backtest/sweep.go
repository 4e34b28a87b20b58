package backtest

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"vela/internal/feed"
)

// defaultSweepWorkers bounds sweep concurrency when the caller passes 0.
const defaultSweepWorkers = 4

// SweepResult summarizes one parameter combination of a sweep.
type SweepResult struct {
	RiskPct        float64      `json:"risk_pct"`
	TotalReturnPct float64      `json:"total_return_pct"`
	FinalBalance   float64      `json:"final_balance"`
	TotalTrades    int          `json:"total_trades"`
	WinRatePct     float64      `json:"win_rate_pct"`
	ProfitFactor   ProfitFactor `json:"profit_factor"`
	MaxDrawdownPct float64      `json:"max_drawdown_pct"`
	SharpeRatio    float64      `json:"sharpe_ratio"`
}

// Sweep runs the same backtest once per risk percentage and returns the
// summaries sorted by total return, best first. The bar series is fetched
// once and shared read-only; every run owns an independent State, so the
// runs execute in parallel. An empty series fails the whole sweep with
// feed.ErrDataUnavailable; a combination that fails after that is logged
// and omitted.
func (bt *Backtester) Sweep(ctx context.Context, req Request, riskPcts []float64, workers int) ([]SweepResult, error) {
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

	if workers <= 0 {
		workers = defaultSweepWorkers
	}

	results := make([]*SweepResult, len(riskPcts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, riskPct := range riskPcts {
		g.Go(func() error {
			cfg := req.Config
			cfg.RiskPct = riskPct

			res, err := bt.RunBars(gctx, strat, cfg, bars, req.InitialBalance, req.Start, req.End)
			if err != nil {
				bt.log.Warn("sweep run failed", "risk_pct", riskPct, "err", err)
				return nil
			}
			results[i] = &SweepResult{
				RiskPct:        riskPct,
				TotalReturnPct: res.TotalReturnPct,
				FinalBalance:   res.FinalBalance,
				TotalTrades:    res.TotalTrades,
				WinRatePct:     res.WinRatePct,
				ProfitFactor:   res.ProfitFactor,
				MaxDrawdownPct: res.MaxDrawdownPct,
				SharpeRatio:    res.SharpeRatio,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]SweepResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalReturnPct > out[j].TotalReturnPct
	})
	return out, nil
}

// ComparisonEntry names one strategy/config combination in a comparison run.
type ComparisonEntry struct {
	Name           string       `json:"name"`
	Strategy       string       `json:"strategy"`
	RiskPct        float64      `json:"risk_pct"`
	TotalReturnPct float64      `json:"total_return_pct"`
	FinalBalance   float64      `json:"final_balance"`
	TotalTrades    int          `json:"total_trades"`
	WinRatePct     float64      `json:"win_rate_pct"`
	ProfitFactor   ProfitFactor `json:"profit_factor"`
	MaxDrawdownPct float64      `json:"max_drawdown_pct"`
	SharpeRatio    float64      `json:"sharpe_ratio"`
}

// Compare runs each request and reports the summaries side by side, in the
// order given. Runs execute in parallel; a failed candidate is logged and
// omitted.
func (bt *Backtester) Compare(ctx context.Context, names []string, reqs []Request, workers int) ([]ComparisonEntry, error) {
	if len(names) != len(reqs) {
		return nil, fmt.Errorf("%w: %d names for %d requests", ErrBadRequest, len(names), len(reqs))
	}
	if workers <= 0 {
		workers = defaultSweepWorkers
	}

	entries := make([]*ComparisonEntry, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range reqs {
		g.Go(func() error {
			res, err := bt.Run(gctx, reqs[i])
			if err != nil {
				bt.log.Warn("comparison run failed", "name", names[i], "err", err)
				return nil
			}
			entries[i] = &ComparisonEntry{
				Name:           names[i],
				Strategy:       res.Strategy,
				RiskPct:        reqs[i].Config.Normalize().RiskPct,
				TotalReturnPct: res.TotalReturnPct,
				FinalBalance:   res.FinalBalance,
				TotalTrades:    res.TotalTrades,
				WinRatePct:     res.WinRatePct,
				ProfitFactor:   res.ProfitFactor,
				MaxDrawdownPct: res.MaxDrawdownPct,
				SharpeRatio:    res.SharpeRatio,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ComparisonEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}
