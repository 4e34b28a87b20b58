package backtest

import (
	"context"
	"errors"
	"sort"
	"testing"

	"vela/internal/domain"
	"vela/internal/feed"
)

func sweepStrategy() *scriptStrategy {
	return &scriptStrategy{
		name: "scripted",
		signals: map[int]*domain.Signal{
			0: {Symbol: "BTC/USD", Action: domain.SignalBuy, EntryPrice: 100, StopLoss: 98},
			2: {Symbol: "BTC/USD", Action: domain.SignalSell, EntryPrice: 110},
		},
	}
}

func TestSweep(t *testing.T) {
	// A winning round trip: higher risk sizes a bigger position and earns a
	// higher return.
	bars := testBars(100, 102, 110)
	bt := newTestBacktester(t, bars, sweepStrategy())

	riskPcts := []float64{0.5, 2.0, 1.0}
	results, err := bt.Sweep(context.Background(), testRequest("scripted"), riskPcts, 2)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(results) != len(riskPcts) {
		t.Fatalf("got %d results for %d risk values", len(results), len(riskPcts))
	}
	if !sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].TotalReturnPct > results[j].TotalReturnPct
	}) {
		t.Error("results not sorted by total return descending")
	}
	if results[0].RiskPct != 2.0 {
		t.Errorf("best RiskPct = %v, want 2.0 on a winning trade", results[0].RiskPct)
	}

	seen := map[float64]bool{}
	for _, r := range results {
		seen[r.RiskPct] = true
		if r.TotalTrades != 1 {
			t.Errorf("risk %v: TotalTrades = %d, want 1", r.RiskPct, r.TotalTrades)
		}
	}
	for _, p := range riskPcts {
		if !seen[p] {
			t.Errorf("risk %v missing from results", p)
		}
	}
}

func TestSweepUnknownStrategy(t *testing.T) {
	bt := newTestBacktester(t, testBars(100), sweepStrategy())

	_, err := bt.Sweep(context.Background(), testRequest("nope"), []float64{1}, 1)
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("Sweep with unknown strategy: err = %v, want ErrBadRequest", err)
	}
}

func TestSweepEmptyFeed(t *testing.T) {
	// No bars must fail the sweep outright, not come back as a successful
	// empty result list.
	bt := newTestBacktester(t, nil, sweepStrategy())

	results, err := bt.Sweep(context.Background(), testRequest("scripted"), []float64{0.5, 1.0}, 2)
	if !errors.Is(err, feed.ErrDataUnavailable) {
		t.Fatalf("Sweep on empty feed: err = %v, want ErrDataUnavailable", err)
	}
	if results != nil {
		t.Errorf("Sweep on empty feed returned %d results, want none", len(results))
	}
}

func TestCompare(t *testing.T) {
	bars := testBars(100, 102, 110)

	winner := sweepStrategy()
	idle := &scriptStrategy{name: "idle"}
	bt := newTestBacktester(t, bars, winner, idle)

	names := []string{"buy-and-flip", "do-nothing"}
	reqs := []Request{testRequest("scripted"), testRequest("idle")}

	entries, err := bt.Compare(context.Background(), names, reqs, 2)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Input order is preserved regardless of performance.
	if entries[0].Name != "buy-and-flip" || entries[1].Name != "do-nothing" {
		t.Errorf("entry order = %q, %q", entries[0].Name, entries[1].Name)
	}
	if entries[0].TotalReturnPct <= entries[1].TotalReturnPct {
		t.Errorf("winning strategy return %v not above idle return %v",
			entries[0].TotalReturnPct, entries[1].TotalReturnPct)
	}
	if entries[1].TotalTrades != 0 {
		t.Errorf("idle strategy TotalTrades = %d, want 0", entries[1].TotalTrades)
	}
	// Zero-valued configs report the normalized default risk.
	if entries[0].RiskPct != 1.0 {
		t.Errorf("RiskPct = %v, want default 1.0", entries[0].RiskPct)
	}
}

func TestCompareLengthMismatch(t *testing.T) {
	bt := newTestBacktester(t, testBars(100), sweepStrategy())

	if _, err := bt.Compare(context.Background(), []string{"a"}, nil, 1); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("Compare with mismatched names/requests: err = %v, want ErrBadRequest", err)
	}
}
