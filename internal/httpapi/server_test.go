package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"vela/internal/backtest"
	"vela/internal/config"
	"vela/internal/domain"
	"vela/internal/store"
	"vela/internal/strategy"
)

// stubProvider serves fixed bars for every symbol except "EMPTY".
type stubProvider struct {
	bars []domain.Bar
}

func (p *stubProvider) Fetch(_ context.Context, symbol string, _, _ time.Time, _ string) ([]domain.Bar, error) {
	if symbol == "EMPTY" {
		return nil, nil
	}
	return p.bars, nil
}

// flipStrategy buys on the first bar and sells on the third.
type flipStrategy struct{}

func (flipStrategy) Name() string { return "flip" }

func (flipStrategy) Evaluate(_ context.Context, bars []domain.Bar, _ strategy.Config) (*domain.Signal, error) {
	last := bars[len(bars)-1]
	switch len(bars) {
	case 1:
		return &domain.Signal{
			Symbol:     last.Symbol,
			Action:     domain.SignalBuy,
			EntryPrice: last.Close,
			StopLoss:   last.Close * 0.98,
		}, nil
	case 3:
		return &domain.Signal{
			Symbol:     last.Symbol,
			Action:     domain.SignalSell,
			EntryPrice: last.Close,
		}, nil
	}
	return nil, nil
}

func apiBars(closes ...float64) []domain.Bar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "BTC/USD",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    10,
		}
	}
	return bars
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	reg := strategy.NewRegistry()
	reg.Register(flipStrategy{})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bt := backtest.NewBacktester(&stubProvider{bars: apiBars(100, 102, 110, 108)}, reg, log)

	results, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "vela.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { results.Close() })

	bars := store.NewParquetStore(t.TempDir())
	if err := bars.WriteBars(context.Background(), "1h", apiBars(100)); err != nil {
		t.Fatalf("seeding bar store: %v", err)
	}

	defaults := config.BacktestConfig{
		InitialBalance: 1000,
		RiskPct:        1.0,
		CommissionRate: 0.001,
		Interval:       "1h",
		SweepWorkers:   2,
	}

	srv := httptest.NewServer(NewServer(bt, reg, results, bars, defaults, log).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func validRequest() BacktestRequest {
	return BacktestRequest{
		Strategy:  "flip",
		Symbol:    "BTC/USD",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-02",
	}
}

func TestRunBacktestEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/backtests", validRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out BacktestResponse
	decodeJSON(t, resp, &out)
	if out.ID <= 0 {
		t.Errorf("ID = %d, want > 0 (persisted)", out.ID)
	}
	if out.Result == nil {
		t.Fatal("response has no result")
	}
	if out.Result.Strategy != "flip" || out.Result.TotalTrades != 1 {
		t.Errorf("result = %s with %d trades, want flip with 1", out.Result.Strategy, out.Result.TotalTrades)
	}
	// Defaults applied: initial balance from server config.
	if out.Result.InitialBalance != 1000 {
		t.Errorf("InitialBalance = %v, want default 1000", out.Result.InitialBalance)
	}
}

func TestRunBacktestValidation(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/v1/backtests"

	cases := []struct {
		name string
		mod  func(*BacktestRequest)
	}{
		{"missing strategy", func(r *BacktestRequest) { r.Strategy = "" }},
		{"missing symbol", func(r *BacktestRequest) { r.Symbol = "" }},
		{"bad date", func(r *BacktestRequest) { r.StartDate = "yesterday" }},
		{"inverted range", func(r *BacktestRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }},
		{"range too long", func(r *BacktestRequest) { r.StartDate, r.EndDate = "2020-01-01", "2024-01-01" }},
		{"unknown strategy", func(r *BacktestRequest) { r.Strategy = "nope" }},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mod(&req)
		resp := postJSON(t, url, req)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestRunBacktestNoData(t *testing.T) {
	srv := newTestServer(t)

	req := validRequest()
	req.Symbol = "EMPTY"
	resp := postJSON(t, srv.URL+"/api/v1/backtests", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for missing data", resp.StatusCode)
	}
}

func TestHistoryAndGetEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var run BacktestResponse
	decodeJSON(t, postJSON(t, srv.URL+"/api/v1/backtests", validRequest()), &run)

	resp, err := http.Get(srv.URL + "/api/v1/backtests?symbol=BTC/USD")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	var hist HistoryResponse
	decodeJSON(t, resp, &hist)
	if len(hist.Results) != 1 || hist.Results[0].ID != run.ID {
		t.Fatalf("history = %+v, want the one stored run", hist.Results)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/v1/backtests/%d", srv.URL, run.ID))
	if err != nil {
		t.Fatalf("GET result: %v", err)
	}
	var stored backtest.Result
	decodeJSON(t, resp, &stored)
	if stored.Strategy != "flip" || len(stored.Trades) != 2 {
		t.Errorf("stored = %s with %d trades, want flip with 2", stored.Strategy, len(stored.Trades))
	}

	resp, err = http.Get(srv.URL + "/api/v1/backtests/9999")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", resp.StatusCode)
	}
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var run BacktestResponse
	decodeJSON(t, postJSON(t, srv.URL+"/api/v1/backtests", validRequest()), &run)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/backtests/%d/report", srv.URL, run.ID))
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("flip")) {
		t.Error("report missing strategy name")
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := SweepRequest{BacktestRequest: validRequest(), RiskPcts: []float64{0.5, 2.0}}
	resp := postJSON(t, srv.URL+"/api/v1/backtests/sweep", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out SweepResponse
	decodeJSON(t, resp, &out)
	if len(out.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(out.Results))
	}
	if out.Results[0].TotalReturnPct < out.Results[1].TotalReturnPct {
		t.Error("sweep results not sorted best first")
	}

	// Empty risk list is rejected.
	resp = postJSON(t, srv.URL+"/api/v1/backtests/sweep", SweepRequest{BacktestRequest: validRequest()})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty risk_pcts status = %d, want 400", resp.StatusCode)
	}
}

func TestSweepEndpointNoData(t *testing.T) {
	srv := newTestServer(t)

	// A symbol with no bars is a 404, not an empty 200.
	base := validRequest()
	base.Symbol = "EMPTY"
	req := SweepRequest{BacktestRequest: base, RiskPcts: []float64{0.5, 2.0}}

	resp := postJSON(t, srv.URL+"/api/v1/backtests/sweep", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for missing data", resp.StatusCode)
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := CompareRequest{
		Symbol:    "BTC/USD",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-02",
		Candidates: []CompareCandidate{
			{Name: "conservative", Strategy: "flip", RiskPct: 0.5},
			{Strategy: "flip", RiskPct: 2.0},
		},
	}
	resp := postJSON(t, srv.URL+"/api/v1/backtests/compare", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out CompareResponse
	decodeJSON(t, resp, &out)
	if len(out.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(out.Entries))
	}
	if out.Entries[0].Name != "conservative" {
		t.Errorf("first entry = %q, want request order preserved", out.Entries[0].Name)
	}
	// An unnamed candidate falls back to its strategy name.
	if out.Entries[1].Name != "flip" {
		t.Errorf("second entry = %q, want strategy name fallback", out.Entries[1].Name)
	}
}

func TestStrategiesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/strategies")
	if err != nil {
		t.Fatalf("GET strategies: %v", err)
	}
	var out StrategiesResponse
	decodeJSON(t, resp, &out)
	if len(out.Strategies) != 1 || out.Strategies[0] != "flip" {
		t.Errorf("strategies = %v, want [flip]", out.Strategies)
	}
}

func TestSymbolsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/symbols")
	if err != nil {
		t.Fatalf("GET symbols: %v", err)
	}
	var out SymbolsResponse
	decodeJSON(t, resp, &out)
	if out.Interval != "1h" {
		t.Errorf("interval = %q, want default 1h", out.Interval)
	}
	if len(out.Symbols) != 1 || out.Symbols[0] != "BTC/USD" {
		t.Errorf("symbols = %v, want [BTC/USD]", out.Symbols)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
