// Package httpapi provides the REST API for running backtests and browsing
// stored results.
package httpapi

import (
	"fmt"
	"time"

	"vela/internal/backtest"
	"vela/internal/store"
)

// maxRangeDays caps the requested backtest window.
const maxRangeDays = 365

// BacktestRequest is the JSON body for running a single backtest. Dates
// accept either "2006-01-02" or RFC 3339.
type BacktestRequest struct {
	Strategy       string  `json:"strategy"`
	Symbol         string  `json:"symbol"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Interval       string  `json:"interval,omitempty"`
	InitialBalance float64 `json:"initial_balance,omitempty"`
	RiskPct        float64 `json:"risk_pct,omitempty"`
	CommissionRate float64 `json:"commission_rate,omitempty"`
	StopLossPct    float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct  float64 `json:"take_profit_pct,omitempty"`
}

// Validate checks required fields and the date range.
func (r BacktestRequest) Validate() error {
	if r.Strategy == "" {
		return fmt.Errorf("strategy is required")
	}
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	start, end, err := r.Range()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("start_date must be before end_date")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return fmt.Errorf("date range exceeds %d days", maxRangeDays)
	}
	return nil
}

// Range parses the start and end dates.
func (r BacktestRequest) Range() (start, end time.Time, err error) {
	start, err = parseDate(r.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("start_date: %w", err)
	}
	end, err = parseDate(r.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// BacktestResponse pairs a run result with its stored id. ID is zero when
// persistence is unavailable.
type BacktestResponse struct {
	ID     int64            `json:"id,omitempty"`
	Result *backtest.Result `json:"result"`
}

// SweepRequest runs the same backtest across several risk percentages.
type SweepRequest struct {
	BacktestRequest
	RiskPcts []float64 `json:"risk_pcts"`
}

// SweepResponse lists per-risk summaries, best return first.
type SweepResponse struct {
	Symbol   string                  `json:"symbol"`
	Strategy string                  `json:"strategy"`
	Results  []backtest.SweepResult  `json:"results"`
}

// CompareCandidate names one strategy configuration in a comparison.
type CompareCandidate struct {
	Name          string  `json:"name,omitempty"`
	Strategy      string  `json:"strategy"`
	RiskPct       float64 `json:"risk_pct,omitempty"`
	StopLossPct   float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct float64 `json:"take_profit_pct,omitempty"`
}

// CompareRequest runs several strategies over the same symbol and range.
type CompareRequest struct {
	Symbol         string             `json:"symbol"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	Interval       string             `json:"interval,omitempty"`
	InitialBalance float64            `json:"initial_balance,omitempty"`
	CommissionRate float64            `json:"commission_rate,omitempty"`
	Candidates     []CompareCandidate `json:"candidates"`
}

// CompareResponse lists side-by-side summaries in request order.
type CompareResponse struct {
	Symbol  string                     `json:"symbol"`
	Entries []backtest.ComparisonEntry `json:"entries"`
}

// HistoryResponse lists stored result summaries, newest first.
type HistoryResponse struct {
	Results []store.ResultSummary `json:"results"`
}

// StrategiesResponse lists registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// SymbolsResponse lists symbols with local bar data at an interval.
type SymbolsResponse struct {
	Interval string   `json:"interval"`
	Symbols  []string `json:"symbols"`
}
