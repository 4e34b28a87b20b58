// Package store persists bar data and backtest results. Bars live in
// Parquet files partitioned by interval, symbol, and year; results live in
// SQLite.
package store

import (
	"context"
	"time"

	"vela/internal/backtest"
	"vela/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data, keyed by bar interval.
type BarStore interface {
	// WriteBars persists a batch of bars recorded at the given interval.
	WriteBars(ctx context.Context, interval string, bars []domain.Bar) error

	// ReadBars returns bars for the symbol and interval within [start, end],
	// sorted by timestamp ascending.
	ReadBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with data at the given interval.
	ListSymbols(ctx context.Context, interval string) ([]string, error)
}

// ResultSummary is the list view of a stored backtest result: everything but
// the trade list and equity curve.
type ResultSummary struct {
	ID             int64                 `json:"id"`
	Strategy       string                `json:"strategy"`
	Symbol         string                `json:"symbol"`
	StartTime      time.Time             `json:"start_time"`
	EndTime        time.Time             `json:"end_time"`
	InitialBalance float64               `json:"initial_balance"`
	FinalBalance   float64               `json:"final_balance"`
	TotalReturnPct float64               `json:"total_return_pct"`
	TotalTrades    int                   `json:"total_trades"`
	WinRatePct     float64               `json:"win_rate_pct"`
	ProfitFactor   backtest.ProfitFactor `json:"profit_factor"`
	MaxDrawdownPct float64               `json:"max_drawdown_pct"`
	SharpeRatio    float64               `json:"sharpe_ratio"`
	CreatedAt      time.Time             `json:"created_at"`
}

// ResultStore persists completed backtest results.
type ResultStore interface {
	// SaveResult persists a result and its closing trades, returning the
	// assigned id.
	SaveResult(ctx context.Context, res *backtest.Result) (int64, error)

	// GetResult retrieves a stored result by id, including its trades. The
	// equity curve is not persisted and comes back empty.
	GetResult(ctx context.Context, id int64) (*backtest.Result, error)

	// ListResults returns the most recent result summaries, newest first.
	// An empty symbol matches all symbols.
	ListResults(ctx context.Context, symbol string, limit int) ([]ResultSummary, error)
}
