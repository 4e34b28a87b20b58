package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"vela/internal/backtest"
	"vela/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS backtests (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy            TEXT    NOT NULL,
	symbol              TEXT    NOT NULL,
	start_time          INTEGER NOT NULL,
	end_time            INTEGER NOT NULL,
	initial_balance     REAL    NOT NULL,
	final_balance       REAL    NOT NULL,
	total_return_pct    REAL    NOT NULL,
	total_trades        INTEGER NOT NULL,
	winning_trades      INTEGER NOT NULL,
	losing_trades       INTEGER NOT NULL,
	win_rate_pct        REAL    NOT NULL,
	profit_factor       REAL,
	max_drawdown_pct    REAL    NOT NULL,
	sharpe_ratio        REAL    NOT NULL,
	total_commission    REAL    NOT NULL,
	average_win         REAL    NOT NULL,
	average_loss        REAL    NOT NULL,
	largest_win         REAL    NOT NULL,
	largest_loss        REAL    NOT NULL,
	consecutive_wins    INTEGER NOT NULL,
	consecutive_losses  INTEGER NOT NULL,
	trading_period_days INTEGER NOT NULL,
	trades_per_day      REAL    NOT NULL,
	created_at          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	backtest_id  INTEGER NOT NULL REFERENCES backtests(id) ON DELETE CASCADE,
	timestamp    INTEGER NOT NULL,
	symbol       TEXT    NOT NULL,
	side         TEXT    NOT NULL,
	qty          REAL    NOT NULL,
	price        REAL    NOT NULL,
	notional     REAL    NOT NULL,
	commission   REAL    NOT NULL,
	realized_pnl REAL,
	balance      REAL    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backtests_symbol ON backtests(symbol);
CREATE INDEX IF NOT EXISTS idx_backtest_trades_backtest ON backtest_trades(backtest_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult inserts the result and its trades in one transaction. A +Inf
// profit factor is stored as NULL, since SQLite REAL has no infinity either.
func (s *SQLiteStore) SaveResult(ctx context.Context, res *backtest.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var profitFactor sql.NullFloat64
	if !res.ProfitFactor.IsInf() {
		profitFactor = sql.NullFloat64{Float64: float64(res.ProfitFactor), Valid: true}
	}

	m := res.Metrics
	row, err := tx.ExecContext(ctx, `
		INSERT INTO backtests (
			strategy, symbol, start_time, end_time,
			initial_balance, final_balance, total_return_pct,
			total_trades, winning_trades, losing_trades, win_rate_pct,
			profit_factor, max_drawdown_pct, sharpe_ratio,
			total_commission, average_win, average_loss,
			largest_win, largest_loss, consecutive_wins, consecutive_losses,
			trading_period_days, trades_per_day, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Strategy, res.Symbol, res.StartTime.UnixMilli(), res.EndTime.UnixMilli(),
		res.InitialBalance, res.FinalBalance, res.TotalReturnPct,
		res.TotalTrades, res.WinningTrades, res.LosingTrades, res.WinRatePct,
		profitFactor, res.MaxDrawdownPct, res.SharpeRatio,
		m.TotalCommission, m.AverageWin, m.AverageLoss,
		m.LargestWin, m.LargestLoss, m.ConsecutiveWins, m.ConsecutiveLosses,
		m.TradingPeriodDays, m.TradesPerDay, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting backtest: %w", err)
	}
	id, err := row.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, t := range res.Trades {
		var pnl sql.NullFloat64
		if t.RealizedPnL != nil {
			pnl = sql.NullFloat64{Float64: *t.RealizedPnL, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (
				backtest_id, timestamp, symbol, side,
				qty, price, notional, commission, realized_pnl, balance
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.Timestamp.UnixMilli(), t.Symbol, string(t.Side),
			t.Qty, t.Price, t.Notional, t.Commission, pnl, t.Balance,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetResult retrieves a stored result by id. The equity curve is not
// persisted and comes back empty.
func (s *SQLiteStore) GetResult(ctx context.Context, id int64) (*backtest.Result, error) {
	var (
		res          backtest.Result
		startMs      int64
		endMs        int64
		profitFactor sql.NullFloat64
	)
	m := &res.Metrics
	err := s.db.QueryRowContext(ctx, `
		SELECT strategy, symbol, start_time, end_time,
			initial_balance, final_balance, total_return_pct,
			total_trades, winning_trades, losing_trades, win_rate_pct,
			profit_factor, max_drawdown_pct, sharpe_ratio,
			total_commission, average_win, average_loss,
			largest_win, largest_loss, consecutive_wins, consecutive_losses,
			trading_period_days, trades_per_day
		FROM backtests WHERE id = ?`, id,
	).Scan(
		&res.Strategy, &res.Symbol, &startMs, &endMs,
		&res.InitialBalance, &res.FinalBalance, &res.TotalReturnPct,
		&res.TotalTrades, &res.WinningTrades, &res.LosingTrades, &res.WinRatePct,
		&profitFactor, &res.MaxDrawdownPct, &res.SharpeRatio,
		&m.TotalCommission, &m.AverageWin, &m.AverageLoss,
		&m.LargestWin, &m.LargestLoss, &m.ConsecutiveWins, &m.ConsecutiveLosses,
		&m.TradingPeriodDays, &m.TradesPerDay,
	)
	if err != nil {
		return nil, fmt.Errorf("reading backtest %d: %w", id, err)
	}
	res.StartTime = time.UnixMilli(startMs).UTC()
	res.EndTime = time.UnixMilli(endMs).UTC()
	if profitFactor.Valid {
		res.ProfitFactor = backtest.ProfitFactor(profitFactor.Float64)
	} else {
		res.ProfitFactor = backtest.ProfitFactor(math.Inf(1))
	}

	trades, err := s.readTrades(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Trades = trades
	return &res, nil
}

func (s *SQLiteStore) readTrades(ctx context.Context, backtestID int64) ([]backtest.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, symbol, side, qty, price, notional, commission, realized_pnl, balance
		FROM backtest_trades WHERE backtest_id = ? ORDER BY timestamp, id`, backtestID)
	if err != nil {
		return nil, fmt.Errorf("reading trades for backtest %d: %w", backtestID, err)
	}
	defer rows.Close()

	var trades []backtest.TradeRecord
	for rows.Next() {
		var (
			t    backtest.TradeRecord
			tsMs int64
			side string
			pnl  sql.NullFloat64
		)
		if err := rows.Scan(&tsMs, &t.Symbol, &side, &t.Qty, &t.Price, &t.Notional, &t.Commission, &pnl, &t.Balance); err != nil {
			return nil, err
		}
		t.Timestamp = time.UnixMilli(tsMs).UTC()
		t.Side = domain.SignalAction(side)
		if pnl.Valid {
			v := pnl.Float64
			t.RealizedPnL = &v
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListResults returns the most recent result summaries, newest first. An
// empty symbol matches all symbols.
func (s *SQLiteStore) ListResults(ctx context.Context, symbol string, limit int) ([]ResultSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy, symbol, start_time, end_time,
			initial_balance, final_balance, total_return_pct,
			total_trades, win_rate_pct, profit_factor,
			max_drawdown_pct, sharpe_ratio, created_at
		FROM backtests`
	args := []any{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing backtests: %w", err)
	}
	defer rows.Close()

	var out []ResultSummary
	for rows.Next() {
		var (
			r            ResultSummary
			startMs      int64
			endMs        int64
			createdMs    int64
			profitFactor sql.NullFloat64
		)
		err := rows.Scan(
			&r.ID, &r.Strategy, &r.Symbol, &startMs, &endMs,
			&r.InitialBalance, &r.FinalBalance, &r.TotalReturnPct,
			&r.TotalTrades, &r.WinRatePct, &profitFactor,
			&r.MaxDrawdownPct, &r.SharpeRatio, &createdMs,
		)
		if err != nil {
			return nil, err
		}
		r.StartTime = time.UnixMilli(startMs).UTC()
		r.EndTime = time.UnixMilli(endMs).UTC()
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		if profitFactor.Valid {
			r.ProfitFactor = backtest.ProfitFactor(profitFactor.Float64)
		} else {
			r.ProfitFactor = backtest.ProfitFactor(math.Inf(1))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
