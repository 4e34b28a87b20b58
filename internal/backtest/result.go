package backtest

import (
	"encoding/json"
	"math"
	"time"

	"vela/internal/domain"
)

// TradeRecord is the immutable record of one executed simulation trade.
// RealizedPnL is set only on trades that close a position.
type TradeRecord struct {
	Timestamp   time.Time           `json:"timestamp"`
	Symbol      string              `json:"symbol"`
	Side        domain.SignalAction `json:"side"`
	Qty         float64             `json:"qty"`
	Price       float64             `json:"price"`
	Notional    float64             `json:"notional"`
	Commission  float64             `json:"commission"`
	RealizedPnL *float64            `json:"realized_pnl,omitempty"`
	Balance     float64             `json:"balance"` // cash balance after the trade
}

// Closing reports whether this trade closed a position.
func (t TradeRecord) Closing() bool {
	return t.RealizedPnL != nil
}

// EquityPoint is one sample of the portfolio value, recorded once per bar.
type EquityPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	Cash           float64   `json:"cash"`
	PortfolioValue float64   `json:"portfolio_value"`
	Price          float64   `json:"price"` // reference close for the bar
}

// ProfitFactor is the ratio of gross winning P&L to gross losing P&L. It is
// +Inf when there are no losing trades; JSON encodes that sentinel as the
// string "inf" since JSON has no infinity literal.
type ProfitFactor float64

// IsInf reports whether the profit factor is the no-losses sentinel.
func (p ProfitFactor) IsInf() bool {
	return math.IsInf(float64(p), 1)
}

// MarshalJSON encodes +Inf as "inf" and everything else as a number.
func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.IsInf() {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(p))
}

// UnmarshalJSON accepts either a number or the "inf" sentinel string.
func (p *ProfitFactor) UnmarshalJSON(data []byte) error {
	if string(data) == `"inf"` {
		*p = ProfitFactor(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = ProfitFactor(f)
	return nil
}

// Metrics holds the auxiliary statistics derived from the trade list and
// equity curve.
type Metrics struct {
	TotalCommission   float64 `json:"total_commission"`
	AverageWin        float64 `json:"average_win"`
	AverageLoss       float64 `json:"average_loss"` // magnitude, >= 0
	LargestWin        float64 `json:"largest_win"`
	LargestLoss       float64 `json:"largest_loss"` // most negative P&L, <= 0
	ConsecutiveWins   int     `json:"consecutive_wins"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	TradingPeriodDays int     `json:"trading_period_days"`
	TradesPerDay      float64 `json:"trades_per_day"`
}

// Result is the complete outcome of one backtest run. It is produced once,
// after the last bar, and never mutated.
type Result struct {
	Strategy       string        `json:"strategy"`
	Symbol         string        `json:"symbol"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	InitialBalance float64       `json:"initial_balance"`
	FinalBalance   float64       `json:"final_balance"`
	TotalReturnPct float64       `json:"total_return_pct"`
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	WinRatePct     float64       `json:"win_rate_pct"`
	ProfitFactor   ProfitFactor  `json:"profit_factor"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	Trades         []TradeRecord `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Metrics        Metrics       `json:"metrics"`
}
