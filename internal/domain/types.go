// Package domain defines the core data types shared across the vela
// platform: OHLCV bars, trading signals, and positions.
package domain

import (
	"fmt"
	"math"
	"time"
)

// SignalAction is the action a strategy proposes for the current bar.
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Bar is a single OHLCV observation for a fixed time interval. Bars are
// immutable once produced.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TradeCount int64     `json:"trade_count,omitempty"`
	VWAP       float64   `json:"vwap,omitempty"`
}

// Validate reports whether the bar carries positive, finite price and volume
// values.
func (b Bar) Validate() error {
	for name, v := range map[string]float64{
		"open":   b.Open,
		"high":   b.High,
		"low":    b.Low,
		"close":  b.Close,
		"volume": b.Volume,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bar %s at %s: %s is not finite", b.Symbol, b.Timestamp.Format(time.RFC3339), name)
		}
		if v <= 0 {
			return fmt.Errorf("bar %s at %s: %s = %v, want > 0", b.Symbol, b.Timestamp.Format(time.RFC3339), name, v)
		}
	}
	return nil
}

// ValidateSeries checks every bar in the series and requires strictly
// increasing timestamps. Gaps and irregular spacing are valid; the series is
// never resampled.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("bar %s at index %d: timestamp %s not after previous %s",
				b.Symbol, i, b.Timestamp.Format(time.RFC3339), bars[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Signal is a trade decision proposed by a strategy for the current bar.
// A nil *Signal means hold.
type Signal struct {
	Symbol     string       `json:"symbol"`
	Action     SignalAction `json:"action"`
	EntryPrice float64      `json:"entry_price"`
	StopLoss   float64      `json:"stop_loss"`
	TakeProfit float64      `json:"take_profit"`
	Confidence float64      `json:"confidence,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// Position is an open holding in a single symbol. The simulation keeps at
// most one open position per symbol.
type Position struct {
	Symbol          string       `json:"symbol"`
	Side            PositionSide `json:"side"`
	Qty             float64      `json:"qty"`
	EntryPrice      float64      `json:"entry_price"`
	StopLoss        float64      `json:"stop_loss"`
	TakeProfit      float64      `json:"take_profit"`
	EntryCommission float64      `json:"entry_commission"`
}

// MarketValue returns the mark-to-market value of the position at the given
// price.
func (p *Position) MarketValue(price float64) float64 {
	if p == nil {
		return 0
	}
	return p.Qty * price
}
