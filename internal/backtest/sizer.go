package backtest

import "math"

// maxNotionalFrac caps any trade at 95% of the current balance in notional
// value, leaving headroom for commission and slippage.
const maxNotionalFrac = 0.95

// PositionSize computes the trade quantity for a fixed risk budget.
//
// The quantity risks riskPct percent of the balance between entry and stop:
// quantity = (balance * riskPct/100) / |entry - stop|, capped so that
// quantity * entry never exceeds 95% of the balance. ok is false when the
// stop sits on the entry price (zero price risk) — that is a "no trade"
// outcome, not an error.
func PositionSize(balance, entry, stop, riskPct float64) (qty float64, ok bool) {
	riskAmount := balance * riskPct / 100
	priceRisk := math.Abs(entry - stop)
	if priceRisk <= 0 {
		return 0, false
	}

	qty = riskAmount / priceRisk
	if qty*entry > balance*maxNotionalFrac {
		qty = balance * maxNotionalFrac / entry
	}
	return qty, true
}
