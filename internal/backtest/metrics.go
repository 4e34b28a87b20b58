package backtest

import (
	"math"
	"time"
)

// sharpeAnnualization converts the per-step Sharpe ratio to an annualized
// figure assuming daily-equivalent steps. It is a fixed parameter and is not
// derived from the actual bar interval.
const sharpeAnnualization = 252

// computeResult reduces the trade list and equity curve of a finished run
// into the summary Result.
func computeResult(
	strategyName, symbol string,
	trades []TradeRecord,
	curve []EquityPoint,
	initialBalance, finalBalance float64,
	start, end time.Time,
) *Result {
	res := &Result{
		Strategy:       strategyName,
		Symbol:         symbol,
		StartTime:      start,
		EndTime:        end,
		InitialBalance: initialBalance,
		FinalBalance:   finalBalance,
		Trades:         trades,
		EquityCurve:    curve,
	}

	if initialBalance != 0 {
		res.TotalReturnPct = (finalBalance - initialBalance) / initialBalance * 100
	}

	// Only closing trades count for win/loss statistics.
	var grossProfit, grossLoss float64
	for _, t := range trades {
		res.Metrics.TotalCommission += t.Commission
		if !t.Closing() {
			continue
		}
		pnl := *t.RealizedPnL
		res.TotalTrades++
		switch {
		case pnl > 0:
			res.WinningTrades++
			grossProfit += pnl
			if pnl > res.Metrics.LargestWin {
				res.Metrics.LargestWin = pnl
			}
		case pnl < 0:
			res.LosingTrades++
			grossLoss += -pnl
			if pnl < res.Metrics.LargestLoss {
				res.Metrics.LargestLoss = pnl
			}
		}
	}

	if res.TotalTrades > 0 {
		res.WinRatePct = float64(res.WinningTrades) / float64(res.TotalTrades) * 100
	}

	if grossLoss > 0 {
		res.ProfitFactor = ProfitFactor(grossProfit / grossLoss)
	} else {
		res.ProfitFactor = ProfitFactor(math.Inf(1))
	}

	if res.WinningTrades > 0 {
		res.Metrics.AverageWin = grossProfit / float64(res.WinningTrades)
	}
	if res.LosingTrades > 0 {
		res.Metrics.AverageLoss = grossLoss / float64(res.LosingTrades)
	}

	res.MaxDrawdownPct = maxDrawdownPct(curve)
	res.SharpeRatio = sharpeRatio(curve)
	res.Metrics.ConsecutiveWins, res.Metrics.ConsecutiveLosses = longestStreaks(trades)

	days := int(end.Sub(start).Hours() / 24)
	res.Metrics.TradingPeriodDays = days
	res.Metrics.TradesPerDay = float64(res.TotalTrades) / math.Max(float64(days), 1)

	return res
}

// maxDrawdownPct walks the equity curve in order, tracking the running peak
// of portfolio value, and returns the deepest percentage decline from that
// peak. The first point seeds the peak; the result is never negative.
func maxDrawdownPct(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].PortfolioValue
	var maxDD float64
	for _, p := range curve {
		if p.PortfolioValue > peak {
			peak = p.PortfolioValue
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.PortfolioValue) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio computes mean/stdev of per-step portfolio returns, annualized
// by sqrt(252). A curve with no variance yields 0, not NaN.
func sharpeRatio(curve []EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].PortfolioValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].PortfolioValue-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	// Population standard deviation over the observed steps.
	stdev := math.Sqrt(variance / float64(len(returns)))
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(sharpeAnnualization)
}

// longestStreaks returns the longest runs of consecutive winning and losing
// closing trades in chronological order. A trade breaking the sign resets
// the opposing run.
func longestStreaks(trades []TradeRecord) (wins, losses int) {
	var curWins, curLosses int
	for _, t := range trades {
		if !t.Closing() {
			continue
		}
		switch pnl := *t.RealizedPnL; {
		case pnl > 0:
			curWins++
			curLosses = 0
		case pnl < 0:
			curLosses++
			curWins = 0
		default:
			curWins, curLosses = 0, 0
		}
		if curWins > wins {
			wins = curWins
		}
		if curLosses > losses {
			losses = curLosses
		}
	}
	return wins, losses
}
