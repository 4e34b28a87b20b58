package backtest

import (
	"time"

	"vela/internal/domain"
	"vela/internal/strategy"
)

// Simulator applies trade decisions to simulation state. Per symbol the
// state machine is FLAT -> OPEN -> FLAT: a buy opens a long position, a sell
// closes it. A sell while flat and a buy while open are no-ops — the
// simulation never shorts against, nor pyramids onto, an existing position.
//
// Stop-loss and take-profit levels are carried on the position but are not
// evaluated against intrabar highs and lows; an exit happens only on an
// opposing signal. This mirrors the signal-driven exit model of the
// reference policy and can understate drawdown.
type Simulator struct {
	cfg strategy.Config
}

// NewSimulator creates a Simulator for one run with the given configuration.
func NewSimulator(cfg strategy.Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// Apply attempts to execute the signal against the state at the given price.
// On execution it mutates the state and returns the trade record; on a skip
// it leaves the state exactly as it was and returns the reason. Apply never
// partially commits: the state either fully reflects the trade or is
// untouched.
func (s *Simulator) Apply(st *State, sig *domain.Signal, ts time.Time, price float64) (*TradeRecord, SkipReason) {
	switch sig.Action {
	case domain.SignalBuy:
		return s.openLong(st, sig, ts, price)
	case domain.SignalSell:
		return s.closeLong(st, ts, price)
	default:
		return nil, SkipNoPosition
	}
}

func (s *Simulator) openLong(st *State, sig *domain.Signal, ts time.Time, price float64) (*TradeRecord, SkipReason) {
	if st.Position != nil {
		return nil, SkipPositionOpen
	}

	stop := sig.StopLoss
	if stop == 0 {
		stop = price * (1 - s.cfg.StopLossPct/100)
	}
	takeProfit := sig.TakeProfit
	if takeProfit == 0 {
		takeProfit = price * (1 + s.cfg.TakeProfitPct/100)
	}

	qty, ok := PositionSize(st.Cash, price, stop, s.cfg.RiskPct)
	if !ok {
		return nil, SkipDegenerateRisk
	}

	notional := qty * price
	commission := notional * s.cfg.CommissionRate
	if st.Cash < notional+commission {
		return nil, SkipInsufficientFunds
	}

	st.Cash -= notional + commission
	st.Position = &domain.Position{
		Symbol:          s.cfg.Symbol,
		Side:            domain.PositionSideLong,
		Qty:             qty,
		EntryPrice:      price,
		StopLoss:        stop,
		TakeProfit:      takeProfit,
		EntryCommission: commission,
	}

	return &TradeRecord{
		Timestamp:  ts,
		Symbol:     s.cfg.Symbol,
		Side:       domain.SignalBuy,
		Qty:        qty,
		Price:      price,
		Notional:   notional,
		Commission: commission,
		Balance:    st.Cash,
	}, SkipNone
}

func (s *Simulator) closeLong(st *State, ts time.Time, price float64) (*TradeRecord, SkipReason) {
	pos := st.Position
	if pos == nil || pos.Side != domain.PositionSideLong {
		return nil, SkipNoPosition
	}

	notional := pos.Qty * price
	commission := notional * s.cfg.CommissionRate

	// Realized P&L nets out both legs' commissions.
	pnl := notional - pos.Qty*pos.EntryPrice - pos.EntryCommission - commission

	st.Cash += notional - commission
	st.Position = nil

	return &TradeRecord{
		Timestamp:   ts,
		Symbol:      s.cfg.Symbol,
		Side:        domain.SignalSell,
		Qty:         pos.Qty,
		Price:       price,
		Notional:    notional,
		Commission:  commission,
		RealizedPnL: &pnl,
		Balance:     st.Cash,
	}, SkipNone
}
