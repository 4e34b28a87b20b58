package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vela/internal/backtest"
	"vela/internal/domain"
)

func reportResult() *backtest.Result {
	pnl := 42.5
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		Strategy:       "sma-cross-20-50",
		Symbol:         "BTC/USD",
		StartTime:      start,
		EndTime:        start.AddDate(0, 0, 30),
		InitialBalance: 1000,
		FinalBalance:   1042.5,
		TotalReturnPct: 4.25,
		TotalTrades:    1,
		WinningTrades:  1,
		WinRatePct:     100,
		ProfitFactor:   backtest.ProfitFactor(math.Inf(1)),
		Trades: []backtest.TradeRecord{
			{Timestamp: start, Symbol: "BTC/USD", Side: domain.SignalBuy, Qty: 5, Price: 100, Notional: 500, Commission: 0.5},
			{Timestamp: start.Add(time.Hour), Symbol: "BTC/USD", Side: domain.SignalSell, Qty: 5, Price: 110, Notional: 550, Commission: 0.55, RealizedPnL: &pnl},
		},
		EquityCurve: []backtest.EquityPoint{
			{Timestamp: start, PortfolioValue: 1000, Price: 100},
			{Timestamp: start.Add(time.Hour), PortfolioValue: 1020, Price: 105},
			{Timestamp: start.Add(2 * time.Hour), PortfolioValue: 1042.5, Price: 110},
		},
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, reportResult()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"sma-cross-20-50",
		"BTC/USD",
		"4.25%",
		"<polyline",
		">inf<",
		"42.50",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteHTMLNoCurve(t *testing.T) {
	res := reportResult()
	res.EquityCurve = nil
	res.Trades = nil
	res.ProfitFactor = 1.25

	var buf bytes.Buffer
	if err := WriteHTML(&buf, res); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	html := buf.String()

	if strings.Contains(html, "<polyline") {
		t.Error("report rendered an equity curve with no points")
	}
	if strings.Contains(html, "<table") {
		t.Error("report rendered a trade table with no trades")
	}
	if !strings.Contains(html, "1.25") {
		t.Error("report missing finite profit factor")
	}
}

func TestWriteHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := WriteHTMLFile(path, reportResult()); err != nil {
		t.Fatalf("WriteHTMLFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(data), "<!DOCTYPE html>") {
		t.Error("report file is not an HTML document")
	}
}

func TestCurvePointsBounds(t *testing.T) {
	res := reportResult()
	points := curvePoints(res.EquityCurve)

	pairs := strings.Fields(points)
	if len(pairs) != len(res.EquityCurve) {
		t.Fatalf("got %d points for %d equity samples", len(pairs), len(res.EquityCurve))
	}
	// First point is the lowest value, so it sits at the bottom padding edge.
	if !strings.HasPrefix(pairs[0], "10.0,") {
		t.Errorf("first point = %q, want x at left padding", pairs[0])
	}
}
