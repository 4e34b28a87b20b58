// Package report renders backtest results as standalone HTML documents with
// an inline SVG equity curve.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"vela/internal/backtest"
)

const (
	chartWidth  = 860
	chartHeight = 300
	chartPad    = 10
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"deref": func(p *float64) float64 { return *p },
}).Parse(reportHTML))

// reportData is the template input: the result plus preformatted fields that
// html/template cannot derive itself.
type reportData struct {
	Result       *backtest.Result
	ProfitFactor string
	ReturnClass  string
	Points       string
	HasCurve     bool
	ChartWidth   int
	ChartHeight  int
}

// WriteHTML renders the result as a complete HTML document.
func WriteHTML(w io.Writer, res *backtest.Result) error {
	data := reportData{
		Result:      res,
		ReturnClass: "pos",
		ChartWidth:  chartWidth,
		ChartHeight: chartHeight,
	}
	if res.TotalReturnPct < 0 {
		data.ReturnClass = "neg"
	}
	if res.ProfitFactor.IsInf() {
		data.ProfitFactor = "inf"
	} else {
		data.ProfitFactor = fmt.Sprintf("%.2f", float64(res.ProfitFactor))
	}
	if len(res.EquityCurve) >= 2 {
		data.HasCurve = true
		data.Points = curvePoints(res.EquityCurve)
	}
	return reportTmpl.Execute(w, data)
}

// WriteHTMLFile renders the result to a file at path.
func WriteHTMLFile(path string, res *backtest.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteHTML(f, res)
}

// curvePoints maps the equity curve onto SVG polyline coordinates. X spreads
// points evenly; Y is scaled to the min..max portfolio value with padding.
func curvePoints(curve []backtest.EquityPoint) string {
	lo, hi := curve[0].PortfolioValue, curve[0].PortfolioValue
	for _, p := range curve {
		lo = min(lo, p.PortfolioValue)
		hi = max(hi, p.PortfolioValue)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	innerW := float64(chartWidth - 2*chartPad)
	innerH := float64(chartHeight - 2*chartPad)
	xStep := innerW / float64(len(curve)-1)

	var b strings.Builder
	for i, p := range curve {
		x := chartPad + float64(i)*xStep
		y := chartPad + innerH*(1-(p.PortfolioValue-lo)/span)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Backtest: {{.Result.Strategy}} on {{.Result.Symbol}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem auto; max-width: 920px; color: #1c1c1e; }
h1 { font-size: 1.4rem; }
.meta { color: #6e6e73; margin-bottom: 1.5rem; }
.cards { display: grid; grid-template-columns: repeat(auto-fill, minmax(160px, 1fr)); gap: 0.8rem; margin-bottom: 2rem; }
.card { border: 1px solid #d2d2d7; border-radius: 8px; padding: 0.8rem; }
.card .label { font-size: 0.75rem; color: #6e6e73; text-transform: uppercase; }
.card .value { font-size: 1.3rem; font-weight: 600; margin-top: 0.2rem; }
.pos { color: #1d7a3c; }
.neg { color: #c0392b; }
svg { border: 1px solid #d2d2d7; border-radius: 8px; width: 100%; }
table { border-collapse: collapse; width: 100%; font-size: 0.85rem; }
th, td { text-align: right; padding: 0.35rem 0.6rem; border-bottom: 1px solid #e5e5ea; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>{{.Result.Strategy}} on {{.Result.Symbol}}</h1>
<p class="meta">{{.Result.StartTime.Format "2006-01-02"}} to {{.Result.EndTime.Format "2006-01-02"}}</p>

<div class="cards">
<div class="card"><div class="label">Total return</div><div class="value {{.ReturnClass}}">{{printf "%.2f" .Result.TotalReturnPct}}%</div></div>
<div class="card"><div class="label">Final balance</div><div class="value">{{printf "%.2f" .Result.FinalBalance}}</div></div>
<div class="card"><div class="label">Trades</div><div class="value">{{.Result.TotalTrades}}</div></div>
<div class="card"><div class="label">Win rate</div><div class="value">{{printf "%.1f" .Result.WinRatePct}}%</div></div>
<div class="card"><div class="label">Profit factor</div><div class="value">{{.ProfitFactor}}</div></div>
<div class="card"><div class="label">Max drawdown</div><div class="value">{{printf "%.2f" .Result.MaxDrawdownPct}}%</div></div>
<div class="card"><div class="label">Sharpe ratio</div><div class="value">{{printf "%.2f" .Result.SharpeRatio}}</div></div>
<div class="card"><div class="label">Commission</div><div class="value">{{printf "%.2f" .Result.Metrics.TotalCommission}}</div></div>
</div>

{{if .HasCurve}}
<h2>Equity curve</h2>
<svg viewBox="0 0 {{.ChartWidth}} {{.ChartHeight}}" xmlns="http://www.w3.org/2000/svg">
<polyline fill="none" stroke="#0a66c2" stroke-width="1.5" points="{{.Points}}"/>
</svg>
{{end}}

{{if .Result.Trades}}
<h2>Trades</h2>
<table>
<tr><th>Time</th><th>Side</th><th>Qty</th><th>Price</th><th>Notional</th><th>Commission</th><th>P&amp;L</th></tr>
{{range .Result.Trades}}
<tr>
<td>{{.Timestamp.Format "2006-01-02 15:04"}}</td>
<td>{{.Side}}</td>
<td>{{printf "%.4f" .Qty}}</td>
<td>{{printf "%.2f" .Price}}</td>
<td>{{printf "%.2f" .Notional}}</td>
<td>{{printf "%.4f" .Commission}}</td>
<td>{{if .RealizedPnL}}{{printf "%.2f" (deref .RealizedPnL)}}{{end}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
