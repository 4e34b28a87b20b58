package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vela/internal/backtest"
	"vela/internal/config"
	"vela/internal/feed"
	"vela/internal/report"
	"vela/internal/store"
	"vela/internal/strategy"
	"vela/internal/strategy/builtins"
	"vela/internal/util"
)

func main() {
	var (
		cfgPath    = flag.String("config", "", "path to YAML config (defaults + env when empty)")
		stratName  = flag.String("strategy", "sma-cross-20-50", "strategy name")
		symbol     = flag.String("symbol", "BTC/USD", "symbol to backtest")
		startStr   = flag.String("start", "", "start date (2006-01-02)")
		endStr     = flag.String("end", "", "end date (2006-01-02), defaults to today")
		interval   = flag.String("interval", "", "bar interval (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
		balance    = flag.Float64("balance", 0, "initial balance")
		riskPct    = flag.Float64("risk", 0, "percent of balance risked per trade")
		commission = flag.Float64("commission", 0, "commission rate as a fraction of notional")
		stopLoss   = flag.Float64("stop-loss", 0, "default stop loss percent")
		takeProfit = flag.Float64("take-profit", 0, "default take profit percent")
		reportPath = flag.String("report", "", "write an HTML report to this path")
		save       = flag.Bool("save", false, "persist the result to the SQLite history")
		synthetic  = flag.Bool("synthetic", false, "use synthetic bar data even when Alpaca credentials are set")
	)
	flag.Parse()

	path := *cfgPath
	if path == "" {
		if p := os.Getenv("VELA_CONFIG"); p != "" {
			path = p
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, "text")
	util.SetDefault(logger)

	if *startStr == "" {
		log.Fatal("-start is required")
	}
	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		end, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	}

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(20, 50))
	registry.Register(builtins.NewSMACross(10, 30))

	barStore := store.NewParquetStore(cfg.Storage.DataDir)

	var provider feed.Provider
	if *synthetic || !cfg.Alpaca.Configured() {
		provider = feed.NewSyntheticProvider()
	} else {
		remote := feed.NewAlpacaProvider(
			cfg.Alpaca.APIKey,
			cfg.Alpaca.APISecret,
			cfg.Alpaca.DataURL,
			cfg.Alpaca.RateLimitPerMin,
			logger,
		)
		provider = store.NewCachingFeed(remote, barStore, logger)
	}

	req := backtest.Request{
		Strategy: *stratName,
		Config: strategy.Config{
			Symbol:         *symbol,
			Interval:       orDefault(*interval, cfg.Backtest.Interval),
			RiskPct:        orDefaultF(*riskPct, cfg.Backtest.RiskPct),
			CommissionRate: orDefaultF(*commission, cfg.Backtest.CommissionRate),
			StopLossPct:    *stopLoss,
			TakeProfitPct:  *takeProfit,
		},
		Start:          start,
		End:            end,
		InitialBalance: orDefaultF(*balance, cfg.Backtest.InitialBalance),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bt := backtest.NewBacktester(provider, registry, logger)
	res, err := bt.Run(ctx, req)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	printSummary(res)

	if *save {
		results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open result store: %v", err)
		}
		defer results.Close()

		id, err := results.SaveResult(ctx, res)
		if err != nil {
			log.Fatalf("failed to save result: %v", err)
		}
		fmt.Printf("\nsaved as backtest #%d\n", id)
	}

	if *reportPath != "" {
		if err := report.WriteHTMLFile(*reportPath, res); err != nil {
			log.Fatalf("failed to write report: %v", err)
		}
		fmt.Printf("report written to %s\n", *reportPath)
	}
}

func printSummary(res *backtest.Result) {
	fmt.Printf("%s on %s, %s to %s\n\n",
		res.Strategy, res.Symbol,
		res.StartTime.Format("2006-01-02"), res.EndTime.Format("2006-01-02"))

	profitFactor := fmt.Sprintf("%.2f", float64(res.ProfitFactor))
	if res.ProfitFactor.IsInf() {
		profitFactor = "inf"
	}

	fmt.Printf("  initial balance   %12.2f\n", res.InitialBalance)
	fmt.Printf("  final balance     %12.2f\n", res.FinalBalance)
	fmt.Printf("  total return      %11.2f%%\n", res.TotalReturnPct)
	fmt.Printf("  trades            %6d (%d win / %d loss)\n", res.TotalTrades, res.WinningTrades, res.LosingTrades)
	fmt.Printf("  win rate          %11.2f%%\n", res.WinRatePct)
	fmt.Printf("  profit factor     %12s\n", profitFactor)
	fmt.Printf("  max drawdown      %11.2f%%\n", res.MaxDrawdownPct)
	fmt.Printf("  sharpe ratio      %12.2f\n", res.SharpeRatio)
	fmt.Printf("  total commission  %12.2f\n", res.Metrics.TotalCommission)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultF(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
