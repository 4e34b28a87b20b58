package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vela/internal/backtest"
	"vela/internal/config"
	"vela/internal/feed"
	"vela/internal/httpapi"
	"vela/internal/store"
	"vela/internal/strategy"
	"vela/internal/strategy/builtins"
	"vela/internal/util"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (defaults + env when empty)")
	synthetic := flag.Bool("synthetic", false, "serve synthetic bar data even when Alpaca credentials are set")
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

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(20, 50))
	registry.Register(builtins.NewSMACross(10, 30))

	barStore := store.NewParquetStore(cfg.Storage.DataDir)

	var provider feed.Provider
	switch {
	case *synthetic || !cfg.Alpaca.Configured():
		logger.Info("using synthetic data provider")
		provider = feed.NewSyntheticProvider()
	default:
		logger.Info("using alpaca data provider", "data_url", cfg.Alpaca.DataURL)
		remote := feed.NewAlpacaProvider(
			cfg.Alpaca.APIKey,
			cfg.Alpaca.APISecret,
			cfg.Alpaca.DataURL,
			cfg.Alpaca.RateLimitPerMin,
			logger,
		)
		provider = store.NewCachingFeed(remote, barStore, logger)
	}

	results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open result store: %v", err)
	}
	defer results.Close()

	bt := backtest.NewBacktester(provider, registry, logger)
	api := httpapi.NewServer(bt, registry, results, barStore, cfg.Backtest, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("vela-server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
