package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"vela/internal/domain"
	"vela/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

const defaultRatePerMin = 200

// limiter meters outgoing API calls.
type limiter interface {
	Wait(ctx context.Context) error
}

// AlpacaProvider fetches historical bars from the Alpaca market-data API.
// Symbols containing a slash (crypto pairs like "BTC/USD") go through the
// crypto endpoint; everything else is treated as a US equity.
type AlpacaProvider struct {
	client  *marketdata.Client
	limiter limiter
	log     *slog.Logger
}

// NewAlpacaProvider creates a provider using the given API credentials.
// ratePerMin caps outgoing API calls; zero selects the default.
func NewAlpacaProvider(apiKey, apiSecret, baseURL string, ratePerMin int, log *slog.Logger) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	if ratePerMin <= 0 {
		ratePerMin = defaultRatePerMin
	}
	if log == nil {
		log = slog.Default()
	}
	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		log:     log.With("component", "alpaca-feed"),
	}
}

// Fetch downloads bars for [start, end], retrying transient failures with
// exponential backoff.
func (p *AlpacaProvider) Fetch(ctx context.Context, symbol string, start, end time.Time, interval string) ([]domain.Bar, error) {
	tf, err := timeFrame(interval)
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	err = meteredRetry(ctx, p.limiter, 3, time.Second, func() error {
		var ferr error
		if strings.Contains(symbol, "/") {
			bars, ferr = p.fetchCrypto(symbol, tf, start, end)
		} else {
			bars, ferr = p.fetchStock(symbol, tf, start, end)
		}
		if ferr != nil {
			p.log.Warn("bar fetch failed", "symbol", symbol, "err", ferr)
		}
		return ferr
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug("fetched bars", "symbol", symbol, "interval", interval, "bars", len(bars))
	return bars, nil
}

// meteredRetry wraps util.Retry so every attempt, retries included, takes a
// rate-limit token before going out.
func meteredRetry(ctx context.Context, l limiter, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	return util.Retry(ctx, maxAttempts, baseDelay, func() error {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		return fn()
	})
}

func (p *AlpacaProvider) fetchCrypto(symbol string, tf marketdata.TimeFrame, start, end time.Time) ([]domain.Bar, error) {
	raw, err := p.client.GetCryptoBars(symbol, marketdata.GetCryptoBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetCryptoBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  b.Timestamp,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: int64(b.TradeCount),
			VWAP:       b.VWAP,
		})
	}
	return bars, nil
}

func (p *AlpacaProvider) fetchStock(symbol string, tf marketdata.TimeFrame, start, end time.Time) ([]domain.Bar, error) {
	raw, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, domain.Bar{
			Symbol:     strings.ToUpper(symbol),
			Timestamp:  b.Timestamp,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     float64(b.Volume),
			TradeCount: int64(b.TradeCount),
			VWAP:       b.VWAP,
		})
	}
	return bars, nil
}

// timeFrame maps an interval token to the Alpaca TimeFrame.
func timeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case "1m":
		return marketdata.OneMin, nil
	case "5m":
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case "15m":
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case "30m":
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case "1h":
		return marketdata.OneHour, nil
	case "4h":
		return marketdata.NewTimeFrame(4, marketdata.Hour), nil
	case "1d":
		return marketdata.OneDay, nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported interval %q", interval)
}
