package feed

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"vela/internal/domain"
)

func TestSyntheticDeterministic(t *testing.T) {
	ctx := context.Background()
	p := NewSyntheticProvider()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	first, err := p.Fetch(ctx, "BTC/USD", start, end, "1h")
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	second, err := p.Fetch(ctx, "BTC/USD", start, end, "1h")
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two identical fetches produced different series")
	}

	other, err := p.Fetch(ctx, "ETH/USD", start, end, "1h")
	if err != nil {
		t.Fatalf("ETH Fetch: %v", err)
	}
	if reflect.DeepEqual(first, other) {
		t.Error("different symbols produced identical series")
	}
}

func TestSyntheticSeries(t *testing.T) {
	ctx := context.Background()
	p := NewSyntheticProvider()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	bars, err := p.Fetch(ctx, "BTC/USD", start, end, "1h")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// One bar per hour, both endpoints inclusive.
	if len(bars) != 25 {
		t.Fatalf("got %d bars, want 25", len(bars))
	}
	if err := domain.ValidateSeries(bars); err != nil {
		t.Fatalf("generated series invalid: %v", err)
	}

	// The walk starts from the symbol's base price.
	if bars[0].Open != 45000 {
		t.Errorf("first open = %v, want 45000", bars[0].Open)
	}
	for i, b := range bars {
		if b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
			t.Fatalf("bar %d has inconsistent OHLC: %+v", i, b)
		}
	}
}

func TestSyntheticUnsupportedInterval(t *testing.T) {
	p := NewSyntheticProvider()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := p.Fetch(context.Background(), "BTC/USD", start, start.Add(time.Hour), "7h"); err == nil {
		t.Fatal("Fetch accepted an unsupported interval")
	}
}

func TestSyntheticEmptyRange(t *testing.T) {
	p := NewSyntheticProvider()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	bars, err := p.Fetch(context.Background(), "BTC/USD", start, start.Add(-time.Hour), "1h")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("got %d bars for an inverted range, want 0", len(bars))
	}
}

// countingLimiter records how many tokens were taken.
type countingLimiter struct {
	waits int
}

func (l *countingLimiter) Wait(context.Context) error {
	l.waits++
	return nil
}

func TestMeteredRetryMetersEveryAttempt(t *testing.T) {
	lim := &countingLimiter{}
	calls := 0

	err := meteredRetry(context.Background(), lim, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("meteredRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("fn called %d times, want 3", calls)
	}
	if lim.waits != calls {
		t.Errorf("limiter waited %d times for %d attempts, want one token per attempt", lim.waits, calls)
	}
}

// ctxLimiter fails as soon as the context is done, like the real token bucket.
type ctxLimiter struct{}

func (ctxLimiter) Wait(ctx context.Context) error { return ctx.Err() }

func TestMeteredRetryStopsOnLimiterError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := meteredRetry(ctx, ctxLimiter{}, 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times with a cancelled context, want 0", calls)
	}
}

func TestTimeFrameMapping(t *testing.T) {
	cases := []struct {
		interval string
		want     marketdata.TimeFrame
	}{
		{"1m", marketdata.OneMin},
		{"5m", marketdata.NewTimeFrame(5, marketdata.Min)},
		{"1h", marketdata.OneHour},
		{"4h", marketdata.NewTimeFrame(4, marketdata.Hour)},
		{"1d", marketdata.OneDay},
	}
	for _, tc := range cases {
		got, err := timeFrame(tc.interval)
		if err != nil {
			t.Errorf("timeFrame(%q): %v", tc.interval, err)
			continue
		}
		if got != tc.want {
			t.Errorf("timeFrame(%q) = %v, want %v", tc.interval, got, tc.want)
		}
	}

	if _, err := timeFrame("2w"); err == nil {
		t.Error("timeFrame accepted an unsupported interval")
	}
}
