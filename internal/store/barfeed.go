package store

import (
	"context"
	"log/slog"
	"time"

	"vela/internal/domain"
	"vela/internal/feed"
	"vela/internal/util"
)

// Compile-time interface checks.
var _ feed.Provider = (*BarFeed)(nil)
var _ feed.Provider = (*CachingFeed)(nil)

// BarFeed adapts a BarStore into a feed.Provider serving only local data.
type BarFeed struct {
	store BarStore
}

// NewBarFeed returns a provider that reads bars from the given store.
func NewBarFeed(s BarStore) *BarFeed {
	return &BarFeed{store: s}
}

// Fetch reads bars for the range from local storage.
func (f *BarFeed) Fetch(ctx context.Context, symbol string, start, end time.Time, interval string) ([]domain.Bar, error) {
	return f.store.ReadBars(ctx, symbol, interval, start, end)
}

// CachingFeed serves bars from local storage when present and falls through
// to a remote provider otherwise, writing fetched bars back to the store.
type CachingFeed struct {
	remote feed.Provider
	store  BarStore
	log    *slog.Logger
}

// NewCachingFeed wraps remote with a read-through cache over s.
func NewCachingFeed(remote feed.Provider, s BarStore, log *slog.Logger) *CachingFeed {
	if log == nil {
		log = slog.Default()
	}
	return &CachingFeed{
		remote: remote,
		store:  s,
		log:    log.With("component", "feed-cache"),
	}
}

// Fetch returns cached bars when the store covers the whole requested range.
// A partial overlap counts as a miss, otherwise a narrow earlier run would
// silently truncate a wider one. On a miss it fetches from the remote
// provider and persists the result. A failed cache write is logged but does
// not fail the fetch.
func (f *CachingFeed) Fetch(ctx context.Context, symbol string, start, end time.Time, interval string) ([]domain.Bar, error) {
	step, err := util.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}

	cached, err := f.store.ReadBars(ctx, symbol, interval, start, end)
	if err != nil {
		f.log.Warn("cache read failed", "symbol", symbol, "err", err)
	} else if coversRange(cached, start, end, step) {
		f.log.Debug("cache hit", "symbol", symbol, "interval", interval, "bars", len(cached))
		return cached, nil
	}

	bars, err := f.remote.Fetch(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if err := f.store.WriteBars(ctx, interval, bars); err != nil {
			f.log.Warn("cache write failed", "symbol", symbol, "err", err)
		}
	}
	return bars, nil
}

// coversRange reports whether the cached series spans [start, end]: its first
// and last timestamps must sit within one interval of the requested bounds.
func coversRange(bars []domain.Bar, start, end time.Time, step time.Duration) bool {
	if len(bars) == 0 {
		return false
	}
	first := bars[0].Timestamp
	last := bars[len(bars)-1].Timestamp
	return !first.After(start.Add(step)) && !last.Before(end.Add(-step))
}
