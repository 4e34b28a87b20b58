// Package feed provides historical bar data to the backtester. Providers
// are external collaborators of the simulation core: the core only consumes
// the ordered bar series they return.
package feed

import (
	"context"
	"errors"
	"time"

	"vela/internal/domain"
)

// ErrDataUnavailable is returned when no bars exist for the requested range.
// It is fatal to a backtest run; there is no partial result.
var ErrDataUnavailable = errors.New("feed: no data available for requested range")

// Provider fetches ordered OHLCV bars for one symbol and interval. The
// returned series may contain gaps or irregular spacing; consumers must not
// assume regular sampling.
type Provider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, interval string) ([]domain.Bar, error)
}
