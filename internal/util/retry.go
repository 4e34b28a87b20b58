package util

import (
	"context"
	"math/rand"
	"time"
)

// Retry calls fn up to maxAttempts times, doubling the delay after each
// failure and adding up to 25% random jitter so concurrent callers do not
// retry in lockstep. It returns nil on the first successful call, the last
// error when all attempts fail, or the context error if the context ends
// between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
