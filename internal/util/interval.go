package util

import (
	"fmt"
	"time"
)

// SupportedIntervals lists the bar interval tokens accepted across the
// system, smallest first.
var SupportedIntervals = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

// IntervalDuration maps a bar interval token to its wall-clock duration.
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported interval %q", interval)
}
