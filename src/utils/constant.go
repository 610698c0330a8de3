package utils

import "strings"

// -----------------------------------------------------------------------------

// Supported candle intervals (Yahoo chart API naming).
const (
	Interval1m  = "1m"
	Interval5m  = "5m"
	Interval15m = "15m"
	Interval30m = "30m"
	Interval1h  = "1h"
	Interval1d  = "1d"
	Interval1wk = "1wk"
	Interval1mo = "1mo"
)

// -----------------------------------------------------------------------------

// IsDailyOrCoarser reports whether the interval spans at least one day.
// Covers "1d", "5d", "1wk", "1mo", "3mo" style names.
func IsDailyOrCoarser(interval string) bool {
	return strings.HasSuffix(interval, "d") ||
		strings.HasSuffix(interval, "wk") ||
		strings.HasSuffix(interval, "mo")
}

// -----------------------------------------------------------------------------

// IsHourly reports whether the interval is exactly one hour wide.
func IsHourly(interval string) bool {
	return interval == Interval1h || interval == "60m"
}
