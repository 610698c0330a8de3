package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MCandle represents one OHLCV bar as stored in the cache.
// Timestamp is ISO-8601 UTC (RFC3339); within a cached series candles are
// strictly ascending by timestamp with no duplicates.
type MCandle struct {
	Timestamp string          `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// -----------------------------------------------------------------------------

// Time parses the candle timestamp. Returns zero time on malformed input.
func (c MCandle) Time() time.Time {
	t, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
