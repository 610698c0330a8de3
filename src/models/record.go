package models

import "encoding/json"

// -----------------------------------------------------------------------------
// Persistent tier record (one row per cache id)
// -----------------------------------------------------------------------------

// MPersistedRecord is the durable form of one cached value. ID is the full
// cache key ("symbol:interval" for candles, the normalized indicator key for
// indicator results). Payload is the JSON-encoded value.
type MPersistedRecord struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Interval   string          `json:"interval"`
	Indicator  string          `json:"indicator,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	InsertedAt int64           `json:"inserted_at"` // epoch millis
}
