package models

// -----------------------------------------------------------------------------
// Streamed cache-update events (WebSocket payloads)
// -----------------------------------------------------------------------------

// Event types emitted on the write path.
const (
	EventSet        = "SET"
	EventMerge      = "MERGE"
	EventAppend     = "APPEND"
	EventSync       = "SYNC"
	EventInvalidate = "INVALIDATE"
)

type MCacheEvent struct {
	Type       string `json:"type"`
	Key        string `json:"key"`
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval,omitempty"`
	DataPoints int    `json:"data_points"`
	Timestamp  int64  `json:"timestamp"` // epoch millis
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}
