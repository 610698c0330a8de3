package models

// MCacheStats is the orchestrator-level snapshot: both tiers plus activity
// counters.
type MCacheStats struct {
	Candles    MTierStats    `json:"candles"`
	Indicators MTierStats    `json:"indicators"`
	Metrics    MCacheMetrics `json:"metrics"`
}

// -----------------------------------------------------------------------------

// MTierStats is a read-only snapshot of one memory tier.
type MTierStats struct {
	Entries      int   `json:"entries"`
	MaxEntries   int   `json:"max_entries"`
	MemoryUsed   int64 `json:"memory_used"`
	MemoryBudget int64 `json:"memory_budget"`
	TTLMillis    int64 `json:"ttl_millis"`
}
