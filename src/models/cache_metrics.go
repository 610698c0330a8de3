package models

// MCacheMetrics counts orchestrator activity since process start.
type MCacheMetrics struct {
	MemoryHits  int64 `json:"memory_hits"`
	StoreHits   int64 `json:"store_hits"`
	Fetches     int64 `json:"fetches"`
	Writes      int64 `json:"writes"`
	StoreErrors int64 `json:"store_errors"`
	Degraded    bool  `json:"degraded"`
}
