package interfaces

import "market-cache/src/models"

// -----------------------------------------------------------------------------
// IDataExchange receives cache-update events from the write path.
// The HTTP/WS server implements it; the orchestrator only depends on the
// interface so tests can run without a server.
// -----------------------------------------------------------------------------

type IDataExchange interface {

	// Broadcast queues one event for delivery to connected clients.
	// Must not block the caller.
	Broadcast(event models.MCacheEvent)
}
