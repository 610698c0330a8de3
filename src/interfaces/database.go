package interfaces

import (
	"context"

	"market-cache/src/models"
)

// -----------------------------------------------------------------------------
// IRecordStore defines the contract for the persistent cache tier.
// One logical record per cache id (symbol:interval, or a full indicator key).
// Implementations must return errors rather than panic; the orchestrator maps
// every failure to a tier-2 miss and keeps running memory-only.
// -----------------------------------------------------------------------------

type IRecordStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Get returns the record for id, or (nil, nil) on a miss. A record older
	// than the store TTL is deleted and reported as a miss.
	Get(ctx context.Context, id string) (*models.MPersistedRecord, error)

	// -----------------------------------------------------------------------------

	// Set upserts the record, fully replacing any prior row for its ID.
	Set(ctx context.Context, record *models.MPersistedRecord) error

	// -----------------------------------------------------------------------------

	// Delete removes the record for id. Missing rows are not an error.
	Delete(ctx context.Context, id string) error

	// -----------------------------------------------------------------------------

	// DeleteBySymbol removes every record for the symbol (all intervals and
	// indicator variants).
	DeleteBySymbol(ctx context.Context, symbol string) error

	// -----------------------------------------------------------------------------

	// CleanupExpired removes rows older than the store TTL, returning the
	// number removed.
	CleanupExpired(ctx context.Context) (int64, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
