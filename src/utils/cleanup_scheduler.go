package utils

import (
	"context"
	"sync"
	"time"

	"market-cache/src/interfaces"
	"market-cache/src/logger"
)

// -----------------------------------------------------------------------------
// CleanupScheduler periodically reclaims memory held by cold, expired entries
// in the memory tiers and sweeps stale rows from the record store. Lazy
// expiry alone keeps the caches correct; this loop exists purely to free
// memory and disk.
// -----------------------------------------------------------------------------

// Cleaner is any tier that can drop its expired entries.
type Cleaner interface {
	CleanupExpired() int
}

type CleanupScheduler struct {
	Interval time.Duration
	Logger   *logger.Logger

	tiers map[string]Cleaner
	store interfaces.IRecordStore

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// -----------------------------------------------------------------------------

func NewCleanupScheduler(interval time.Duration, store interfaces.IRecordStore, l *logger.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		Interval: interval,
		Logger:   l,
		tiers:    make(map[string]Cleaner),
		store:    store,
	}
}

// -----------------------------------------------------------------------------

// Register adds a memory tier to the sweep under a display name.
func (cs *CleanupScheduler) Register(name string, tier Cleaner) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.tiers[name] = tier
}

// -----------------------------------------------------------------------------

// Start launches the background loop. Safe to call once.
func (cs *CleanupScheduler) Start(ctx context.Context) {
	ctx, cs.cancel = context.WithCancel(ctx)

	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		ticker := time.NewTicker(cs.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.sweep(ctx)
			}
		}
	}()
}

// -----------------------------------------------------------------------------

func (cs *CleanupScheduler) sweep(ctx context.Context) {
	cs.mu.Lock()
	tiers := make(map[string]Cleaner, len(cs.tiers))
	for name, tier := range cs.tiers {
		tiers[name] = tier
	}
	cs.mu.Unlock()

	for name, tier := range tiers {
		if removed := tier.CleanupExpired(); removed > 0 {
			cs.Logger.Debug("Cleanup removed %d expired entries from %s", removed, name)
		}
	}

	if cs.store != nil {
		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		removed, err := cs.store.CleanupExpired(sweepCtx)
		cancel()
		if err != nil {
			cs.Logger.Error("Store cleanup error: %v", err)
		} else if removed > 0 {
			cs.Logger.Debug("Cleanup removed %d stale rows from store", removed)
		}
	}
}

// -----------------------------------------------------------------------------

// Stop halts the loop and waits for an in-flight sweep to finish.
func (cs *CleanupScheduler) Stop() {
	if cs.cancel != nil {
		cs.cancel()
	}
	cs.wg.Wait()
}
