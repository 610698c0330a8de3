package cache

import (
	"strings"
	"sync"
	"time"

	"market-cache/src/logger"
	"market-cache/src/models"
)

// -----------------------------------------------------------------------------
// BoundedCache is a bounded, volatile memory tier for one value shape.
// It enforces max-entry-count, a total-memory budget and a TTL, evicting the
// least-recently-used entry under pressure. Two instances exist process-wide:
// one for candle series, one for indicator outputs.
// -----------------------------------------------------------------------------

type entry[V any] struct {
	value        V
	insertedAt   time.Time
	lastAccessAt time.Time
	accessCount  int64
	sizeBytes    int64
}

type BoundedCache[V any] struct {
	Logger *logger.Logger

	mu           sync.Mutex
	entries      map[string]*entry[V]
	maxEntries   int
	ttl          time.Duration
	memoryBudget int64
	memoryUsed   int64
	sizeOf       func(V) int64

	now func() time.Time // swapped out in tests
}

// -----------------------------------------------------------------------------

// NewBoundedCache builds a tier from its config and a size estimator. The
// estimator returns an approximate footprint in bytes, not allocator truth;
// budget accounting only needs to be consistent, not exact.
func NewBoundedCache[V any](cfg models.MTierConfig, sizeOf func(V) int64, log *logger.Logger) *BoundedCache[V] {
	return &BoundedCache[V]{
		Logger:       log,
		entries:      make(map[string]*entry[V]),
		maxEntries:   cfg.MaxEntries,
		ttl:          time.Duration(cfg.TTLMillis) * time.Millisecond,
		memoryBudget: cfg.MemoryBudgetBytes,
		sizeOf:       sizeOf,
		now:          time.Now,
	}
}

// -----------------------------------------------------------------------------

// Get returns the cached value and true on a hit. An entry past its TTL is
// removed and reported as a miss (lazy expiry). A hit refreshes recency and
// bumps the access counter.
func (c *BoundedCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	now := c.now()
	if now.Sub(e.insertedAt) > c.ttl {
		c.removeLocked(key)
		return zero, false
	}

	e.accessCount++
	e.lastAccessAt = now
	return e.value, true
}

// -----------------------------------------------------------------------------

// Has performs the same freshness check as Get without disturbing recency
// order or the access counter.
func (c *BoundedCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		c.removeLocked(key)
		return false
	}
	return true
}

// -----------------------------------------------------------------------------

// Set inserts or overwrites the value for key, evicting LRU entries until
// both the entry-count and memory bounds hold.
func (c *BoundedCache[V]) Set(key string, value V) {
	size := c.sizeOf(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Overwrites release the old footprint before bounds are checked.
	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	}

	for (len(c.entries) >= c.maxEntries || c.memoryUsed+size > c.memoryBudget) && len(c.entries) > 0 {
		c.evictLRULocked()
	}

	now := c.now()
	c.entries[key] = &entry[V]{
		value:        value,
		insertedAt:   now,
		lastAccessAt: now,
		sizeBytes:    size,
	}
	c.memoryUsed += size
}

// -----------------------------------------------------------------------------

// evictLRULocked removes the entry with the oldest lastAccessAt. Ties break
// on the smaller key so eviction order is deterministic. A full scan is fine
// at this scale; the tiers hold tens to hundreds of entries.
func (c *BoundedCache[V]) evictLRULocked() {
	var victim string
	var oldest time.Time
	first := true

	for key, e := range c.entries {
		if first || e.lastAccessAt.Before(oldest) || (e.lastAccessAt.Equal(oldest) && key < victim) {
			victim = key
			oldest = e.lastAccessAt
			first = false
		}
	}

	if !first {
		c.Logger.Debug("Evicting LRU entry '%s' (last access %v)", victim, oldest)
		c.removeLocked(victim)
	}
}

// -----------------------------------------------------------------------------

// Remove deletes the entry for key, releasing its footprint.
func (c *BoundedCache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

func (c *BoundedCache[V]) removeLocked(key string) {
	if e, ok := c.entries[key]; ok {
		c.memoryUsed -= e.sizeBytes
		delete(c.entries, key)
	}
}

// -----------------------------------------------------------------------------

// InvalidatePrefix deletes every entry whose key starts with prefix and
// returns the number removed. Used to drop all interval variants of a symbol.
func (c *BoundedCache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

// Clear drops everything and resets the running memory total.
func (c *BoundedCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.memoryUsed = 0
}

// -----------------------------------------------------------------------------

// CleanupExpired proactively removes all TTL-expired entries and returns the
// count. Lazy expiry already keeps reads correct; this reclaims memory held
// by entries nothing reads anymore.
func (c *BoundedCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) > c.ttl {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

// Stats returns a read-only snapshot, no side effects.
func (c *BoundedCache[V]) Stats() models.MTierStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return models.MTierStats{
		Entries:      len(c.entries),
		MaxEntries:   c.maxEntries,
		MemoryUsed:   c.memoryUsed,
		MemoryBudget: c.memoryBudget,
		TTLMillis:    c.ttl.Milliseconds(),
	}
}
