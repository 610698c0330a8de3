package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"market-cache/src/logger"
	"market-cache/src/models"
)

// -----------------------------------------------------------------------------
// Store stubs
// -----------------------------------------------------------------------------

// fakeStore is an in-memory IRecordStore. failing flips every operation into
// an error so degraded-mode behavior can be exercised.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.MPersistedRecord
	failing bool

	gets, sets, deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.MPersistedRecord)}
}

func (s *fakeStore) Initialize() error { return nil }

func (s *fakeStore) Get(_ context.Context, id string) (*models.MPersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failing {
		return nil, errors.New("store down")
	}
	return s.records[id], nil
}

func (s *fakeStore) Set(_ context.Context, rec *models.MPersistedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failing {
		return errors.New("store down")
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store down")
	}
	delete(s.records, id)
	return nil
}

func (s *fakeStore) DeleteBySymbol(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.failing {
		return errors.New("store down")
	}
	for id, rec := range s.records {
		if rec.Symbol == symbol {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *fakeStore) CleanupExpired(_ context.Context) (int64, error) {
	if s.failing {
		return 0, errors.New("store down")
	}
	return 0, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) setFailing(failing bool) {
	s.mu.Lock()
	s.failing = failing
	s.mu.Unlock()
}

func (s *fakeStore) record(id string) *models.MPersistedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func testTierConfig() models.MTierConfig {
	return models.MTierConfig{MaxEntries: 100, TTLMillis: 60_000, MemoryBudgetBytes: 1 << 20}
}

func newTestOrchestrator(store *fakeStore) *Orchestrator {
	log := logger.NewLogger("ERROR", "test")
	if store == nil {
		return NewOrchestrator(testTierConfig(), testTierConfig(), nil, log)
	}
	return NewOrchestrator(testTierConfig(), testTierConfig(), store, log)
}

func candleAt(ts string, close float64) models.MCandle {
	d := decimal.NewFromFloat(close)
	return models.MCandle{
		Timestamp: ts,
		Open:      d, High: d, Low: d, Close: d,
		Volume: 1000,
	}
}

var (
	t1 = "2026-03-02T00:00:00Z"
	t2 = "2026-03-03T00:00:00Z"
	t3 = "2026-03-04T00:00:00Z"
)

// -----------------------------------------------------------------------------
// Read path
// -----------------------------------------------------------------------------

func TestOrchestrator_FetchOnFullMissPopulatesBothTiers(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	fetchCalls := 0
	fetch := func(ctx context.Context) ([]models.MCandle, error) {
		fetchCalls++
		return []models.MCandle{candleAt(t1, 100), candleAt(t2, 101)}, nil
	}

	series, err := orch.GetWithFallback(ctx, "AAPL", "1d", fetch)
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, 1, fetchCalls)

	// Memory tier now holds it: no second fetch
	series, err = orch.GetWithFallback(ctx, "AAPL", "1d", fetch)
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, 1, fetchCalls)

	// And the record store was written through
	rec := store.record("aapl:1d")
	require.NotNil(t, rec)
	require.Equal(t, "aapl", rec.Symbol)

	stats := orch.Stats()
	require.Equal(t, int64(1), stats.Metrics.MemoryHits)
	require.Equal(t, int64(1), stats.Metrics.Fetches)
}

// -----------------------------------------------------------------------------

func TestOrchestrator_StoreHitRepopulatesMemory(t *testing.T) {
	store := newFakeStore()

	payload, err := json.Marshal([]models.MCandle{candleAt(t1, 100)})
	require.NoError(t, err)
	store.records["aapl:1d"] = &models.MPersistedRecord{
		ID: "aapl:1d", Symbol: "aapl", Interval: "1d",
		Payload: payload, InsertedAt: time.Now().UnixMilli(),
	}

	orch := newTestOrchestrator(store)
	ctx := context.Background()

	fetch := func(ctx context.Context) ([]models.MCandle, error) {
		t.Fatal("fetch must not run on a store hit")
		return nil, nil
	}

	series, err := orch.GetWithFallback(ctx, "AAPL", "1d", fetch)
	require.NoError(t, err)
	require.Len(t, series, 1)

	require.True(t, orch.CandleTier().Has("aapl:1d"))
	require.Equal(t, int64(1), orch.Stats().Metrics.StoreHits)
}

// -----------------------------------------------------------------------------

func TestOrchestrator_FetchErrorPropagatesUncached(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	boom := errors.New("upstream unavailable")
	_, err := orch.GetWithFallback(ctx, "AAPL", "1d", func(ctx context.Context) ([]models.MCandle, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	require.False(t, orch.CandleTier().Has("aapl:1d"))
	require.Nil(t, store.record("aapl:1d"))
}

// -----------------------------------------------------------------------------

func TestOrchestrator_IndicatorFallbackChain(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()
	key := IndicatorKey("AAPL", "1d", "sma", map[string]string{"period": "20"}, nil, nil, nil)

	computeCalls := 0
	compute := func(ctx context.Context) (*models.MIndicatorOutput, error) {
		computeCalls++
		return &models.MIndicatorOutput{
			Timestamps: []int64{1, 2},
			Data:       map[string][]*float64{"sma": {nil, nil}},
			DataPoints: 2,
		}, nil
	}

	out, err := orch.GetIndicatorWithFallback(ctx, key, compute)
	require.NoError(t, err)
	require.Equal(t, 2, out.DataPoints)
	require.Equal(t, 1, computeCalls)

	// Second read is a memory hit
	_, err = orch.GetIndicatorWithFallback(ctx, key, compute)
	require.NoError(t, err)
	require.Equal(t, 1, computeCalls)

	require.NotNil(t, store.record(key.ID))
}

// -----------------------------------------------------------------------------
// Write policies
// -----------------------------------------------------------------------------

func TestOrchestrator_MergeAndPersist(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	existing := []models.MCandle{candleAt(t1, 100), candleAt(t2, 101)}
	incoming := []models.MCandle{candleAt(t2, 999), candleAt(t3, 102)}

	merged := orch.MergeAndPersist(ctx, "AAPL", "1d", existing, incoming)

	require.Len(t, merged, 3)
	require.Equal(t, t1, merged[0].Timestamp)
	require.Equal(t, t2, merged[1].Timestamp)
	require.Equal(t, t3, merged[2].Timestamp)

	// Pre-existing bar wins over the incoming duplicate
	require.True(t, merged[1].Close.Equal(decimal.NewFromFloat(101)))
}

// -----------------------------------------------------------------------------

func TestOrchestrator_MergeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	existing := []models.MCandle{candleAt(t1, 100)}
	incoming := []models.MCandle{candleAt(t2, 101), candleAt(t3, 102)}

	once := orch.MergeAndPersist(ctx, "AAPL", "1d", existing, incoming)
	twice := orch.MergeAndPersist(ctx, "AAPL", "1d", once, incoming)

	require.Equal(t, once, twice)
}

// -----------------------------------------------------------------------------

func TestOrchestrator_MergeCollapsesIncomingDuplicates(t *testing.T) {
	orch := newTestOrchestrator(newFakeStore())
	ctx := context.Background()

	incoming := []models.MCandle{candleAt(t2, 1), candleAt(t2, 2), candleAt(t2, 3)}
	merged := orch.MergeAndPersist(ctx, "AAPL", "1d", nil, incoming)

	require.Len(t, merged, 1)
	// Last incoming write wins
	require.True(t, merged[0].Close.Equal(decimal.NewFromFloat(3)))
}

// -----------------------------------------------------------------------------

func TestOrchestrator_AppendUsesCallerSnapshot(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	before := []models.MCandle{candleAt(t1, 100)}

	// Something else replaced the cached series after the caller snapshotted;
	// Append must still build from the snapshot, not the cache.
	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t3, 300)})

	out := orch.Append(ctx, "AAPL", "1d", before, candleAt(t2, 200))
	require.Len(t, out, 2)
	require.Equal(t, t1, out[0].Timestamp)
	require.Equal(t, t2, out[1].Timestamp)

	cached, ok := orch.CandleTier().Get("aapl:1d")
	require.True(t, ok)
	require.Equal(t, out, cached)
}

// -----------------------------------------------------------------------------

func TestOrchestrator_SetFullReplace(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t1, 100), candleAt(t2, 101)})
	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t3, 102)})

	cached, ok := orch.CandleTier().Get("aapl:1d")
	require.True(t, ok)
	require.Len(t, cached, 1)
	require.Equal(t, t3, cached[0].Timestamp)
}

// -----------------------------------------------------------------------------
// Invalidation and degraded mode
// -----------------------------------------------------------------------------

func TestOrchestrator_InvalidateDropsSymbolEverywhere(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t1, 100)})
	orch.Set(ctx, "AAPL", "1h", []models.MCandle{candleAt(t1, 100)})
	orch.Set(ctx, "MSFT", "1d", []models.MCandle{candleAt(t1, 200)})

	orch.Invalidate(ctx, "AAPL")

	require.False(t, orch.CandleTier().Has("aapl:1d"))
	require.False(t, orch.CandleTier().Has("aapl:1h"))
	require.True(t, orch.CandleTier().Has("msft:1d"))

	require.Nil(t, store.record("aapl:1d"))
	require.NotNil(t, store.record("msft:1d"))
}

// -----------------------------------------------------------------------------

func TestOrchestrator_ClearLeavesPersistentRecords(t *testing.T) {
	store := newFakeStore()
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t1, 100)})
	orch.Clear()

	require.Equal(t, 0, orch.CandleTier().Stats().Entries)
	require.NotNil(t, store.record("aapl:1d"))
}

// -----------------------------------------------------------------------------

func TestOrchestrator_StoreFailureDegradesNotFails(t *testing.T) {
	store := newFakeStore()
	store.setFailing(true)
	orch := newTestOrchestrator(store)
	ctx := context.Background()

	// Writes and reads keep working against the memory tier
	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t1, 100)})
	require.True(t, orch.Degraded())

	series, err := orch.GetWithFallback(ctx, "AAPL", "1d", func(ctx context.Context) ([]models.MCandle, error) {
		t.Fatal("memory tier should answer")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, series, 1)

	// The flag clears on the next store success
	store.setFailing(false)
	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t2, 101)})
	require.False(t, orch.Degraded())
	require.Greater(t, orch.Stats().Metrics.StoreErrors, int64(0))
}

// -----------------------------------------------------------------------------

func TestOrchestrator_MemoryOnlyWithNilStore(t *testing.T) {
	orch := newTestOrchestrator(nil)
	ctx := context.Background()

	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t1, 100)})

	series, err := orch.GetWithFallback(ctx, "AAPL", "1d", func(ctx context.Context) ([]models.MCandle, error) {
		return nil, errors.New("should not be reached")
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.False(t, orch.Degraded())
}

// -----------------------------------------------------------------------------

func TestOrchestrator_EventsRecordWritePath(t *testing.T) {
	orch := newTestOrchestrator(newFakeStore())
	ctx := context.Background()

	orch.Set(ctx, "AAPL", "1d", []models.MCandle{candleAt(t1, 100)})
	orch.MergeAndPersist(ctx, "AAPL", "1d", nil, []models.MCandle{candleAt(t2, 101)})
	orch.Invalidate(ctx, "AAPL")

	events := orch.RecentEvents(10)
	require.Len(t, events, 3)
	require.Equal(t, models.EventSet, events[0].Type)
	require.Equal(t, models.EventMerge, events[1].Type)
	require.Equal(t, models.EventInvalidate, events[2].Type)

	for _, ev := range events {
		require.True(t, strings.HasPrefix(ev.Symbol, "aapl"))
	}
}
