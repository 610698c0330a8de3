package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"market-cache/src/interfaces"
	"market-cache/src/logger"
	"market-cache/src/models"
	"market-cache/src/utils"
)

// -----------------------------------------------------------------------------
// Orchestrator is the only component consumers call. It composes the two
// memory tiers and the record store into a read fallback chain
// (memory -> store -> caller's fetch function) and fans writes out to both
// tiers. Store failures degrade to memory-only operation; fetch failures
// propagate and never poison the tiers.
// -----------------------------------------------------------------------------

// FetchCandlesFunc loads a candle series on a full miss (network).
type FetchCandlesFunc func(ctx context.Context) ([]models.MCandle, error)

// ComputeIndicatorFunc computes an indicator bundle on a full miss.
type ComputeIndicatorFunc func(ctx context.Context) (*models.MIndicatorOutput, error)

type Orchestrator struct {
	Logger *logger.Logger

	candles    *BoundedCache[[]models.MCandle]
	indicators *BoundedCache[*models.MIndicatorOutput]
	store      interfaces.IRecordStore
	exchange   interfaces.IDataExchange

	storeTimeout time.Duration

	eventsMu sync.Mutex
	events   *utils.EventRing

	degraded    atomic.Bool
	memoryHits  atomic.Int64
	storeHits   atomic.Int64
	fetches     atomic.Int64
	writes      atomic.Int64
	storeErrors atomic.Int64
}

// -----------------------------------------------------------------------------

// NewOrchestrator wires the two tiers. store may be nil for a memory-only
// deployment; every store path then behaves as a permanent tier-2 miss.
func NewOrchestrator(candleCfg, indicatorCfg models.MTierConfig, store interfaces.IRecordStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		Logger:       log,
		candles:      NewBoundedCache[[]models.MCandle](candleCfg, CandleSeriesSize, log),
		indicators:   NewBoundedCache[*models.MIndicatorOutput](indicatorCfg, IndicatorOutputSize, log),
		store:        store,
		storeTimeout: 5 * time.Second,
		events:       utils.NewEventRing(256),
	}
}

// -----------------------------------------------------------------------------

// SetExchange attaches the event broadcaster (the WS hub). Optional.
func (o *Orchestrator) SetExchange(ex interfaces.IDataExchange) {
	o.exchange = ex
}

// CandleTier exposes the candle memory tier for maintenance registration.
func (o *Orchestrator) CandleTier() *BoundedCache[[]models.MCandle] { return o.candles }

// IndicatorTier exposes the indicator memory tier for maintenance registration.
func (o *Orchestrator) IndicatorTier() *BoundedCache[*models.MIndicatorOutput] {
	return o.indicators
}

// -----------------------------------------------------------------------------
// Read path
// -----------------------------------------------------------------------------

// GetWithFallback resolves a candle series: memory tier first, then the
// record store (repopulating memory on a hit), then fetchFn (writing the
// result to both tiers). fetchFn errors propagate unchanged and nothing is
// cached for them.
func (o *Orchestrator) GetWithFallback(ctx context.Context, symbol, interval string, fetchFn FetchCandlesFunc) ([]models.MCandle, error) {
	key := CandleKey(symbol, interval)

	if cached, ok := o.candles.Get(key.ID); ok && len(cached) > 0 {
		o.memoryHits.Add(1)
		return cached, nil
	}

	if rec := o.storeGet(ctx, key.ID); rec != nil {
		var series []models.MCandle
		if err := json.Unmarshal(rec.Payload, &series); err != nil {
			o.Logger.Warning("Discarding undecodable store payload for '%s': %v", key.ID, err)
		} else if len(series) > 0 {
			o.storeHits.Add(1)
			o.candles.Set(key.ID, series)
			return series, nil
		}
	}

	fetched, err := fetchFn(ctx)
	if err != nil {
		return nil, err
	}
	o.fetches.Add(1)

	o.writeCandles(ctx, key, fetched, models.EventSet)
	return fetched, nil
}

// -----------------------------------------------------------------------------

// GetIndicatorWithFallback resolves an indicator bundle by its normalized
// key, with the same three-level chain as GetWithFallback.
func (o *Orchestrator) GetIndicatorWithFallback(ctx context.Context, key Key, computeFn ComputeIndicatorFunc) (*models.MIndicatorOutput, error) {
	if cached, ok := o.indicators.Get(key.ID); ok && cached != nil && cached.DataPoints > 0 {
		o.memoryHits.Add(1)
		return cached, nil
	}

	if rec := o.storeGet(ctx, key.ID); rec != nil {
		var out models.MIndicatorOutput
		if err := json.Unmarshal(rec.Payload, &out); err != nil {
			o.Logger.Warning("Discarding undecodable store payload for '%s': %v", key.ID, err)
		} else if out.DataPoints > 0 {
			o.storeHits.Add(1)
			o.indicators.Set(key.ID, &out)
			return &out, nil
		}
	}

	computed, err := computeFn(ctx)
	if err != nil {
		return nil, err
	}
	o.fetches.Add(1)

	o.SetIndicator(ctx, key, computed)
	return computed, nil
}

// -----------------------------------------------------------------------------
// Write policies
// -----------------------------------------------------------------------------

// Set is the full-replace policy: both tiers are overwritten unconditionally.
// Only call it with the complete, authoritative series for the key — a
// partial window silently discards everything outside it.
func (o *Orchestrator) Set(ctx context.Context, symbol, interval string, candles []models.MCandle) {
	o.writeCandles(ctx, CandleKey(symbol, interval), candles, models.EventSet)
}

// -----------------------------------------------------------------------------

// MergeAndPersist is the backfill-merge policy: incoming candles whose
// timestamps already exist in existing are dropped (the pre-existing bar
// wins), duplicate timestamps within incoming collapse to the last one, and
// the concatenation is sorted ascending and written via full replace.
// Merging the same incoming slice twice yields the same final state as once.
func (o *Orchestrator) MergeAndPersist(ctx context.Context, symbol, interval string, existing, incoming []models.MCandle) []models.MCandle {
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.Timestamp] = struct{}{}
	}

	// Last write wins among incoming duplicates.
	fresh := make(map[string]models.MCandle)
	order := make([]string, 0, len(incoming))
	for _, c := range incoming {
		if _, dup := seen[c.Timestamp]; dup {
			continue
		}
		if _, ok := fresh[c.Timestamp]; !ok {
			order = append(order, c.Timestamp)
		}
		fresh[c.Timestamp] = c
	}

	merged := make([]models.MCandle, 0, len(existing)+len(order))
	merged = append(merged, existing...)
	for _, ts := range order {
		merged = append(merged, fresh[ts])
	}
	sortCandles(merged)

	o.writeCandles(ctx, CandleKey(symbol, interval), merged, models.EventMerge)
	return merged
}

// -----------------------------------------------------------------------------

// Append is the real-time append policy: exactly one new bar is appended to
// the caller's pre-append snapshot and written via full replace. Current
// cache state is deliberately not read here, so a concurrent backfill cannot
// race a read-then-append.
func (o *Orchestrator) Append(ctx context.Context, symbol, interval string, before []models.MCandle, item models.MCandle) []models.MCandle {
	out := make([]models.MCandle, 0, len(before)+1)
	out = append(out, before...)
	out = append(out, item)

	o.writeCandles(ctx, CandleKey(symbol, interval), out, models.EventAppend)
	return out
}

// -----------------------------------------------------------------------------

// Sync writes an already-finalized series verbatim to both tiers, for
// callers that deduplicated and sorted independently.
func (o *Orchestrator) Sync(ctx context.Context, symbol, interval string, candles []models.MCandle) {
	o.writeCandles(ctx, CandleKey(symbol, interval), candles, models.EventSync)
}

// -----------------------------------------------------------------------------

// SetIndicator full-replaces the indicator bundle for key in both tiers.
func (o *Orchestrator) SetIndicator(ctx context.Context, key Key, out *models.MIndicatorOutput) {
	o.indicators.Set(key.ID, out)
	o.writes.Add(1)

	payload, err := json.Marshal(out)
	if err != nil {
		o.Logger.Error("Failed to encode indicator payload for '%s': %v", key.ID, err)
	} else {
		o.storeSet(ctx, key, payload)
	}

	points := 0
	if out != nil {
		points = out.DataPoints
	}
	o.emit(models.MCacheEvent{
		Type: models.EventSet, Key: key.ID, Symbol: key.Symbol,
		Interval: key.Interval, DataPoints: points, Timestamp: time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

// Invalidate drops every cached variant of symbol from both memory tiers and
// the record store.
func (o *Orchestrator) Invalidate(ctx context.Context, symbol string) {
	prefix := SymbolPrefix(symbol)
	removed := o.candles.InvalidatePrefix(prefix) + o.indicators.InvalidatePrefix(prefix)

	if o.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
		defer cancel()
		if err := o.store.DeleteBySymbol(storeCtx, prefix[:len(prefix)-1]); err != nil {
			o.noteStoreError("delete", err)
		}
	}

	o.Logger.Info("Invalidated %d memory entries for symbol '%s'", removed, symbol)
	o.emit(models.MCacheEvent{
		Type: models.EventInvalidate, Symbol: prefix[:len(prefix)-1],
		Timestamp: time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

// Clear empties both memory tiers. Persistent records stay until they expire
// or are invalidated per symbol, so a restart-equivalent reset stays cheap.
func (o *Orchestrator) Clear() {
	o.candles.Clear()
	o.indicators.Clear()
}

// -----------------------------------------------------------------------------

// Degraded reports whether the last store operation failed. While true the
// cache serves memory-only; the flag clears on the next store success.
func (o *Orchestrator) Degraded() bool {
	return o.degraded.Load()
}

// -----------------------------------------------------------------------------

// Stats snapshots both tiers and the activity counters.
func (o *Orchestrator) Stats() models.MCacheStats {
	return models.MCacheStats{
		Candles:    o.candles.Stats(),
		Indicators: o.indicators.Stats(),
		Metrics: models.MCacheMetrics{
			MemoryHits:  o.memoryHits.Load(),
			StoreHits:   o.storeHits.Load(),
			Fetches:     o.fetches.Load(),
			Writes:      o.writes.Load(),
			StoreErrors: o.storeErrors.Load(),
			Degraded:    o.degraded.Load(),
		},
	}
}

// -----------------------------------------------------------------------------

// RecentEvents returns up to n recent write-path events, oldest first.
func (o *Orchestrator) RecentEvents(n int) []models.MCacheEvent {
	o.eventsMu.Lock()
	defer o.eventsMu.Unlock()
	return o.events.GetLatest(n)
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (o *Orchestrator) writeCandles(ctx context.Context, key Key, candles []models.MCandle, eventType string) {
	o.candles.Set(key.ID, candles)
	o.writes.Add(1)

	payload, err := json.Marshal(candles)
	if err != nil {
		o.Logger.Error("Failed to encode candle payload for '%s': %v", key.ID, err)
	} else {
		o.storeSet(ctx, key, payload)
	}

	o.emit(models.MCacheEvent{
		Type: eventType, Key: key.ID, Symbol: key.Symbol, Interval: key.Interval,
		DataPoints: len(candles), Timestamp: time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

// storeGet reads from the record store with a deadline. Every failure is a
// tier-2 miss: logged, counted, and the degraded flag raised.
func (o *Orchestrator) storeGet(ctx context.Context, id string) *models.MPersistedRecord {
	if o.store == nil {
		return nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()

	rec, err := o.store.Get(storeCtx, id)
	if err != nil {
		o.noteStoreError("get", err)
		return nil
	}
	o.degraded.Store(false)
	return rec
}

// -----------------------------------------------------------------------------

// storeSet writes to the record store with a deadline. A failed store write
// after a successful memory write leaves the memory tier authoritative for
// the rest of the process lifetime; no retry is scheduled.
func (o *Orchestrator) storeSet(ctx context.Context, key Key, payload []byte) {
	if o.store == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()

	rec := &models.MPersistedRecord{
		ID:         key.ID,
		Symbol:     key.Symbol,
		Interval:   key.Interval,
		Indicator:  key.Indicator,
		Payload:    payload,
		InsertedAt: time.Now().UnixMilli(),
	}
	if err := o.store.Set(storeCtx, rec); err != nil {
		o.noteStoreError("set", err)
		return
	}
	o.degraded.Store(false)
}

// -----------------------------------------------------------------------------

func (o *Orchestrator) noteStoreError(op string, err error) {
	o.storeErrors.Add(1)
	o.degraded.Store(true)
	o.Logger.Error("Record store %s failed, continuing memory-only: %v", op, err)
}

// -----------------------------------------------------------------------------

func (o *Orchestrator) emit(event models.MCacheEvent) {
	o.eventsMu.Lock()
	o.events.Append(event)
	o.eventsMu.Unlock()

	if o.exchange != nil {
		o.exchange.Broadcast(event)
	}
}

// -----------------------------------------------------------------------------

// sortCandles orders ascending by parsed timestamp, falling back to the raw
// string for unparseable values so the order is still total.
func sortCandles(candles []models.MCandle) {
	sort.SliceStable(candles, func(i, j int) bool {
		ti, tj := candles[i].Time(), candles[j].Time()
		if ti.Equal(tj) {
			return candles[i].Timestamp < candles[j].Timestamp
		}
		return ti.Before(tj)
	})
}
