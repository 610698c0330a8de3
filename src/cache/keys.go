package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"market-cache/src/utils"
)

// -----------------------------------------------------------------------------
// Cache key construction. Keys are deterministic: two logically identical
// requests produce byte-identical keys regardless of parameter insertion
// order. Key shapes:
//
//	candles:    "<symbol>:<interval>"
//	indicators: "<symbol>:<interval>:<name>[:<params>][:<from>-<to>]"
//
// symbol is lower-cased; params are sorted name=value pairs joined by "&";
// the range suffix uses epoch millis of the (possibly normalized) window.
// -----------------------------------------------------------------------------

// Key identifies one cached value across both tiers. ID is the full cache
// key; the split fields feed the persistent record columns.
type Key struct {
	ID        string
	Symbol    string
	Interval  string
	Indicator string
}

// -----------------------------------------------------------------------------

// CandleKey builds the key for a candle series.
func CandleKey(symbol, interval string) Key {
	sym := strings.ToLower(symbol)
	return Key{
		ID:       sym + ":" + interval,
		Symbol:   sym,
		Interval: interval,
	}
}

// -----------------------------------------------------------------------------

// SymbolPrefix is the invalidation prefix covering every interval and
// indicator variant of one symbol.
func SymbolPrefix(symbol string) string {
	return strings.ToLower(symbol) + ":"
}

// -----------------------------------------------------------------------------

// IndicatorKey builds the key for an indicator result. from/to are optional;
// when supplied, "latest data" windows are normalized to period boundaries
// (see NormalizeRange) so near-real-time requests issued moments apart hit
// the same entry. Explicit historical windows pass through untouched.
func IndicatorKey(symbol, interval, indicator string, params map[string]string, from, to *time.Time, cal *utils.TradingCalendar) Key {
	sym := strings.ToLower(symbol)

	var b strings.Builder
	b.WriteString(sym)
	b.WriteByte(':')
	b.WriteString(interval)
	b.WriteByte(':')
	b.WriteString(indicator)

	if len(params) > 0 {
		b.WriteByte(':')
		b.WriteString(serializeParams(params))
	}

	if from != nil && to != nil {
		nf, nt := NormalizeRange(*from, *to, interval, time.Now().UTC(), cal)
		fmt.Fprintf(&b, ":%d-%d", nf.UnixMilli(), nt.UnixMilli())
	}

	return Key{
		ID:        b.String(),
		Symbol:    sym,
		Interval:  interval,
		Indicator: indicator,
	}
}

// -----------------------------------------------------------------------------

// serializeParams joins parameters as "name=value&..." with names sorted
// lexicographically, so insertion order cannot change the key.
func serializeParams(params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}
	return strings.Join(pairs, "&")
}

// -----------------------------------------------------------------------------

// latestWindow is how close to now a request's end date must be to count as
// a "latest data" request.
const latestWindow = 7 * 24 * time.Hour

// isLatestRequest decides whether a range looks like a "give me the latest
// data" request: the end is within 7 days of now, or it falls exactly on a
// period boundary. Note a deliberate 6-day-old backfill also qualifies and
// gets normalized; that matches the long-standing behavior consumers rely on.
func isLatestRequest(to, now time.Time, interval string) bool {
	if now.Sub(to) <= latestWindow {
		return true
	}
	return utils.IsPeriodStart(to, interval)
}

// -----------------------------------------------------------------------------

// NormalizeRange rounds a qualifying "latest data" window so that requests
// issued seconds apart within the same period share a key: the end date moves
// forward to the end of its period and the start shifts by the same delta,
// preserving window length. Non-qualifying (historical) windows are returned
// unchanged so distinct backfill windows never collide.
func NormalizeRange(from, to time.Time, interval string, now time.Time, cal *utils.TradingCalendar) (time.Time, time.Time) {
	from, to = from.UTC(), to.UTC()

	if !isLatestRequest(to, now, interval) {
		return from, to
	}

	end := utils.PeriodEnd(to, interval, cal)
	delta := end.Sub(to)
	return from.Add(delta), end
}
