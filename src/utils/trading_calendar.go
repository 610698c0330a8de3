package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers trading-day questions for one venue using
// scmhub/calendar, with a Mon-Fri fallback when no calendar is available.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	// Simple mapping based on suffix to MIC code
	// See scmhub/calendar for supported MICs (ISO 10383)
	mic := "xnys" // Default US NYSE
	switch {
	case strings.HasSuffix(symbol, ".L"):
		mic = "xlon"
	case strings.HasSuffix(symbol, ".PA"):
		mic = "xpar"
	case strings.HasSuffix(symbol, ".DE"):
		mic = "xfra"
	case strings.HasSuffix(symbol, ".AS"):
		mic = "xams"
	case strings.HasSuffix(symbol, ".MI"):
		mic = "xmil"
	case strings.HasSuffix(symbol, ".MC"):
		mic = "xmad"
	case strings.HasSuffix(symbol, ".ST"):
		mic = "xsto"
	case strings.HasSuffix(symbol, ".SW"):
		mic = "xswx"
	case strings.HasSuffix(symbol, ".TO"):
		mic = "xtse"
	case strings.HasSuffix(symbol, ".T"):
		mic = "xtks"
	case strings.HasSuffix(symbol, ".HK"):
		mic = "xhkg"
	case strings.HasSuffix(symbol, ".AX"):
		mic = "xasx"
	case strings.HasSuffix(symbol, ".KS"):
		mic = "xkrx"
	case strings.HasSuffix(symbol, ".SS"):
		mic = "xshg"
	case strings.HasSuffix(symbol, ".SZ"):
		mic = "xshe"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		// Fallback to xnys if not found
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		// Simple fallback: Mon-Fri, NY time
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// LastTradingDay walks backwards from date to the most recent trading day
// (inclusive). Gives up after 30 days and returns date unchanged, so a broken
// calendar cannot loop forever.
func (tc *TradingCalendar) LastTradingDay(date time.Time) time.Time {
	d := date
	for i := 0; i < 30; i++ {
		if tc.IsTradingDay(d) {
			return d
		}
		d = d.AddDate(0, 0, -1)
	}
	return date
}

// -----------------------------------------------------------------------------
// Period boundaries (used by the cache key normalizer)
// -----------------------------------------------------------------------------

// PeriodEnd rounds t forward to the last representable instant of its period
// for the interval: 23:59:59.999 of the day for daily and coarser intervals,
// end of hour for hourly, end of minute below that. Daily periods landing on
// a non-trading day are pulled back to the last session's day when a calendar
// is supplied.
func PeriodEnd(t time.Time, interval string, cal *TradingCalendar) time.Time {
	t = t.UTC()
	switch {
	case IsDailyOrCoarser(interval):
		day := t
		if cal != nil && !cal.IsTradingDay(day) {
			day = cal.LastTradingDay(day)
		}
		y, m, d := day.UTC().Date()
		return time.Date(y, m, d, 23, 59, 59, 999_000_000, time.UTC)
	case IsHourly(interval):
		return t.Truncate(time.Hour).Add(time.Hour - time.Millisecond)
	default:
		return t.Truncate(time.Minute).Add(time.Minute - time.Millisecond)
	}
}

// -----------------------------------------------------------------------------

// IsPeriodStart reports whether t falls exactly on a period boundary for the
// interval (start of day for daily and coarser; start of hour / minute below).
func IsPeriodStart(t time.Time, interval string) bool {
	t = t.UTC()
	switch {
	case IsDailyOrCoarser(interval):
		return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
	case IsHourly(interval):
		return t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
	default:
		return t.Second() == 0 && t.Nanosecond() == 0
	}
}
