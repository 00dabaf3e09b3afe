// Package dashboard derives filtered views and totals over an in-memory
// snapshot of jobs.
package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// DateRange names a created-at window relative to now.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type DateRange string

const (
	// RangeThisWeek is the business week containing now.
	RangeThisWeek DateRange = "this_week"
	// RangeLastWeek is the business week before this one.
	RangeLastWeek DateRange = "last_week"
	// RangeNextWeek is the business week after this one.
	RangeNextWeek DateRange = "next_week"
	// RangeToday is the calendar day containing now.
	RangeToday DateRange = "today"
	// RangeYesterday is the calendar day before today.
	RangeYesterday DateRange = "yesterday"
	// RangeMonth is the trailing 30 days, not the calendar month.
	RangeMonth DateRange = "month"
)

// Valid reports whether r names a supported range.
func (r DateRange) Valid() bool {
	switch r {
	case RangeThisWeek, RangeLastWeek, RangeNextWeek, RangeToday, RangeYesterday, RangeMonth:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for DateRange.
func (r *DateRange) UnmarshalText(text []byte) error {
	v := DateRange(strings.ToLower(strings.TrimSpace(string(text))))
	if v != "" && !v.Valid() {
		return fmt.Errorf("invalid DateRange: %q", string(text))
	}
	*r = v
	return nil
}

// Bounds is an inclusive time window.
type Bounds struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, inclusive at both ends.
func (b Bounds) Contains(t time.Time) bool {
	return !t.Before(b.Start) && !t.After(b.End)
}

// DaysSinceTuesday counts back to the start of the Tuesday–Monday business week.
func DaysSinceTuesday(wd time.Weekday) int {
	switch wd {
	case time.Sunday:
		return 5
	case time.Monday:
		return 6
	default:
		return int(wd - time.Tuesday)
	}
}

// WeekBounds returns the business week containing ref, evaluated in ref's
// location: Tuesday 00:00:00.000 through Monday 23:59:59.999.
func WeekBounds(ref time.Time) Bounds {
	start := midnight(ref.AddDate(0, 0, -DaysSinceTuesday(ref.Weekday())))
	return Bounds{
		Start: start,
		End:   lastInstant(start.AddDate(0, 0, 6)),
	}
}

// DayBounds returns the calendar day containing ref.
func DayBounds(ref time.Time) Bounds {
	return Bounds{Start: midnight(ref), End: lastInstant(ref)}
}

// RangeBounds resolves r relative to now. An empty range reports false,
// meaning no date filter applies.
func RangeBounds(r DateRange, now time.Time) (Bounds, bool) {
	switch r {
	case RangeThisWeek:
		return WeekBounds(now), true
	case RangeLastWeek:
		return WeekBounds(now.AddDate(0, 0, -7)), true
	case RangeNextWeek:
		return WeekBounds(now.AddDate(0, 0, 7)), true
	case RangeToday:
		return DayBounds(now), true
	case RangeYesterday:
		return DayBounds(now.AddDate(0, 0, -1)), true
	case RangeMonth:
		return Bounds{Start: now.AddDate(0, 0, -30), End: now}, true
	default:
		return Bounds{}, false
	}
}

// lastInstant is 23:59:59.999 wall clock on t's date, so days with a DST
// shift still end at local midnight.
func lastInstant(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, t.Location())
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
