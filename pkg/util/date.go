package util

import (
	"time"
	_ "time/tzdata" // embedded zone data for US/Eastern
)

// DateLayout is the calendar-date format used by market-data queries.
const DateLayout = "2006-01-02"

// DisplayLayout renders timestamps for the dashboard.
const DisplayLayout = "2006-01-02 15:04:05 MST"

// FormatDate formats t as a calendar date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// LoadLocation resolves a tz database name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatInZone renders t in the named zone using DisplayLayout. A zero time
// yields an empty string.
func FormatInZone(t time.Time, zone string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(LoadLocation(zone)).Format(DisplayLayout)
}

// ParseDate parses a calendar date. Returns (t, true) on success.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
