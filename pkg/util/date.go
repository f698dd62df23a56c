package util

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the calendar forms accepted in tabular input, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"2006-01",
	"2006/01",
	"Jan 2006",
	"January 2006",
	"2006-Jan",
}

// ParseDate parses s against the calendar layouts. Bare numbers are rejected so
// numeric value columns are never mistaken for epoch timestamps.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\""))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTime tries the calendar layouts and then unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if t, ok := ParseDate(s); ok {
		return t, true
	}
	if ts, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
