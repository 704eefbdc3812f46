package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
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

// BucketStart truncates t to the start of its bucket for the timeframe.
// Weeks start on Monday; unknown timeframes fall back to day boundaries.
func BucketStart(t time.Time, tf string) time.Time {
	t = t.UTC()
	switch tf {
	case "1w":
		day := t.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case "1mo":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // "1d"
		return t.Truncate(24 * time.Hour)
	}
}

// RangeStart returns the bucket start n periods before now, used to bound
// a "last n buckets" scan.
func RangeStart(now time.Time, tf string, n int) time.Time {
	if n < 1 {
		n = 1
	}
	start := BucketStart(now, tf)
	switch tf {
	case "1w":
		return start.AddDate(0, 0, -7*(n-1))
	case "1mo":
		return start.AddDate(0, -(n - 1), 0)
	default:
		return start.AddDate(0, 0, -(n - 1))
	}
}
