package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestBucketStart(t *testing.T) {
	// a Thursday afternoon
	at := time.Date(2024, 10, 10, 15, 4, 5, 0, time.UTC)

	if got := BucketStart(at, "1d"); !got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1d: %v", got)
	}
	// week starts on the preceding Monday
	if got := BucketStart(at, "1w"); !got.Equal(time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1w: %v", got)
	}
	if got := BucketStart(at, "1mo"); !got.Equal(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1mo: %v", got)
	}
	// unknown timeframe falls back to day boundaries
	if got := BucketStart(at, "5m"); !got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("fallback: %v", got)
	}
}

func TestRangeStart(t *testing.T) {
	at := time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC)

	if got := RangeStart(at, "1d", 5); !got.Equal(time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1d n=5: %v", got)
	}
	if got := RangeStart(at, "1w", 2); !got.Equal(time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1w n=2: %v", got)
	}
	if got := RangeStart(at, "1mo", 3); !got.Equal(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1mo n=3: %v", got)
	}
	if got := RangeStart(at, "1d", 0); !got.Equal(BucketStart(at, "1d")) {
		t.Fatalf("n clamped to 1: %v", got)
	}
}
