package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ExitPulse/internal/domain/models"
)

type fakeArchive struct {
	mu   sync.Mutex
	recs []*models.SignalRecord
	fail bool
}

func (f *fakeArchive) Init(context.Context) error { return nil }

func (f *fakeArchive) Store(_ context.Context, rec *models.SignalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("archive down")
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeArchive) StoreBatch(_ context.Context, recs []*models.SignalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("archive down")
	}
	f.recs = append(f.recs, recs...)
	return nil
}

func (f *fakeArchive) Outcomes(context.Context, string, int) ([]models.TradeOutcome, error) {
	return nil, nil
}

func (f *fakeArchive) Health(context.Context) error { return nil }
func (f *fakeArchive) Close() error                 { return nil }

func signalMessage(t *testing.T, at string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"position_id": "p1",
		"ticker":      "AAPL",
		"strategy":    "momo",
		"signal":      "SELL",
		"confidence":  72.0,
		"composite":   0.72,
		"at":          at,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleParsesRFC3339At(t *testing.T) {
	arch := &fakeArchive{}
	h := NewKafkaSignalsHandler("signals", arch, nopMetrics{})

	emitted := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	if err := h.Handle(context.Background(), signalMessage(t, emitted.Format(time.RFC3339Nano))); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(arch.recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(arch.recs))
	}
	if !arch.recs[0].GeneratedAt.Equal(emitted) {
		t.Fatalf("generated_at: want %v got %v", emitted, arch.recs[0].GeneratedAt)
	}
	if arch.recs[0].SignalType != "SELL" || arch.recs[0].PositionID != "p1" {
		t.Fatalf("record fields: %+v", arch.recs[0])
	}
}

func TestHandleParsesUnixSecondsAt(t *testing.T) {
	arch := &fakeArchive{}
	h := NewKafkaSignalsHandler("signals", arch, nopMetrics{})

	if err := h.Handle(context.Background(), signalMessage(t, "1700000000")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := time.Unix(1700000000, 0).UTC()
	if !arch.recs[0].GeneratedAt.Equal(want) {
		t.Fatalf("generated_at: want %v got %v", want, arch.recs[0].GeneratedAt)
	}
}

func TestHandleUnparseableAtFallsBackToNow(t *testing.T) {
	arch := &fakeArchive{}
	h := NewKafkaSignalsHandler("signals", arch, nopMetrics{})

	before := time.Now().UTC()
	if err := h.Handle(context.Background(), signalMessage(t, "not-a-time")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := arch.recs[0].GeneratedAt
	if got.Before(before) || got.After(time.Now().UTC()) {
		t.Fatalf("fallback timestamp out of range: %v", got)
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	arch := &fakeArchive{}
	h := NewKafkaSignalsHandler("signals", arch, nopMetrics{})

	if err := h.Handle(context.Background(), []byte("{broken")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if len(arch.recs) != 0 {
		t.Fatalf("nothing should be stored: %v", arch.recs)
	}
}

func TestHandlePropagatesStoreError(t *testing.T) {
	arch := &fakeArchive{fail: true}
	h := NewKafkaSignalsHandler("signals", arch, nopMetrics{})

	if err := h.Handle(context.Background(), signalMessage(t, "1700000000")); err == nil {
		t.Fatal("expected store error to surface for retry")
	}
}
