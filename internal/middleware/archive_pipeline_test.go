package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ExitPulse/internal/domain/models"
)

type fakeProc struct {
	mu    sync.Mutex
	recs  []*models.SignalRecord
	fail  bool
	calls int
}

func (f *fakeProc) Process(_ context.Context, rec *models.SignalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("downstream down")
	}
	f.recs = append(f.recs, rec)
	return nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	errs   map[string]int
	lastOp string
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errs: map[string]int{}} }

func (f *fakeMetrics) RecordSignalEmitted(string, string) {}
func (f *fakeMetrics) RecordComposite(string, float64)    {}
func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind]++
}
func (f *fakeMetrics) RecordLatency(op string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOp = op
}

func (f *fakeMetrics) errCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[kind]
}

func validRecord(id string) *models.SignalRecord {
	return &models.SignalRecord{
		PositionID:  id,
		Ticker:      "AAPL",
		Strategy:    "momo",
		SignalType:  string(models.SignalSell),
		Confidence:  82,
		Composite:   0.74,
		GeneratedAt: time.Now().UTC(),
	}
}

func TestPipelineForwardsValidRecord(t *testing.T) {
	proc := &fakeProc{}
	p := NewArchivePipeline(proc, newFakeMetrics())

	if err := p.Process(context.Background(), validRecord("p1")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(proc.recs) != 1 || proc.recs[0].PositionID != "p1" {
		t.Fatalf("record not forwarded: %v", proc.recs)
	}
}

func TestPipelineRejectsInvalidRecords(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewArchivePipeline(proc, m)

	bad := []*models.SignalRecord{
		nil,
		func() *models.SignalRecord { r := validRecord("x"); r.PositionID = ""; return r }(),
		func() *models.SignalRecord { r := validRecord("x"); r.Ticker = ""; return r }(),
		func() *models.SignalRecord { r := validRecord("x"); r.SignalType = "PANIC"; return r }(),
		func() *models.SignalRecord { r := validRecord("x"); r.Confidence = 120; return r }(),
		func() *models.SignalRecord { r := validRecord("x"); r.GeneratedAt = time.Time{}; return r }(),
	}
	for i, rec := range bad {
		if err := p.Process(context.Background(), rec); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.calls != 0 {
		t.Fatalf("invalid records reached downstream: %d calls", proc.calls)
	}
	if m.errCount("pipeline_validate") != len(bad) {
		t.Fatalf("validation errors recorded: %d", m.errCount("pipeline_validate"))
	}
}

func TestPipelineThrottlesPerPosition(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewArchivePipeline(proc, m, WithMaxRPS(1))

	if err := p.Process(context.Background(), validRecord("p1")); err != nil {
		t.Fatalf("first emit: %v", err)
	}
	// same position inside the throttle window: dropped without error
	if err := p.Process(context.Background(), validRecord("p1")); err != nil {
		t.Fatalf("throttled emit should not error: %v", err)
	}
	// a different position is unaffected
	if err := p.Process(context.Background(), validRecord("p2")); err != nil {
		t.Fatalf("second position: %v", err)
	}

	if len(proc.recs) != 2 {
		t.Fatalf("downstream saw %d records, want 2", len(proc.recs))
	}
	if m.errCount("pipeline_throttle") != 1 {
		t.Fatalf("throttle count: %d", m.errCount("pipeline_throttle"))
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &fakeProc{fail: true}
	m := newFakeMetrics()
	p := NewArchivePipeline(proc, m, WithBufferSize(4))

	err := p.Process(context.Background(), validRecord("p1"))
	if err == nil {
		t.Fatal("expected downstream error")
	}
	if m.errCount("pipeline_process") != 1 {
		t.Fatalf("process errors: %d", m.errCount("pipeline_process"))
	}

	// buffered record is flushed once the downstream recovers
	proc.mu.Lock()
	proc.fail = false
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		proc.mu.Lock()
		n := len(proc.recs)
		proc.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("buffered record never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipelineStartStopIdempotent(t *testing.T) {
	p := NewArchivePipeline(&fakeProc{}, newFakeMetrics())
	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
