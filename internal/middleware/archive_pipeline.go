package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ExitPulse/internal/domain/models"
	domrepo "ExitPulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, rec *models.SignalRecord) error
}

// ArchivePipeline sits between the signal generator and the archive backend.
// It validates, throttles repeated emits per position, and buffers when the
// downstream is unavailable.
type ArchivePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.SignalRecord
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-position last accepted time

	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*ArchivePipeline)

// WithMaxRPS sets the max records per second per position.
func WithMaxRPS(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewArchivePipeline creates a new pipeline.
func NewArchivePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ArchivePipeline {
	p := &ArchivePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per position
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.SignalRecord, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.SignalRecord, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(id string) { p.metrics.RecordError("pipeline_throttle_" + id) }
	return p
}

// Start launches background flushing of buffered records.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case rec := <-p.bufCh:
				if rec == nil {
					continue
				}
				if err := p.proc.Process(ctx, rec); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- rec:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ArchivePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards the record downstream,
// buffering on errors.
func (p *ArchivePipeline) Process(ctx context.Context, rec *models.SignalRecord) error {
	start := time.Now()
	if err := validateRecord(rec); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(rec.PositionID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(rec.PositionID)
		}
		return nil
	}

	if err := p.proc.Process(ctx, rec); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- rec:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateRecord(rec *models.SignalRecord) error {
	if rec == nil {
		return fmt.Errorf("record nil")
	}
	if rec.PositionID == "" {
		return fmt.Errorf("position id empty")
	}
	if rec.Ticker == "" {
		return fmt.Errorf("ticker empty")
	}
	if !models.SignalType(rec.SignalType).IsValid() {
		return fmt.Errorf("unknown signal type: %s", rec.SignalType)
	}
	if rec.Confidence < 0 || rec.Confidence > 100 {
		return fmt.Errorf("confidence out of range")
	}
	if rec.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at missing")
	}
	return nil
}

func (p *ArchivePipeline) allow(positionID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// at most maxRPS accepted records per second per position
	last := p.lastSeen[positionID]
	if last.IsZero() {
		p.lastSeen[positionID] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[positionID] = now
	return true
}
