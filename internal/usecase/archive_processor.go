package usecase

import (
	"context"
	"fmt"
	"time"

	"ExitPulse/internal/domain/models"
	drepo "ExitPulse/internal/domain/repository"
)

// ArchiveProcessor routes emitted signal records to the configured backend.
type ArchiveProcessor struct {
	pub     drepo.Publisher
	archive drepo.Archive
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewArchiveProcessor creates a new ArchiveProcessor instance.
func NewArchiveProcessor(
	pub drepo.Publisher,
	archive drepo.Archive,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *ArchiveProcessor {
	return &ArchiveProcessor{
		pub:     pub,
		archive: archive,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single record to the configured backend.
func (p *ArchiveProcessor) Process(ctx context.Context, rec *models.SignalRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, rec)
	case "clickhouse":
		err = p.archive.Store(ctx, rec)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process record: %w", err)
	}

	p.metrics.RecordSignalEmitted(p.backend, rec.SignalType)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple records in a batch.
func (p *ArchiveProcessor) ProcessBatch(ctx context.Context, recs []*models.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, recs)
	case "clickhouse":
		err = p.archive.StoreBatch(ctx, recs)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, rec := range recs {
		p.metrics.RecordSignalEmitted(p.backend, rec.SignalType)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *ArchiveProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.archive != nil {
		_ = p.archive.Close()
	}
}
