package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ExitPulse/internal/domain/models"
	domrepo "ExitPulse/internal/domain/repository"
	pkgkafka "ExitPulse/pkg/kafka"
	"ExitPulse/pkg/util"
)

// KafkaSignalsHandler consumes emitted signal records and writes them to the
// ClickHouse archive.
type KafkaSignalsHandler struct {
	topic   string
	archive domrepo.Archive
	metrics domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, archive domrepo.Archive, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

// incoming message schema: {position_id, ticker, strategy, signal, confidence,
// composite, at}, where at is RFC3339 or unix seconds as a string.
func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		PositionID string  `json:"position_id"`
		Ticker     string  `json:"ticker"`
		Strategy   string  `json:"strategy"`
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		Composite  float64 `json:"composite"`
		At         string  `json:"at"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	generatedAt := util.ParseTimeDefault(m.At, time.Now().UTC()).UTC()
	// E2E latency from emit time to now (approx)
	h.metrics.RecordLatency("archive_e2e_seconds", time.Since(generatedAt).Seconds())

	start := time.Now()
	err := h.archive.Store(ctx, &models.SignalRecord{
		PositionID:  m.PositionID,
		Ticker:      m.Ticker,
		Strategy:    m.Strategy,
		SignalType:  m.Signal,
		Confidence:  m.Confidence,
		Composite:   m.Composite,
		GeneratedAt: generatedAt,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSignalEmitted("clickhouse", m.Signal)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
