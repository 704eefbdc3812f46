package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ExitPulse/internal/domain/models"
	"ExitPulse/internal/domain/repository"
	pkgkafka "ExitPulse/pkg/kafka"
)

// ClickHouseArchive implements Archive for ClickHouse.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates ClickHouse-backed signal archive.
func NewClickHouseArchive(db *sql.DB, table string) repository.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (s *ClickHouseArchive) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseArchive) Store(ctx context.Context, rec *models.SignalRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (generated_at, position_id, ticker, strategy, signal_type, confidence, composite) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.GeneratedAt,
		rec.PositionID,
		rec.Ticker,
		rec.Strategy,
		rec.SignalType,
		rec.Confidence,
		rec.Composite,
	)
	return err
}

func (s *ClickHouseArchive) StoreBatch(ctx context.Context, recs []*models.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips, chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, rec := range recs[start:end] {
			if rec == nil || rec.PositionID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				rec.GeneratedAt,
				rec.PositionID,
				rec.Ticker,
				rec.Strategy,
				rec.SignalType,
				rec.Confidence,
				rec.Composite,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (generated_at, position_id, ticker, strategy, signal_type, confidence, composite) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseArchive) Outcomes(ctx context.Context, strategy string, limit int) ([]models.TradeOutcome, error) {
	// Signals joined against realized trade results on position id. A signal
	// whose position has not closed yet has no row here.
	q := fmt.Sprintf(`
        SELECT sig.signal_type, tr.realized_return
        FROM %s AS sig
        INNER JOIN exitpulse.trade_returns AS tr ON tr.position_id = sig.position_id
        WHERE sig.strategy = ?
        ORDER BY sig.generated_at DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, strategy, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradeOutcome
	for rows.Next() {
		var (
			st  string
			ret float64
		)
		if err := rows.Scan(&st, &ret); err != nil {
			return nil, err
		}
		o := models.TradeOutcome{SignalType: models.SignalType(st), RealizedReturn: ret}
		if !o.SignalType.IsValid() {
			continue
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *ClickHouseArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}

// KafkaSignalPublisher implements Publisher for Kafka.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, rec *models.SignalRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.PositionID), recordPayload(rec))
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, recs []*models.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(rec.PositionID),
			Value: recordPayload(rec),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func recordPayload(rec *models.SignalRecord) map[string]interface{} {
	return map[string]interface{}{
		"position_id": rec.PositionID,
		"ticker":      rec.Ticker,
		"strategy":    rec.Strategy,
		"signal":      rec.SignalType,
		"confidence":  rec.Confidence,
		"composite":   rec.Composite,
		"at":          rec.GeneratedAt.UTC().Format(time.RFC3339Nano),
	}
}
