package repository

import (
	"context"

	"ExitPulse/internal/domain/models"
)

// ReturnStore provides read-only access to historical series for the asset
// layer and both strategy-performance sources. Asset and trade series are
// already returns; the equity curve is raw equity values in chronological
// order, converted to returns by the caller.
type ReturnStore interface {
	AssetReturns(ctx context.Context, ticker string, tf Timeframe, limit int) ([]float64, error)
	TradeReturns(ctx context.Context, strategy, ticker string, tf Timeframe, limit int) ([]float64, error)
	EquityCurve(ctx context.Context, strategy, ticker string, tf Timeframe, limit int) ([]float64, error)
}

// Publisher emits signal records to a message backend.
type Publisher interface {
	Publish(ctx context.Context, rec *models.SignalRecord) error
	PublishBatch(ctx context.Context, recs []*models.SignalRecord) error
	Close() error
}

// Archive persists emitted signals and serves realized outcomes back to the
// threshold optimizer.
type Archive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, rec *models.SignalRecord) error
	StoreBatch(ctx context.Context, recs []*models.SignalRecord) error
	Outcomes(ctx context.Context, strategy string, limit int) ([]models.TradeOutcome, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordSignalEmitted(backend, signalType string)
	RecordError(kind string)
	RecordComposite(ticker string, score float64)
	RecordLatency(op string, seconds float64)
}
