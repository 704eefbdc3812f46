package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "ExitPulse/internal/domain/repository"
	"ExitPulse/internal/services/signal"
	applogger "ExitPulse/pkg/logger"
)

// OptimizeUseCase feeds realized trade outcomes back into the classifier
// thresholds.
type OptimizeUseCase struct {
	archive domrepo.Archive
	gen     *signal.Generator
	metrics domrepo.Metrics
	timeout time.Duration
	l       *applogger.Logger
}

func NewOptimizeUseCase(archive domrepo.Archive, gen *signal.Generator, metrics domrepo.Metrics) *OptimizeUseCase {
	return &OptimizeUseCase{archive: archive, gen: gen, metrics: metrics, timeout: 15 * time.Second}
}

// SetLogger injects a structured logger.
func (uc *OptimizeUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

type OptimizeResult struct {
	Strategy   string
	Outcomes   int
	Thresholds map[string]float64
}

// Optimize loads outcomes for the strategy and applies bounded threshold
// nudges. With zero outcomes the current thresholds come back unchanged.
func (uc *OptimizeUseCase) Optimize(ctx context.Context, strategy string, limit int) (*OptimizeResult, error) {
	if strategy == "" {
		return nil, fmt.Errorf("strategy required")
	}
	if limit <= 0 {
		limit = 500
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	outcomes, err := uc.archive.Outcomes(ctx, strategy, limit)
	if err != nil {
		uc.metrics.RecordError("optimize_outcomes")
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	updated := uc.gen.OptimizeThresholds(outcomes)
	uc.metrics.RecordLatency("optimize", time.Since(start).Seconds())
	if uc.l != nil {
		uc.l.Info("thresholds optimized",
			applogger.String("strategy", strategy),
			applogger.Int("outcomes", len(outcomes)),
			applogger.Float64("sell", updated[signal.ThresholdSell]),
			applogger.Float64("strong_sell", updated[signal.ThresholdStrongSell]),
			applogger.Float64("exit_immediately", updated[signal.ThresholdExitImmediately]),
		)
	}
	return &OptimizeResult{Strategy: strategy, Outcomes: len(outcomes), Thresholds: updated}, nil
}
