package signal

import (
	"context"
	"fmt"
	"sync"

	"ExitPulse/internal/domain/models"
	domsvc "ExitPulse/internal/domain/service"
	svcdiv "ExitPulse/internal/services/divergence"
	applogger "ExitPulse/pkg/logger"
)

// EvaluationInput bundles everything one position evaluation needs. All
// summaries are immutable; the generator only reads them.
type EvaluationInput struct {
	Position  models.PositionState
	Asset     models.DistributionSummary
	Sources   map[models.SourceKind]models.DistributionSummary
	TFSamples map[string]int
	Overrides map[string]float64
}

// Generator orchestrates one evaluation: divergence per layer, cross-layer
// convergence, then classification. Stateless across positions; the bounded
// history is the only persisted state and is never read back into scoring.
type Generator struct {
	detector   *svcdiv.Detector
	analyzer   domsvc.ConvergenceAnalyzer
	classifier *Classifier
	history    *History
	l          *applogger.Logger
}

func NewGenerator(detector *svcdiv.Detector, analyzer domsvc.ConvergenceAnalyzer, classifier *Classifier, historyCap int) *Generator {
	return &Generator{
		detector:   detector,
		analyzer:   analyzer,
		classifier: classifier,
		history:    NewHistory(historyCap),
	}
}

// SetLogger injects a structured logger.
func (g *Generator) SetLogger(l *applogger.Logger) { g.l = l }

// Classifier exposes the underlying classifier for threshold management.
func (g *Generator) Classifier() *Classifier { return g.classifier }

// Evaluate runs a single position through the fixed asset -> strategy ->
// convergence -> signal order and records the result in the history.
func (g *Generator) Evaluate(in EvaluationInput) (*models.ExitSignal, error) {
	sig, err := g.evaluate(in)
	if err != nil {
		return nil, err
	}
	g.history.Append(*sig)
	return sig, nil
}

func (g *Generator) evaluate(in EvaluationInput) (*models.ExitSignal, error) {
	if in.Asset.Count == 0 {
		return nil, fmt.Errorf("position %s: no asset analysis available", in.Position.PositionID)
	}

	// Layer order is fixed: convergence needs both layers' completed ranks.
	value := in.Position.UnrealizedPnLPct
	assetMetrics, sourceMetrics := g.detector.DetectLayers(value, in.Asset, in.Sources)
	conv := g.analyzer.Analyze(assetMetrics, sourceMetrics, in.Sources, in.TFSamples)
	sig := g.classifier.Classify(conv, in.Position, in.Overrides)
	return &sig, nil
}

// EvaluateBatch fans out one goroutine per position and always returns a
// complete map over the requested ids. A failed or panicking evaluation
// yields a nil entry; it never aborts the sweep or its siblings. History is
// appended only after every task has completed.
func (g *Generator) EvaluateBatch(ctx context.Context, inputs map[string]EvaluationInput) map[string]*models.ExitSignal {
	results := make(map[string]*models.ExitSignal, len(inputs))
	for id := range inputs {
		results[id] = nil
	}

	type item struct {
		id  string
		sig *models.ExitSignal
	}
	ch := make(chan item, len(inputs))
	var wg sync.WaitGroup

	for id, in := range inputs {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		go func(id string, in EvaluationInput) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					if g.l != nil {
						g.l.Error("evaluation panic", applogger.String("position_id", id), applogger.Any("panic", r))
					}
					ch <- item{id: id}
				}
			}()
			sig, err := g.evaluate(in)
			if err != nil {
				if g.l != nil {
					g.l.Warn("evaluation failed", applogger.String("position_id", id), applogger.Error(err))
				}
				ch <- item{id: id}
				return
			}
			ch <- item{id: id, sig: sig}
		}(id, in)
	}

	go func() { wg.Wait(); close(ch) }()

	emitted := make([]models.ExitSignal, 0, len(inputs))
	for it := range ch {
		results[it.id] = it.sig
		if it.sig != nil {
			emitted = append(emitted, *it.sig)
		}
	}
	g.history.Append(emitted...)
	return results
}

// Statistics reports aggregates over the rolling signal history.
func (g *Generator) Statistics() models.SignalStatistics {
	return g.history.Statistics()
}

// OptimizeThresholds applies outcome-driven threshold nudges to the
// classifier and returns the updated map.
func (g *Generator) OptimizeThresholds(outcomes []models.TradeOutcome) map[string]float64 {
	updated := OptimizeThresholds(g.classifier.Thresholds(), outcomes)
	g.classifier.SetThresholds(updated)
	return updated
}
