package service

import (
	"ExitPulse/internal/domain/models"
)

// DivergenceDetector measures how far a value sits from a reference distribution.
type DivergenceDetector interface {
	Detect(value float64, summary models.DistributionSummary) models.DivergenceMetrics
}

// ConvergenceAnalyzer combines per-layer divergence metrics into a
// cross-layer agreement score.
type ConvergenceAnalyzer interface {
	Analyze(asset models.DivergenceMetrics, sources map[models.SourceKind]models.DivergenceMetrics,
		summaries map[models.SourceKind]models.DistributionSummary, tfSamples map[string]int) models.DualLayerConvergence
}

// SignalClassifier maps convergence plus position factors to a discrete signal.
type SignalClassifier interface {
	Classify(conv models.DualLayerConvergence, pos models.PositionState,
		overrides map[string]float64) models.ExitSignal
}

// SummaryAnalyzer builds a distribution summary from one raw return sample.
type SummaryAnalyzer interface {
	Summarize(sample []float64, source models.SourceKind) (models.DistributionSummary, bool)
}
