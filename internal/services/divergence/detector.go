package divergence

import (
	"ExitPulse/internal/domain/models"
	domsvc "ExitPulse/internal/domain/service"
)

// Detector applies the calculator to the asset layer and to each available
// strategy-performance source, producing one metrics value per source.
type Detector struct {
	calc domsvc.DivergenceDetector
}

func NewDetector(calc domsvc.DivergenceDetector) *Detector {
	if calc == nil {
		calc = NewCalculator()
	}
	return &Detector{calc: calc}
}

// DetectLayers evaluates value against the asset summary and each strategy
// source summary. Sources absent from the input are absent from the output.
func (d *Detector) DetectLayers(
	value float64,
	asset models.DistributionSummary,
	sources map[models.SourceKind]models.DistributionSummary,
) (models.DivergenceMetrics, map[models.SourceKind]models.DivergenceMetrics) {
	assetMetrics := d.calc.Detect(value, asset)

	out := make(map[models.SourceKind]models.DivergenceMetrics, len(sources))
	for kind, s := range sources {
		out[kind] = d.calc.Detect(value, s)
	}
	return assetMetrics, out
}

// StrategyPercentile picks the percentile rank representing the strategy
// layer: trade-history when present, equity-curve otherwise, neutral 50 when
// no source exists.
func StrategyPercentile(sources map[models.SourceKind]models.DivergenceMetrics) float64 {
	if m, ok := sources[models.SourceTradeHistory]; ok {
		return m.PercentileRank
	}
	if m, ok := sources[models.SourceEquityCurve]; ok {
		return m.PercentileRank
	}
	return 50
}
