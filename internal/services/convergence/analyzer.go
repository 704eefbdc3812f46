package convergence

import (
	"math"

	"ExitPulse/internal/domain/models"
	domsvc "ExitPulse/internal/domain/service"
	svcdiv "ExitPulse/internal/services/divergence"
)

// Base weight caps per source. The asset layer is the most independent
// reference, trade-history the richest strategy source.
const (
	capAsset        = 0.3
	capTradeHistory = 0.4
	capEquityCurve  = 0.3
)

// Triple-layer pairwise weights.
const (
	wAssetTrade  = 0.4
	wAssetEquity = 0.3
	wTradeEquity = 0.3
)

// Analyzer combines per-layer percentile ranks into pairwise and aggregate
// convergence scores.
type Analyzer struct {
	minSamples       int
	preferredSamples int
}

func NewAnalyzer(minSamples, preferredSamples int) *Analyzer {
	if minSamples <= 0 {
		minSamples = 30
	}
	if preferredSamples < minSamples {
		preferredSamples = minSamples
	}
	return &Analyzer{minSamples: minSamples, preferredSamples: preferredSamples}
}

// Pairwise is the symmetric agreement between two percentile ranks: one at
// perfect agreement, zero at a full 100-point spread.
func Pairwise(pA, pB float64) float64 {
	return math.Max(0, 1-math.Abs(pA-pB)/100)
}

// Strength classifies a convergence score.
func Strength(score float64) models.ConvergenceStrength {
	switch {
	case score >= 0.85:
		return models.ConvergenceStrong
	case score >= 0.70:
		return models.ConvergenceModerate
	default:
		return models.ConvergenceWeak
	}
}

func (a *Analyzer) Analyze(
	asset models.DivergenceMetrics,
	sources map[models.SourceKind]models.DivergenceMetrics,
	summaries map[models.SourceKind]models.DistributionSummary,
	tfSamples map[string]int,
) models.DualLayerConvergence {
	strategyPct := svcdiv.StrategyPercentile(sources)
	base := Pairwise(asset.PercentileRank, strategyPct)

	conv := models.DualLayerConvergence{
		AssetPercentile:          asset.PercentileRank,
		StrategyPercentile:       strategyPct,
		ConvergenceScore:         base,
		Strength:                 Strength(base),
		WeightedConvergenceScore: base,
	}

	trade, hasTrade := sources[models.SourceTradeHistory]
	equity, hasEquity := sources[models.SourceEquityCurve]
	if hasTrade {
		conv.TradeHistoryPercentile = ptr(trade.PercentileRank)
	}
	if hasEquity {
		conv.EquityCurvePercentile = ptr(equity.PercentileRank)
	}

	conv.SourceWeights = a.sourceWeights(sources, summaries)

	if hasTrade && hasEquity {
		at := Pairwise(asset.PercentileRank, trade.PercentileRank)
		ae := Pairwise(asset.PercentileRank, equity.PercentileRank)
		te := Pairwise(trade.PercentileRank, equity.PercentileRank)
		triple := wAssetTrade*at + wAssetEquity*ae + wTradeEquity*te

		conv.AssetTradeConvergence = ptr(at)
		conv.AssetEquityConvergence = ptr(ae)
		conv.TradeEquityConvergence = ptr(te)
		conv.TripleLayerConvergence = ptr(triple)

		conv.WeightedConvergenceScore = a.weightedScore(base, at, ae, te, conv.SourceWeights)
	}

	conv.TimeframeAgreement, conv.TotalTimeframes = a.timeframeAgreement(tfSamples)
	return conv
}

// sourceWeights derives reliability weights from sample adequacy and source
// confidence, normalized to sum to one. Everything-zero falls back to an
// equal split across the available sources.
func (a *Analyzer) sourceWeights(
	sources map[models.SourceKind]models.DivergenceMetrics,
	summaries map[models.SourceKind]models.DistributionSummary,
) map[models.SourceKind]float64 {
	weights := make(map[models.SourceKind]float64, 3)
	weights[models.SourceAsset] = capAsset * a.reliability(summaries, models.SourceAsset)
	if _, ok := sources[models.SourceTradeHistory]; ok {
		weights[models.SourceTradeHistory] = capTradeHistory * a.reliability(summaries, models.SourceTradeHistory)
	}
	if _, ok := sources[models.SourceEquityCurve]; ok {
		weights[models.SourceEquityCurve] = capEquityCurve * a.reliability(summaries, models.SourceEquityCurve)
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		equal := 1.0 / float64(len(weights))
		for k := range weights {
			weights[k] = equal
		}
		return weights
	}
	for k, w := range weights {
		weights[k] = w / total
	}
	return weights
}

// reliability is sample adequacy times a confidence factor for one source.
func (a *Analyzer) reliability(summaries map[models.SourceKind]models.DistributionSummary, kind models.SourceKind) float64 {
	s, ok := summaries[kind]
	if !ok {
		return 1
	}
	adequacy := math.Min(float64(s.Count)/float64(a.preferredSamples), 1)
	return adequacy * confidenceFactor(s.Confidence)
}

func confidenceFactor(c models.ConfidenceLevel) float64 {
	switch c {
	case models.ConfidenceHigh:
		return 1.0
	case models.ConfidenceMedium:
		return 0.7
	case models.ConfidenceLow:
		return 0.4
	default:
		return 0.7
	}
}

// weightedScore recombines the three pairwise convergences using the summed
// weight of each pair, then damps against the unweighted base so one noisy
// source cannot dominate.
func (a *Analyzer) weightedScore(base, at, ae, te float64, weights map[models.SourceKind]float64) float64 {
	wa := weights[models.SourceAsset]
	wt := weights[models.SourceTradeHistory]
	we := weights[models.SourceEquityCurve]

	pairTotal := (wa + wt) + (wa + we) + (wt + we)
	if pairTotal <= 0 {
		return clamp01(base)
	}
	weighted := (at*(wa+wt) + ae*(wa+we) + te*(wt+we)) / pairTotal
	return clamp01(0.6*base + 0.4*weighted)
}

// timeframeAgreement counts configured timeframes whose sample counts clear
// the minimum threshold.
func (a *Analyzer) timeframeAgreement(tfSamples map[string]int) (agree, total int) {
	for _, n := range tfSamples {
		total++
		if n >= a.minSamples {
			agree++
		}
	}
	return agree, total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func ptr(v float64) *float64 { return &v }

var _ domsvc.ConvergenceAnalyzer = (*Analyzer)(nil)
