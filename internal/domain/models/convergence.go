package models

// ConvergenceStrength classifies how strongly the layers agree.
type ConvergenceStrength string

const (
	ConvergenceWeak     ConvergenceStrength = "weak"
	ConvergenceModerate ConvergenceStrength = "moderate"
	ConvergenceStrong   ConvergenceStrength = "strong"
)

// DualLayerConvergence captures agreement between the asset-level and
// strategy-level percentile ranks, plus the optional third source pairings
// when both trade-history and equity-curve analyses exist.
type DualLayerConvergence struct {
	AssetPercentile    float64
	StrategyPercentile float64

	TradeHistoryPercentile *float64
	EquityCurvePercentile  *float64

	ConvergenceScore float64 // always within [0, 1]
	Strength         ConvergenceStrength

	AssetTradeConvergence  *float64
	AssetEquityConvergence *float64
	TradeEquityConvergence *float64
	TripleLayerConvergence *float64

	// SourceWeights values always sum to 1 (re-normalized on computation,
	// equal split when every raw weight is zero).
	SourceWeights            map[SourceKind]float64
	WeightedConvergenceScore float64 // always within [0, 1]

	TimeframeAgreement int
	TotalTimeframes    int
}
