package models

// OutlierMethod names the first test that flagged a value as an outlier.
type OutlierMethod string

const (
	OutlierZScore     OutlierMethod = "z_score"
	OutlierIQR        OutlierMethod = "iqr"
	OutlierPercentile OutlierMethod = "percentile"
	OutlierNone       OutlierMethod = "none"
)

// TrendDirection is a coarse read of the reference distribution's skew.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// DivergenceMetrics describes how far a single value sits from one reference
// distribution. Created fresh per evaluation, never mutated afterwards.
type DivergenceMetrics struct {
	Source SourceKind

	ZScore         float64
	IQRPosition    float64
	PercentileRank float64 // always within [1, 99]
	RarityScore    float64 // always within [0, 1]

	IsOutlier     bool
	OutlierMethod OutlierMethod

	// Proxy streak derived from the current percentile rank, not a true
	// historical streak. See the divergence calculator for the mapping.
	ConsecutivePeriodsAbove int

	Trend TrendDirection
}
