package divergence

import (
	"math"

	"ExitPulse/internal/domain/models"
	domsvc "ExitPulse/internal/domain/service"
)

// Calculator computes divergence metrics of a scalar value against one
// reference distribution summary. Pure arithmetic, no I/O.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Detect(value float64, s models.DistributionSummary) models.DivergenceMetrics {
	z := ZScore(value, s.Mean, s.Std)
	pr := PercentileRank(value, s.Percentiles.Anchors())
	isOutlier, method := classifyOutlier(z, pr, value, s.Percentiles)

	return models.DivergenceMetrics{
		Source:                  s.Source,
		ZScore:                  z,
		IQRPosition:             IQRPosition(value, s.Percentiles),
		PercentileRank:          pr,
		RarityScore:             RarityScore(z, pr),
		IsOutlier:               isOutlier,
		OutlierMethod:           method,
		ConsecutivePeriodsAbove: streakProxy(pr),
		Trend:                   trendFromSkew(s.Skewness),
	}
}

// ZScore returns (value-mean)/std, or 0 when the variance is undefined.
func ZScore(value, mean, std float64) float64 {
	if std == 0 || !isFinite(value) || !isFinite(mean) || !isFinite(std) {
		return 0
	}
	return (value - mean) / std
}

// IQRPosition places value relative to the interquartile range: negative
// below p25, positive above p75, normalized into [-0.5, 0.5] inside the box.
// Returns 0 when the IQR collapses.
func IQRPosition(value float64, l models.PercentileLadder) float64 {
	iqr := l.IQR()
	if iqr == 0 || !isFinite(value) {
		return 0
	}
	switch {
	case value < l.P25:
		return (value - l.P25) / iqr
	case value > l.P75:
		return (value - l.P75) / iqr
	default:
		mid := (l.P25 + l.P75) / 2
		return (value - mid) / iqr
	}
}

// PercentileRank interpolates the empirical percentile-of-score position of
// value between the known anchors. Out-of-range values clamp to the nearest
// anchor; the result always lands in [1, 99]. Non-finite input or an empty
// anchor set yields the neutral 50.
func PercentileRank(value float64, anchors []models.PercentileAnchor) float64 {
	if !isFinite(value) {
		return 50
	}
	usable := anchors[:0:0]
	for _, a := range anchors {
		if isFinite(a.Value) && isFinite(a.Pct) {
			usable = append(usable, a)
		}
	}
	if len(usable) == 0 {
		return 50
	}
	if value <= usable[0].Value {
		return clampRank(usable[0].Pct)
	}
	last := usable[len(usable)-1]
	if value >= last.Value {
		return clampRank(last.Pct)
	}
	for i := 1; i < len(usable); i++ {
		lo, hi := usable[i-1], usable[i]
		if value > hi.Value {
			continue
		}
		if hi.Value == lo.Value {
			return clampRank(lo.Pct)
		}
		frac := (value - lo.Value) / (hi.Value - lo.Value)
		return clampRank(lo.Pct + frac*(hi.Pct-lo.Pct))
	}
	return clampRank(last.Pct)
}

// RarityScore blends the parametric z-score extremity with the non-parametric
// percentile extremity so rarity stays robust on non-normal distributions.
func RarityScore(z, percentileRank float64) float64 {
	score := 0.6*math.Min(math.Abs(z)/3, 1) + 0.4*(math.Abs(percentileRank-50)/50)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// classifyOutlier runs three independent tests in priority order and returns
// the first method that flags the value.
func classifyOutlier(z, percentileRank, value float64, l models.PercentileLadder) (bool, models.OutlierMethod) {
	if math.Abs(z) > 2.0 {
		return true, models.OutlierZScore
	}
	iqr := l.IQR()
	if iqr > 0 && (value < l.P25-1.5*iqr || value > l.P75+1.5*iqr) {
		return true, models.OutlierIQR
	}
	if percentileRank > 95 || percentileRank < 5 {
		return true, models.OutlierPercentile
	}
	return false, models.OutlierNone
}

func trendFromSkew(skew float64) models.TrendDirection {
	switch {
	case skew > 0.5:
		return models.TrendUp
	case skew < -0.5:
		return models.TrendDown
	default:
		return models.TrendNeutral
	}
}

// streakProxy maps the current percentile rank to a coarse persistence count.
// Not a true historical streak; kept as the documented approximation.
func streakProxy(percentileRank float64) int {
	switch {
	case percentileRank > 90:
		return 3
	case percentileRank > 80:
		return 2
	case percentileRank > 70:
		return 1
	default:
		return 0
	}
}

func clampRank(p float64) float64 {
	if p < 1 {
		return 1
	}
	if p > 99 {
		return 99
	}
	return p
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var _ domsvc.DivergenceDetector = (*Calculator)(nil)
