package stats

import (
	"math"
	"math/rand"
	"sort"

	"ExitPulse/internal/domain/models"
	domsvc "ExitPulse/internal/domain/service"
)

// bootstrapResamples bounds the per-summary resampling cost; summaries are
// cached so the CI is not recomputed per evaluation.
const bootstrapResamples = 500

// Analyzer turns a raw return sample into an immutable distribution summary.
type Analyzer struct {
	ticker           string
	strategy         string
	timeframe        string
	minSamples       int
	preferredSamples int
	rng              *rand.Rand
}

// NewAnalyzer creates a summary analyzer tagged with the series identity.
func NewAnalyzer(ticker, strategy, timeframe string, minSamples, preferredSamples int) *Analyzer {
	if minSamples <= 0 {
		minSamples = 30
	}
	if preferredSamples < minSamples {
		preferredSamples = 100
	}
	return &Analyzer{
		ticker:           ticker,
		strategy:         strategy,
		timeframe:        timeframe,
		minSamples:       minSamples,
		preferredSamples: preferredSamples,
	}
}

// WithRNG enables the bootstrap mean confidence interval. The caller owns
// the RNG so summaries are reproducible under a fixed seed.
func (a *Analyzer) WithRNG(rng *rand.Rand) *Analyzer {
	a.rng = rng
	return a
}

// Summarize computes the full summary for one sample. The second return is
// false when the sample is empty after dropping non-finite values.
func (a *Analyzer) Summarize(sample []float64, source models.SourceKind) (models.DistributionSummary, bool) {
	clean := make([]float64, 0, len(sample))
	for _, v := range sample {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return models.DistributionSummary{}, false
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	mean := Mean(sorted)
	std := StdDev(sorted, mean)

	s := models.DistributionSummary{
		Ticker:    a.ticker,
		Strategy:  a.strategy,
		Timeframe: a.timeframe,
		Source:    source,
		Mean:      mean,
		Median:    Percentile(sorted, 50),
		Std:       std,
		Min:       sorted[0],
		Max:       sorted[len(sorted)-1],
		Skewness:  skewness(sorted, mean, std),
		Kurtosis:  kurtosis(sorted, mean, std),
		Count:     len(sorted),
		Percentiles: models.PercentileLadder{
			P5:  Percentile(sorted, 5),
			P10: Percentile(sorted, 10),
			P25: Percentile(sorted, 25),
			P50: Percentile(sorted, 50),
			P75: Percentile(sorted, 75),
			P90: Percentile(sorted, 90),
			P95: Percentile(sorted, 95),
			P99: Percentile(sorted, 99),
		},
		Confidence: a.confidence(len(sorted)),
	}

	// Tail risk, reported as positive losses.
	s.VaR95 = -Percentile(sorted, 5)
	s.VaR99 = -Percentile(sorted, 1)
	s.CVaR95 = -tailMean(sorted, 0.05)
	s.CVaR99 = -tailMean(sorted, 0.01)

	if a.rng != nil {
		if ci, ok := BootstrapMeanCI(sorted, bootstrapResamples, 0.95, a.rng); ok {
			s.MeanCI = &ci
		}
	}
	return s, true
}

func (a *Analyzer) confidence(count int) models.ConfidenceLevel {
	switch {
	case count >= a.preferredSamples:
		return models.ConfidenceHigh
	case count >= a.minSamples:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Mean of a non-empty slice.
func Mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the sample standard deviation (n-1 denominator).
func StdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)-1))
}

// Percentile computes the pct-th percentile of a sorted sample with linear
// interpolation between adjacent order statistics.
func Percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func skewness(sorted []float64, mean, std float64) float64 {
	if std == 0 || len(sorted) < 3 {
		return 0
	}
	sum3 := 0.0
	for _, x := range sorted {
		d := (x - mean) / std
		sum3 += d * d * d
	}
	return sum3 / float64(len(sorted))
}

// kurtosis returns excess kurtosis (normal distribution -> 0).
func kurtosis(sorted []float64, mean, std float64) float64 {
	if std == 0 || len(sorted) < 4 {
		return 0
	}
	sum4 := 0.0
	for _, x := range sorted {
		d := (x - mean) / std
		sum4 += d * d * d * d
	}
	return sum4/float64(len(sorted)) - 3
}

// tailMean averages the worst alpha fraction of the sorted sample.
func tailMean(sorted []float64, alpha float64) float64 {
	k := int(math.Ceil(alpha * float64(len(sorted))))
	if k < 1 {
		k = 1
	}
	if k > len(sorted) {
		k = len(sorted)
	}
	return Mean(sorted[:k])
}

var _ domsvc.SummaryAnalyzer = (*Analyzer)(nil)
