package stats

import (
	"math"
	"math/rand"
	"sort"

	"ExitPulse/internal/domain/models"
)

// BootstrapMeanCI estimates a confidence interval for the sample mean by
// resampling with replacement. The caller owns the RNG so runs are
// reproducible under a fixed seed.
func BootstrapMeanCI(sample []float64, resamples int, level float64, rng *rand.Rand) (models.BootstrapInterval, bool) {
	if len(sample) == 0 || rng == nil {
		return models.BootstrapInterval{}, false
	}
	if resamples <= 0 {
		resamples = 1000
	}
	if level <= 0 || level >= 1 {
		level = 0.95
	}

	means := make([]float64, resamples)
	for i := 0; i < resamples; i++ {
		sum := 0.0
		for j := 0; j < len(sample); j++ {
			sum += sample[rng.Intn(len(sample))]
		}
		means[i] = sum / float64(len(sample))
	}
	sort.Float64s(means)

	alpha := (1 - level) / 2
	return models.BootstrapInterval{
		Level:      level,
		Lower:      Percentile(means, alpha*100),
		Upper:      Percentile(means, (1-alpha)*100),
		Resamples:  resamples,
		SampleSize: len(sample),
	}, true
}

// LogReturns converts a positive price or equity series into log returns.
// Non-positive points break the chain and are skipped.
func LogReturns(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		r := math.Log(cur / prev)
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			out = append(out, r)
		}
	}
	return out
}
