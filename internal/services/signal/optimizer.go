package signal

import (
	"ExitPulse/internal/domain/models"
)

// Per-class mean-return bars and threshold floors for self-optimization.
var (
	optimizeBars = map[string]float64{
		ThresholdExitImmediately: 0.15,
		ThresholdStrongSell:      0.10,
		ThresholdSell:            0.05,
	}
	optimizeFloors = map[string]float64{
		ThresholdExitImmediately: 0.90,
		ThresholdStrongSell:      0.80,
		ThresholdSell:            0.65,
	}
)

const optimizeStep = 0.02

// OptimizeThresholds nudges a signal class's threshold down by one step when
// the mean realized return for that class clears its bar, bounded by the
// class floor. A simple hill-climb: it never raises a threshold and never
// moves one below its floor.
func OptimizeThresholds(current map[string]float64, outcomes []models.TradeOutcome) map[string]float64 {
	updated := make(map[string]float64, len(current))
	for k, v := range current {
		updated[k] = v
	}

	sums := map[models.SignalType]float64{}
	counts := map[models.SignalType]int{}
	for _, o := range outcomes {
		sums[o.SignalType] += o.RealizedReturn
		counts[o.SignalType]++
	}

	for key, sigType := range map[string]models.SignalType{
		ThresholdExitImmediately: models.SignalExitImmediately,
		ThresholdStrongSell:      models.SignalStrongSell,
		ThresholdSell:            models.SignalSell,
	} {
		n := counts[sigType]
		if n == 0 {
			continue
		}
		mean := sums[sigType] / float64(n)
		if mean <= optimizeBars[key] {
			continue
		}
		next := updated[key] - optimizeStep
		if floor := optimizeFloors[key]; next < floor {
			next = floor
		}
		if next < updated[key] {
			updated[key] = next
		}
	}
	return updated
}
