package signal

import (
	"math"
	"testing"

	"ExitPulse/internal/domain/models"
)

func outcomes(sig models.SignalType, returns ...float64) []models.TradeOutcome {
	out := make([]models.TradeOutcome, 0, len(returns))
	for _, r := range returns {
		out = append(out, models.TradeOutcome{SignalType: sig, RealizedReturn: r})
	}
	return out
}

func TestOptimizeNoOutcomes(t *testing.T) {
	got := OptimizeThresholds(DefaultThresholds(), nil)
	for k, v := range DefaultThresholds() {
		if got[k] != v {
			t.Fatalf("%s moved without evidence: %v", k, got[k])
		}
	}
}

func TestOptimizeLowersOnGoodOutcomes(t *testing.T) {
	got := OptimizeThresholds(DefaultThresholds(), outcomes(models.SignalSell, 0.08, 0.06, 0.07))
	if math.Abs(got[ThresholdSell]-0.68) > 1e-9 {
		t.Fatalf("sell threshold: want 0.68 got %v", got[ThresholdSell])
	}
	if got[ThresholdStrongSell] != 0.85 || got[ThresholdExitImmediately] != 0.95 {
		t.Fatalf("other classes moved: %v", got)
	}
}

func TestOptimizeRespectsFloor(t *testing.T) {
	current := map[string]float64{
		ThresholdExitImmediately: 0.95,
		ThresholdStrongSell:      0.81,
		ThresholdSell:            0.70,
	}
	got := OptimizeThresholds(current, outcomes(models.SignalStrongSell, 0.20, 0.15))
	if got[ThresholdStrongSell] != 0.80 {
		t.Fatalf("floor not applied: %v", got[ThresholdStrongSell])
	}

	// already at the floor: no movement
	current[ThresholdStrongSell] = 0.80
	got = OptimizeThresholds(current, outcomes(models.SignalStrongSell, 0.20, 0.15))
	if got[ThresholdStrongSell] != 0.80 {
		t.Fatalf("threshold moved below floor: %v", got[ThresholdStrongSell])
	}
}

func TestOptimizeNeverRaises(t *testing.T) {
	got := OptimizeThresholds(DefaultThresholds(), outcomes(models.SignalExitImmediately, -0.30, -0.25))
	if got[ThresholdExitImmediately] != 0.95 {
		t.Fatalf("losing outcomes should leave threshold alone, got %v", got[ThresholdExitImmediately])
	}
}

func TestOptimizeMeanAtBarDoesNotMove(t *testing.T) {
	got := OptimizeThresholds(DefaultThresholds(), outcomes(models.SignalSell, 0.05, 0.05))
	if got[ThresholdSell] != 0.70 {
		t.Fatalf("mean exactly at bar should not move threshold, got %v", got[ThresholdSell])
	}
}

func TestOptimizeIgnoresHoldOutcomes(t *testing.T) {
	got := OptimizeThresholds(DefaultThresholds(), outcomes(models.SignalHold, 0.50, 0.40))
	for k, v := range DefaultThresholds() {
		if got[k] != v {
			t.Fatalf("%s moved on HOLD outcomes: %v", k, got[k])
		}
	}
}
