package signal

import (
	"math"
	"strings"
	"sync"
	"testing"

	"ExitPulse/internal/domain/models"
)

func convWith(weighted, assetPct, strategyPct float64) models.DualLayerConvergence {
	return models.DualLayerConvergence{
		AssetPercentile:          assetPct,
		StrategyPercentile:       strategyPct,
		ConvergenceScore:         weighted,
		WeightedConvergenceScore: weighted,
	}
}

func TestClassifyOrderedThresholds(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		composite float64
		want      models.SignalType
	}{
		{0.96, models.SignalExitImmediately},
		{0.95, models.SignalExitImmediately},
		{0.94, models.SignalStrongSell},
		{0.85, models.SignalStrongSell},
		{0.84, models.SignalSell},
		{0.70, models.SignalSell},
		{0.69, models.SignalHold},
		{0.0, models.SignalHold},
	}
	for _, c := range cases {
		if got := classify(c.composite, th); got != c.want {
			t.Fatalf("composite %v: want %v got %v", c.composite, c.want, got)
		}
	}
}

func TestClassifyExitImmediately(t *testing.T) {
	c := NewClassifier(nil)
	pos := models.PositionState{
		PositionID: "p1", Ticker: "AAPL", Strategy: "momo",
		UnrealizedPnLPct: 0.25, MFE: 0.25, MAE: -0.15, DaysHeld: 60,
	}
	sig := c.Classify(convWith(1.0, 99, 99), pos, nil)
	if sig.Type != models.SignalExitImmediately {
		t.Fatalf("expected EXIT_IMMEDIATELY, got %v", sig.Type)
	}
	if sig.Confidence < 95 || sig.Confidence > 100 {
		t.Fatalf("confidence out of range: %v", sig.Confidence)
	}
	if sig.TargetTimeframe != "within current session" {
		t.Fatalf("unexpected target %q", sig.TargetTimeframe)
	}
	if sig.ContributingScores["composite"] < 0.95 {
		t.Fatalf("composite too low: %v", sig.ContributingScores["composite"])
	}
}

func TestClassifyHoldWithCaution(t *testing.T) {
	c := NewClassifier(nil)
	pos := models.PositionState{PositionID: "p2", Ticker: "MSFT", Strategy: "momo"}
	sig := c.Classify(convWith(0.55, 80, 50), pos, nil)
	if sig.Type != models.SignalHold {
		t.Fatalf("expected HOLD, got %v", sig.Type)
	}
	if !strings.Contains(sig.Recommendation, "strength") {
		t.Fatalf("expected caution recommendation, got %q", sig.Recommendation)
	}
	if sig.TargetTimeframe != "monitor daily" {
		t.Fatalf("unexpected target %q", sig.TargetTimeframe)
	}
}

func TestClassifyHoldQuiet(t *testing.T) {
	c := NewClassifier(nil)
	pos := models.PositionState{PositionID: "p3", Ticker: "MSFT", Strategy: "momo"}
	sig := c.Classify(convWith(0.3, 40, 45), pos, nil)
	if sig.Type != models.SignalHold {
		t.Fatalf("expected HOLD, got %v", sig.Type)
	}
	if sig.TargetTimeframe != "no action required" {
		t.Fatalf("unexpected target %q", sig.TargetTimeframe)
	}
}

func TestOverridesMergeKnownKeysOnly(t *testing.T) {
	c := NewClassifier(nil)
	pos := models.PositionState{PositionID: "p4", Ticker: "NVDA", Strategy: "momo"}
	conv := convWith(0.55, 60, 55)

	base := c.Classify(conv, pos, nil)
	if base.Type != models.SignalHold {
		t.Fatalf("baseline should hold, got %v", base.Type)
	}

	lowered := c.Classify(conv, pos, map[string]float64{"sell": 0.30, "bogus": 0.01})
	if lowered.Type != models.SignalSell {
		t.Fatalf("lowered sell bar should fire, got %v", lowered.Type)
	}

	// overrides are per-call; stored thresholds stay untouched
	if got := c.Thresholds()[ThresholdSell]; got != 0.70 {
		t.Fatalf("stored threshold mutated to %v", got)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := NewClassifier(nil)
	pos := models.PositionState{PositionID: "p5", Ticker: "TSLA", Strategy: "momo", UnrealizedPnLPct: 0.08, MFE: 0.1, DaysHeld: 12}
	conv := convWith(0.9, 92, 88)

	a := c.Classify(conv, pos, nil)
	b := c.Classify(conv, pos, nil)
	if a.Type != b.Type || a.Confidence != b.Confidence {
		t.Fatalf("classification not deterministic: %v/%v vs %v/%v", a.Type, a.Confidence, b.Type, b.Confidence)
	}
}

func TestPositionAdjustment(t *testing.T) {
	got := positionAdjustment(models.PositionState{
		UnrealizedPnLPct: 0.10,  // half of full profit
		MFE:              0.20,  // half captured
		DaysHeld:         15,    // half duration
		MAE:              -0.05, // half of full drawdown
	})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", got)
	}

	if got := positionAdjustment(models.PositionState{}); got != 0 {
		t.Fatalf("flat position: got %v", got)
	}
	full := positionAdjustment(models.PositionState{
		UnrealizedPnLPct: 1, MFE: 0.5, DaysHeld: 365, MAE: -1,
	})
	if math.Abs(full-1.0) > 1e-9 {
		t.Fatalf("saturated position: got %v", full)
	}
}

func TestSetThresholdsIgnoresUnknownKeys(t *testing.T) {
	c := NewClassifier(nil)
	c.SetThresholds(map[string]float64{ThresholdSell: 0.66, "mystery": 0.1})
	th := c.Thresholds()
	if th[ThresholdSell] != 0.66 {
		t.Fatalf("known key not updated: %v", th)
	}
	if _, ok := th["mystery"]; ok {
		t.Fatalf("unknown key leaked in: %v", th)
	}
}

func TestConcurrentClassifyAndSetThresholds(t *testing.T) {
	c := NewClassifier(nil)
	conv := convWith(0.9, 88, 86)
	pos := models.PositionState{PositionID: "p1", Ticker: "AAPL", Strategy: "momo"}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c.SetThresholds(map[string]float64{ThresholdSell: 0.65 + float64(i%5)*0.01})
		}
	}()

	for i := 0; i < 2000; i++ {
		sig := c.Classify(conv, pos, nil)
		if sig.Type == "" {
			t.Fatalf("iteration %d: empty signal type", i)
		}
		if th := c.Thresholds(); th[ThresholdExitImmediately] != 0.95 {
			t.Fatalf("iteration %d: untouched key drifted: %v", i, th)
		}
	}
	close(stop)
	wg.Wait()
}
