package signal

import (
	"context"
	"testing"

	"ExitPulse/internal/domain/models"
	"ExitPulse/internal/services/convergence"
	"ExitPulse/internal/services/divergence"
)

func testSummary(source models.SourceKind, count int) models.DistributionSummary {
	return models.DistributionSummary{
		Ticker:    "AAPL",
		Timeframe: "1d",
		Source:    source,
		Mean:      0.01,
		Median:    0.008,
		Std:       0.02,
		Min:       -0.06,
		Max:       0.09,
		Count:     count,
		Percentiles: models.PercentileLadder{
			P5: -0.025, P10: -0.015, P25: -0.005, P50: 0.008,
			P75: 0.022, P90: 0.035, P95: 0.045, P99: 0.07,
		},
		Confidence: models.ConfidenceHigh,
	}
}

func testGenerator() *Generator {
	return NewGenerator(
		divergence.NewDetector(nil),
		convergence.NewAnalyzer(30, 100),
		NewClassifier(nil),
		10,
	)
}

func testInput(positionID string, pnl float64) EvaluationInput {
	return EvaluationInput{
		Position: models.PositionState{
			PositionID: positionID, Ticker: "AAPL", Strategy: "momo",
			UnrealizedPnLPct: pnl, MFE: pnl, DaysHeld: 10,
		},
		Asset: testSummary(models.SourceAsset, 500),
		Sources: map[models.SourceKind]models.DistributionSummary{
			models.SourceTradeHistory: testSummary(models.SourceTradeHistory, 120),
			models.SourceEquityCurve:  testSummary(models.SourceEquityCurve, 200),
		},
		TFSamples: map[string]int{"1d": 500, "1w": 100, "1mo": 40},
	}
}

func TestEvaluateProducesCompleteSignal(t *testing.T) {
	g := testGenerator()
	sig, err := g.Evaluate(testInput("p1", 0.08))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.PositionID != "p1" || sig.Ticker != "AAPL" {
		t.Fatalf("identity not carried through: %+v", sig)
	}
	if sig.Type == "" || !sig.Type.IsValid() {
		t.Fatalf("invalid signal type %q", sig.Type)
	}
	if sig.Confidence < 0 || sig.Confidence > 100 {
		t.Fatalf("confidence out of bounds: %v", sig.Confidence)
	}
	if sig.ContributingScores["composite"] <= 0 {
		t.Fatalf("composite missing from contributing scores: %v", sig.ContributingScores)
	}
	if sig.GeneratedAt.IsZero() {
		t.Fatal("generated-at not stamped")
	}
	if g.Statistics().TotalGenerated != 1 {
		t.Fatalf("history not appended: %+v", g.Statistics())
	}
}

func TestEvaluateExtremeOutperformance(t *testing.T) {
	g := testGenerator()
	// Far beyond the P99 of every reference distribution, deep into the hold.
	in := testInput("p2", 0.18)
	in.Position.DaysHeld = 45
	in.Position.MAE = -0.08

	sig, err := g.Evaluate(in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Type.Severity() < models.SignalSell.Severity() {
		t.Fatalf("extreme outperformance classified as %v", sig.Type)
	}
}

func TestEvaluateRejectsEmptyAsset(t *testing.T) {
	g := testGenerator()
	in := testInput("p3", 0.05)
	in.Asset = models.DistributionSummary{}
	if _, err := g.Evaluate(in); err == nil {
		t.Fatal("expected error for missing asset analysis")
	}
}

func TestEvaluateBatchCompleteMap(t *testing.T) {
	g := testGenerator()
	inputs := map[string]EvaluationInput{
		"a": testInput("a", 0.04),
		"b": testInput("b", 0.07),
		"c": testInput("c", 0.02),
	}
	broken := inputs["c"]
	broken.Asset = models.DistributionSummary{}
	inputs["c"] = broken

	results := g.EvaluateBatch(context.Background(), inputs)
	if len(results) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(results))
	}
	if results["a"] == nil || results["b"] == nil {
		t.Fatalf("healthy positions came back nil: %v", results)
	}
	if results["c"] != nil {
		t.Fatalf("failed position should map to nil, got %+v", results["c"])
	}
	if got := g.Statistics().TotalGenerated; got != 2 {
		t.Fatalf("history holds %d signals, want 2", got)
	}
}

func TestEvaluateBatchCancelledContext(t *testing.T) {
	g := testGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := g.EvaluateBatch(ctx, map[string]EvaluationInput{"a": testInput("a", 0.04)})
	if len(results) != 1 {
		t.Fatalf("expected complete map even when cancelled, got %v", results)
	}
	if results["a"] != nil {
		t.Fatalf("cancelled sweep should not evaluate, got %+v", results["a"])
	}
}

func TestOptimizeThresholdsAppliesToClassifier(t *testing.T) {
	g := testGenerator()
	updated := g.OptimizeThresholds(outcomes(models.SignalSell, 0.09, 0.08))
	if updated[ThresholdSell] >= 0.70 {
		t.Fatalf("threshold not lowered: %v", updated[ThresholdSell])
	}
	if got := g.Classifier().Thresholds()[ThresholdSell]; got != updated[ThresholdSell] {
		t.Fatalf("classifier not updated: %v vs %v", got, updated[ThresholdSell])
	}
}
