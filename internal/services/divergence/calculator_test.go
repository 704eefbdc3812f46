package divergence

import (
	"math"
	"testing"

	"ExitPulse/internal/domain/models"
)

func TestZScore(t *testing.T) {
	if got := ZScore(0.12, 0.05, 0.035); math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("unexpected z %v", got)
	}
	if got := ZScore(0.12, 0.05, 0); got != 0 {
		t.Fatalf("zero std must yield 0, got %v", got)
	}
	if got := ZScore(math.NaN(), 0.05, 0.02); got != 0 {
		t.Fatalf("non-finite value must yield 0, got %v", got)
	}
}

func TestIQRPosition(t *testing.T) {
	l := models.PercentileLadder{P25: -0.02, P75: 0.03}
	if got := IQRPosition(0.08, l); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("above box: got %v", got)
	}
	if got := IQRPosition(-0.07, l); math.Abs(got+1.0) > 1e-9 {
		t.Fatalf("below box: got %v", got)
	}
	// inside the box the midpoint maps to zero
	if got := IQRPosition(0.005, l); math.Abs(got) > 1e-9 {
		t.Fatalf("midpoint: got %v", got)
	}
	if got := IQRPosition(0.01, models.PercentileLadder{P25: 0.01, P75: 0.01}); got != 0 {
		t.Fatalf("collapsed iqr must yield 0, got %v", got)
	}
}

func TestPercentileRankInterpolates(t *testing.T) {
	anchors := []models.PercentileAnchor{
		{Pct: 5, Value: -0.08}, {Pct: 25, Value: -0.02}, {Pct: 50, Value: 0.03},
		{Pct: 70, Value: 0.1274}, {Pct: 75, Value: 0.14}, {Pct: 95, Value: 0.29},
	}
	got := PercentileRank(0.1297, anchors)
	if math.Abs(got-70.91) > 0.05 {
		t.Fatalf("expected ~70.91, got %v", got)
	}
}

func TestPercentileRankClamps(t *testing.T) {
	anchors := models.PercentileLadder{
		P5: -0.08, P10: -0.05, P25: -0.02, P50: 0.01,
		P75: 0.04, P90: 0.08, P95: 0.11, P99: 0.20,
	}.Anchors()

	if got := PercentileRank(-1.0, anchors); got != 5 {
		t.Fatalf("below range: got %v", got)
	}
	if got := PercentileRank(5.0, anchors); got != 99 {
		t.Fatalf("above range: got %v", got)
	}
}

func TestPercentileRankNeutralFallback(t *testing.T) {
	if got := PercentileRank(0.1, nil); got != 50 {
		t.Fatalf("empty anchors: got %v", got)
	}
	bad := []models.PercentileAnchor{{Pct: 5, Value: math.NaN()}, {Pct: 95, Value: math.Inf(1)}}
	if got := PercentileRank(0.1, bad); got != 50 {
		t.Fatalf("non-finite anchors: got %v", got)
	}
	if got := PercentileRank(math.NaN(), bad); got != 50 {
		t.Fatalf("non-finite value: got %v", got)
	}
}

func TestRarityScore(t *testing.T) {
	if got := RarityScore(0, 50); got != 0 {
		t.Fatalf("neutral inputs: got %v", got)
	}
	got := RarityScore(3, 99)
	want := 0.6 + 0.4*(49.0/50.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := RarityScore(100, 99); got > 1 {
		t.Fatalf("score must cap at 1, got %v", got)
	}
}

func TestOutlierPriority(t *testing.T) {
	l := models.PercentileLadder{P25: -0.02, P75: 0.03}

	if ok, m := classifyOutlier(2.5, 60, 0.0, l); !ok || m != models.OutlierZScore {
		t.Fatalf("z test first: %v %v", ok, m)
	}
	// z benign, value beyond the 1.5x fence (upper fence 0.105)
	if ok, m := classifyOutlier(1.0, 60, 0.2, l); !ok || m != models.OutlierIQR {
		t.Fatalf("iqr test second: %v %v", ok, m)
	}
	if ok, m := classifyOutlier(1.0, 96, 0.0, l); !ok || m != models.OutlierPercentile {
		t.Fatalf("percentile test third: %v %v", ok, m)
	}
	if ok, m := classifyOutlier(1.0, 60, 0.0, l); ok || m != models.OutlierNone {
		t.Fatalf("no outlier expected: %v %v", ok, m)
	}
}

func TestDetectFillsAllFields(t *testing.T) {
	s := models.DistributionSummary{
		Source: models.SourceAsset,
		Mean:   0.01, Std: 0.02, Skewness: 0.8,
		Percentiles: models.PercentileLadder{
			P5: -0.03, P10: -0.02, P25: -0.01, P50: 0.01,
			P75: 0.03, P90: 0.05, P95: 0.06, P99: 0.09,
		},
	}
	m := NewCalculator().Detect(0.055, s)
	if m.Source != models.SourceAsset {
		t.Fatalf("source not propagated")
	}
	if m.ZScore <= 2 {
		t.Fatalf("expected z above 2, got %v", m.ZScore)
	}
	if !m.IsOutlier || m.OutlierMethod != models.OutlierZScore {
		t.Fatalf("expected z outlier, got %v %v", m.IsOutlier, m.OutlierMethod)
	}
	if m.PercentileRank <= 90 {
		t.Fatalf("expected high rank, got %v", m.PercentileRank)
	}
	if m.Trend != models.TrendUp {
		t.Fatalf("expected up trend from skew, got %v", m.Trend)
	}
	if m.ConsecutivePeriodsAbove != 3 {
		t.Fatalf("expected streak proxy 3, got %v", m.ConsecutivePeriodsAbove)
	}
	if m.RarityScore <= 0 || m.RarityScore > 1 {
		t.Fatalf("rarity out of range: %v", m.RarityScore)
	}
}

func TestStrategyPercentilePreference(t *testing.T) {
	trade := models.DivergenceMetrics{PercentileRank: 94}
	equity := models.DivergenceMetrics{PercentileRank: 88}

	both := map[models.SourceKind]models.DivergenceMetrics{
		models.SourceTradeHistory: trade,
		models.SourceEquityCurve:  equity,
	}
	if got := StrategyPercentile(both); got != 94 {
		t.Fatalf("trade history must win, got %v", got)
	}
	onlyEquity := map[models.SourceKind]models.DivergenceMetrics{
		models.SourceEquityCurve: equity,
	}
	if got := StrategyPercentile(onlyEquity); got != 88 {
		t.Fatalf("equity fallback, got %v", got)
	}
	if got := StrategyPercentile(nil); got != 50 {
		t.Fatalf("neutral fallback, got %v", got)
	}
}
