package stats

import (
	"math"
	"math/rand"
	"testing"

	"ExitPulse/internal/domain/models"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	cases := []struct {
		pct  float64
		want float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{75, 4},
		{100, 5},
		{90, 4.6},
	}
	for _, c := range cases {
		if got := Percentile(sorted, c.pct); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("P%v: want %v got %v", c.pct, c.want, got)
		}
	}
	if got := Percentile([]float64{7}, 50); got != 7 {
		t.Fatalf("single element: got %v", got)
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Fatalf("empty sample: got %v", got)
	}
}

func TestMeanAndStdDev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(xs)
	if mean != 5 {
		t.Fatalf("mean: want 5 got %v", mean)
	}
	// sample std with n-1 denominator
	want := math.Sqrt(32.0 / 7.0)
	if got := StdDev(xs, mean); math.Abs(got-want) > 1e-9 {
		t.Fatalf("std: want %v got %v", want, got)
	}
	if got := StdDev([]float64{3}, 3); got != 0 {
		t.Fatalf("single-point std: got %v", got)
	}
}

func TestSummarizeBasics(t *testing.T) {
	a := NewAnalyzer("AAPL", "", "1d", 30, 100)
	sample := make([]float64, 0, 120)
	for i := 0; i < 120; i++ {
		sample = append(sample, float64(i%21-10)/100) // -0.10 .. 0.10
	}
	s, ok := a.Summarize(sample, models.SourceAsset)
	if !ok {
		t.Fatal("expected summary")
	}
	if s.Ticker != "AAPL" || s.Timeframe != "1d" || s.Source != models.SourceAsset {
		t.Fatalf("identity lost: %+v", s)
	}
	if s.Count != 120 {
		t.Fatalf("count: %d", s.Count)
	}
	if s.Min != -0.10 || s.Max != 0.10 {
		t.Fatalf("range: [%v, %v]", s.Min, s.Max)
	}
	if s.Percentiles.P25 > s.Percentiles.P50 || s.Percentiles.P50 > s.Percentiles.P75 {
		t.Fatalf("ladder not monotone: %+v", s.Percentiles)
	}
	if s.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence: %v", s.Confidence)
	}
}

func TestSummarizeConfidenceGrades(t *testing.T) {
	a := NewAnalyzer("AAPL", "momo", "1w", 30, 100)
	mk := func(n int) []float64 {
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = float64(i) / 1000
		}
		return xs
	}
	for _, c := range []struct {
		n    int
		want models.ConfidenceLevel
	}{
		{100, models.ConfidenceHigh},
		{30, models.ConfidenceMedium},
		{10, models.ConfidenceLow},
	} {
		s, ok := a.Summarize(mk(c.n), models.SourceTradeHistory)
		if !ok {
			t.Fatalf("n=%d: expected summary", c.n)
		}
		if s.Confidence != c.want {
			t.Fatalf("n=%d: want %v got %v", c.n, c.want, s.Confidence)
		}
	}
}

func TestSummarizeDropsNonFinite(t *testing.T) {
	a := NewAnalyzer("AAPL", "", "1d", 30, 100)
	s, ok := a.Summarize([]float64{0.01, math.NaN(), 0.02, math.Inf(1), 0.03}, models.SourceAsset)
	if !ok {
		t.Fatal("expected summary")
	}
	if s.Count != 3 {
		t.Fatalf("count after filtering: %d", s.Count)
	}

	if _, ok := a.Summarize([]float64{math.NaN(), math.Inf(-1)}, models.SourceAsset); ok {
		t.Fatal("all-invalid sample should not summarize")
	}
	if _, ok := a.Summarize(nil, models.SourceAsset); ok {
		t.Fatal("empty sample should not summarize")
	}
}

func TestSummarizeTailRiskSign(t *testing.T) {
	a := NewAnalyzer("AAPL", "", "1d", 30, 100)
	sample := []float64{-0.08, -0.05, -0.02, -0.01, 0.0, 0.01, 0.02, 0.03, 0.04, 0.06}
	s, ok := a.Summarize(sample, models.SourceAsset)
	if !ok {
		t.Fatal("expected summary")
	}
	// losses are reported positive
	if s.VaR95 <= 0 || s.VaR99 <= 0 {
		t.Fatalf("VaR should be positive: 95=%v 99=%v", s.VaR95, s.VaR99)
	}
	if s.CVaR95 < s.VaR95-1e-9 {
		t.Fatalf("CVaR95 %v should be at least VaR95 %v", s.CVaR95, s.VaR95)
	}
}

func TestSummarizeCollapsedSample(t *testing.T) {
	a := NewAnalyzer("AAPL", "", "1d", 30, 100)
	s, ok := a.Summarize([]float64{0.01, 0.01, 0.01, 0.01}, models.SourceAsset)
	if !ok {
		t.Fatal("expected summary")
	}
	if s.Std != 0 || s.Skewness != 0 || s.Kurtosis != 0 {
		t.Fatalf("degenerate moments: std=%v skew=%v kurt=%v", s.Std, s.Skewness, s.Kurtosis)
	}
}

func TestSummarizeAttachesMeanCI(t *testing.T) {
	sample := make([]float64, 120)
	for i := range sample {
		sample[i] = -0.10 + float64(i)*0.2/119
	}

	an := NewAnalyzer("AAPL", "", "1d", 30, 100).WithRNG(rand.New(rand.NewSource(7)))
	s, ok := an.Summarize(sample, models.SourceAsset)
	if !ok {
		t.Fatal("summarize failed")
	}
	if s.MeanCI == nil {
		t.Fatal("expected mean interval when an RNG is supplied")
	}
	if s.MeanCI.Level != 0.95 || s.MeanCI.Resamples != bootstrapResamples {
		t.Fatalf("interval metadata: %+v", s.MeanCI)
	}
	if s.MeanCI.Lower > s.Mean || s.MeanCI.Upper < s.Mean {
		t.Fatalf("interval [%v, %v] excludes mean %v", s.MeanCI.Lower, s.MeanCI.Upper, s.Mean)
	}

	plain, _ := NewAnalyzer("AAPL", "", "1d", 30, 100).Summarize(sample, models.SourceAsset)
	if plain.MeanCI != nil {
		t.Fatalf("no RNG must mean no interval: %+v", plain.MeanCI)
	}
}
