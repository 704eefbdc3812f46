package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ExitPulse/internal/domain/models"
	domrepo "ExitPulse/internal/domain/repository"
	"ExitPulse/internal/services/convergence"
	"ExitPulse/internal/services/divergence"
	"ExitPulse/internal/services/signal"
)

type fakeReturnStore struct {
	mu     sync.Mutex
	asset  map[string][]float64 // keyed by ticker:tf
	trades []float64
	equity []float64
	fail   bool
	calls  int
}

func (f *fakeReturnStore) AssetReturns(_ context.Context, ticker string, tf domrepo.Timeframe, _ int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("store unavailable")
	}
	return f.asset[ticker+":"+string(tf)], nil
}

func (f *fakeReturnStore) TradeReturns(_ context.Context, _, _ string, _ domrepo.Timeframe, _ int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("store unavailable")
	}
	return f.trades, nil
}

func (f *fakeReturnStore) EquityCurve(_ context.Context, _, _ string, _ domrepo.Timeframe, _ int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("store unavailable")
	}
	return f.equity, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalEmitted(string, string) {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordComposite(string, float64)    {}
func (nopMetrics) RecordLatency(string, float64)      {}

func series(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i%9-4)/200
	}
	return out
}

// equityCurve builds a positive compounding value series.
func equityCurve(n int) []float64 {
	out := make([]float64, n)
	v := 100.0
	for i := range out {
		v *= 1 + float64(i%9-4)/500
		out[i] = v
	}
	return out
}

func testStore() *fakeReturnStore {
	assets := map[string][]float64{}
	for _, tf := range domrepo.AllTimeframes() {
		assets["AAPL:"+string(tf)] = series(200, 0.005)
	}
	return &fakeReturnStore{
		asset:  assets,
		trades: series(120, 0.01),
		equity: equityCurve(151),
	}
}

func testUseCase(store domrepo.ReturnStore) *EvaluateUseCase {
	gen := signal.NewGenerator(
		divergence.NewDetector(nil),
		convergence.NewAnalyzer(30, 100),
		signal.NewClassifier(nil),
		100,
	)
	return NewEvaluateUseCase(store, gen, nil, nopMetrics{}, 30, 100)
}

func position(id string) models.PositionState {
	return models.PositionState{
		PositionID: id, Ticker: "AAPL", Strategy: "momo",
		UnrealizedPnLPct: 0.05, MFE: 0.06, DaysHeld: 12,
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	uc := testUseCase(testStore())
	sig, err := uc.Evaluate(context.Background(), EvaluateParams{Position: position("p1")})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.PositionID != "p1" {
		t.Fatalf("wrong position: %+v", sig)
	}
	if !sig.Type.IsValid() {
		t.Fatalf("invalid signal type %q", sig.Type)
	}
	if uc.Statistics().TotalGenerated != 1 {
		t.Fatalf("history: %+v", uc.Statistics())
	}
}

func TestEvaluateRequiresIdentity(t *testing.T) {
	uc := testUseCase(testStore())
	if _, err := uc.Evaluate(context.Background(), EvaluateParams{}); err == nil {
		t.Fatal("expected error for missing position id")
	}
	if _, err := uc.Evaluate(context.Background(), EvaluateParams{
		Position: models.PositionState{PositionID: "p1"},
	}); err == nil {
		t.Fatal("expected error for missing ticker")
	}
}

func TestEvaluateFailsWithoutAssetSeries(t *testing.T) {
	uc := testUseCase(&fakeReturnStore{fail: true})
	if _, err := uc.Evaluate(context.Background(), EvaluateParams{Position: position("p1")}); err == nil {
		t.Fatal("expected error when the asset series cannot load")
	}
}

func TestEvaluateDegradesWithoutStrategySources(t *testing.T) {
	store := testStore()
	store.trades = nil
	store.equity = nil
	uc := testUseCase(store)

	sig, err := uc.Evaluate(context.Background(), EvaluateParams{Position: position("p1")})
	if err != nil {
		t.Fatalf("asset-only evaluation should succeed: %v", err)
	}
	if sig.Convergence.TradeHistoryPercentile != nil || sig.Convergence.EquityCurvePercentile != nil {
		t.Fatalf("strategy layers should be absent: %+v", sig.Convergence)
	}
}

func TestEvaluatePortfolioCompleteMap(t *testing.T) {
	uc := testUseCase(testStore())
	params := PortfolioParams{
		Positions: []models.PositionState{
			position("a"),
			position("b"),
			{PositionID: "c"}, // no ticker; skipped during normalization
		},
	}
	results, err := uc.EvaluatePortfolio(context.Background(), params)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(results))
	}
	if results["a"] == nil || results["b"] == nil {
		t.Fatalf("healthy positions nil: %v", results)
	}
	if results["c"] != nil {
		t.Fatalf("invalid position should be nil, got %+v", results["c"])
	}
}

func TestEvaluatePortfolioEmpty(t *testing.T) {
	uc := testUseCase(testStore())
	if _, err := uc.EvaluatePortfolio(context.Background(), PortfolioParams{}); err == nil {
		t.Fatal("expected error for empty portfolio")
	}
}

func TestEvaluateConvertsEquityCurve(t *testing.T) {
	store := testStore()
	store.trades = nil
	uc := testUseCase(store)

	sig, err := uc.Evaluate(context.Background(), EvaluateParams{Position: position("p1")})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sig.Convergence.TradeHistoryPercentile != nil {
		t.Fatalf("trade layer should be absent: %+v", sig.Convergence)
	}
	if sig.Convergence.EquityCurvePercentile == nil {
		t.Fatal("equity values should become a return summary via log conversion")
	}
}

func TestSummaryCarriesMeanCI(t *testing.T) {
	uc := testUseCase(testStore())
	p := EvaluateParams{Position: position("p1")}
	if err := p.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	s, ok, err := uc.summary(context.Background(), p, p.Timeframe, models.SourceAsset)
	if err != nil || !ok {
		t.Fatalf("summary: ok=%v err=%v", ok, err)
	}
	if s.MeanCI == nil {
		t.Fatal("expected a bootstrap mean interval on the summary")
	}
	if s.MeanCI.Lower > s.Mean || s.MeanCI.Upper < s.Mean {
		t.Fatalf("interval [%v, %v] excludes mean %v", s.MeanCI.Lower, s.MeanCI.Upper, s.Mean)
	}

	// Same key seeds the same RNG, so a recomputation is bit-identical.
	s2, _, _ := uc.summary(context.Background(), p, p.Timeframe, models.SourceAsset)
	if *s2.MeanCI != *s.MeanCI {
		t.Fatalf("interval not deterministic: %+v vs %+v", s2.MeanCI, s.MeanCI)
	}
}
