package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"ExitPulse/internal/domain/models"
	domrepo "ExitPulse/internal/domain/repository"
	mid "ExitPulse/internal/middleware"
	"ExitPulse/internal/services/signal"
	"ExitPulse/internal/services/stats"
	pkgcache "ExitPulse/pkg/cache"
	xhttp "ExitPulse/pkg/http"
	applogger "ExitPulse/pkg/logger"
)

// EvaluateUseCase loads return series, builds distribution summaries, and
// runs positions through the signal generator. Emitted signals are handed to
// the archive pipeline; a pipeline failure never fails the evaluation.
type EvaluateUseCase struct {
	store            domrepo.ReturnStore
	gen              *signal.Generator
	pipe             *mid.ArchivePipeline
	metrics          domrepo.Metrics
	cache            pkgcache.Service
	cacheTTL         time.Duration
	minSamples       int
	preferredSamples int
	timeout          time.Duration
	l                *applogger.Logger
}

func NewEvaluateUseCase(
	store domrepo.ReturnStore,
	gen *signal.Generator,
	pipe *mid.ArchivePipeline,
	metrics domrepo.Metrics,
	minSamples, preferredSamples int,
) *EvaluateUseCase {
	if minSamples <= 0 {
		minSamples = 30
	}
	if preferredSamples < minSamples {
		preferredSamples = 100
	}
	return &EvaluateUseCase{
		store:            store,
		gen:              gen,
		pipe:             pipe,
		metrics:          metrics,
		cacheTTL:         5 * time.Minute,
		minSamples:       minSamples,
		preferredSamples: preferredSamples,
		timeout:          10 * time.Second,
	}
}

// SetCache enables summary caching.
func (uc *EvaluateUseCase) SetCache(c pkgcache.Service, ttl time.Duration) {
	uc.cache = c
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
}

// SetLogger injects a structured logger.
func (uc *EvaluateUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

type EvaluateParams struct {
	Position  models.PositionState
	Timeframe domrepo.Timeframe
	N         int
	Overrides map[string]float64
}

func (p *EvaluateParams) normalize() error {
	if p.Position.PositionID == "" {
		return xhttp.BadRequestError("position id required")
	}
	if p.Position.Ticker == "" {
		return xhttp.BadRequestError("ticker required")
	}
	if p.N <= 0 {
		p.N = 500
	}
	p.Timeframe = domrepo.NormalizeTimeframe(string(p.Timeframe))
	return nil
}

// Evaluate runs a single position end to end.
func (uc *EvaluateUseCase) Evaluate(ctx context.Context, p EvaluateParams) (*models.ExitSignal, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	in, err := uc.loadInput(ctx, p)
	if err != nil {
		uc.metrics.RecordError("load_input")
		return nil, err
	}

	sig, err := uc.gen.Evaluate(*in)
	if err != nil {
		uc.metrics.RecordError("evaluate")
		return nil, err
	}
	uc.metrics.RecordComposite(sig.Ticker, sig.ContributingScores["composite"])
	uc.metrics.RecordLatency("evaluate", time.Since(start).Seconds())

	uc.forward(ctx, sig)
	return sig, nil
}

type PortfolioParams struct {
	Positions []models.PositionState
	Timeframe domrepo.Timeframe
	N         int
	Overrides map[string]float64
}

// EvaluatePortfolio sweeps a batch of positions. The returned map always has
// one entry per position id; failed positions carry nil.
func (uc *EvaluateUseCase) EvaluatePortfolio(ctx context.Context, p PortfolioParams) (map[string]*models.ExitSignal, error) {
	if len(p.Positions) == 0 {
		return nil, xhttp.BadRequestError("positions required")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	results := make(map[string]*models.ExitSignal, len(p.Positions))
	inputs := make(map[string]signal.EvaluationInput, len(p.Positions))

	type item struct {
		id string
		in *signal.EvaluationInput
	}
	ch := make(chan item, len(p.Positions))
	var wg sync.WaitGroup

	for _, pos := range p.Positions {
		ep := EvaluateParams{Position: pos, Timeframe: p.Timeframe, N: p.N, Overrides: p.Overrides}
		if err := ep.normalize(); err != nil {
			if uc.l != nil {
				uc.l.Warn("portfolio position skipped", applogger.String("position_id", pos.PositionID), applogger.Error(err))
			}
			results[pos.PositionID] = nil
			continue
		}
		results[ep.Position.PositionID] = nil

		wg.Add(1)
		go func(ep EvaluateParams) {
			defer wg.Done()
			in, err := uc.loadInput(ctx, ep)
			if err != nil {
				if uc.l != nil {
					uc.l.Warn("portfolio load failed", applogger.String("position_id", ep.Position.PositionID), applogger.Error(err))
				}
				uc.metrics.RecordError("load_input")
				ch <- item{id: ep.Position.PositionID}
				return
			}
			ch <- item{id: ep.Position.PositionID, in: in}
		}(ep)
	}

	go func() { wg.Wait(); close(ch) }()
	for it := range ch {
		if it.in != nil {
			inputs[it.id] = *it.in
		}
	}

	for id, sig := range uc.gen.EvaluateBatch(ctx, inputs) {
		results[id] = sig
		if sig != nil {
			uc.metrics.RecordComposite(sig.Ticker, sig.ContributingScores["composite"])
			uc.forward(ctx, sig)
		}
	}
	uc.metrics.RecordLatency("evaluate_portfolio", time.Since(start).Seconds())
	return results, nil
}

// Statistics reports aggregates over the generator's rolling history.
func (uc *EvaluateUseCase) Statistics() models.SignalStatistics {
	return uc.gen.Statistics()
}

// loadInput fetches the asset series plus both strategy sources concurrently
// and folds them into one evaluation input. Only the asset layer is
// mandatory; a missing strategy source degrades the convergence weighting.
func (uc *EvaluateUseCase) loadInput(ctx context.Context, p EvaluateParams) (*signal.EvaluationInput, error) {
	type item struct {
		name    string
		summary models.DistributionSummary
		ok      bool
		err     error
	}
	tfs := domrepo.AllTimeframes()
	ch := make(chan item, 2+len(tfs))
	var wg sync.WaitGroup

	for _, tf := range tfs {
		wg.Add(1)
		go func(tf domrepo.Timeframe) {
			defer wg.Done()
			s, ok, err := uc.summary(ctx, p, tf, models.SourceAsset)
			ch <- item{"asset:" + string(tf), s, ok, err}
		}(tf)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s, ok, err := uc.summary(ctx, p, p.Timeframe, models.SourceTradeHistory)
		ch <- item{"trade_history", s, ok, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		s, ok, err := uc.summary(ctx, p, p.Timeframe, models.SourceEquityCurve)
		ch <- item{"equity_curve", s, ok, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	in := signal.EvaluationInput{
		Position:  p.Position,
		Sources:   make(map[models.SourceKind]models.DistributionSummary, 2),
		TFSamples: make(map[string]int, len(tfs)),
		Overrides: p.Overrides,
	}
	var assetErr error
	for it := range ch {
		switch it.name {
		case "trade_history":
			if it.err == nil && it.ok {
				in.Sources[models.SourceTradeHistory] = it.summary
			}
		case "equity_curve":
			if it.err == nil && it.ok {
				in.Sources[models.SourceEquityCurve] = it.summary
			}
		default: // asset:<tf>
			tf := it.name[len("asset:"):]
			if it.err == nil && it.ok {
				in.TFSamples[tf] = it.summary.Count
			}
			if tf == string(p.Timeframe) {
				if it.err != nil {
					assetErr = it.err
				} else if it.ok {
					in.Asset = it.summary
				}
			}
		}
	}
	if assetErr != nil {
		return nil, fmt.Errorf("asset series: %w", assetErr)
	}
	if in.Asset.Count == 0 {
		return nil, fmt.Errorf("position %s: no asset analysis available", p.Position.PositionID)
	}
	return &in, nil
}

// summary returns the cached or freshly computed distribution summary for one
// source. ok is false when the series is empty.
func (uc *EvaluateUseCase) summary(ctx context.Context, p EvaluateParams, tf domrepo.Timeframe, source models.SourceKind) (models.DistributionSummary, bool, error) {
	key := pkgcache.GenerateKeyWithParams("summary", p.Position.Ticker, p.Position.Strategy, tf, source, p.N)
	if uc.cache != nil {
		var s models.DistributionSummary
		if err := uc.cache.Get(ctx, key, &s); err == nil && s.Count > 0 {
			return s, true, nil
		}
	}

	var (
		series []float64
		err    error
	)
	switch source {
	case models.SourceAsset:
		series, err = uc.store.AssetReturns(ctx, p.Position.Ticker, tf, p.N)
	case models.SourceTradeHistory:
		series, err = uc.store.TradeReturns(ctx, p.Position.Strategy, p.Position.Ticker, tf, p.N)
	case models.SourceEquityCurve:
		// The store returns raw equity points; one extra point yields N returns.
		var curve []float64
		curve, err = uc.store.EquityCurve(ctx, p.Position.Strategy, p.Position.Ticker, tf, p.N+1)
		series = stats.LogReturns(curve)
	default:
		err = fmt.Errorf("unknown source: %s", source)
	}
	if err != nil {
		return models.DistributionSummary{}, false, err
	}

	an := stats.NewAnalyzer(p.Position.Ticker, p.Position.Strategy, string(tf), uc.minSamples, uc.preferredSamples).
		WithRNG(summaryRNG(key))
	s, ok := an.Summarize(series, source)
	if !ok {
		return models.DistributionSummary{}, false, nil
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, s, uc.cacheTTL); err != nil && uc.l != nil {
			uc.l.Warn("summary cache set failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return s, true, nil
}

// summaryRNG derives a deterministic RNG from the cache key so the bootstrap
// interval is stable across recomputations of the same series window.
func summaryRNG(key string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// forward hands the emitted signal to the archive pipeline.
func (uc *EvaluateUseCase) forward(ctx context.Context, sig *models.ExitSignal) {
	if uc.pipe == nil {
		return
	}
	rec := &models.SignalRecord{
		PositionID:  sig.PositionID,
		Ticker:      sig.Ticker,
		Strategy:    sig.Strategy,
		SignalType:  string(sig.Type),
		Confidence:  sig.Confidence,
		Composite:   sig.ContributingScores["composite"],
		GeneratedAt: sig.GeneratedAt,
	}
	if err := uc.pipe.Process(ctx, rec); err != nil && uc.l != nil {
		uc.l.Warn("archive pipeline rejected signal", applogger.String("position_id", sig.PositionID), applogger.Error(err))
	}
}
