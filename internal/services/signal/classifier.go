package signal

import (
	"math"
	"sync"
	"time"

	"ExitPulse/internal/domain/models"
	domsvc "ExitPulse/internal/domain/service"
)

// Threshold keys accepted in override maps.
const (
	ThresholdExitImmediately = "exit_immediately"
	ThresholdStrongSell      = "strong_sell"
	ThresholdSell            = "sell"
)

// Composite score weights: the cross-layer block against position factors,
// and the three layer components inside the block.
const (
	layerBlockWeight    = 0.7
	positionBlockWeight = 0.3

	dualLayerWeight   = 0.40
	assetPctWeight    = 0.30
	strategyPctWeight = 0.30

	positionFactorWeight = 0.25
)

// Position factor scaling: unrealized PnL saturating at +20%, adverse
// excursion saturating at -10%, holding period saturating at 30 days.
const (
	fullProfitPct    = 0.20
	fullRiskDrawdown = 0.10
	fullDurationDays = 30
)

// DefaultThresholds returns the default descending classification thresholds.
func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		ThresholdExitImmediately: 0.95,
		ThresholdStrongSell:      0.85,
		ThresholdSell:            0.70,
	}
}

// Classifier maps a composite score to a discrete exit signal via ordered
// thresholds. It is a pure function of its inputs: identical inputs always
// produce an identical signal.
//
// Threshold overrides are merged verbatim over the defaults. The classifier
// does not re-validate that exit_immediately >= strong_sell >= sell; an
// inverted override changes which rule matches first, and keeping the caller
// honest is the caller's contract.
//
// Safe for concurrent use: SetThresholds swaps in a fresh map under the
// mutex, so an in-flight Classify keeps reading a consistent snapshot.
type Classifier struct {
	mu         sync.RWMutex
	thresholds map[string]float64
}

func NewClassifier(thresholds map[string]float64) *Classifier {
	merged := DefaultThresholds()
	for k, v := range thresholds {
		if _, known := merged[k]; known {
			merged[k] = v
		}
	}
	return &Classifier{thresholds: merged}
}

// Thresholds returns a copy of the classifier's active thresholds.
func (c *Classifier) Thresholds() map[string]float64 {
	active := c.active()
	out := make(map[string]float64, len(active))
	for k, v := range active {
		out[k] = v
	}
	return out
}

// SetThresholds replaces known threshold keys, used by self-optimization.
// The installed map is never mutated in place; a new one is swapped in.
func (c *Classifier) SetThresholds(t map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]float64, len(c.thresholds))
	for k, v := range c.thresholds {
		next[k] = v
	}
	for k, v := range t {
		if _, known := next[k]; known {
			next[k] = v
		}
	}
	c.thresholds = next
}

func (c *Classifier) active() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thresholds
}

func (c *Classifier) Classify(
	conv models.DualLayerConvergence,
	pos models.PositionState,
	overrides map[string]float64,
) models.ExitSignal {
	thresholds := c.merged(overrides)

	layer := dualLayerWeight*conv.WeightedConvergenceScore +
		assetPctWeight*(conv.AssetPercentile/100) +
		strategyPctWeight*(conv.StrategyPercentile/100)

	adj := positionAdjustment(pos)
	composite := clamp01(layerBlockWeight*layer + positionBlockWeight*adj)

	sigType := classify(composite, thresholds)
	rec, target := recommendation(sigType, conv.AssetPercentile)

	return models.ExitSignal{
		PositionID:              pos.PositionID,
		Ticker:                  pos.Ticker,
		Strategy:                pos.Strategy,
		Type:                    sigType,
		Confidence:              math.Min(composite*100, 100),
		Recommendation:          rec,
		TargetTimeframe:         target,
		StatisticalSignificance: conv.ConvergenceScore,
		ContributingScores: map[string]float64{
			"dual_layer":          conv.WeightedConvergenceScore,
			"asset_percentile":    conv.AssetPercentile,
			"strategy_percentile": conv.StrategyPercentile,
			"layer_composite":     layer,
			"position_adjustment": adj,
			"composite":           composite,
		},
		Convergence: conv,
		GeneratedAt: time.Now().UTC(),
	}
}

func (c *Classifier) merged(overrides map[string]float64) map[string]float64 {
	active := c.active()
	if len(overrides) == 0 {
		return active
	}
	merged := make(map[string]float64, len(active))
	for k, v := range active {
		merged[k] = v
	}
	for k, v := range overrides {
		if _, known := merged[k]; known {
			merged[k] = v
		}
	}
	return merged
}

// classify checks the thresholds in strict descending order; first match wins.
func classify(composite float64, t map[string]float64) models.SignalType {
	switch {
	case composite >= t[ThresholdExitImmediately]:
		return models.SignalExitImmediately
	case composite >= t[ThresholdStrongSell]:
		return models.SignalStrongSell
	case composite >= t[ThresholdSell]:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

// positionAdjustment folds profit, MFE capture, duration and risk pressure
// into one secondary score, each factor weighted equally.
func positionAdjustment(pos models.PositionState) float64 {
	profit := clamp01(pos.UnrealizedPnLPct / fullProfitPct)

	capture := 0.0
	if pos.MFE > 0 {
		capture = clamp01(pos.UnrealizedPnLPct / pos.MFE)
	}

	duration := clamp01(float64(pos.DaysHeld) / fullDurationDays)

	risk := 0.0
	if pos.MAE < 0 {
		risk = clamp01(-pos.MAE / fullRiskDrawdown)
	}

	return positionFactorWeight * (profit + capture + duration + risk)
}

func recommendation(t models.SignalType, assetPercentile float64) (string, string) {
	switch t {
	case models.SignalExitImmediately:
		return "Statistical extremes on both layers; close the position now.", "within current session"
	case models.SignalStrongSell:
		return "Strong dual-layer divergence; scale out aggressively.", "2-3 trading days"
	case models.SignalSell:
		return "Performance stretched against both reference distributions; begin reducing exposure.", "3-7 trading days"
	default:
		if assetPercentile >= 75 {
			return "Asset showing strength but strategy neutral; hold with tightened monitoring.", "monitor daily"
		}
		return "No statistical pressure to exit; hold.", "no action required"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ domsvc.SignalClassifier = (*Classifier)(nil)
