package models

// SourceKind identifies which reference distribution a metric was computed against.
type SourceKind string

const (
	SourceAsset        SourceKind = "asset"
	SourceTradeHistory SourceKind = "trade_history"
	SourceEquityCurve  SourceKind = "equity_curve"
)

// ConfidenceLevel grades a summary by the size of the sample behind it.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// PercentileAnchor is one known point of the empirical distribution.
type PercentileAnchor struct {
	Pct   float64
	Value float64
}

// PercentileLadder holds the fixed set of percentiles every summary carries.
type PercentileLadder struct {
	P5  float64
	P10 float64
	P25 float64
	P50 float64
	P75 float64
	P90 float64
	P95 float64
	P99 float64
}

// Anchors returns the ladder as ordered (percentile, value) pairs for interpolation.
func (l PercentileLadder) Anchors() []PercentileAnchor {
	return []PercentileAnchor{
		{5, l.P5},
		{10, l.P10},
		{25, l.P25},
		{50, l.P50},
		{75, l.P75},
		{90, l.P90},
		{95, l.P95},
		{99, l.P99},
	}
}

// IQR returns the interquartile range.
func (l PercentileLadder) IQR() float64 {
	return l.P75 - l.P25
}

// DistributionSummary is an immutable statistical snapshot of one reference
// sample, produced per (ticker | strategy, timeframe) and consumed by the
// divergence layer. No transport concerns here.
type DistributionSummary struct {
	Ticker    string
	Strategy  string // empty for the asset layer
	Timeframe string
	Source    SourceKind

	Mean     float64
	Median   float64
	Std      float64
	Min      float64
	Max      float64
	Skewness float64
	Kurtosis float64
	Count    int

	Percentiles PercentileLadder

	VaR95  float64
	VaR99  float64
	CVaR95 float64
	CVaR99 float64

	Confidence ConfidenceLevel

	// MeanCI is present when the analyzer was given an RNG for resampling.
	MeanCI *BootstrapInterval
}

// BootstrapInterval is a resampled confidence interval for a summary statistic.
type BootstrapInterval struct {
	Lower      float64
	Upper      float64
	Level      float64 // e.g. 0.95
	Resamples  int
	SampleSize int
}
