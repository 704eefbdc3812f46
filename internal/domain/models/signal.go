package models

import "time"

// SignalType is the discrete exit recommendation, ordered by severity.
type SignalType string

const (
	SignalHold            SignalType = "HOLD"
	SignalSell            SignalType = "SELL"
	SignalStrongSell      SignalType = "STRONG_SELL"
	SignalExitImmediately SignalType = "EXIT_IMMEDIATELY"
)

// Severity returns the total order HOLD < SELL < STRONG_SELL < EXIT_IMMEDIATELY.
func (s SignalType) Severity() int {
	switch s {
	case SignalSell:
		return 1
	case SignalStrongSell:
		return 2
	case SignalExitImmediately:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether s is one of the four known signal types.
func (s SignalType) IsValid() bool {
	switch s {
	case SignalHold, SignalSell, SignalStrongSell, SignalExitImmediately:
		return true
	default:
		return false
	}
}

// PositionState is the caller-supplied snapshot of an open position.
type PositionState struct {
	PositionID string
	Ticker     string
	Strategy   string

	UnrealizedPnLPct float64
	MFE              float64 // best unrealized return reached
	MAE              float64 // worst unrealized return reached
	DaysHeld         int
	EntryPrice       float64
	CurrentPrice     float64
}

// ExitSignal is the complete result of one evaluation.
type ExitSignal struct {
	PositionID string
	Ticker     string
	Strategy   string

	Type            SignalType
	Confidence      float64 // within [0, 100]
	Recommendation  string
	TargetTimeframe string

	StatisticalSignificance float64
	ContributingScores      map[string]float64

	Convergence DualLayerConvergence

	GeneratedAt time.Time
}

// SignalRecord is the flattened form an emitted signal is archived as.
type SignalRecord struct {
	PositionID  string
	Ticker      string
	Strategy    string
	SignalType  string
	Confidence  float64
	Composite   float64
	GeneratedAt time.Time
}

// TradeOutcome pairs an archived signal with the return realized after it,
// used by threshold self-optimization.
type TradeOutcome struct {
	SignalType     SignalType
	RealizedReturn float64
}

// SignalStatistics summarizes the generator's rolling history for reporting.
type SignalStatistics struct {
	TotalGenerated      int
	RecentDistribution  map[SignalType]int
	AverageConfidence   float64
	HighConfidenceCount int
}
