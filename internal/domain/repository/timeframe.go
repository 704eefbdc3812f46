package repository

// Timeframe represents the resolution of a reference return series.
type Timeframe string

const (
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
	TF1mo Timeframe = "1mo"
)

// AllTimeframes lists the supported timeframes in ascending resolution.
func AllTimeframes() []Timeframe {
	return []Timeframe{TF1d, TF1w, TF1mo}
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1d, TF1w, TF1mo:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1d }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
