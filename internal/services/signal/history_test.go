package signal

import (
	"fmt"
	"testing"

	"ExitPulse/internal/domain/models"
)

func TestHistoryTrimsToCapacity(t *testing.T) {
	h := NewHistory(5)
	for i := 0; i < 8; i++ {
		h.Append(models.ExitSignal{PositionID: fmt.Sprintf("p%d", i), Type: models.SignalHold})
	}
	if h.Len() != 5 {
		t.Fatalf("retained %d entries, want 5", h.Len())
	}
	stats := h.Statistics()
	if stats.TotalGenerated != 8 {
		t.Fatalf("total generated %d, want 8", stats.TotalGenerated)
	}
}

func TestHistoryStatistics(t *testing.T) {
	h := NewHistory(100)
	h.Append(
		models.ExitSignal{Type: models.SignalHold, Confidence: 40},
		models.ExitSignal{Type: models.SignalSell, Confidence: 75},
		models.ExitSignal{Type: models.SignalStrongSell, Confidence: 88},
		models.ExitSignal{Type: models.SignalExitImmediately, Confidence: 97},
	)
	stats := h.Statistics()
	if stats.RecentDistribution[models.SignalSell] != 1 ||
		stats.RecentDistribution[models.SignalHold] != 1 {
		t.Fatalf("bad distribution: %v", stats.RecentDistribution)
	}
	if stats.HighConfidenceCount != 2 {
		t.Fatalf("high confidence count %d, want 2", stats.HighConfidenceCount)
	}
	if stats.AverageConfidence != 75 {
		t.Fatalf("average confidence %v, want 75", stats.AverageConfidence)
	}
}

func TestHistoryEmpty(t *testing.T) {
	h := NewHistory(0) // falls back to the default capacity
	stats := h.Statistics()
	if stats.TotalGenerated != 0 || stats.AverageConfidence != 0 {
		t.Fatalf("empty history produced %+v", stats)
	}
	if stats.RecentDistribution == nil {
		t.Fatal("distribution map should be allocated")
	}
}
