package signal

import (
	"sync"

	"ExitPulse/internal/domain/models"
)

const highConfidenceBar = 80.0

// History is the generator's only cross-call state: a bounded FIFO of emitted
// signals used solely for reporting aggregate statistics. All appends go
// through one mutex; readers get copies.
type History struct {
	mu    sync.Mutex
	buf   []models.ExitSignal
	cap   int
	total int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1000
	}
	return &History{buf: make([]models.ExitSignal, 0, capacity), cap: capacity}
}

// Append records emitted signals, trimming the oldest entries past capacity.
func (h *History) Append(sigs ...models.ExitSignal) {
	if len(sigs) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total += len(sigs)
	h.buf = append(h.buf, sigs...)
	if over := len(h.buf) - h.cap; over > 0 {
		h.buf = append(h.buf[:0], h.buf[over:]...)
	}
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buf)
}

// Statistics derives the reporting aggregate from the retained window.
func (h *History) Statistics() models.SignalStatistics {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := models.SignalStatistics{
		TotalGenerated:     h.total,
		RecentDistribution: make(map[models.SignalType]int, 4),
	}
	if len(h.buf) == 0 {
		return stats
	}

	sum := 0.0
	for _, s := range h.buf {
		stats.RecentDistribution[s.Type]++
		sum += s.Confidence
		if s.Confidence >= highConfidenceBar {
			stats.HighConfidenceCount++
		}
	}
	stats.AverageConfidence = sum / float64(len(h.buf))
	return stats
}
