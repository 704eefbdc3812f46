package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsEmitted *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	composite      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exitpulse_signals_emitted_total",
				Help: "Total number of exit signals routed to a backend",
			},
			[]string{"backend", "signal_type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exitpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		composite: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "exitpulse_composite_score",
				Help: "Last composite exit score for a ticker",
			},
			[]string{"ticker"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exitpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignalEmitted records a signal routed to a backend.
func (r *Recorder) RecordSignalEmitted(backend, signalType string) {
	r.signalsEmitted.WithLabelValues(backend, signalType).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordComposite records the last composite score for a ticker.
func (r *Recorder) RecordComposite(ticker string, score float64) {
	r.composite.WithLabelValues(ticker).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
