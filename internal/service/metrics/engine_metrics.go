package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EngineLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exitpulse",
			Subsystem: "engine",
			Name:      "latency_seconds",
			Help:      "Latency of exit-signal endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EngineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exitpulse",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Errors by exit-signal endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EngineLatency, EngineErrors)
	})
}
