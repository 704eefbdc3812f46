package api

import (
	"encoding/json"
	"net/http"
	"time"

	icache "ExitPulse/internal/service/cache"
	"ExitPulse/internal/service/metrics"
	"ExitPulse/internal/service/ratelimit"
	"ExitPulse/internal/services/signal"
	"ExitPulse/internal/usecase"
	applogger "ExitPulse/pkg/logger"
)

// StatsHandler serves read-only engine state over plain net/http. Kept
// separate from the Echo surface so the metrics endpoint group can run on a
// different listener.
type StatsHandler struct {
	eval  *usecase.EvaluateUseCase
	gen   *signal.Generator
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewStatsHandler(eval *usecase.EvaluateUseCase, gen *signal.Generator) *StatsHandler {
	metrics.Register()
	return &StatsHandler{eval: eval, gen: gen, rl: ratelimit.New()}
}

func (h *StatsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *StatsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *StatsHandler) SignalStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "signal_stats"
		defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if !h.rl.Allow(r.RemoteAddr+":stats", 5, 2) {
			if h.l != nil {
				h.l.Warn("stats.signal_stats rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		const cacheKey = "signal_stats"
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("stats.signal_stats cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("stats.signal_stats write_error", applogger.Error(err))
				}
				return
			}
		}

		res := h.eval.Statistics()
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			metrics.EngineErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("stats.signal_stats marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 15*time.Second); err != nil && h.l != nil {
				h.l.Warn("stats.signal_stats cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("stats.signal_stats write_error", applogger.Error(err))
		}
	}
}

func (h *StatsHandler) Thresholds() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "thresholds"
		defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if !h.rl.Allow(r.RemoteAddr+":thresholds", 5, 2) {
			if h.l != nil {
				h.l.Warn("stats.thresholds rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		res := h.gen.Classifier().Thresholds()
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			metrics.EngineErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("stats.thresholds marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("stats.thresholds write_error", applogger.Error(err))
		}
	}
}
