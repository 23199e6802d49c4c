package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	ReviewsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "processed_total", Help: "Reviews processed, by outcome."},
		[]string{"status"}, // status: ok|cached|invalid|timeout|failed
	)
	ReviewLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "review_duration_seconds",
			Help:    "End-to-end prediction duration per review.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	StageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "stage_duration_seconds",
			Help:    "Pipeline stage duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // stage: split|topics|sentiment
	)
	ClausesPerReview = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "clauses_per_review",
			Help:    "Clause count produced by the splitter per review.",
			Buckets: prometheus.LinearBuckets(1, 1, 12),
		},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

// Serve starts the standalone metrics listener; an empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(ReviewsProcessed, ReviewLatency, StageLatency, ClausesPerReview, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveReview(status string, dur time.Duration) {
	ReviewsProcessed.WithLabelValues(status).Inc()
	ReviewLatency.WithLabelValues(status).Observe(dur.Seconds())
}

func ObserveStage(stage string, dur time.Duration) {
	StageLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

func ObserveClauses(n int) {
	ClausesPerReview.Observe(float64(n))
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
