package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusAbandoned = "abandoned"
	StatusFallback  = "fallback"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_runs_total",
		Help: "Orchestration runs by outcome.",
	}, []string{"outcome"})

	handlerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_handler_calls_total",
		Help: "Handler invocations by agent and status.",
	}, []string{"agent", "status"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fanout_handler_duration_seconds",
		Help:    "Handler call latency.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"agent"})

	synthesisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_synthesis_total",
		Help: "Synthesis calls by kind and status.",
	}, []string{"kind", "status"})
)

func ObserveRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

func ObserveHandler(agent, status string, elapsed time.Duration) {
	handlerCalls.WithLabelValues(agent, status).Inc()
	if status != StatusAbandoned {
		handlerDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
	}
}

func ObserveSynthesis(kind, status string) {
	synthesisTotal.WithLabelValues(kind, status).Inc()
}
