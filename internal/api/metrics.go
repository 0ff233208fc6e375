package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics are the Prometheus series the reporting server exposes at
// /metrics when types.ServerConfig.EnableMetrics is set.
type serverMetrics struct {
	backtestsStarted   prometheus.Counter
	backtestsCompleted prometheus.Counter
	backtestDuration   prometheus.Histogram
	strategiesLoaded   prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		backtestsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "backtests_started_total",
			Help: "Total number of backtest runs started.",
		}),
		backtestsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "backtests_completed_total",
			Help: "Total number of backtest runs that completed without error.",
		}),
		backtestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_duration_seconds",
			Help:    "Wall-clock duration of a single backtest run.",
			Buckets: prometheus.DefBuckets,
		}),
		strategiesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "strategies_loaded_total",
			Help: "Total number of strategy documents successfully loaded.",
		}),
	}
}
