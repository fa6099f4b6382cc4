// Package metrics provides Prometheus metrics for pipeline runs. Metrics are
// registered automatically and recorded by the pipeline runner; they cover run
// counts by outcome, row volumes per stage, run duration, and per-adapter
// failures.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts completed pipeline runs by final status.
	// Labels: status (success/failed)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_runs_total",
			Help: "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)

	// RowsProcessed counts rows flowing out of each pipeline stage.
	// Labels: stage (collect/clean/enrich)
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_rows_processed_total",
			Help: "Total number of rows produced by each pipeline stage",
		},
		[]string{"stage"},
	)

	// RunDuration tracks the distribution of end-to-end run durations.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "strata_run_duration_seconds",
			Help: "End-to-end pipeline run duration in seconds",
			Buckets: []float64{
				0.01, // trivial in-memory runs
				0.1,
				0.5,
				1,
				5,
				15,
				60,
				300,
			},
		},
	)

	// SourceFailures counts extraction failures per source adapter.
	// Labels: source (adapter name)
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_source_failures_total",
			Help: "Total number of failed source extractions",
		},
		[]string{"source"},
	)

	// RowsLoaded counts rows delivered to each sink adapter.
	// Labels: sink (adapter name)
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_rows_loaded_total",
			Help: "Total number of rows loaded per sink",
		},
		[]string{"sink"},
	)
)

// Timer measures an operation's duration from creation to Stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. Stopping more than once
// returns the total elapsed time each call.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveRun records a completed run's status and duration.
func ObserveRun(status string, duration time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
}
