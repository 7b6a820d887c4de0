package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for pipeline execution.
//
// Metrics exposed (all namespaced with "scanflow_"):
//
//  1. runs_total (counter): Completed runs by outcome.
//     Labels: status (success/error/canceled).
//
//  2. stage_latency_ms (histogram): Stage execution duration in milliseconds.
//     Labels: stage, status (success/degraded).
//     Buckets cover 1ms to 60s, sized for LLM round trips.
//
//  3. degraded_stages_total (counter): Stages that timed out or produced an
//     inline error entry instead of an analysis.
//     Labels: stage.
//
//  4. cache_ops_total (counter): Session cache lookups.
//     Labels: result (hit/miss).
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := NewMetrics(registry)
//	engine.SetMetrics(metrics)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: the underlying Prometheus collectors handle concurrency.
type Metrics struct {
	runs           *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	degradedStages *prometheus.CounterVec
	cacheOps       *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics with the given
// registry. A nil registry falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanflow",
			Name:      "runs_total",
			Help:      "Completed workflow runs by outcome",
		}, []string{"status"}),
		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scanflow",
			Name:      "stage_latency_ms",
			Help:      "Stage execution duration in milliseconds",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000},
		}, []string{"stage", "status"}),
		degradedStages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanflow",
			Name:      "degraded_stages_total",
			Help:      "Stages degraded to an inline error entry (timeout or model failure)",
		}, []string{"stage"}),
		cacheOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scanflow",
			Name:      "cache_ops_total",
			Help:      "Session state cache lookups by result",
		}, []string{"result"}),
	}
}

// IncRun records a completed run with the given status
// (success, error, canceled).
func (m *Metrics) IncRun(status string) {
	m.runs.WithLabelValues(status).Inc()
}

// ObserveStageLatency records a stage duration for the given stage and
// status (success, degraded).
func (m *Metrics) ObserveStageLatency(stage string, d time.Duration, status string) {
	m.stageLatency.WithLabelValues(stage, status).Observe(float64(d.Milliseconds()))
}

// IncDegradedStage records a stage that produced an error entry instead of
// an analysis.
func (m *Metrics) IncDegradedStage(stage string) {
	m.degradedStages.WithLabelValues(stage).Inc()
}

// IncCacheOp records a session cache lookup result (hit, miss).
func (m *Metrics) IncCacheOp(result string) {
	m.cacheOps.WithLabelValues(result).Inc()
}
