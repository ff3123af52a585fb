// Package metrics provides Prometheus collectors for the analysis
// pipeline and its supporting services.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics contains Prometheus metrics for analysis runs.
type PipelineMetrics struct {
	runsStartedTotal   prometheus.Counter
	runsFinishedTotal  *prometheus.CounterVec
	runDuration        prometheus.Histogram
	itemsEnrichedTotal prometheus.Counter
	boxesTotal         prometheus.Counter
	fanOutErrorsTotal  *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		runsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_runs_started_total",
			Help: "Number of analysis runs started",
		}),
		runsFinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_finished_total",
			Help: "Number of analysis runs finished, by terminal status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "End-to-end duration of analysis runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		itemsEnrichedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_items_enriched_total",
			Help: "Number of detected items enriched and persisted",
		}),
		boxesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_boxes_recommended_total",
			Help: "Number of packing boxes recommended",
		}),
		fanOutErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_fanout_errors_total",
			Help: "Number of tolerated fan-out step failures, by step",
		}, []string{"step"}),
	}

	collectors := []prometheus.Collector{
		m.runsStartedTotal, m.runsFinishedTotal, m.runDuration,
		m.itemsEnrichedTotal, m.boxesTotal, m.fanOutErrorsTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRunStarted counts one started analysis run.
func (m *PipelineMetrics) RecordRunStarted() {
	m.runsStartedTotal.Inc()
}

// RecordRunFinished counts one finished run with its duration.
func (m *PipelineMetrics) RecordRunFinished(status string, seconds float64) {
	m.runsFinishedTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}

// RecordItemsEnriched counts persisted items and recommended boxes.
func (m *PipelineMetrics) RecordItemsEnriched(items, boxes int) {
	m.itemsEnrichedTotal.Add(float64(items))
	m.boxesTotal.Add(float64(boxes))
}

// RecordFanOutError counts one tolerated fan-out failure.
func (m *PipelineMetrics) RecordFanOutError(step string) {
	m.fanOutErrorsTotal.WithLabelValues(step).Inc()
}
