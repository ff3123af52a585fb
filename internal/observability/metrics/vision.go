package metrics

import "github.com/prometheus/client_golang/prometheus"

// VisionMetrics contains Prometheus metrics for vision service calls.
type VisionMetrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    prometheus.Histogram
	parseFailuresTotal prometheus.Counter
	detectionsPerCall  prometheus.Histogram
}

// NewVisionMetrics creates and registers vision client metrics.
func NewVisionMetrics(registry *prometheus.Registry) (*VisionMetrics, error) {
	m := &VisionMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vision_requests_total",
			Help: "Number of vision service requests, by outcome",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vision_request_duration_seconds",
			Help:    "Duration of vision service requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}),
		parseFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vision_response_parse_failures_total",
			Help: "Number of vision responses with no extractable JSON payload",
		}),
		detectionsPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vision_detections_per_call",
			Help:    "Number of items detected per successful call",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
	}

	collectors := []prometheus.Collector{
		m.requestsTotal, m.requestDuration, m.parseFailuresTotal, m.detectionsPerCall,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordRequest counts one vision request with its outcome and duration.
func (m *VisionMetrics) RecordRequest(outcome string, seconds float64) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(seconds)
}

// RecordParseFailure counts one unparseable response.
func (m *VisionMetrics) RecordParseFailure() {
	m.parseFailuresTotal.Inc()
}

// RecordDetections records the item count of one successful call.
func (m *VisionMetrics) RecordDetections(count int) {
	m.detectionsPerCall.Observe(float64(count))
}
