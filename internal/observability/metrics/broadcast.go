package metrics

import "github.com/prometheus/client_golang/prometheus"

// BroadcastMetrics contains Prometheus metrics for the status
// broadcaster and its SSE consumers.
type BroadcastMetrics struct {
	activeSubscribers prometheus.Gauge
	eventsSentTotal   *prometheus.CounterVec
	eventsDropped     prometheus.Counter
}

// NewBroadcastMetrics creates and registers broadcaster metrics.
func NewBroadcastMetrics(registry *prometheus.Registry) (*BroadcastMetrics, error) {
	m := &BroadcastMetrics{
		activeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "broadcast_active_subscribers",
			Help: "Number of currently connected stream subscribers",
		}),
		eventsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_events_sent_total",
			Help: "Number of status events delivered to subscribers, by kind",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broadcast_events_dropped_total",
			Help: "Number of status events dropped on full subscriber channels",
		}),
	}

	collectors := []prometheus.Collector{
		m.activeSubscribers, m.eventsSentTotal, m.eventsDropped,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SubscriberConnected increments the live subscriber gauge.
func (m *BroadcastMetrics) SubscriberConnected() { m.activeSubscribers.Inc() }

// SubscriberDisconnected decrements the live subscriber gauge.
func (m *BroadcastMetrics) SubscriberDisconnected() { m.activeSubscribers.Dec() }

// RecordEventSent counts one delivered event.
func (m *BroadcastMetrics) RecordEventSent(kind string) {
	m.eventsSentTotal.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts one dropped event.
func (m *BroadcastMetrics) RecordEventDropped() { m.eventsDropped.Inc() }
