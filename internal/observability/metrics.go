// Package observability provides metrics collection for the service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boxlens/boxlens-go/internal/observability/metrics"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Pipeline  *metrics.PipelineMetrics
	Vision    *metrics.VisionMetrics
	Broadcast *metrics.BroadcastMetrics
}

// NewMetrics creates a Metrics instance with all collectors
// registered on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	visionMetrics, err := metrics.NewVisionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision metrics: %w", err)
	}

	broadcastMetrics, err := metrics.NewBroadcastMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Pipeline:  pipelineMetrics,
		Vision:    visionMetrics,
		Broadcast: broadcastMetrics,
	}, nil
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
