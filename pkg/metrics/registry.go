// Package metrics exports pipeline, cache and HTTP events as Prometheus
// metrics.
//
// A [Registry] implements every hook interface of pkg/observability, so
// wiring it is a matter of registering it at startup:
//
//	reg := metrics.NewRegistry()
//	observability.SetPipelineHooks(reg)
//	observability.SetCacheHooks(reg)
//	observability.SetHTTPHooks(reg)
//	http.Handle("/metrics", reg.Handler())
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forcegraph"

// Registry holds all metrics for the application
type Registry struct {
	// Load Metrics
	LoadsTotal   *prometheus.CounterVec
	LoadDuration *prometheus.HistogramVec
	GraphNodes   prometheus.Gauge
	GraphEdges   prometheus.Gauge

	// Layout Metrics
	LayoutRunsTotal     *prometheus.CounterVec
	LayoutRunsActive    prometheus.Gauge
	LayoutStepsTotal    prometheus.Counter
	LayoutSteps         prometheus.Histogram
	LayoutDuration      *prometheus.HistogramVec
	LayoutEnergy        prometheus.Gauge
	LayoutFailuresTotal prometheus.Counter

	// Export Metrics
	ExportsTotal   *prometheus.CounterVec
	ExportDuration prometheus.Histogram

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheWriteBytes  *prometheus.HistogramVec

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPErrorsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized,
// plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{registry: reg}
	r.initPipelineMetrics()
	r.initCacheMetrics()
	r.initHTTPMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
