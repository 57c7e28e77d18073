package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPipelineMetrics() {
	f := promauto.With(r.registry)

	r.LoadsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Total number of graph loads by source and status",
		},
		[]string{"source", "status"},
	)

	r.LoadDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Graph load latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	r.GraphNodes = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_nodes",
		Help:      "Node count of the most recently loaded graph",
	})

	r.GraphEdges = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_edges",
		Help:      "Edge count of the most recently loaded graph",
	})

	r.LayoutRunsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_runs_total",
			Help:      "Total number of finished layout runs by termination reason",
		},
		[]string{"reason"},
	)

	r.LayoutRunsActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "layout_runs_active",
		Help:      "Number of layout runs in progress",
	})

	r.LayoutStepsTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layout_steps_total",
		Help:      "Total number of committed simulation steps",
	})

	r.LayoutSteps = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_run_steps",
		Help:      "Steps taken per finished layout run",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	r.LayoutDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Layout run latency in seconds",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 30, 120, 600},
		},
		[]string{"reason"},
	)

	r.LayoutEnergy = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "layout_energy",
		Help:      "Kinetic energy of the most recent committed step",
	})

	r.LayoutFailuresTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layout_failures_total",
		Help:      "Total number of layout runs that ended with an error",
	})

	r.ExportsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of exports by format and status",
		},
		[]string{"format", "status"},
	)

	r.ExportDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "export_duration_seconds",
		Help:      "Export latency in seconds",
		Buckets:   prometheus.DefBuckets,
	})
}

func (r *Registry) initCacheMetrics() {
	f := promauto.With(r.registry)

	r.CacheHitsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by key type",
		},
		[]string{"key_type"},
	)

	r.CacheMissesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by key type",
		},
		[]string{"key_type"},
	)

	r.CacheWriteBytes = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_write_bytes",
			Help:      "Size of cache writes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"key_type"},
	)
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	r.HTTPRequestsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Current number of HTTP requests being processed",
	})

	r.HTTPErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of failed HTTP handlers",
		},
		[]string{"method", "route"},
	)
}
