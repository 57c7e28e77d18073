package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/matzehuels/forcegraph/pkg/observability"
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

func (r *Registry) OnLoadStart(context.Context, string) {}

func (r *Registry) OnLoadComplete(_ context.Context, source string, nodes, edges int, d time.Duration, err error) {
	r.LoadsTotal.WithLabelValues(source, status(err)).Inc()
	r.LoadDuration.WithLabelValues(source).Observe(d.Seconds())
	if err == nil {
		r.GraphNodes.Set(float64(nodes))
		r.GraphEdges.Set(float64(edges))
	}
}

func (r *Registry) OnLayoutStart(context.Context, string, int) {
	r.LayoutRunsActive.Inc()
}

func (r *Registry) OnLayoutStep(_ context.Context, _ string, _ int, energy float64) {
	r.LayoutStepsTotal.Inc()
	r.LayoutEnergy.Set(energy)
}

func (r *Registry) OnLayoutComplete(_ context.Context, _ string, reason string, steps int, d time.Duration, err error) {
	r.LayoutRunsActive.Dec()
	if err != nil {
		r.LayoutFailuresTotal.Inc()
		return
	}
	r.LayoutRunsTotal.WithLabelValues(reason).Inc()
	r.LayoutDuration.WithLabelValues(reason).Observe(d.Seconds())
	r.LayoutSteps.Observe(float64(steps))
}

func (r *Registry) OnExportStart(context.Context, []string) {}

func (r *Registry) OnExportComplete(_ context.Context, formats []string, d time.Duration, err error) {
	st := status(err)
	for _, f := range formats {
		r.ExportsTotal.WithLabelValues(f, st).Inc()
	}
	r.ExportDuration.Observe(d.Seconds())
}

// =============================================================================
// Cache Hooks
// =============================================================================

func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheWriteBytes.WithLabelValues(keyType).Observe(float64(size))
}

// =============================================================================
// HTTP Hooks
// =============================================================================

func (r *Registry) OnRequest(context.Context, string, string) {
	r.HTTPRequestsInFlight.Inc()
}

func (r *Registry) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	r.HTTPRequestsInFlight.Dec()
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) OnError(_ context.Context, method, route string, _ error) {
	r.HTTPErrorsTotal.WithLabelValues(method, route).Inc()
}

var (
	_ observability.PipelineHooks = (*Registry)(nil)
	_ observability.CacheHooks    = (*Registry)(nil)
	_ observability.HTTPHooks     = (*Registry)(nil)
)
