package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.LayoutRunsTotal == nil || r.CacheHitsTotal == nil || r.HTTPRequestsTotal == nil {
		t.Error("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}

	// Two registries must not collide on registration.
	_ = NewRegistry()
}

func TestLayoutHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnLayoutStart(ctx, "run-1", 4)
	if v := gaugeValue(t, r.LayoutRunsActive); v != 1 {
		t.Errorf("active runs = %v, want 1", v)
	}
	r.OnLayoutStep(ctx, "run-1", 1, 12.5)
	r.OnLayoutStep(ctx, "run-1", 2, 3.25)
	r.OnLayoutComplete(ctx, "run-1", "converged", 2, 10*time.Millisecond, nil)

	if v := counterValue(t, r.LayoutStepsTotal); v != 2 {
		t.Errorf("steps = %v, want 2", v)
	}
	if v := gaugeValue(t, r.LayoutEnergy); v != 3.25 {
		t.Errorf("energy = %v, want 3.25", v)
	}
	if v := gaugeValue(t, r.LayoutRunsActive); v != 0 {
		t.Errorf("active runs = %v, want 0", v)
	}
	if v := counterValue(t, r.LayoutRunsTotal.WithLabelValues("converged")); v != 1 {
		t.Errorf("converged runs = %v, want 1", v)
	}

	r.OnLayoutStart(ctx, "run-2", 4)
	r.OnLayoutComplete(ctx, "run-2", "", 0, time.Millisecond, errors.New("boom"))
	if v := counterValue(t, r.LayoutFailuresTotal); v != 1 {
		t.Errorf("failures = %v, want 1", v)
	}
}

func TestLoadAndExportHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnLoadStart(ctx, "file")
	r.OnLoadComplete(ctx, "file", 12, 30, time.Millisecond, nil)
	r.OnLoadComplete(ctx, "file", 0, 0, time.Millisecond, errors.New("bad"))

	if v := counterValue(t, r.LoadsTotal.WithLabelValues("file", "success")); v != 1 {
		t.Errorf("successful loads = %v, want 1", v)
	}
	if v := counterValue(t, r.LoadsTotal.WithLabelValues("file", "error")); v != 1 {
		t.Errorf("failed loads = %v, want 1", v)
	}
	if v := gaugeValue(t, r.GraphNodes); v != 12 {
		t.Errorf("graph nodes = %v, want 12", v)
	}

	r.OnExportStart(ctx, []string{"svg", "dot"})
	r.OnExportComplete(ctx, []string{"svg", "dot"}, time.Millisecond, nil)
	if v := counterValue(t, r.ExportsTotal.WithLabelValues("dot", "success")); v != 1 {
		t.Errorf("dot exports = %v, want 1", v)
	}
}

func TestCacheAndHTTPHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnCacheHit(ctx, "layout")
	r.OnCacheHit(ctx, "layout")
	r.OnCacheMiss(ctx, "artifact")
	r.OnCacheSet(ctx, "artifact", 512)
	if v := counterValue(t, r.CacheHitsTotal.WithLabelValues("layout")); v != 2 {
		t.Errorf("layout hits = %v, want 2", v)
	}
	if v := counterValue(t, r.CacheMissesTotal.WithLabelValues("artifact")); v != 1 {
		t.Errorf("artifact misses = %v, want 1", v)
	}

	r.OnRequest(ctx, "GET", "/sessions/{id}")
	if v := gaugeValue(t, r.HTTPRequestsInFlight); v != 1 {
		t.Errorf("in flight = %v, want 1", v)
	}
	r.OnError(ctx, "GET", "/sessions/{id}", errors.New("not found"))
	r.OnResponse(ctx, "GET", "/sessions/{id}", 404, time.Millisecond)
	if v := gaugeValue(t, r.HTTPRequestsInFlight); v != 0 {
		t.Errorf("in flight = %v, want 0", v)
	}
	if v := counterValue(t, r.HTTPRequestsTotal.WithLabelValues("GET", "/sessions/{id}", "404")); v != 1 {
		t.Errorf("requests = %v, want 1", v)
	}
	if v := counterValue(t, r.HTTPErrorsTotal.WithLabelValues("GET", "/sessions/{id}")); v != 1 {
		t.Errorf("errors = %v, want 1", v)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.OnLayoutStart(context.Background(), "run", 1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"forcegraph_layout_runs_active 1", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
