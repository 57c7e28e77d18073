package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/layout"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// Cache key types reported to observability hooks.
const (
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	g, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Graph = g
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	if hash, err := graphHash(g); err == nil {
		result.GraphHash = hash
	}

	r.Logger.Info("loaded graph",
		"source", opts.Source(),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	res, layoutHit, err := r.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = res
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit
	if hash, err := graphHash(g); err == nil {
		result.LayoutHash = hash
	}

	r.Logger.Info("computed layout",
		"reason", res.Reason,
		"steps", res.Steps,
		"energy", res.Energy,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)
	if res.Reason == layout.MaxIterations {
		r.Logger.Warn("layout did not converge", "max_iterations", opts.MaxIterations, "energy", res.Energy)
	}

	// Stage 3: Export
	exportStart := time.Now()
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Load reads or generates the graph. Loading is cheap, so it is not cached.
func (r *Runner) Load(ctx context.Context, opts Options) (*graph.Graph, error) {
	r.applyLogger(&opts)
	return Load(ctx, opts)
}

// LayoutWithCacheInfo lays g out with caching and returns cache hit info.
// On a hit the cached positions are committed to g.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (layout.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Result{}, false, err
	}

	// Shuffling changes the input, so it happens before the key is computed.
	if opts.Shuffle {
		if err := g.Shuffle(Rand(opts.Seed)); err != nil {
			return layout.Result{}, false, fmt.Errorf("shuffle: %w", err)
		}
		opts.Shuffle = false
	}

	hash, err := graphHash(g)
	if err != nil {
		return layout.Result{}, false, err
	}
	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		var cached cachedLayout
		err := cache.GetJSON(ctx, r.Cache, cacheKey, &cached)
		switch {
		case err == nil:
			if err := cached.apply(g); err == nil {
				hooks.OnCacheHit(ctx, keyTypeLayout)
				return cached.Result, true, nil
			}
			// Cached graph no longer matches; recompute
			_ = r.Cache.Delete(ctx, cacheKey)
		case !errors.Is(err, cache.ErrCacheMiss):
			r.Logger.Warn("layout cache unavailable", "err", err)
		}
		hooks.OnCacheMiss(ctx, keyTypeLayout)
	}

	res, err := GenerateLayout(ctx, g, opts)
	if err != nil {
		return res, false, err
	}

	// Cache the result
	if cacheable(res) {
		entry := cachedLayout{Graph: graph.ToDocument(g), Result: res}
		ttl := opts.TTL
		if ttl == 0 {
			ttl = cache.LayoutTTL
		}
		if size, err := cache.SetJSON(ctx, r.Cache, cacheKey, entry, ttl); err == nil {
			hooks.OnCacheSet(ctx, keyTypeLayout, size)
		} else {
			r.Logger.Warn("layout cache write failed", "err", err)
		}
	}

	return res, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, g *graph.Graph, opts Options) (layout.Result, error) {
	res, _, err := r.LayoutWithCacheInfo(ctx, g, opts)
	return res, err
}

// ExportWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, opts.Formats)
	start := time.Now()

	artifacts, hit, err := r.export(ctx, g, opts)
	hooks.OnExportComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, hit, err
}

func (r *Runner) export(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, bool, error) {
	// Compute cache key from the positioned graph
	hash, err := graphHash(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	hooks := observability.Cache()

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		hooks.OnCacheHit(ctx, keyTypeArtifact)
		return artifacts, true, nil // All artifacts from cache
	}
	hooks.OnCacheMiss(ctx, keyTypeArtifact)

	// Export all formats
	exported, err := Export(ctx, g, opts)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range exported {
		cacheKey := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, cacheKey, data, opts.TTL); err == nil {
			hooks.OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}

	return exported, false, nil // Cache miss
}

// Export is a convenience wrapper that calls ExportWithCacheInfo and discards the cache hit info.
func (r *Runner) Export(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.ExportWithCacheInfo(ctx, g, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// graphHash hashes the extended text form, which captures ids, edges,
// positions, velocities and radii.
func graphHash(g *graph.Graph) (string, error) {
	data, err := graph.MarshalWith(g, graph.WriteOptions{Extended: true})
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
