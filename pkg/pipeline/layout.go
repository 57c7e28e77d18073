package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/layout"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout runs the force-directed engine on g until it converges,
// hits opts.MaxIterations or ctx is cancelled. Positions are committed to g.
func GenerateLayout(ctx context.Context, g *graph.Graph, opts Options) (layout.Result, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Result{}, err
	}

	if opts.Shuffle {
		if err := g.Shuffle(Rand(opts.Seed)); err != nil {
			return layout.Result{}, fmt.Errorf("shuffle: %w", err)
		}
	}

	engine, err := layout.New(opts.Layout, layout.WithLogger(opts.Logger))
	if err != nil {
		return layout.Result{}, err
	}
	return engine.Run(ctx, g, opts.MaxIterations, opts.OnStep)
}

// =============================================================================
// Cache Payload
// =============================================================================

// cachedLayout is the cache representation of a finished run: the settled
// graph plus the run summary.
type cachedLayout struct {
	Graph  graph.Document `json:"graph"`
	Result layout.Result  `json:"result"`
}

// cacheable reports whether a run result is reproducible. Cancelled runs
// depend on timing and are never cached.
func cacheable(res layout.Result) bool {
	return res.Reason == layout.Converged || res.Reason == layout.MaxIterations
}

// apply copies the cached positions and velocities into g.
func (c cachedLayout) apply(g *graph.Graph) error {
	settled, err := graph.FromDocument(c.Graph)
	if err != nil {
		return err
	}
	n, err := g.ApplyPositions(settled)
	if err != nil {
		return err
	}
	if n != g.NodeCount() {
		return fmt.Errorf("cached layout covers %d of %d nodes", n, g.NodeCount())
	}
	return nil
}
