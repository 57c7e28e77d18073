package pipeline

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// Load reads or generates the graph described by opts.
func Load(ctx context.Context, opts Options) (*graph.Graph, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}

	source := opts.Source()
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	g, err := load(opts)

	var nodes, edges int
	if g != nil {
		nodes, edges = g.NodeCount(), g.EdgeCount()
	}
	hooks.OnLoadComplete(ctx, source, nodes, edges, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func load(opts Options) (*graph.Graph, error) {
	switch {
	case opts.Input != "":
		return graph.ReadFile(opts.Input)
	case opts.Text != "":
		return graph.Read(strings.NewReader(opts.Text))
	case opts.Generator == GeneratorGrid:
		return graph.Grid(opts.Columns, opts.Rows)
	default:
		return graph.Random(Rand(opts.Seed), opts.Nodes, opts.MaxEdges)
	}
}

// Rand returns a generator seeded with seed, or nil for seed 0 so that the
// graph package draws its own random seed.
func Rand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
