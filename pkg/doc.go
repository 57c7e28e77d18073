// Package pkg provides the core libraries for forcegraph, a force-directed
// graph layout engine.
//
// # Overview
//
// forcegraph loads an undirected graph of circular nodes, either parsed from
// the parenthesized text format or produced by a generator, and relaxes it
// with a spring-electrical simulation until the layout converges, the
// iteration budget runs out, or the caller cancels. The pkg directory is
// organized into three areas:
//
//  1. Domain logic: [geom], [graph], [layout]
//  2. Orchestration: [pipeline], [session], [render/nodelink]
//  3. Infrastructure: [cache], [config], [errors], [metrics], [observability],
//     [server], [buildinfo]
//
// # Architecture
//
// The typical data flow:
//
//	.graph file / generator
//	         ↓
//	    [graph] package (parse, validate, own node state)
//	         ↓
//	    [layout] package (background run, per-step callbacks)
//	         ↓
//	    [graph] / [render/nodelink] (text, JSON, DOT, SVG output)
//
// [pipeline] strings these stages together with caching and hooks so the CLI
// and the HTTP API behave the same way.
//
// # Quick Start
//
// Lay out a grid and write the result:
//
//	g, _ := graph.Grid(5, 5)
//	if err := g.Shuffle(nil); err != nil {
//	    return err
//	}
//
//	eng, _ := layout.New(layout.DefaultConfig())
//	run, _ := eng.Start(ctx, g, 1000, nil)
//	res, _ := run.Wait()
//	fmt.Println(res.Reason, res.Steps)
//
//	data, _ := graph.Marshal(g)
//	os.WriteFile("grid.graph", data, 0o644)
//
// # Main Packages
//
// [geom] - Immutable 2D vectors and bounding boxes.
//
// [graph] - Nodes, edges and the Graph container. Owns the text format
// parser and serializer, the JSON document form, the random and grid
// generators, and the lease that gives one layout run exclusive write access.
//
// [layout] - The force simulation. Spring attraction along edges, pairwise
// repulsion between nodes, damping, and a convergence check on total kinetic
// energy. Runs are started in the background and report a termination reason.
//
// [pipeline] - Load, layout and export as one call. [pipeline.Runner] adds
// a content-addressed layout cache and observability hooks.
//
// [session] - Named graphs held in memory for the HTTP API, each with its own
// engine and at most one active run.
//
// [server] - chi-based HTTP API over sessions.
//
// [render/nodelink] - DOT and Graphviz output of laid-out graphs.
//
// [cache] - Layout cache backends: file, Redis, MongoDB, and a null cache.
//
// [config] - TOML/YAML configuration with validation.
//
// [errors] - Coded errors shared by every package.
//
// [metrics] - Prometheus implementation of the observability hooks.
//
// [observability] - Hook interfaces with no-op defaults.
//
// [buildinfo] - Version information injected at link time.
//
// # Testing
//
//	go test ./pkg/...
//	go test -run Example ./pkg/graph
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/geom
// [graph]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/graph
// [layout]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/layout
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/pipeline#Runner
// [session]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/session
// [server]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/server
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/errors
// [metrics]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/metrics
// [observability]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/buildinfo
package pkg
