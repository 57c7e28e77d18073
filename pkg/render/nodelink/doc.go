// Package nodelink renders positioned graphs as node-link diagrams.
//
// # Overview
//
// The force-directed engine in pkg/layout computes positions; this package
// draws them. Nodes appear as circles sized by their radius, connected by
// undirected edges. Graphviz does no layout of its own here: every node is
// pinned at the position stored in the graph.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source for the neato engine
// with pinned positions that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools ("neato -n2 -Tpng")
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
