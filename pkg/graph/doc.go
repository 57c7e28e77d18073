// Package graph holds the node/edge model laid out by the force-directed
// engine, its generators and its persistence formats.
//
// # Model
//
// A [Graph] is an ordered list of [Node] values with unique ids plus
// undirected [Edge] pairs. Every edge endpoint exists and self-loops are
// rejected; a pair connected twice contributes two springs.
//
// Node positions and velocities are the simulation state. They change only
// through [Lease.Commit], which replaces every node at once and bumps the
// graph's generation. A layout run holds the lease for its whole duration,
// so [Graph.AddNode], [Graph.AddEdge] and [Graph.Shuffle] fail with BUSY
// while it runs.
//
// # Generators
//
//	g, _ := graph.Random(rng, 20, 3)   // n1..n20, 1-3 links each
//	g, _ := graph.Grid(5, 4)           // node_0_0 .. node_4_3
//	_ = g.Shuffle(rng)                 // scatter positions
//
// # Text Format
//
//	(graph "name"
//	  (node "a" (pos 0 0))
//	  (node "b" (pos 100 0))
//
//	  (edge "a" "b")
//	)
//
// Strings use Go-style backslash escapes and ";" starts a comment. A node
// may also carry (radius r) and (vel vx vy); [MarshalWith] emits them when
// [WriteOptions.Extended] is set. Parsing is two-pass, so edges can refer to
// nodes declared after them.
//
// # Concurrency
//
// All accessors copy under a read lock and are safe to call while a layout
// run commits steps.
package graph
