package graph

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultRadius is assigned to nodes that do not specify one (parsed nodes,
// grid nodes).
const DefaultRadius = 10.0

// =============================================================================
// Node
// =============================================================================

// Node is a graph vertex with its simulation state.
//
// Radius serves two roles: it scales the repulsion between two nodes and it
// weighs the node's velocity in the kinetic energy sum. It must be positive.
type Node struct {
	ID     string   `json:"id"`
	Pos    geom.Vec `json:"pos"`
	Vel    geom.Vec `json:"vel"`
	Radius float64  `json:"radius"`
}

// =============================================================================
// Edge
// =============================================================================

// Edge connects two nodes by id. Edges are stored as the ordered pair they
// were created with; connectivity is undirected.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Key returns the endpoints in sorted order, identifying the unordered pair.
func (e Edge) Key() [2]string {
	if e.From <= e.To {
		return [2]string{e.From, e.To}
	}
	return [2]string{e.To, e.From}
}

// =============================================================================
// Graph
// =============================================================================

// Graph is an ordered, id-unique collection of nodes plus undirected edges.
//
// Membership (nodes and edges) is built once by a generator or the parser.
// Node positions and velocities change only through a [Lease], which a
// layout run holds for its whole duration. All accessors copy, so readers
// never observe a partially committed step.
type Graph struct {
	// Name is the graph's label in the text format.
	Name string

	mu    sync.RWMutex
	nodes []Node
	edges []Edge
	ends  [][2]int
	index map[string]int
	gen   uint64

	leased atomic.Bool
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:  name,
		index: make(map[string]int),
	}
}

// AddNode appends a node. The id must be valid and unused, the radius
// positive and the position finite.
func (g *Graph) AddNode(n Node) error {
	if err := errors.ValidateNodeID(n.ID); err != nil {
		return err
	}
	if !(n.Radius > 0) || math.IsInf(n.Radius, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "node %q: radius must be positive, got %v", n.ID, n.Radius)
	}
	if !n.Pos.IsFinite() || !n.Vel.IsFinite() {
		return errors.New(errors.ErrCodeInvalidInput, "node %q: position and velocity must be finite", n.ID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leased.Load() {
		return errBusy()
	}
	if _, ok := g.index[n.ID]; ok {
		return errors.New(errors.ErrCodeDuplicateID, "duplicate node id %q", n.ID)
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// AddEdge connects two existing, distinct nodes. Repeated pairs are kept.
func (g *Graph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leased.Load() {
		return errBusy()
	}
	a, ok := g.index[from]
	if !ok {
		return errors.New(errors.ErrCodeUnresolvedReference, "edge %s-%s: unknown node %q", from, to, from)
	}
	b, ok := g.index[to]
	if !ok {
		return errors.New(errors.ErrCodeUnresolvedReference, "edge %s-%s: unknown node %q", from, to, to)
	}
	if a == b {
		return errors.New(errors.ErrCodeInvalidInput, "edge %s-%s: self-loops are not allowed", from, to)
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	g.ends = append(g.ends, [2]int{a, b})
	return nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges, duplicates included.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Index returns the insertion index of the node with the given id.
func (g *Graph) Index(id string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	return i, ok
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Adjacency returns, for every node index, the indices of the other
// endpoint of each incident edge. A pair connected twice appears twice.
func (g *Graph) Adjacency() [][]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	adj := make([][]int, len(g.nodes))
	for _, e := range g.ends {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	return adj
}

// Generation returns the number of commits applied to the graph.
func (g *Graph) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gen
}

// State is a consistent copy of every node's simulation state.
type State struct {
	Positions  []geom.Vec
	Velocities []geom.Vec
	Radii      []float64
	Generation uint64
}

// State copies positions, velocities and radii under one read lock.
func (g *Graph) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := State{
		Positions:  make([]geom.Vec, len(g.nodes)),
		Velocities: make([]geom.Vec, len(g.nodes)),
		Radii:      make([]float64, len(g.nodes)),
		Generation: g.gen,
	}
	for i, n := range g.nodes {
		s.Positions[i] = n.Pos
		s.Velocities[i] = n.Vel
		s.Radii[i] = n.Radius
	}
	return s
}

// Positions returns every node's position keyed by id.
func (g *Graph) Positions() map[string]geom.Vec {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]geom.Vec, len(g.nodes))
	for _, n := range g.nodes {
		out[n.ID] = n.Pos
	}
	return out
}

// Bounds returns the bounding box of all node positions.
func (g *Graph) Bounds() geom.Rect {
	return geom.Bounds(g.State().Positions)
}

// Clone returns a deep copy with the same name, nodes, edges and generation.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c := &Graph{
		Name:  g.Name,
		nodes: make([]Node, len(g.nodes)),
		edges: make([]Edge, len(g.edges)),
		ends:  make([][2]int, len(g.ends)),
		index: make(map[string]int, len(g.index)),
		gen:   g.gen,
	}
	copy(c.nodes, g.nodes)
	copy(c.edges, g.edges)
	copy(c.ends, g.ends)
	for k, v := range g.index {
		c.index[k] = v
	}
	return c
}

// =============================================================================
// Lease - exclusive writer access
// =============================================================================

// Lease grants exclusive write access to node state. Only one lease can be
// held at a time; structural changes are rejected while it is held.
type Lease struct {
	g        *Graph
	released atomic.Bool
}

// Acquire takes the graph's write lease. It fails with BUSY when another
// lease is active. The lease is taken under the same lock as structural
// changes, so membership is fixed from the moment it is held.
func (g *Graph) Acquire() (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.leased.CompareAndSwap(false, true) {
		return nil, errBusy()
	}
	return &Lease{g: g}, nil
}

// Busy reports whether a lease is currently held.
func (g *Graph) Busy() bool {
	return g.leased.Load()
}

// Release returns the lease. Releasing twice is a no-op.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.g.leased.Store(false)
	}
}

// Commit replaces every node's position and velocity at once and returns
// the new generation. Slices are indexed like [Graph.Nodes].
func (l *Lease) Commit(pos, vel []geom.Vec) (uint64, error) {
	if l.released.Load() {
		return 0, errors.New(errors.ErrCodeInternal, "commit on released lease")
	}
	g := l.g
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(pos) != len(g.nodes) || len(vel) != len(g.nodes) {
		return 0, errors.New(errors.ErrCodeInternal,
			"commit size mismatch: %d nodes, %d positions, %d velocities", len(g.nodes), len(pos), len(vel))
	}
	for i := range g.nodes {
		g.nodes[i].Pos = pos[i]
		g.nodes[i].Vel = vel[i]
	}
	g.gen++
	return g.gen, nil
}

// ApplyPositions copies position and velocity from src for every node id
// the two graphs share. It returns the number of nodes updated.
func (g *Graph) ApplyPositions(src *Graph) (int, error) {
	lease, err := g.Acquire()
	if err != nil {
		return 0, err
	}
	defer lease.Release()

	st := g.State()
	nodes := g.Nodes()
	updated := 0
	for i, n := range nodes {
		if o, ok := src.Node(n.ID); ok {
			st.Positions[i] = o.Pos
			st.Velocities[i] = o.Vel
			updated++
		}
	}
	if _, err := lease.Commit(st.Positions, st.Velocities); err != nil {
		return 0, err
	}
	return updated, nil
}

func errBusy() error {
	return errors.New(errors.ErrCodeBusy, "graph is held by an active layout run")
}
