package graph

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
)

// Region and sizing used by the generators.
const (
	RegionWidth  = 800.0
	RegionHeight = 600.0

	MinRandomRadius = 10.0
	MaxRandomRadius = 20.0

	// GridSpacing is the distance between neighbouring grid nodes.
	GridSpacing = 10.0
)

// =============================================================================
// IDAllocator
// =============================================================================

// IDAllocator hands out sequential ids ("n1", "n2", ...) for one
// construction session. It is not safe for concurrent use.
type IDAllocator struct {
	prefix string
	next   int
}

// NewIDAllocator returns an allocator whose ids start with prefix.
func NewIDAllocator(prefix string) *IDAllocator {
	return &IDAllocator{prefix: prefix, next: 1}
}

// Next returns the next unused id.
func (a *IDAllocator) Next() string {
	id := a.prefix + strconv.Itoa(a.next)
	a.next++
	return id
}

// =============================================================================
// Generators
// =============================================================================

// Random builds a graph of nodeCount nodes scattered over the region
// centred on the origin. Each node links to between 1 and
// min(maxEdgesPerNode, nodeCount-1) distinct other nodes; an edge generated
// from both ends is kept twice.
//
// A nil rng uses a randomly seeded source.
func Random(rng *rand.Rand, nodeCount, maxEdgesPerNode int) (*Graph, error) {
	if nodeCount < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "node count must not be negative, got %d", nodeCount)
	}
	if maxEdgesPerNode < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "max edges per node must be at least 1, got %d", maxEdgesPerNode)
	}
	if rng == nil {
		rng = newRand()
	}

	g := New("random")
	ids := NewIDAllocator("n")
	for range nodeCount {
		n := Node{
			ID:     ids.Next(),
			Pos:    randomPos(rng),
			Radius: MinRandomRadius + rng.Float64()*(MaxRandomRadius-MinRandomRadius),
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	if nodeCount < 2 {
		return g, nil
	}

	nodes := g.Nodes()
	limit := min(maxEdgesPerNode, nodeCount-1)
	for i, n := range nodes {
		count := 1 + rng.IntN(limit)
		// Sample from the other n-1 indices by skipping over i.
		for _, o := range rng.Perm(nodeCount - 1)[:count] {
			if o >= i {
				o++
			}
			if err := g.AddEdge(n.ID, nodes[o].ID); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Grid builds a columns × rows lattice with ids "node_i_j" at
// (i*GridSpacing, j*GridSpacing), linking horizontal and vertical
// neighbours only.
func Grid(columns, rows int) (*Graph, error) {
	if columns < 1 || rows < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "grid dimensions must be positive, got %dx%d", columns, rows)
	}

	g := New(fmt.Sprintf("grid_%d_%d", columns, rows))
	for i := range columns {
		for j := range rows {
			n := Node{
				ID:     gridID(i, j),
				Pos:    geom.Vec{X: float64(i) * GridSpacing, Y: float64(j) * GridSpacing},
				Radius: DefaultRadius,
			}
			if err := g.AddNode(n); err != nil {
				return nil, err
			}
		}
	}
	for i := range columns {
		for j := range rows {
			if i+1 < columns {
				if err := g.AddEdge(gridID(i, j), gridID(i+1, j)); err != nil {
					return nil, err
				}
			}
			if j+1 < rows {
				if err := g.AddEdge(gridID(i, j), gridID(i, j+1)); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

func gridID(i, j int) string {
	return "node_" + strconv.Itoa(i) + "_" + strconv.Itoa(j)
}

// Shuffle moves every node to a uniformly random position in the region.
// Ids, radii, velocities and edges are untouched. It fails with BUSY while a
// layout run holds the graph.
func (g *Graph) Shuffle(rng *rand.Rand) error {
	if rng == nil {
		rng = newRand()
	}
	lease, err := g.Acquire()
	if err != nil {
		return err
	}
	defer lease.Release()

	st := g.State()
	for i := range st.Positions {
		st.Positions[i] = randomPos(rng)
	}
	_, err = lease.Commit(st.Positions, st.Velocities)
	return err
}

// Region returns the rectangle used by [Random] and [Graph.Shuffle].
func Region() geom.Rect {
	return geom.Rect{
		Min: geom.Vec{X: -RegionWidth / 2, Y: -RegionHeight / 2},
		Max: geom.Vec{X: RegionWidth / 2, Y: RegionHeight / 2},
	}
}

func randomPos(rng *rand.Rand) geom.Vec {
	return geom.Vec{
		X: (rng.Float64() - 0.5) * RegionWidth,
		Y: (rng.Float64() - 0.5) * RegionHeight,
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
