package graph

import "github.com/matzehuels/forcegraph/pkg/geom"

// Info summarizes a graph's structure.
type Info struct {
	Name    string     `json:"name"`
	Nodes   int        `json:"nodes"`
	Edges   int        `json:"edges"`
	Bounds  geom.Rect  `json:"bounds"`
	PerNode []NodeInfo `json:"per_node"`
}

// NodeInfo lists a node's outgoing edges as recorded and its undirected
// degree.
type NodeInfo struct {
	ID       string   `json:"id"`
	Outgoing []string `json:"outgoing"`
	Degree   int      `json:"degree"`
}

// Info returns node and edge counts plus per-node neighbour lists in node
// order.
func (g *Graph) Info() Info {
	nodes := g.Nodes()
	edges := g.Edges()

	per := make([]NodeInfo, len(nodes))
	pos := make([]geom.Vec, len(nodes))
	at := make(map[string]int, len(nodes))
	for i, n := range nodes {
		per[i] = NodeInfo{ID: n.ID, Outgoing: []string{}}
		pos[i] = n.Pos
		at[n.ID] = i
	}
	for _, e := range edges {
		from, to := at[e.From], at[e.To]
		per[from].Outgoing = append(per[from].Outgoing, e.To)
		per[from].Degree++
		per[to].Degree++
	}
	return Info{
		Name:    g.Name,
		Nodes:   len(nodes),
		Edges:   len(edges),
		Bounds:  geom.Bounds(pos),
		PerNode: per,
	}
}

// Degree returns the number of edges incident to id, counting duplicates.
// Unknown ids have degree 0.
func (g *Graph) Degree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	d := 0
	for _, e := range g.ends {
		if e[0] == i || e[1] == i {
			d++
		}
	}
	return d
}
