package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
)

// =============================================================================
// JSON node-link format
// =============================================================================

// Document is the node-link JSON form of a positioned graph:
//
//	{
//	  "name": "grid_2_1",
//	  "generation": 0,
//	  "nodes": [{"id": "node_0_0", "x": 0, "y": 0, "vx": 0, "vy": 0, "radius": 10}, ...],
//	  "edges": [{"from": "node_0_0", "to": "node_1_0"}]
//	}
type Document struct {
	Name       string     `json:"name"`
	Generation uint64     `json:"generation"`
	Nodes      []DocNode  `json:"nodes"`
	Edges      []Edge     `json:"edges"`
	Bounds     *geom.Rect `json:"bounds,omitempty"`
}

// DocNode is a node in a [Document].
type DocNode struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
}

// ToDocument captures the graph's current state.
func ToDocument(g *Graph) Document {
	st := g.State()
	nodes := g.Nodes()
	doc := Document{
		Name:       g.Name,
		Generation: st.Generation,
		Nodes:      make([]DocNode, len(nodes)),
		Edges:      g.Edges(),
	}
	for i, n := range nodes {
		doc.Nodes[i] = DocNode{ID: n.ID, X: n.Pos.X, Y: n.Pos.Y, VX: n.Vel.X, VY: n.Vel.Y, Radius: n.Radius}
	}
	if len(nodes) > 0 {
		b := geom.Bounds(st.Positions)
		doc.Bounds = &b
	}
	return doc
}

// FromDocument builds a graph from its JSON form. Missing radii default to
// [DefaultRadius].
func FromDocument(doc Document) (*Graph, error) {
	g := New(doc.Name)
	for _, n := range doc.Nodes {
		r := n.Radius
		if r == 0 {
			r = DefaultRadius
		}
		node := Node{
			ID:     n.ID,
			Pos:    geom.Vec{X: n.X, Y: n.Y},
			Vel:    geom.Vec{X: n.VX, Y: n.VY},
			Radius: r,
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// MarshalJSON implements json.Marshaler using the [Document] form.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToDocument(g))
}

// WriteJSON writes the graph as indented JSON.
func (g *Graph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a [Document] from r into a new graph.
func ReadJSON(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph json")
	}
	return FromDocument(doc)
}
