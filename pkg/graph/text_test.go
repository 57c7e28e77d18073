package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantEdges int
		check     func(t *testing.T, g *Graph)
	}{
		{
			name:  "Empty",
			input: `(graph "")`,
		},
		{
			name: "Minimal",
			input: `(graph "demo"
  (node "a" (pos 0 0))
  (node "b" (pos 100 -20.5))

  (edge "a" "b")
)`,
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, g *Graph) {
				if g.Name != "demo" {
					t.Errorf("name = %q", g.Name)
				}
				b, _ := g.Node("b")
				if b.Pos != (geom.Vec{X: 100, Y: -20.5}) {
					t.Errorf("b.Pos = %v", b.Pos)
				}
				if b.Radius != DefaultRadius || b.Vel != (geom.Vec{}) {
					t.Errorf("b defaults = radius %v vel %v", b.Radius, b.Vel)
				}
			},
		},
		{
			name:      "ForwardReference",
			input:     `(graph "g" (edge "a" "b") (node "a" (pos 0 0)) (node "b" (pos 1 1)))`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name: "CommentsAndWhitespace",
			input: `; leading comment
(graph "g" ; name
	(node "a"
	      (pos 1e2 2))   ; trailing
)
; done`,
			wantNodes: 1,
			check: func(t *testing.T, g *Graph) {
				a, _ := g.Node("a")
				if a.Pos.X != 100 {
					t.Errorf("a.Pos.X = %v, want 100", a.Pos.X)
				}
			},
		},
		{
			name:      "EscapedStrings",
			input:     `(graph "say \"hi\"" (node "a\\b" (pos 0 0)) (node "c d" (pos 1 0)) (edge "a\\b" "c d"))`,
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, g *Graph) {
				if g.Name != `say "hi"` {
					t.Errorf("name = %q", g.Name)
				}
				if _, ok := g.Node(`a\b`); !ok {
					t.Error(`node a\b missing`)
				}
			},
		},
		{
			name:      "ExtendedAttributes",
			input:     `(graph "g" (node "a" (vel 1 -1) (radius 4.5) (pos 2 3)))`,
			wantNodes: 1,
			check: func(t *testing.T, g *Graph) {
				a, _ := g.Node("a")
				if a.Radius != 4.5 || a.Vel != (geom.Vec{X: 1, Y: -1}) || a.Pos != (geom.Vec{X: 2, Y: 3}) {
					t.Errorf("a = %+v", a)
				}
			},
		},
		{
			name:      "DuplicateEdgesKept",
			input:     `(graph "g" (node "a" (pos 0 0)) (node "b" (pos 1 0)) (edge "a" "b") (edge "b" "a"))`,
			wantNodes: 2,
			wantEdges: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := g.NodeCount(); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := g.EdgeCount(); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode errors.Code
	}{
		{"EmptyInput", ``, errors.ErrCodeInvalidFormat},
		{"MissingGraphTag", `(node "a" (pos 0 0))`, errors.ErrCodeInvalidFormat},
		{"NotAList", `graph "g"`, errors.ErrCodeInvalidFormat},
		{"UnquotedName", `(graph g)`, errors.ErrCodeInvalidFormat},
		{"MissingName", `(graph)`, errors.ErrCodeInvalidFormat},
		{"Unclosed", `(graph "g" (node "a" (pos 0 0))`, errors.ErrCodeInvalidFormat},
		{"TrailingData", `(graph "g") (graph "h")`, errors.ErrCodeInvalidFormat},
		{"StrayClose", `(graph "g"))`, errors.ErrCodeInvalidFormat},
		{"UnterminatedString", `(graph "g`, errors.ErrCodeInvalidFormat},
		{"BadEscape", `(graph "\q")`, errors.ErrCodeInvalidFormat},
		{"UnknownForm", `(graph "g" (circle "a"))`, errors.ErrCodeInvalidFormat},
		{"BareAtomForm", `(graph "g" node)`, errors.ErrCodeInvalidFormat},
		{"NodeWithoutPos", `(graph "g" (node "a"))`, errors.ErrCodeInvalidFormat},
		{"NodeOnlyRadius", `(graph "g" (node "a" (radius 3)))`, errors.ErrCodeInvalidFormat},
		{"UnquotedID", `(graph "g" (node a (pos 0 0)))`, errors.ErrCodeInvalidFormat},
		{"PosArity", `(graph "g" (node "a" (pos 1)))`, errors.ErrCodeInvalidFormat},
		{"PosTooMany", `(graph "g" (node "a" (pos 1 2 3)))`, errors.ErrCodeInvalidFormat},
		{"NonNumeric", `(graph "g" (node "a" (pos x 1)))`, errors.ErrCodeInvalidFormat},
		{"QuotedNumber", `(graph "g" (node "a" (pos "1" 1)))`, errors.ErrCodeInvalidFormat},
		{"NaN", `(graph "g" (node "a" (pos NaN 1)))`, errors.ErrCodeInvalidFormat},
		{"Inf", `(graph "g" (node "a" (pos 1 +Inf)))`, errors.ErrCodeInvalidFormat},
		{"RepeatedPos", `(graph "g" (node "a" (pos 1 1) (pos 2 2)))`, errors.ErrCodeInvalidFormat},
		{"UnknownAttribute", `(graph "g" (node "a" (pos 1 1) (mass 2)))`, errors.ErrCodeInvalidFormat},
		{"ZeroRadius", `(graph "g" (node "a" (pos 1 1) (radius 0)))`, errors.ErrCodeInvalidFormat},
		{"EmptyID", `(graph "g" (node "" (pos 1 1)))`, errors.ErrCodeInvalidFormat},
		{"EdgeArity", `(graph "g" (node "a" (pos 0 0)) (edge "a"))`, errors.ErrCodeInvalidFormat},
		{"SelfLoop", `(graph "g" (node "a" (pos 0 0)) (edge "a" "a"))`, errors.ErrCodeInvalidFormat},
		{"DuplicateID", `(graph "g" (node "a" (pos 0 0)) (node "a" (pos 1 1)))`, errors.ErrCodeDuplicateID},
		{"UnresolvedEdge", `(graph "g" (node "a" (pos 0 0)) (edge "a" "b"))`, errors.ErrCodeUnresolvedReference},
		{"NestingBomb", `(graph "g" ` + strings.Repeat("(", 100) + strings.Repeat(")", 101), errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Parse succeeded with %d nodes, want %s", g.NodeCount(), tt.wantCode)
			}
			if g != nil {
				t.Error("Parse returned a partial graph alongside an error")
			}
			if code := errors.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	input := "(graph \"g\"\n  (node \"a\" (pos 1 x)))"
	_, err := Parse([]byte(input))

	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("err = %T %v, want *errors.Error", err, err)
	}
	pe, ok := e.Cause.(*errors.ParseError)
	if !ok {
		t.Fatalf("cause = %T, want *errors.ParseError", e.Cause)
	}
	if pe.Line != 2 || pe.Column != 20 {
		t.Errorf("position = %d:%d, want 2:20", pe.Line, pe.Column)
	}
	if !strings.Contains(err.Error(), "2:20") {
		t.Errorf("message %q lacks position", err.Error())
	}
}

func TestUnresolvedReferencePosition(t *testing.T) {
	input := "(graph \"g\"\n  (node \"a\" (pos 0 0))\n  (edge \"a\" \"ghost\"))"
	_, err := Parse([]byte(input))
	if !errors.Is(err, errors.ErrCodeUnresolvedReference) {
		t.Fatalf("err = %v, want UNRESOLVED_REFERENCE", err)
	}
	if !strings.Contains(err.Error(), `3:13: edge references unknown node "ghost"`) {
		t.Errorf("message = %q", err.Error())
	}
}

func TestMarshal(t *testing.T) {
	g := twoNodes(t)

	got, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `(graph "pair"
  (node "a" (pos 0 0))
  (node "b" (pos 100 0))

  (edge "a" "b")
)
`
	if string(got) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", got, want)
	}

	ext, err := MarshalWith(g, WriteOptions{Extended: true})
	if err != nil {
		t.Fatalf("MarshalWith: %v", err)
	}
	if !strings.Contains(string(ext), `(node "b" (pos 100 0) (radius 15) (vel 0 0))`) {
		t.Errorf("extended output missing attributes:\n%s", ext)
	}
}

func TestMarshalNoEdges(t *testing.T) {
	g := New("solo")
	if err := g.AddNode(Node{ID: "x", Pos: geom.Vec{X: 0.1, Y: -3}, Radius: 1}); err != nil {
		t.Fatal(err)
	}
	got, err := Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	want := "(graph \"solo\"\n  (node \"x\" (pos 0.1 -3))\n)\n"
	if string(got) != want {
		t.Errorf("Marshal = %q, want %q", got, want)
	}
}

func TestRoundTripExact(t *testing.T) {
	g := New(`tricky "name"`)
	nodes := []Node{
		{ID: "a", Pos: geom.Vec{X: 0.1 + 0.2, Y: -1e-300}, Vel: geom.Vec{X: 3.25}, Radius: 12.5},
		{ID: `q"uote`, Pos: geom.Vec{X: 1e21, Y: -0.000123}, Radius: 10},
		{ID: "ünïcode", Pos: geom.Vec{X: 123456.789, Y: 2}, Radius: 19.999},
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range [][2]string{{"a", `q"uote`}, {"ünïcode", "a"}, {"a", `q"uote`}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	data, err := MarshalWith(g, WriteOptions{Extended: true})
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal(g)): %v\n%s", err, data)
	}
	if back.Name != g.Name {
		t.Errorf("name = %q, want %q", back.Name, g.Name)
	}
	got := back.Nodes()
	for i, n := range nodes {
		if got[i] != n {
			t.Errorf("node %d = %+v, want %+v", i, got[i], n)
		}
	}
	if !sameEdgeSets(g.Edges(), back.Edges()) {
		t.Errorf("edges = %v, want %v", back.Edges(), g.Edges())
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.graph")

	g, err := Grid(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if back.NodeCount() != 6 || back.EdgeCount() != 7 || back.Name != "grid_3_2" {
		t.Errorf("read %q with %d nodes %d edges", back.Name, back.NodeCount(), back.EdgeCount())
	}

	data, _ := os.ReadFile(path)
	var buf bytes.Buffer
	if err := back.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != string(data) {
		t.Error("rewrite differs from file contents")
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.graph")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ReadFile(missing) = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := ReadFile(""); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("ReadFile(\"\") = %v, want INVALID_PATH", err)
	}
}

func TestRead(t *testing.T) {
	g, err := Read(strings.NewReader(`(graph "r" (node "a" (pos 1 2)))`))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("nodes = %d, want 1", g.NodeCount())
	}
}

// sameEdgeSets compares edges as unordered pairs with multiplicity.
func sameEdgeSets(a, b []Edge) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[[2]string]int)
	for _, e := range a {
		counts[e.Key()]++
	}
	for _, e := range b {
		counts[e.Key()]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
