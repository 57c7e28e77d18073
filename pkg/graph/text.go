package graph

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// maxDepth bounds list nesting. The grammar needs three levels.
const maxDepth = 32

// =============================================================================
// Lexer
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokOpen
	tokClose
	tokString
	tokAtom
)

type token struct {
	kind      tokenKind
	text      string
	line, col int
}

type lexer struct {
	src       []byte
	off       int
	line, col int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) peekRune() (rune, int) {
	if l.off >= len(l.src) {
		return -1, 0
	}
	return utf8.DecodeRune(l.src[l.off:])
}

func (l *lexer) advance(r rune, size int) {
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexer) skipSpaceAndComments() {
	for {
		r, size := l.peekRune()
		switch {
		case r == -1:
			return
		case r == ';':
			for r != '\n' && r != -1 {
				l.advance(r, size)
				r, size = l.peekRune()
			}
		case unicode.IsSpace(r):
			l.advance(r, size)
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	line, col := l.line, l.col
	r, size := l.peekRune()
	switch r {
	case -1:
		return token{kind: tokEOF, line: line, col: col}, nil
	case '(':
		l.advance(r, size)
		return token{kind: tokOpen, text: "(", line: line, col: col}, nil
	case ')':
		l.advance(r, size)
		return token{kind: tokClose, text: ")", line: line, col: col}, nil
	case '"':
		return l.lexString(line, col)
	}

	start := l.off
	for {
		r, size = l.peekRune()
		if r == -1 || r == '(' || r == ')' || r == '"' || r == ';' || unicode.IsSpace(r) {
			break
		}
		l.advance(r, size)
	}
	return token{kind: tokAtom, text: string(l.src[start:l.off]), line: line, col: col}, nil
}

func (l *lexer) lexString(line, col int) (token, error) {
	start := l.off
	r, size := l.peekRune()
	l.advance(r, size)
	for {
		r, size = l.peekRune()
		switch r {
		case -1:
			return token{}, errors.Parse(line, col, "unterminated string")
		case '\\':
			l.advance(r, size)
			r, size = l.peekRune()
			if r == -1 {
				return token{}, errors.Parse(line, col, "unterminated string")
			}
			l.advance(r, size)
		case '"':
			l.advance(r, size)
			s, err := strconv.Unquote(string(l.src[start:l.off]))
			if err != nil {
				return token{}, errors.Parse(line, col, "invalid string literal")
			}
			return token{kind: tokString, text: s, line: line, col: col}, nil
		default:
			l.advance(r, size)
		}
	}
}

// =============================================================================
// Reader - tokens to nested lists
// =============================================================================

type expr struct {
	kind      tokenKind // tokOpen for lists
	text      string
	list      []expr
	line, col int
}

func (e expr) isList() bool { return e.kind == tokOpen }

func (e expr) describe() string {
	switch e.kind {
	case tokOpen:
		return "list"
	case tokString:
		return strconv.Quote(e.text)
	default:
		return e.text
	}
}

func readExpr(lx *lexer, tok token, depth int) (expr, error) {
	switch tok.kind {
	case tokString, tokAtom:
		return expr{kind: tok.kind, text: tok.text, line: tok.line, col: tok.col}, nil
	case tokClose:
		return expr{}, errors.Parse(tok.line, tok.col, "unexpected ')'")
	case tokEOF:
		return expr{}, errors.Parse(tok.line, tok.col, "unexpected end of input")
	}

	if depth >= maxDepth {
		return expr{}, errors.Parse(tok.line, tok.col, "nesting too deep")
	}
	list := expr{kind: tokOpen, line: tok.line, col: tok.col}
	for {
		next, err := lx.next()
		if err != nil {
			return expr{}, err
		}
		if next.kind == tokClose {
			return list, nil
		}
		if next.kind == tokEOF {
			return expr{}, errors.Parse(tok.line, tok.col, "unclosed '('")
		}
		item, err := readExpr(lx, next, depth+1)
		if err != nil {
			return expr{}, err
		}
		list.list = append(list.list, item)
	}
}

// =============================================================================
// Parser - nested lists to a graph
// =============================================================================

func parseText(data []byte) (*Graph, error) {
	lx := newLexer(data)
	first, err := lx.next()
	if err != nil {
		return nil, err
	}
	if first.kind != tokOpen {
		return nil, errors.Parse(first.line, first.col, `expected (graph "name" ...)`)
	}
	top, err := readExpr(lx, first, 0)
	if err != nil {
		return nil, err
	}
	trailing, err := lx.next()
	if err != nil {
		return nil, err
	}
	if trailing.kind != tokEOF {
		return nil, errors.Parse(trailing.line, trailing.col, "unexpected trailing data after graph")
	}
	return buildGraph(top)
}

func buildGraph(top expr) (*Graph, error) {
	items := top.list
	if len(items) == 0 || items[0].kind != tokAtom || items[0].text != "graph" {
		return nil, errors.Parse(top.line, top.col, `expected (graph "name" ...)`)
	}
	if len(items) < 2 || items[1].kind != tokString {
		return nil, errors.Parse(top.line, top.col, "graph name must be a quoted string")
	}
	if err := errors.ValidateGraphName(items[1].text); err != nil {
		return nil, errors.Parse(items[1].line, items[1].col, "%s", errors.UserMessage(err))
	}

	g := New(items[1].text)
	var edges []expr
	for _, form := range items[2:] {
		if !form.isList() || len(form.list) == 0 || form.list[0].kind != tokAtom {
			return nil, errors.Parse(form.line, form.col, "expected (node ...) or (edge ...), got %s", form.describe())
		}
		switch form.list[0].text {
		case "node":
			n, err := parseNode(form)
			if err != nil {
				return nil, err
			}
			if _, dup := g.Index(n.ID); dup {
				return nil, errors.New(errors.ErrCodeDuplicateID,
					"%d:%d: duplicate node id %q", form.line, form.col, n.ID)
			}
			if err := g.AddNode(n); err != nil {
				return nil, errors.Parse(form.line, form.col, "%s", errors.UserMessage(err))
			}
		case "edge":
			if len(form.list) != 3 || form.list[1].kind != tokString || form.list[2].kind != tokString {
				return nil, errors.Parse(form.line, form.col, `expected (edge "a" "b")`)
			}
			edges = append(edges, form)
		default:
			return nil, errors.Parse(form.line, form.col, "unknown form %q", form.list[0].text)
		}
	}

	// Edges resolve only after every node is known, so forward references work.
	for _, e := range edges {
		from, to := e.list[1], e.list[2]
		for _, end := range []expr{from, to} {
			if _, ok := g.Index(end.text); !ok {
				return nil, errors.New(errors.ErrCodeUnresolvedReference,
					"%d:%d: edge references unknown node %q", end.line, end.col, end.text)
			}
		}
		if from.text == to.text {
			return nil, errors.Parse(e.line, e.col, "self-loop on node %q", from.text)
		}
		if err := g.AddEdge(from.text, to.text); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func parseNode(form expr) (Node, error) {
	items := form.list
	if len(items) < 3 {
		return Node{}, errors.Parse(form.line, form.col, `expected (node "id" (pos x y))`)
	}
	if items[1].kind != tokString {
		return Node{}, errors.Parse(items[1].line, items[1].col, "node id must be a quoted string")
	}

	n := Node{ID: items[1].text, Radius: DefaultRadius}
	seen := make(map[string]bool, 3)
	for _, sub := range items[2:] {
		if !sub.isList() || len(sub.list) == 0 || sub.list[0].kind != tokAtom {
			return Node{}, errors.Parse(sub.line, sub.col, "expected (pos x y), got %s", sub.describe())
		}
		name := sub.list[0].text
		if seen[name] {
			return Node{}, errors.Parse(sub.line, sub.col, "repeated (%s ...) in node %q", name, n.ID)
		}
		seen[name] = true

		var want int
		switch name {
		case "pos", "vel":
			want = 2
		case "radius":
			want = 1
		default:
			return Node{}, errors.Parse(sub.line, sub.col, "unknown node attribute %q", name)
		}
		if len(sub.list)-1 != want {
			return Node{}, errors.Parse(sub.line, sub.col, "(%s ...) takes %d values, got %d", name, want, len(sub.list)-1)
		}
		vals := make([]float64, want)
		for i, a := range sub.list[1:] {
			v, err := parseNumber(a)
			if err != nil {
				return Node{}, err
			}
			vals[i] = v
		}
		switch name {
		case "pos":
			n.Pos.X, n.Pos.Y = vals[0], vals[1]
		case "vel":
			n.Vel.X, n.Vel.Y = vals[0], vals[1]
		case "radius":
			n.Radius = vals[0]
		}
	}
	if !seen["pos"] {
		return Node{}, errors.Parse(form.line, form.col, "node %q has no (pos x y)", n.ID)
	}
	return n, nil
}

func parseNumber(e expr) (float64, error) {
	if e.kind != tokAtom {
		return 0, errors.Parse(e.line, e.col, "expected number, got %s", e.describe())
	}
	v, err := strconv.ParseFloat(e.text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Parse(e.line, e.col, "expected finite number, got %s", e.text)
	}
	return v, nil
}

// =============================================================================
// Writer
// =============================================================================

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeTextTo(g *Graph, w io.Writer, opts WriteOptions) error {
	nodes := g.Nodes()
	edges := g.Edges()

	ew := &errWriter{w: w}
	ew.printf("(graph %s\n", strconv.Quote(g.Name))
	for _, n := range nodes {
		ew.printf("  (node %s (pos %s %s)", strconv.Quote(n.ID), formatFloat(n.Pos.X), formatFloat(n.Pos.Y))
		if opts.Extended {
			ew.printf(" (radius %s) (vel %s %s)", formatFloat(n.Radius), formatFloat(n.Vel.X), formatFloat(n.Vel.Y))
		}
		ew.printf(")\n")
	}
	if len(nodes) > 0 && len(edges) > 0 {
		ew.printf("\n")
	}
	for _, e := range edges {
		ew.printf("  (edge %s %s)\n", strconv.Quote(e.From), strconv.Quote(e.To))
	}
	ew.printf(")\n")
	if ew.err != nil {
		return fmt.Errorf("write graph: %w", ew.err)
	}
	return nil
}
