package graph

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

// =============================================================================
// Text Serialization API
// =============================================================================

// WriteOptions controls text output.
type WriteOptions struct {
	// Extended adds (radius r) and (vel vx vy) subforms to every node.
	Extended bool
}

// Marshal renders a graph in the minimal text format.
func Marshal(g *Graph) ([]byte, error) {
	return MarshalWith(g, WriteOptions{})
}

// MarshalWith renders a graph using the given options.
func MarshalWith(g *Graph, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTextTo(g, &buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the graph to a text file.
// The file is created with 0644 permissions.
func (g *Graph) WriteFile(path string) error {
	return g.WriteFileWith(path, WriteOptions{})
}

// WriteFileWith writes the graph to a text file using the given options.
func (g *Graph) WriteFileWith(path string, opts WriteOptions) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := writeTextTo(g, w, opts); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Write writes the graph in the minimal text format to w.
func (g *Graph) Write(w io.Writer) error {
	return writeTextTo(g, w, WriteOptions{})
}

// ReadFile parses a text file into a new graph. Nothing is returned on
// error; there are no partial loads.
func ReadFile(path string) (*Graph, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Read parses text from r into a new graph.
func Read(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Parse(data)
}

// Parse parses text into a new graph.
func Parse(data []byte) (*Graph, error) {
	return parseText(data)
}
