package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/render/nodelink"
)

// Export generates output artifacts in the requested formats.
func Export(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatText:
			data, err = graph.MarshalWith(g, graph.WriteOptions{Extended: opts.Extended})
		case FormatJSON:
			var buf bytes.Buffer
			err = g.WriteJSON(&buf)
			data = buf.Bytes()
		case FormatDOT:
			if dot == "" {
				dot = nodelink.ToDOT(g, nodelinkOptions(opts))
			}
			data = []byte(dot)
		case FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(g, nodelinkOptions(opts))
			}
			data, err = nodelink.RenderSVG(ctx, dot)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("export %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func nodelinkOptions(opts Options) nodelink.Options {
	return nodelink.Options{Labels: opts.Labels}
}
