package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// formatExt maps export formats to file extensions.
var formatExt = map[string]string{
	pipeline.FormatText: graphExt,
	pipeline.FormatJSON: ".json",
	pipeline.FormatDOT:  ".dot",
	pipeline.FormatSVG:  ".svg",
}

// exportCommand creates the export command for writing DOT, SVG, JSON or
// text renditions of a graph.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		runLayout  bool
		noCache    bool
		flags      layoutFlags
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a graph to DOT, SVG, JSON or text",
		Long: `Export a graph at its current positions. SVG output is rendered by Graphviz
with every node pinned in place.

With --layout the force-directed layout runs first, so a freshly generated
graph can be rendered in one step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := c.baseOptions()
			opts.Input = args[0]
			opts.Formats = parseFormats(formatsStr)
			opts.Layout = base.Layout
			opts.MaxIterations = base.MaxIterations
			opts.TTL = base.TTL
			opts.Logger = c.Logger
			flags.apply(cmd, &opts)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runExport(cmd.Context(), opts, output, runLayout, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, text (comma-separated)")
	cmd.Flags().BoolVar(&opts.Labels, "labels", false, "show node ids (dot, svg)")
	cmd.Flags().BoolVar(&opts.Extended, "extended", false, "include radius and velocity (text)")
	cmd.Flags().BoolVar(&runLayout, "layout", false, "run the layout before exporting")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, opts pipeline.Options, output string, runLayout, noCache bool) error {
	runner := c.newRunner(ctx, noCache)
	defer runner.Close()

	var (
		artifacts map[string][]byte
		cacheHit  bool
		nodes     int
		edges     int
	)
	if runLayout {
		spinner := newSpinnerWithContext(ctx, "Running layout...")
		spinner.Start()
		result, err := runner.Execute(ctx, opts)
		if err != nil {
			spinner.StopWithError("Export failed")
			return err
		}
		spinner.Stop()
		logResult(c.Logger, result.Layout)
		printLayoutResult(result.Layout)
		artifacts = result.Artifacts
		cacheHit = result.CacheInfo.LayoutHit && result.CacheInfo.ExportHit
		nodes, edges = result.Stats.NodeCount, result.Stats.EdgeCount
	} else {
		g, err := runner.Load(ctx, opts)
		if err != nil {
			return fmt.Errorf("load graph %s: %w", opts.Input, err)
		}
		artifacts, cacheHit, err = runner.ExportWithCacheInfo(ctx, g, opts)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		nodes, edges = g.NodeCount(), g.EdgeCount()
	}

	paths, err := writeArtifacts(artifacts, opts.Input, output)
	if err != nil {
		return err
	}

	printSuccess("Exported %s", strings.Join(opts.Formats, ", "))
	for _, p := range paths {
		printFile(p)
	}
	printStats(nodes, edges, cacheHit)
	return nil
}

// writeArtifacts writes every artifact and returns the paths in format
// order. A single artifact goes to output when it is set; otherwise files
// are named after output (or the input) with a per-format extension.
func writeArtifacts(artifacts map[string][]byte, input, output string) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	} else if len(formats) > 1 {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + formatExt[f]
		if output != "" && len(formats) == 1 {
			path = output
		}
		if f == pipeline.FormatText && path == input {
			path = strings.TrimSuffix(input, filepath.Ext(input)) + ".export" + graphExt
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
