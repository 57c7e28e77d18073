package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// generateCommand creates the generate command with its random and grid
// subcommands.
func (c *CLI) generateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random or grid graph",
	}
	cmd.AddCommand(c.generateRandomCommand())
	cmd.AddCommand(c.generateGridCommand())
	return cmd
}

func (c *CLI) generateRandomCommand() *cobra.Command {
	var (
		output   string
		extended bool
		opts     pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Generate a random graph",
		Long: `Generate a graph of --nodes nodes at random positions. Every node links to
between 1 and --max-edges distinct other nodes.

Use --seed for reproducible output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := c.Config.Generate
			opts.Generator = pipeline.GeneratorRandom
			if !cmd.Flags().Changed("nodes") {
				opts.Nodes = gen.Nodes
			}
			if !cmd.Flags().Changed("max-edges") {
				opts.MaxEdges = gen.MaxEdges
			}
			if !cmd.Flags().Changed("seed") {
				opts.Seed = gen.Seed
			}
			return c.runGenerate(cmd.Context(), opts, output, extended)
		},
	}

	cmd.Flags().IntVar(&opts.Nodes, "nodes", pipeline.DefaultNodes, "number of nodes")
	cmd.Flags().IntVarP(&opts.MaxEdges, "max-edges", "k", pipeline.DefaultMaxEdges, "maximum outgoing edges per node")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (0: random)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: random.graph)`)
	cmd.Flags().BoolVar(&extended, "extended", false, "write radius and velocity of every node")
	return cmd
}

func (c *CLI) generateGridCommand() *cobra.Command {
	var (
		output   string
		extended bool
		opts     pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Generate a grid graph",
		Long: `Generate a --columns x --rows lattice in which every node links to its right
and lower neighbour.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := c.Config.Generate
			opts.Generator = pipeline.GeneratorGrid
			if !cmd.Flags().Changed("columns") {
				opts.Columns = gen.Columns
			}
			if !cmd.Flags().Changed("rows") {
				opts.Rows = gen.Rows
			}
			return c.runGenerate(cmd.Context(), opts, output, extended)
		},
	}

	cmd.Flags().IntVar(&opts.Columns, "columns", pipeline.DefaultColumns, "number of columns")
	cmd.Flags().IntVar(&opts.Rows, "rows", pipeline.DefaultRows, "number of rows")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: grid_<columns>_<rows>.graph)`)
	cmd.Flags().BoolVar(&extended, "extended", false, "write radius and velocity of every node")
	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, opts pipeline.Options, output string, extended bool) error {
	opts.Logger = c.Logger
	g, err := pipeline.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("generate %s: %w", opts.Generator, err)
	}

	if output == "" {
		output = g.Name + graphExt
	}
	if err := writeGraph(g, output, extended); err != nil {
		return err
	}
	if output == "-" {
		return nil
	}

	printSuccess("Generated %s", g.Name)
	printFile(output)
	printStats(g.NodeCount(), g.EdgeCount(), false)
	printNewline()
	printNextStep("Lay out", appName+" layout "+output)
	return nil
}

// writeGraph writes g in the text format to path, or to stdout for "-".
func writeGraph(g *graph.Graph, path string, extended bool) error {
	wopts := graph.WriteOptions{Extended: extended}
	if path == "-" {
		data, err := graph.MarshalWith(g, wopts)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := g.WriteFileWith(path, wopts); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
