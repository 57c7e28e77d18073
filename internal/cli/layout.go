package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/layout"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// layoutCommand creates the layout command, which runs the simulation and
// writes the settled graph.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output   string
		noCache  bool
		refresh  bool
		shuffle  bool
		seed     uint64
		extended bool
		flags    layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Run the force-directed layout on a graph file",
		Long: `Run the force-directed layout on a graph file and write the settled graph.

The run ends when the kinetic energy falls below --epsilon, after
--max-iterations steps, or on Ctrl-C. A cancelled run still writes the
positions of the last completed step.

Results are cached; --refresh recomputes and --no-cache bypasses the cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.baseOptions()
			opts.Input = args[0]
			opts.Shuffle = shuffle
			opts.Seed = seed
			opts.Refresh = refresh
			flags.apply(cmd, &opts)

			if output == "" {
				output = outputPath(args[0], ".layout"+graphExt)
			}
			return c.runLayout(cmd.Context(), opts, output, noCache, extended)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: <input>.layout.graph)`)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when a cached layout exists")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "randomize positions before the run")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "shuffle seed (0: random)")
	cmd.Flags().BoolVar(&extended, "extended", false, "write radius and velocity of every node")

	return cmd
}

// runLayout loads the graph, runs the layout with progress feedback, and
// writes the result.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache, extended bool) error {
	runner := c.newRunner(ctx, noCache)
	defer runner.Close()

	g, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", opts.Input, err)
	}

	spinner := newSpinnerWithContext(ctx, "Running layout...")
	opts.OnStep = func(s layout.Snapshot) {
		if s.Step%25 == 0 {
			spinner.Update(fmt.Sprintf("Running layout... step %d, energy %.4g", s.Step, s.Energy))
		}
	}
	prog := newProgress(c.Logger)
	spinner.Start()

	res, cacheHit, err := runner.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Layout %s after %d steps", res.Reason, res.Steps))
	logResult(c.Logger, res)

	if err := writeGraph(g, output, extended); err != nil {
		return err
	}
	if output == "-" {
		return nil
	}

	printLayoutResult(res)
	printFile(output)
	printStats(g.NodeCount(), g.EdgeCount(), cacheHit)
	printNewline()
	printNextStep("Render", appName+" export -f svg "+output)

	return nil
}
