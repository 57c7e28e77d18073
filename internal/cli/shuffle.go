package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// shuffleCommand creates the shuffle command, which moves every node to a
// random position.
func (c *CLI) shuffleCommand() *cobra.Command {
	var (
		output   string
		seed     uint64
		extended bool
	)

	cmd := &cobra.Command{
		Use:   "shuffle [file]",
		Short: "Randomize node positions",
		Long: `Move every node to a uniformly random position. Ids, radii, velocities and
edges are kept. Without --output the input file is rewritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}
			if err := g.Shuffle(pipeline.Rand(seed)); err != nil {
				return err
			}
			if output == "" {
				output = args[0]
			}
			if err := writeGraph(g, output, extended); err != nil {
				return err
			}
			if output != "-" {
				printSuccess("Shuffled %d nodes", g.NodeCount())
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: overwrite input)`)
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0: random)")
	cmd.Flags().BoolVar(&extended, "extended", false, "write radius and velocity of every node")
	return cmd
}
