package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/graph"
)

// infoCommand creates the info command, which prints a graph's structure.
func (c *CLI) infoCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Print node and edge counts and per-node neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}
			info := g.Info()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			printKeyValue("Name", info.Name)
			printKeyValue("Nodes", strconv.Itoa(info.Nodes))
			printKeyValue("Edges", strconv.Itoa(info.Edges))
			printKeyValue("Bounds", formatBounds(info))
			if info.Nodes > 0 {
				printNewline()
				fmt.Println(nodeTable(info))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func formatBounds(info graph.Info) string {
	if info.Nodes == 0 {
		return "-"
	}
	b := info.Bounds
	return fmt.Sprintf("(%.4g, %.4g) to (%.4g, %.4g), %.4g x %.4g",
		b.Min.X, b.Min.Y, b.Max.X, b.Max.Y, b.Width(), b.Height())
}

// nodeTable renders one row per node: id, degree and outgoing neighbours.
func nodeTable(info graph.Info) string {
	rows := make([][]string, len(info.PerNode))
	for i, n := range info.PerNode {
		out := strings.Join(n.Outgoing, ", ")
		if out == "" {
			out = "-"
		}
		rows[i] = []string{n.ID, strconv.Itoa(n.Degree), out}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	idStyle := lipgloss.NewStyle().Foreground(colorCyan)
	dimStyle := lipgloss.NewStyle().Foreground(colorDim)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Node", "Degree", "Links to").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return idStyle
			case col == 2:
				return dimStyle
			default:
				return lipgloss.NewStyle()
			}
		})
	return t.Render()
}
