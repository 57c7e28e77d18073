package cli

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/layout"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

const (
	// watchStepDelay paces runs in the live view unless a delay is configured.
	watchStepDelay = 20 * time.Millisecond

	// watchRefresh is the redraw interval.
	watchRefresh = 50 * time.Millisecond
)

// Canvas styles
var (
	canvasNodeStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	canvasEdgeStyle = lipgloss.NewStyle().Foreground(colorDim)
	watchHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

// watchCommand creates the watch command, a live terminal view of a run.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output string
		seed   uint64
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Watch a layout run live in the terminal",
		Long: `Open a live view of a graph and drive the layout from the keyboard:

  r  run until converged or max iterations
  s  stop the current run
  n  single step
  x  shuffle positions
  q  quit (saves to --output when set)

Without a file a random graph is generated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.baseOptions()
			if len(args) == 1 {
				opts.Input = args[0]
			} else {
				gen := c.Config.Generate
				opts.Generator = pipeline.GeneratorRandom
				opts.Nodes, opts.MaxEdges, opts.Seed = gen.Nodes, gen.MaxEdges, gen.Seed
			}
			if opts.Layout.StepDelay == 0 {
				opts.Layout.StepDelay = watchStepDelay
			}
			flags.apply(cmd, &opts)
			return c.runWatch(cmd.Context(), opts, seed, output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph here on quit")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "shuffle seed (0: random)")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, opts pipeline.Options, seed uint64, output string) error {
	opts.SetLayoutDefaults()
	g, err := pipeline.Load(ctx, opts)
	if err != nil {
		return err
	}
	engine, err := layout.New(opts.Layout, layout.WithLogger(c.Logger))
	if err != nil {
		return err
	}

	rng := pipeline.Rand(seed)
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m := newWatchModel(ctx, g, engine, opts.MaxIterations, rng)

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	if wm, ok := final.(watchModel); ok {
		wm.shutdown()
		if wm.result != nil {
			logResult(c.Logger, *wm.result)
		}
	} else {
		engine.Stop()
	}

	if output != "" {
		if err := writeGraph(g, output, false); err != nil {
			return err
		}
		printSuccess("Saved %s", g.Name)
		printFile(output)
	}
	return nil
}

// =============================================================================
// watchModel - live layout view
// =============================================================================

type watchTickMsg time.Time

type watchModel struct {
	ctx     context.Context
	graph   *graph.Graph
	engine  *layout.Engine
	maxIter int
	rng     *rand.Rand

	run    *layout.Run
	result *layout.Result
	err    error

	width  int
	height int
}

func newWatchModel(ctx context.Context, g *graph.Graph, engine *layout.Engine, maxIter int, rng *rand.Rand) watchModel {
	return watchModel{
		ctx:     ctx,
		graph:   g,
		engine:  engine,
		maxIter: maxIter,
		rng:     rng,
		width:   80,
		height:  24,
	}
}

func watchTick() tea.Cmd {
	return tea.Tick(watchRefresh, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return watchTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r", "enter":
			m.collect()
			run, err := m.engine.Start(m.ctx, m.graph, m.maxIter, nil)
			m.err = err
			if err == nil {
				m.run, m.result = run, nil
			}
		case "s":
			m.engine.Stop()
		case "n":
			_, m.err = m.engine.Step(m.graph)
		case "x":
			m.err = m.graph.Shuffle(m.rng)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case watchTickMsg:
		m.collect()
		return m, watchTick()
	}
	return m, nil
}

// collect records the result of a finished run.
func (m *watchModel) collect() {
	if m.run == nil {
		return
	}
	select {
	case <-m.run.Done():
		res, err := m.run.Wait()
		if err != nil {
			m.err = err
		} else {
			m.result = &res
		}
		m.run = nil
	default:
	}
}

// shutdown stops an active run and waits for it.
func (m *watchModel) shutdown() {
	if m.run == nil {
		return
	}
	m.engine.Stop()
	res, err := m.run.Wait()
	if err == nil {
		m.result = &res
	}
	m.run = nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.graph.Name))
	b.WriteString("  ")
	b.WriteString(m.status())
	b.WriteString("\n")

	canvasHeight := max(m.height-3, 4)
	for _, line := range renderCanvas(m.graph.Nodes(), m.graph.Edges(), m.width, canvasHeight) {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(watchHelpStyle.Render("r run  s stop  n step  x shuffle  q quit"))
	return b.String()
}

func (m watchModel) status() string {
	var parts []string
	if m.run != nil {
		parts = append(parts, StyleSuccess.Render("running"))
	} else {
		parts = append(parts, StyleDim.Render("idle"))
	}
	if snap := m.engine.Latest(); snap != nil {
		parts = append(parts, fmt.Sprintf("step %d", snap.Step), fmt.Sprintf("energy %.4g", snap.Energy))
	}
	parts = append(parts, fmt.Sprintf("gen %d", m.graph.Generation()))
	if m.result != nil && m.run == nil {
		parts = append(parts, StyleHighlight.Render(m.result.Reason.String()))
	}
	if m.err != nil {
		parts = append(parts, StyleWarning.Render(errors.UserMessage(m.err)))
	}
	return StyleDim.Render(strings.Join(parts, " · "))
}

// =============================================================================
// Canvas
// =============================================================================

// renderCanvas draws edges and nodes into a width x height character grid,
// scaling the graph's bounding box to fit. Terminal cells are about twice
// as tall as wide, so the vertical scale is halved.
func renderCanvas(nodes []graph.Node, edges []graph.Edge, width, height int) []string {
	width, height = max(width, 1), max(height, 1)
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	pos := make([]geom.Vec, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		pos[i] = n.Pos
		index[n.ID] = i
	}
	toCell := fitter(geom.Bounds(pos), width, height)

	for _, e := range edges {
		a, b := toCell(pos[index[e.From]]), toCell(pos[index[e.To]])
		steps := max(abs(b[0]-a[0]), abs(b[1]-a[1]))
		for s := 1; s < steps; s++ {
			t := float64(s) / float64(steps)
			x := a[0] + int(math.Round(t*float64(b[0]-a[0])))
			y := a[1] + int(math.Round(t*float64(b[1]-a[1])))
			grid[y][x] = '·'
		}
	}
	nodeCells := make(map[[2]int]bool, len(nodes))
	for _, p := range pos {
		c := toCell(p)
		grid[c[1]][c[0]] = '●'
		nodeCells[c] = true
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for x, r := range row {
			switch {
			case nodeCells[[2]int{x, y}]:
				b.WriteString(canvasNodeStyle.Render(string(r)))
			case r == '·':
				b.WriteString(canvasEdgeStyle.Render(string(r)))
			default:
				b.WriteRune(r)
			}
		}
		lines[y] = b.String()
	}
	return lines
}

// fitter returns a mapping from graph coordinates to grid cells that
// centers bounds in the grid with a one-cell margin.
func fitter(bounds geom.Rect, width, height int) func(geom.Vec) [2]int {
	innerW := float64(max(width-2, 1))
	innerH := float64(max(height-2, 1))
	scale := math.Inf(1)
	if w := bounds.Width(); w > 0 {
		scale = innerW / w
	}
	if h := bounds.Height(); h > 0 {
		scale = math.Min(scale, 2*innerH/h)
	}
	if math.IsInf(scale, 1) {
		scale = 0
	}
	center := bounds.Center()
	cx, cy := float64(width-1)/2, float64(height-1)/2

	return func(p geom.Vec) [2]int {
		x := int(math.Round(cx + (p.X-center.X)*scale))
		y := int(math.Round(cy + (p.Y-center.Y)*scale/2))
		return [2]int{clamp(x, 0, width-1), clamp(y, 0, height-1)}
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
