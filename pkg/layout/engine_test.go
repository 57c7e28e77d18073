package layout

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

func buildGraph(t *testing.T, nodes []graph.Node, edges [][2]string) *graph.Graph {
	t.Helper()
	g := graph.New("test")
	for _, n := range nodes {
		if n.Radius == 0 {
			n.Radius = 10
		}
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", e[0], e[1], err)
		}
	}
	return g
}

func pair(t *testing.T, distance float64) *graph.Graph {
	return buildGraph(t, []graph.Node{
		{ID: "a", Pos: geom.Vec{}},
		{ID: "b", Pos: geom.Vec{X: distance}},
	}, [][2]string{{"a", "b"}})
}

// square returns four unlinked nodes, so only repulsion acts.
func square(t *testing.T) *graph.Graph {
	return buildGraph(t, []graph.Node{
		{ID: "a", Pos: geom.Vec{X: 0, Y: 0}},
		{ID: "b", Pos: geom.Vec{X: 50, Y: 0}},
		{ID: "c", Pos: geom.Vec{X: 50, Y: 50}},
		{ID: "d", Pos: geom.Vec{X: 0, Y: 50}},
	}, nil)
}

func newEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func distance(g *graph.Graph, a, b string) float64 {
	na, _ := g.Node(a)
	nb, _ := g.Node(b)
	return na.Pos.Dist(nb.Pos)
}

func TestRunTwoNodesSettle(t *testing.T) {
	for _, start := range []float64{100, 300, 20} {
		g := pair(t, start)
		e := newEngine(t, func(c *Config) { c.Epsilon = 0.01 })

		res, err := e.Run(context.Background(), g, 10000, nil)
		if err != nil {
			t.Fatalf("start %v: Run: %v", start, err)
		}
		if res.Reason != Converged {
			t.Fatalf("start %v: reason = %s after %d steps", start, res.Reason, res.Steps)
		}
		if res.Energy >= 0.01 {
			t.Errorf("start %v: energy = %v, want < epsilon", start, res.Energy)
		}
		if d := distance(g, "a", "b"); math.Abs(d-DefaultRestLength) > 3 {
			t.Errorf("start %v: settled at distance %v, want ≈ %v", start, d, DefaultRestLength)
		}
		if g.Generation() != uint64(res.Steps) {
			t.Errorf("start %v: generation %d != steps %d", start, g.Generation(), res.Steps)
		}
		if g.Busy() || e.Running() {
			t.Errorf("start %v: graph or engine still held after Run", start)
		}
	}
}

func TestRunPureRepulsion(t *testing.T) {
	g := square(t)
	e := newEngine(t, func(c *Config) { c.Epsilon = 1e-9 })

	pairwise := func(pos []geom.Vec) float64 {
		total := 0.0
		for i := range pos {
			for j := i + 1; j < len(pos); j++ {
				total += pos[i].Dist(pos[j])
			}
		}
		return total
	}
	prev := pairwise(g.State().Positions)
	steps := 0
	res, err := e.Run(context.Background(), g, 200, func(s Snapshot) {
		steps++
		total := pairwise(s.Positions)
		if total < prev {
			t.Errorf("step %d: pairwise distance shrank from %v to %v", s.Step, prev, total)
		}
		prev = total
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != MaxIterations || res.Steps != 200 || steps != 200 {
		t.Errorf("result = %+v with %d callbacks, want max_iterations after 200", res, steps)
	}
}

func TestRunAlreadySettled(t *testing.T) {
	g := pair(t, DefaultRestLength)
	e := newEngine(t, nil)

	res, err := e.Run(context.Background(), g, 10, func(Snapshot) { e.Stop() })
	if err != nil {
		t.Fatal(err)
	}
	// Convergence wins over a stop request seen in the same step.
	if res.Reason != Converged || res.Steps != 1 {
		t.Errorf("result = %+v, want converged after 1 step", res)
	}
}

func TestRunEmptyGraph(t *testing.T) {
	e := newEngine(t, nil)
	called := false
	res, err := e.Run(context.Background(), graph.New("empty"), 5, func(Snapshot) { called = true })
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != Converged || res.Steps != 0 || called {
		t.Errorf("result = %+v, callback = %v; want converged with 0 steps and no callback", res, called)
	}
	if e.Latest() != nil {
		t.Error("Latest() published a snapshot for an empty graph")
	}
}

func TestRunInvalidInput(t *testing.T) {
	e := newEngine(t, nil)
	for _, n := range []int{0, -5} {
		if _, err := e.Run(context.Background(), square(t), n, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Run(maxIterations=%d) = %v, want INVALID_INPUT", n, err)
		}
	}
	if _, err := e.Run(context.Background(), nil, 10, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Run(nil graph) = %v, want INVALID_INPUT", err)
	}
	if e.Running() {
		t.Error("engine left active after rejected input")
	}
}

func TestStopFromCallback(t *testing.T) {
	g := square(t)
	e := newEngine(t, func(c *Config) { c.Epsilon = 1e-9 })

	const stopAt = 7
	res, err := e.Run(context.Background(), g, 1000, func(s Snapshot) {
		if s.Step == stopAt {
			e.Stop()
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != Cancelled || res.Steps != stopAt {
		t.Errorf("result = %+v, want cancelled at step %d", res, stopAt)
	}
	if g.Generation() != stopAt {
		t.Errorf("generation = %d, want %d (fully committed)", g.Generation(), stopAt)
	}

	// The stop flag does not leak into the next run.
	res, err = e.Run(context.Background(), g, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != MaxIterations || res.Steps != 3 {
		t.Errorf("second run = %+v, want max_iterations after 3", res)
	}
}

func TestContextCancel(t *testing.T) {
	g := square(t)
	e := newEngine(t, func(c *Config) { c.Epsilon = 1e-9 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := e.Run(ctx, g, 1000, func(s Snapshot) {
		if s.Step == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != Cancelled || res.Steps != 3 {
		t.Errorf("result = %+v, want cancelled at step 3", res)
	}
}

func TestStartBackground(t *testing.T) {
	g := square(t)
	e := newEngine(t, func(c *Config) {
		c.Epsilon = 1e-9
		c.StepDelay = time.Hour
	})

	stepped := make(chan Snapshot, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run, err := e.Start(ctx, g, 1000, func(s Snapshot) {
		select {
		case stepped <- s:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.ID() == "" {
		t.Error("run has no id")
	}

	if _, err := e.Start(ctx, g, 10, nil); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("second Start = %v, want BUSY", err)
	}
	if err := g.AddNode(graph.Node{ID: "late", Radius: 1}); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("AddNode during run = %v, want BUSY", err)
	}

	select {
	case s := <-stepped:
		if s.RunID != run.ID() || s.Step != 1 {
			t.Errorf("snapshot = run %q step %d", s.RunID, s.Step)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no step within 5s")
	}

	// The run is now parked in its step delay; cancellation must cut it short.
	cancel()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after cancel")
	}
	res, err := run.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != Cancelled || res.Steps != 1 || res.RunID != run.ID() {
		t.Errorf("result = %+v", res)
	}
	if g.Busy() || e.Running() {
		t.Error("graph or engine still held after Done")
	}
	if g.Generation() != 1 {
		t.Errorf("generation = %d, want 1", g.Generation())
	}
}

func TestStopBackground(t *testing.T) {
	g := square(t)
	e := newEngine(t, func(c *Config) {
		c.Epsilon = 1e-9
		c.StepDelay = time.Millisecond
	})

	var seen atomic.Int64
	run, err := e.Start(context.Background(), g, 1_000_000, func(s Snapshot) {
		seen.Store(int64(s.Step))
	})
	if err != nil {
		t.Fatal(err)
	}
	for seen.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	e.Stop()

	res, err := run.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != Cancelled {
		t.Errorf("reason = %s, want cancelled", res.Reason)
	}
	if int64(res.Steps) != seen.Load() {
		t.Errorf("steps = %d, last callback step = %d", res.Steps, seen.Load())
	}
	if g.Generation() != uint64(res.Steps) {
		t.Errorf("generation = %d, steps = %d", g.Generation(), res.Steps)
	}
}

func TestStopDuringStepDelay(t *testing.T) {
	g := square(t)
	e := newEngine(t, func(c *Config) {
		c.Epsilon = 1e-9
		c.StepDelay = time.Hour
	})

	stepped := make(chan struct{}, 1)
	run, err := e.Start(context.Background(), g, 1000, func(Snapshot) {
		select {
		case stepped <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-stepped:
	case <-time.After(5 * time.Second):
		t.Fatal("no step within 5s")
	}

	// The run is parked in its hour-long delay; Stop must wake it.
	e.Stop()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after Stop")
	}
	res, err := run.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != Cancelled || res.Steps != 1 {
		t.Errorf("result = %s after %d steps, want cancelled after 1", res.Reason, res.Steps)
	}
	if g.Generation() != 1 {
		t.Errorf("generation = %d, want 1", g.Generation())
	}

	// Stop on an idle engine must not leak into the next run.
	e.Stop()
	if _, err := e.Run(context.Background(), g, 1, nil); err != nil {
		t.Fatalf("Run after Stop: %v", err)
	}
	if g.Generation() != 2 {
		t.Errorf("generation = %d after next run, want 2", g.Generation())
	}
}

func TestWorkerCountDeterminism(t *testing.T) {
	run := func(workers int) []geom.Vec {
		g, err := graph.Random(rand.New(rand.NewPCG(3, 4)), 40, 3)
		if err != nil {
			t.Fatal(err)
		}
		e := newEngine(t, func(c *Config) {
			c.Workers = workers
			c.Epsilon = 1e-9
		})
		if _, err := e.Run(context.Background(), g, 25, nil); err != nil {
			t.Fatal(err)
		}
		return g.State().Positions
	}

	want := run(1)
	for _, w := range []int{2, 7, 64} {
		got := run(w)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers=%d: node %d at %v, want %v", w, i, got[i], want[i])
			}
		}
	}
}

func TestStepSingle(t *testing.T) {
	g := pair(t, 100)
	e := newEngine(t, nil)

	if e.Latest() != nil {
		t.Fatal("Latest() before any step")
	}
	snap, err := e.Step(g)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if snap.Generation != 1 || g.Generation() != 1 {
		t.Errorf("generation = %d/%d, want 1", snap.Generation, g.Generation())
	}
	latest := e.Latest()
	if latest == nil || latest.Energy != snap.Energy {
		t.Fatalf("Latest() = %+v, want %+v", latest, snap)
	}
	st := g.State()
	for i := range st.Positions {
		if st.Positions[i] != snap.Positions[i] {
			t.Errorf("node %d: graph %v, snapshot %v", i, st.Positions[i], snap.Positions[i])
		}
	}
	// A stretched spring pulls the pair together.
	if d := distance(g, "a", "b"); d >= 100 {
		t.Errorf("distance = %v after one step, want < 100", d)
	}

	// Mutating a snapshot never reaches the graph or the published copy.
	snap.Positions[0] = geom.Vec{X: 1e6}
	if e.Latest().Positions[0] == snap.Positions[0] {
		t.Error("Latest() shares storage with a returned snapshot")
	}
}

func TestCoincidentNodes(t *testing.T) {
	g := buildGraph(t, []graph.Node{
		{ID: "a", Pos: geom.Vec{X: 5, Y: 5}},
		{ID: "b", Pos: geom.Vec{X: 5, Y: 5}},
	}, nil)
	e := newEngine(t, nil)

	if _, err := e.Step(g); err != nil {
		t.Fatalf("Step: %v", err)
	}
	a, _ := g.Node("a")
	b, _ := g.Node("b")
	if !(a.Pos.X < 5 && b.Pos.X > 5) {
		t.Errorf("a = %v, b = %v; want a pushed to -x and b to +x", a.Pos, b.Pos)
	}
	if math.Abs(a.Pos.Y-5) > 1e-9 || math.Abs(b.Pos.Y-5) > 1e-9 {
		t.Errorf("coincident nodes left the x axis: a = %v, b = %v", a.Pos, b.Pos)
	}
	if math.Abs((a.Pos.X-5)+(b.Pos.X-5)) > 1e-9 {
		t.Errorf("separation not symmetric: a = %v, b = %v", a.Pos, b.Pos)
	}
}

func TestNumericFailure(t *testing.T) {
	g := buildGraph(t, []graph.Node{
		{ID: "a", Pos: geom.Vec{}, Radius: 1e200},
		{ID: "b", Pos: geom.Vec{X: 1}, Radius: 1e200},
	}, nil)
	e := newEngine(t, nil)

	_, err := e.Run(context.Background(), g, 10, nil)
	if !errors.Is(err, errors.ErrCodeNumeric) {
		t.Fatalf("Run = %v, want NUMERIC", err)
	}
	if g.Generation() != 0 {
		t.Errorf("generation = %d, want 0 (nothing committed)", g.Generation())
	}
	for _, n := range g.Nodes() {
		if !n.Pos.IsFinite() {
			t.Errorf("%s committed non-finite position %v", n.ID, n.Pos)
		}
	}
	if g.Busy() {
		t.Error("graph still leased after failure")
	}
}

func TestBusyGraph(t *testing.T) {
	g := square(t)
	lease, err := g.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer lease.Release()

	e := newEngine(t, nil)
	if _, err := e.Run(context.Background(), g, 5, nil); !errors.Is(err, errors.ErrCodeBusy) {
		t.Errorf("Run on leased graph = %v, want BUSY", err)
	}
	if e.Running() {
		t.Error("engine left active after BUSY")
	}
}

func TestReasonText(t *testing.T) {
	for _, r := range []Reason{Converged, MaxIterations, Cancelled} {
		b, err := r.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Reason
		if err := back.UnmarshalText(b); err != nil || back != r {
			t.Errorf("round trip of %s = %s, %v", r, back, err)
		}
	}
	if Reason(0).String() != "unknown" {
		t.Errorf("zero reason = %q", Reason(0).String())
	}
	var r Reason
	if err := r.UnmarshalText([]byte("exploded")); err == nil {
		t.Error("UnmarshalText accepted unknown reason")
	}
}
