package layout

import (
	"context"
	"io"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/geom"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// Engine runs the force simulation on one graph at a time.
//
// The controller starts a run with [Engine.Start] (background) or
// [Engine.Run] (caller's goroutine) and cancels it with [Engine.Stop]; the
// renderer polls [Engine.Latest] or receives snapshots through a StepFunc.
type Engine struct {
	cfg    Config
	logger *log.Logger

	stop   atomic.Bool
	active atomic.Bool
	latest atomic.Pointer[Snapshot]

	// halt is closed by Stop to wake a run parked in its step delay.
	mu   sync.Mutex
	halt chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Runs log at debug level.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New validates cfg and returns an idle engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Running reports whether a run is in progress.
func (e *Engine) Running() bool { return e.active.Load() }

// Latest returns the most recently published snapshot, or nil before the
// first step.
func (e *Engine) Latest() *Snapshot { return e.latest.Load() }

// Stop asks the active run to finish after its current step. A run waiting
// out its step delay returns at once without starting another step. The
// graph is left fully committed.
func (e *Engine) Stop() {
	e.stop.Store(true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halt == nil {
		return
	}
	select {
	case <-e.halt:
	default:
		close(e.halt)
	}
}

// stopped reports whether Stop was called or ctx is done.
func (e *Engine) stopped(ctx context.Context) bool {
	return e.stop.Load() || ctx.Err() != nil
}

// =============================================================================
// Run / Start
// =============================================================================

// Run iterates on the caller's goroutine until the graph converges, the
// step budget is spent, or the run is cancelled. onStep may be nil.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, maxIterations int, onStep StepFunc) (Result, error) {
	lease, err := e.begin(g, maxIterations)
	if err != nil {
		return Result{}, err
	}
	defer e.active.Store(false)
	defer lease.Release()
	return e.loop(ctx, g, lease, uuid.NewString(), maxIterations, onStep)
}

// Start launches a run on a background goroutine and returns once the
// graph is held. It fails with BUSY when a run is already active.
func (e *Engine) Start(ctx context.Context, g *graph.Graph, maxIterations int, onStep StepFunc) (*Run, error) {
	lease, err := e.begin(g, maxIterations)
	if err != nil {
		return nil, err
	}

	r := &Run{id: uuid.NewString(), done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer e.active.Store(false)
		defer lease.Release()
		r.result, r.err = e.loop(ctx, g, lease, r.id, maxIterations, onStep)
	}()
	return r, nil
}

// Step performs one committed step outside of a run (single stepping).
func (e *Engine) Step(g *graph.Graph) (Snapshot, error) {
	lease, err := e.begin(g, 1)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.active.Store(false)
	defer lease.Release()

	s := loadState(g)
	pos, vel, energy, err := e.compute(s)
	if err != nil {
		return Snapshot{}, err
	}
	gen, err := lease.Commit(pos, vel)
	if err != nil {
		return Snapshot{}, err
	}
	snap := e.publish("", 1, gen, energy, pos, vel)
	return snap, nil
}

// begin claims the engine and the graph.
func (e *Engine) begin(g *graph.Graph, maxIterations int) (*graph.Lease, error) {
	if maxIterations <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "max iterations must be positive, got %d", maxIterations)
	}
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is nil")
	}
	if !e.active.CompareAndSwap(false, true) {
		return nil, errors.New(errors.ErrCodeBusy, "layout engine is already running")
	}
	lease, err := g.Acquire()
	if err != nil {
		e.active.Store(false)
		return nil, err
	}
	e.mu.Lock()
	e.halt = make(chan struct{})
	e.stop.Store(false)
	e.mu.Unlock()
	return lease, nil
}

// =============================================================================
// Iteration
// =============================================================================

type state struct {
	pos    []geom.Vec
	vel    []geom.Vec
	radius []float64
	adj    [][]int
}

func loadState(g *graph.Graph) *state {
	st := g.State()
	return &state{
		pos:    st.Positions,
		vel:    st.Velocities,
		radius: st.Radii,
		adj:    g.Adjacency(),
	}
}

func (e *Engine) loop(ctx context.Context, g *graph.Graph, lease *graph.Lease, runID string, maxIterations int, onStep StepFunc) (Result, error) {
	start := time.Now()
	hooks := observability.Pipeline()
	s := loadState(g)
	res := Result{RunID: runID}
	e.mu.Lock()
	halt := e.halt
	e.mu.Unlock()

	hooks.OnLayoutStart(ctx, runID, len(s.pos))
	e.logger.Debug("layout started",
		"run", runID,
		"nodes", len(s.pos),
		"edges", g.EdgeCount(),
		"max_iterations", maxIterations)

	finish := func(err error) (Result, error) {
		res.Duration = time.Since(start)
		reason := res.Reason.String()
		hooks.OnLayoutComplete(ctx, runID, reason, res.Steps, res.Duration, err)
		if err != nil {
			e.logger.Debug("layout failed", "run", runID, "steps", res.Steps, "err", err)
			return res, err
		}
		e.logger.Debug("layout finished",
			"run", runID,
			"reason", reason,
			"steps", res.Steps,
			"energy", res.Energy,
			"duration", res.Duration)
		return res, nil
	}

	if len(s.pos) == 0 {
		res.Reason = Converged
		return finish(nil)
	}

	var timer *time.Timer
	for {
		pos, vel, energy, err := e.compute(s)
		if err != nil {
			return finish(err)
		}
		gen, err := lease.Commit(pos, vel)
		if err != nil {
			return finish(err)
		}
		s.pos, s.vel = pos, vel
		res.Steps++
		res.Energy = energy

		snap := e.publish(runID, res.Steps, gen, energy, pos, vel)
		hooks.OnLayoutStep(ctx, runID, res.Steps, energy)
		if onStep != nil {
			onStep(snap)
		}

		switch {
		case energy < e.cfg.Epsilon:
			res.Reason = Converged
		case e.stopped(ctx):
			res.Reason = Cancelled
		case res.Steps >= maxIterations:
			res.Reason = MaxIterations
		}
		if res.Reason != 0 {
			return finish(nil)
		}

		if e.cfg.StepDelay > 0 {
			if timer == nil {
				timer = time.NewTimer(e.cfg.StepDelay)
				defer timer.Stop()
			} else {
				timer.Reset(e.cfg.StepDelay)
			}
			select {
			case <-ctx.Done():
				res.Reason = Cancelled
				return finish(nil)
			case <-halt:
				res.Reason = Cancelled
				return finish(nil)
			case <-timer.C:
			}
			if e.stopped(ctx) {
				res.Reason = Cancelled
				return finish(nil)
			}
		}
	}
}

// publish stores a snapshot of a committed step and returns a separate copy
// for the caller.
func (e *Engine) publish(runID string, step int, gen uint64, energy float64, pos, vel []geom.Vec) Snapshot {
	snap := Snapshot{
		RunID:      runID,
		Step:       step,
		Generation: gen,
		Energy:     energy,
		Positions:  slices.Clone(pos),
		Velocities: slices.Clone(vel),
	}
	stored := snap
	stored.Positions = slices.Clone(pos)
	stored.Velocities = slices.Clone(vel)
	e.latest.Store(&stored)
	return snap
}

// compute runs one integration step from s without touching the graph.
// Nodes are split into contiguous chunks across workers; energy is summed
// in node order afterwards, so the result does not depend on the worker
// count.
func (e *Engine) compute(s *state) (pos, vel []geom.Vec, energy float64, err error) {
	n := len(s.pos)
	pos = make([]geom.Vec, n)
	vel = make([]geom.Vec, n)
	contrib := make([]float64, n)

	workers := e.workers(n)
	chunk := (n + workers - 1) / workers

	var eg errgroup.Group
	eg.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				pos[i], vel[i], contrib[i] = e.cfg.nodeUpdate(s, i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, 0, err
	}

	for _, c := range contrib {
		energy += c
	}
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return nil, nil, 0, errors.New(errors.ErrCodeNumeric, "step produced non-finite energy %v", energy)
	}
	for i, p := range pos {
		if !p.IsFinite() || !vel[i].IsFinite() {
			return nil, nil, 0, errors.New(errors.ErrCodeNumeric, "step produced non-finite state for node %d", i)
		}
	}
	return pos, vel, energy, nil
}

func (e *Engine) workers(n int) int {
	w := e.cfg.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return max(1, min(w, n))
}

// =============================================================================
// Run handle
// =============================================================================

// Run is a handle on a background run started with [Engine.Start].
type Run struct {
	id     string
	done   chan struct{}
	result Result
	err    error
}

// ID returns the run's unique id.
func (r *Run) ID() string { return r.id }

// Done is closed once the run has finished and released the graph.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes and returns its result.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}
