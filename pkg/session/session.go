// Package session manages interactive layout sessions for the HTTP API.
//
// A session owns one graph and one layout engine. Clients drive it the way
// an interactive viewer's controls would: start a run, stop it, single
// step, shuffle, and read the latest committed snapshot at any time.
//
// # Architecture
//
// Sessions live in a [Store]. The [MemoryStore] keeps them in process with
// a capacity limit and an idle timeout; expired sessions are stopped and
// removed by Cleanup.
//
// Runs started through a session are bound to the session's own context,
// not to the HTTP request that started them, so they outlive the request
// and end when the session is closed.
//
// # Usage
//
//	sess, err := session.New(g, layout.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	store.Add(ctx, sess)
//
//	runID, err := sess.Start(1000)
//	// ...
//	snap := sess.Snapshot()
package session

import (
	"context"
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/layout"
)

// Default durations.
const (
	// DefaultIdleTTL is how long a session survives without requests.
	DefaultIdleTTL = 30 * time.Minute
)

// Session is one graph with its layout engine.
type Session struct {
	ID        string
	CreatedAt time.Time

	graph  *graph.Graph
	engine *layout.Engine

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	run        *layout.Run
	lastResult *layout.Result
	lastErr    error
	lastAccess time.Time
}

// Info is the client-facing summary of a session.
type Info struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	Generation uint64         `json:"generation"`
	Running    bool           `json:"running"`
	RunID      string         `json:"run_id,omitempty"`
	Result     *layout.Result `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	LastAccess time.Time      `json:"last_access"`
}

// New creates a session for g with an engine built from cfg.
func New(g *graph.Graph, cfg layout.Config, logger *log.Logger) (*Session, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is nil")
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	engine, err := layout.New(cfg, layout.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		graph:      g,
		engine:     engine,
		ctx:        ctx,
		cancel:     cancel,
		lastAccess: now,
	}, nil
}

// Graph returns the session's graph. Readers may use its copying accessors
// at any time; mutation fails with BUSY while a run is active.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Engine returns the session's layout engine.
func (s *Session) Engine() *layout.Engine { return s.engine }

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the time of the last recorded activity.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Start launches a background run and returns its id. It fails with BUSY
// while another run is active.
func (s *Session) Start(maxIterations int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectLocked()

	run, err := s.engine.Start(s.ctx, s.graph, maxIterations, nil)
	if err != nil {
		return "", err
	}
	s.run = run
	s.lastResult = nil
	s.lastErr = nil
	return run.ID(), nil
}

// Stop requests cancellation of the active run. It returns false when no
// run is active.
func (s *Session) Stop() bool {
	if !s.engine.Running() {
		return false
	}
	s.engine.Stop()
	return true
}

// Wait blocks until the active run, if any, finishes and returns its result.
func (s *Session) Wait() (*layout.Result, error) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return s.result()
	}
	<-run.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectLocked()
	return s.lastResult, s.lastErr
}

// Step performs a single committed step. It fails with BUSY during a run.
func (s *Session) Step() (layout.Snapshot, error) {
	return s.engine.Step(s.graph)
}

// Shuffle randomizes node positions. It fails with BUSY during a run.
func (s *Session) Shuffle(rng *rand.Rand) error {
	return s.graph.Shuffle(rng)
}

// Snapshot returns a copy of the latest committed state. Before the first
// step it is built from the graph itself.
func (s *Session) Snapshot() layout.Snapshot {
	if snap := s.engine.Latest(); snap != nil && snap.Generation == s.graph.Generation() {
		out := *snap
		out.Positions = slices.Clone(snap.Positions)
		out.Velocities = slices.Clone(snap.Velocities)
		return out
	}
	st := s.graph.State()
	return layout.Snapshot{
		Generation: st.Generation,
		Positions:  st.Positions,
		Velocities: st.Velocities,
	}
}

// Info summarizes the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectLocked()

	info := Info{
		ID:         s.ID,
		Name:       s.graph.Name,
		Nodes:      s.graph.NodeCount(),
		Edges:      s.graph.EdgeCount(),
		Generation: s.graph.Generation(),
		Running:    s.run != nil,
		Result:     s.lastResult,
		CreatedAt:  s.CreatedAt,
		LastAccess: s.lastAccess,
	}
	if s.run != nil {
		info.RunID = s.run.ID()
	}
	if s.lastErr != nil {
		info.Error = errors.UserMessage(s.lastErr)
	}
	return info
}

// Close cancels any active run and waits for it to finish.
func (s *Session) Close() {
	s.cancel()
	_, _ = s.Wait()
}

func (s *Session) result() (*layout.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.lastErr
}

// collectLocked moves the result of a finished run into lastResult.
func (s *Session) collectLocked() {
	if s.run == nil {
		return
	}
	select {
	case <-s.run.Done():
		res, err := s.run.Wait()
		if err != nil {
			s.lastErr = err
		} else {
			s.lastResult = &res
		}
		s.run = nil
	default:
	}
}
