package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/forcegraph/pkg/buildinfo"
	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/layout"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/session"
)

// RunResponse is returned when a background run starts.
type RunResponse struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
}

// SnapshotResponse pairs a snapshot with the node ids its slices are
// indexed by.
type SnapshotResponse struct {
	layout.Snapshot
	IDs []string `json:"ids"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status   string         `json:"status"`
	Build    buildinfo.Info `json:"build"`
	Sessions int            `json:"sessions"`
}

// StopResponse reports whether a run was signalled.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Build:    buildinfo.Get(),
		Sessions: len(sessions),
	})
}

// =============================================================================
// Session Collection
// =============================================================================

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	opts, err := s.loadOptions(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	g, err := pipeline.Load(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n := g.NodeCount(); n > s.cfg.MaxNodes {
		s.fail(w, r, errors.New(errors.ErrCodeLimit, "graph has %d nodes, limit is %d", n, s.cfg.MaxNodes))
		return
	}

	sess, err := session.New(g, s.cfg.Layout, s.logger)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Add(r.Context(), sess); err != nil {
		sess.Close()
		s.fail(w, r, err)
		return
	}

	s.logger.Info("session created", "session", sess.ID, "source", opts.Source(),
		"nodes", g.NodeCount(), "edges", g.EdgeCount())
	w.Header().Set("Location", "/sessions/"+sess.ID)
	s.respondJSON(w, http.StatusCreated, sess.Info())
}

// loadOptions builds pipeline load options from a create request. A
// generator query parameter selects a generator; otherwise the body is
// parsed as graph text.
func (s *Server) loadOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	if gen := q.Get("generator"); gen != "" {
		if err := pipeline.ValidateGenerator(gen); err != nil {
			return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad generator")
		}
		opts := pipeline.Options{
			Generator: gen,
			Nodes:     s.cfg.Nodes,
			MaxEdges:  s.cfg.MaxEdges,
			Columns:   s.cfg.Columns,
			Rows:      s.cfg.Rows,
		}
		var err error
		if opts.Nodes, err = intParam(q.Get("nodes"), opts.Nodes); err != nil {
			return opts, err
		}
		if opts.MaxEdges, err = intParam(q.Get("max_edges"), opts.MaxEdges); err != nil {
			return opts, err
		}
		if opts.Columns, err = intParam(q.Get("columns"), opts.Columns); err != nil {
			return opts, err
		}
		if opts.Rows, err = intParam(q.Get("rows"), opts.Rows); err != nil {
			return opts, err
		}
		if v := q.Get("seed"); v != "" {
			seed, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "seed must be an unsigned integer, got %q", v)
			}
			opts.Seed = seed
		}
		if err := s.checkGeneratorSize(opts); err != nil {
			return opts, err
		}
		return opts, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeLimit, err, "request body exceeds %d bytes", s.cfg.MaxBodyBytes)
	}
	if len(body) == 0 {
		return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput, "empty body: send graph text or set ?generator=random|grid")
	}
	return pipeline.Options{Text: string(body)}, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	infos := make([]session.Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	s.respondJSON(w, http.StatusOK, infos)
}

// =============================================================================
// Single Session
// =============================================================================

// lookup resolves the {id} URL parameter, writing the error response when
// the session does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraphText(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	extended, _ := strconv.ParseBool(r.URL.Query().Get("extended"))
	data, err := graph.MarshalWith(sess.Graph(), graph.WriteOptions{Extended: extended})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleGraphJSON(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, graph.ToDocument(sess.Graph()))
}

var contentTypes = map[string]string{
	pipeline.FormatText: "text/plain; charset=utf-8",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz",
	pipeline.FormatSVG:  "image/svg+xml",
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad format"))
		return
	}
	labels, _ := strconv.ParseBool(q.Get("labels"))
	extended, _ := strconv.ParseBool(q.Get("extended"))

	artifacts, err := s.runner.Export(r.Context(), sess.Graph(), pipeline.Options{
		Formats:  []string{format},
		Labels:   labels,
		Extended: extended,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, snapshotResponse(sess, sess.Snapshot()))
}

func snapshotResponse(sess *session.Session, snap layout.Snapshot) SnapshotResponse {
	nodes := sess.Graph().Nodes()
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return SnapshotResponse{Snapshot: snap, IDs: ids}
}

// =============================================================================
// Layout Control
// =============================================================================

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	maxIter, err := intParam(r.URL.Query().Get("max_iterations"), s.cfg.MaxIterations)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	runID, err := sess.Start(maxIter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("run started", "session", sess.ID, "run", runID, "max_iterations", maxIter)
	s.respondJSON(w, http.StatusAccepted, RunResponse{SessionID: sess.ID, RunID: runID})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, StopResponse{Stopped: sess.Stop()})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap, err := sess.Step()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, snapshotResponse(sess, snap))
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var seed uint64
	if v := r.URL.Query().Get("seed"); v != "" {
		var err error
		if seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "seed must be an unsigned integer, got %q", v))
			return
		}
	}
	if err := sess.Shuffle(pipeline.Rand(seed)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, snapshotResponse(sess, sess.Snapshot()))
}

// checkGeneratorSize rejects generator requests above MaxNodes before any
// node is allocated. Negative sizes are left to the generators.
func (s *Server) checkGeneratorSize(opts pipeline.Options) error {
	limit := s.cfg.MaxNodes
	switch opts.Generator {
	case pipeline.GeneratorRandom:
		if opts.Nodes > limit {
			return errors.New(errors.ErrCodeLimit, "nodes %d exceeds limit %d", opts.Nodes, limit)
		}
	case pipeline.GeneratorGrid:
		if opts.Columns > limit || opts.Rows > limit ||
			(opts.Columns > 0 && opts.Rows > 0 && opts.Columns > limit/opts.Rows) {
			return errors.New(errors.ErrCodeLimit, "grid %dx%d exceeds limit of %d nodes", opts.Columns, opts.Rows, limit)
		}
	}
	return nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "expected an integer, got %q", v)
	}
	return n, nil
}
