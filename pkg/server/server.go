// Package server exposes layout sessions over HTTP.
//
// The API plays the controller and renderer roles of an interactive
// viewer: clients upload or generate a graph, start and stop layout runs,
// single-step, shuffle, and poll committed snapshots.
//
// # Routes
//
//	POST   /sessions                   create (text body, or ?generator=random|grid)
//	GET    /sessions                   list
//	GET    /sessions/{id}              summary
//	DELETE /sessions/{id}              stop and remove
//	GET    /sessions/{id}/graph        text format (?extended=true)
//	GET    /sessions/{id}/graph.json   node-link JSON
//	GET    /sessions/{id}/export       ?format=dot|svg|json|text
//	GET    /sessions/{id}/snapshot     latest committed state
//	POST   /sessions/{id}/run          start a background run (?max_iterations=)
//	POST   /sessions/{id}/stop         request cancellation
//	POST   /sessions/{id}/step         one committed step
//	POST   /sessions/{id}/shuffle      randomize positions (?seed=)
//	GET    /healthz                    liveness
//	GET    /metrics                    Prometheus exposition
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/forcegraph/pkg/layout"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/session"
)

// DefaultMaxNodes is the session graph size limit when none is configured.
const DefaultMaxNodes = 5000

// Config configures a [Server].
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64

	// MaxNodes caps the size of a session's graph, generated or uploaded;
	// 0 uses DefaultMaxNodes. Every layout step is quadratic in it.
	MaxNodes int

	// Layout constants for new sessions.
	Layout layout.Config

	// MaxIterations is the run budget when a request does not set one.
	MaxIterations int

	// Generator defaults for POST /sessions?generator=...
	Nodes    int
	MaxEdges int
	Columns  int
	Rows     int

	// CleanupInterval is how often idle sessions are removed; 0 uses one minute.
	CleanupInterval time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	store   session.Store
	runner  *pipeline.Runner
	metrics http.Handler
	logger  *log.Logger
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRunner sets the pipeline runner used for exports. Without one,
// exports are not cached.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Server) {
		if r != nil {
			s.runner = r
		}
	}
}

// New creates a server backed by store.
func New(cfg Config, store session.Store, opts ...Option) *Server {
	if cfg.Layout == (layout.Config{}) {
		cfg.Layout = layout.DefaultConfig()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = pipeline.DefaultMaxIterations
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultMaxNodes
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Get("/graph", s.handleGraphText)
			r.Get("/graph.json", s.handleGraphJSON)
			r.Get("/export", s.handleExport)
			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/run", s.handleRun)
			r.Post("/stop", s.handleStop)
			r.Post("/step", s.handleStep)
			r.Post("/shuffle", s.handleShuffle)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go s.cleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.store.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	_ = s.store.Close()
	s.logger.Info("server stopped")
	return err
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "err", err)
			} else if n > 0 {
				s.logger.Debug("removed idle sessions", "count", n)
			}
		}
	}
}
