package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/config"
	"github.com/matzehuels/forcegraph/pkg/metrics"
	"github.com/matzehuels/forcegraph/pkg/observability"
	"github.com/matzehuels/forcegraph/pkg/server"
	"github.com/matzehuels/forcegraph/pkg/session"
)

// serveCommand creates the serve command, which runs the HTTP session API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		maxSessions int
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout session API over HTTP",
		Long: `Serve the layout session API. Clients upload or generate graphs, start and
stop runs, single-step, shuffle and poll snapshots. Prometheus metrics are
exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := c.Config.Server
			if cmd.Flags().Changed("addr") {
				sc.Addr = addr
			}
			if cmd.Flags().Changed("max-sessions") {
				sc.MaxSessions = maxSessions
			}
			return c.runServe(cmd.Context(), sc, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: 127.0.0.1:8080)")
	cmd.Flags().IntVar(&maxSessions, "max-sessions", 0, "maximum concurrent sessions")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the export cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, sc config.ServerConfig, noCache bool) error {
	reg := metrics.NewRegistry()
	observability.SetPipelineHooks(reg)
	observability.SetCacheHooks(reg)
	observability.SetHTTPHooks(reg)

	runner := c.newRunner(ctx, noCache)
	defer runner.Close()

	gen := c.Config.Generate
	srv := server.New(server.Config{
		Addr:          sc.Addr,
		ReadTimeout:   sc.ReadTimeout,
		WriteTimeout:  sc.WriteTimeout,
		MaxBodyBytes:  sc.MaxBodyBytes,
		MaxNodes:      sc.MaxNodes,
		Layout:        c.Config.Layout,
		MaxIterations: c.Config.Run.MaxIterations,
		Nodes:         gen.Nodes,
		MaxEdges:      gen.MaxEdges,
		Columns:       gen.Columns,
		Rows:          gen.Rows,
	},
		session.NewMemoryStore(sc.MaxSessions, session.DefaultIdleTTL),
		server.WithLogger(c.Logger),
		server.WithMetrics(reg.Handler()),
		server.WithRunner(runner),
	)

	printInfo("Serving on %s", StyleLink.Render("http://"+sc.Addr))
	printDetail("Press Ctrl-C to stop")
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
