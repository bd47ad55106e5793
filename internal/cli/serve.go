package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/zenai/agentcore/internal/mcpserver"
	"github.com/zenai/agentcore/internal/metrics"
	logx "github.com/zenai/agentcore/pkg/logger"
)

func (r *runner) serveMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the agents as MCP tools over stdio",
		Long:  "Serve the agents as MCP tools over stdio. When METRICS_ADDR is set, Prometheus metrics\nare served on that address for the lifetime of the server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, app *App) error {
				if addr := app.Config.MetricsAddr; addr != "" {
					stop := serveMetrics(addr)
					defer stop()
				}
				return server.ServeStdio(mcpserver.New(app.Engine))
			})
		},
	}
}

// serveMetrics starts the metrics listener and returns its shutdown func.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logx.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
