package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlbench/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the evaluation HTTP API",
		Long: `Serve the evaluator over HTTP.

Endpoints:
  GET  /health             service and database status
  POST /evaluate           score one request
  POST /evaluate/batch     score a list of requests
  GET  /complexity-levels  accepted complexity tiers`,
		Example: `  sqlbench serve --addr :8000 --database postgres://bench@localhost/evals`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContextWithDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Evaluator: cmdCtx.Evaluator(),
				Addr:      cmdCtx.Cfg.Server.Addr,
				Version:   version,
				Logger:    cmdCtx.Logger,
			})
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :8000)")
	cmd.Flags().Int("workers", 0, "Number of concurrent evaluations per batch request")
	return cmd
}
