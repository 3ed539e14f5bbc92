// Package commands implements the sqlbench subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlbench/internal/cli/output"
	"github.com/leapstack-labs/sqlbench/internal/config"
	"github.com/leapstack-labs/sqlbench/pkg/adapter"
	"github.com/leapstack-labs/sqlbench/pkg/metrics"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

// CommandContext holds the dependencies shared by commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// DB is nil when no database is configured or execution is disabled.
	DB adapter.Adapter
}

// NewCommandContext creates a CommandContext without a database.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// NewCommandContextWithDB creates a CommandContext and connects the
// configured database when execution is enabled. The returned cleanup
// closes the connection.
func NewCommandContextWithDB(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContext(cmd)
	cleanup := func() {}

	cfg := cmdCtx.Cfg
	if !cfg.Execution.Enabled || !cfg.Database.Configured() {
		cmdCtx.Logger.Debug("execution verification disabled",
			slog.Bool("enabled", cfg.Execution.Enabled),
			slog.Bool("database", cfg.Database.Configured()))
		return cmdCtx, cleanup, nil
	}

	db, err := openDatabase(cmd.Context(), cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.DB = db
	return cmdCtx, func() { _ = db.Close() }, nil
}

// RequireDB connects the configured database regardless of the execution
// setting.
func RequireDB(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContext(cmd)
	if !cmdCtx.Cfg.Database.Configured() {
		return nil, nil, fmt.Errorf("no database configured\nHint: set database.url in sqlbench.yaml, SQLBENCH_DATABASE_URL or --database")
	}
	db, err := openDatabase(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.DB = db
	return cmdCtx, func() { _ = db.Close() }, nil
}

// Evaluator builds an evaluator, with execution verification when a
// database is connected.
func (c *CommandContext) Evaluator() *metrics.Evaluator {
	var verifier *verify.Verifier
	if c.DB != nil {
		verifier = verify.New(c.DB, c.Cfg.Execution.Timeout(), c.Logger)
	}
	e := metrics.NewEvaluator(verifier, c.Logger)
	e.Workers = c.Cfg.Batch.Workers
	return e
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	acfg, err := cfg.AdapterConfig()
	if err != nil {
		return nil, err
	}
	db, err := adapter.Open(ctx, acfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", acfg.Type, err)
	}
	logger.Debug("database connected", slog.String("type", acfg.Type))
	return db, nil
}
