package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlbench/internal/history"
	"github.com/leapstack-labs/sqlbench/pkg/benchmark"
)

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "batch <suite.yaml>",
		Short: "Run a benchmark suite",
		Long: `Evaluate every model response in a benchmark suite.

A suite lists queries with their reference SQL and complexity, and for
each model the generated SQL and inference latency per query ID.
Queries without reference SQL or without a response are skipped and
left out of the averages.`,
		Example: `  # Run a suite and print a summary
  sqlbench batch suite.yaml

  # Full per-query report as JSON
  sqlbench batch suite.yaml -o json > report.json

  # Keep the run for later comparison
  sqlbench batch suite.yaml --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], save)
		},
	}
	cmd.Flags().Int("workers", 0, "Number of concurrent evaluations")
	cmd.Flags().Int("timeout", 0, "Execution timeout in milliseconds")
	cmd.Flags().BoolVar(&save, "save", false, "Record the run in the history database")
	cmd.Flags().String("history", "", "History database path (default .sqlbench/history.db)")
	return cmd
}

func runBatch(cmd *cobra.Command, path string, save bool) error {
	suite, err := benchmark.LoadSuite(path)
	if err != nil {
		return err
	}
	if len(suite.Models) == 0 {
		return fmt.Errorf("suite %s has no model responses", path)
	}

	cmdCtx, cleanup, err := NewCommandContextWithDB(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	report := benchmark.Run(cmd.Context(), suite, cmdCtx.Evaluator(), benchmark.Options{
		Workers: cmdCtx.Cfg.Batch.Workers,
		Logger:  cmdCtx.Logger,
	})
	if save {
		store, err := history.Open(cmdCtx.Cfg.History.Path, cmdCtx.Logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.Save(cmd.Context(), path, report); err != nil {
			return err
		}
		cmdCtx.Logger.Info("run saved", slog.String("id", report.RunID.String()), slog.String("history", cmdCtx.Cfg.History.Path))
	}
	return renderReport(cmdCtx.Renderer, report)
}
