package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlbench/internal/cli/output"
	"github.com/leapstack-labs/sqlbench/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show saved benchmark runs",
		Long: `List benchmark runs recorded with 'sqlbench batch --save', newest
first, or show the per-model summary of one run.`,
		Example: `  sqlbench history
  sqlbench history 3f1c2a9e-5d1b-4e0c-9a57-0d3c7b8f2e11 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := history.Open(cmdCtx.Cfg.History.Path, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var runs []history.Run
			if len(args) == 1 {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				runs = []history.Run{*run}
			} else if runs, err = store.List(cmd.Context(), limit); err != nil {
				return err
			}
			return renderHistory(cmdCtx.Renderer, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().String("history", "", "History database path (default .sqlbench/history.db)")
	return cmd
}

func renderHistory(r *output.Renderer, runs []history.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []history.Run{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Println(r.Styles().Muted.Render("no saved runs"))
		return nil
	}

	r.Header(1, "Benchmark History")
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		for _, m := range run.Models {
			rows = append(rows, []string{
				run.ID[:8],
				run.StartedAt.Local().Format(time.DateTime),
				run.Suite,
				m.Model,
				fmt.Sprintf("%d", m.Overall.Count),
				score(m.Overall.ExactMatchAccuracy),
				score(m.Overall.LogicalFormAccuracy),
				score(m.Overall.ExecutionAccuracy),
			})
		}
	}
	r.Table([]string{"Run", "Started", "Suite", "Model", "Queries", "Exact", "Logical", "Execution"}, rows)
	return nil
}
