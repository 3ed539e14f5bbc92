package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlbench/pkg/metrics"
)

// EvaluateOptions holds options for the evaluate command.
type EvaluateOptions struct {
	Generated  string
	Reference  string
	Complexity string
	SchemaFile string
	Latency    float64
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand() *cobra.Command {
	opts := &EvaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a generated query against a reference query",
		Long: `Compare a generated SQL query with a reference query.

The queries are normalized and compared as text, then broken into
structural facets (tables, columns, joins, predicates, grouping,
ordering, limit and aggregations). When a database is configured both
queries are also executed and their result sets compared.

A value starting with @ is read from the named file.`,
		Example: `  # Compare two queries
  sqlbench evaluate --generated "SELECT name FROM users" --reference "SELECT name FROM users WHERE age > 18"

  # Read queries from files and verify against a database
  sqlbench evaluate --generated @gen.sql --reference @ref.sql --complexity complex --database sqlite://bench.db

  # Include zero-shot scoring
  sqlbench evaluate --generated @gen.sql --reference @ref.sql --schema-file schema.txt -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Generated, "generated", "g", "", "Generated SQL query (or @file)")
	cmd.Flags().StringVarP(&opts.Reference, "reference", "r", "", "Reference SQL query (or @file)")
	cmd.Flags().StringVarP(&opts.Complexity, "complexity", "c", string(metrics.Medium), "Query complexity (simple|medium|complex)")
	cmd.Flags().StringVar(&opts.SchemaFile, "schema-file", "", "Plain-text schema description for zero-shot scoring")
	cmd.Flags().Float64Var(&opts.Latency, "latency", 0, "Inference latency of the generated query in milliseconds")
	cmd.Flags().Int("timeout", 0, "Execution timeout in milliseconds")
	_ = cmd.MarkFlagRequired("generated")
	_ = cmd.MarkFlagRequired("reference")

	_ = cmd.RegisterFlagCompletionFunc("complexity", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		levels := metrics.Complexities()
		names := make([]string, len(levels))
		for i, c := range levels {
			names[i] = string(c)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *EvaluateOptions) error {
	complexity, err := metrics.ParseComplexity(opts.Complexity)
	if err != nil {
		return err
	}
	generated, err := readArg(opts.Generated)
	if err != nil {
		return err
	}
	reference, err := readArg(opts.Reference)
	if err != nil {
		return err
	}

	req := metrics.Request{
		GeneratedQuery:   generated,
		ReferenceQuery:   reference,
		QueryComplexity:  complexity,
		InferenceLatency: opts.Latency,
	}
	if opts.SchemaFile != "" {
		data, err := os.ReadFile(opts.SchemaFile)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		schema := string(data)
		req.DatabaseSchema = &schema
	}

	cmdCtx, cleanup, err := NewCommandContextWithDB(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	resp := cmdCtx.Evaluator().Evaluate(cmd.Context(), req)
	return renderEvaluation(cmdCtx.Renderer, resp)
}

// readArg returns s, or the contents of the file it names when it starts
// with @.
func readArg(s string) (string, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
