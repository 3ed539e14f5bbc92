package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Describe the configured database",
		Long: `Print the tables and columns of the configured database.

Markdown output is the plain-text form accepted by --schema-file.`,
		Example: `  sqlbench schema --database duckdb:///data/bench.duckdb -o markdown > schema.txt`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := RequireDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			schema, err := cmdCtx.DB.DescribeSchema(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to describe schema: %w", err)
			}
			return renderSchema(cmdCtx.Renderer, schema)
		},
	}
}
