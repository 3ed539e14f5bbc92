// Package main provides the sqlbench CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlbench/internal/cli"

	// Register database adapters
	_ "github.com/leapstack-labs/sqlbench/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/sqlbench/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/sqlbench/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlbench/pkg/adapters/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
