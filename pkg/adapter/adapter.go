// Package adapter provides the database executors used to verify query
// equivalence by running both queries.
//
// This package contains the contract every database adapter implements.
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

// Config holds the connection settings for an adapter.
type Config struct {
	Type     string            `koanf:"type"`
	DSN      string            `koanf:"dsn"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
	// Params holds adapter-specific settings decoded by the adapter itself.
	Params map[string]any `koanf:"params"`
}

// Adapter is a database connection that can execute queries for the
// verifier and describe its schema.
type Adapter interface {
	verify.Executor

	// Connect opens and pings the database.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection pool.
	Close() error

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// DescribeSchema lists the user tables and their columns.
	DescribeSchema(ctx context.Context) (*Schema, error)

	// Dialect returns the adapter's SQL dialect settings.
	Dialect() *Dialect
}

// Dialect captures the per-database differences the base adapter needs.
type Dialect struct {
	Name          string
	DefaultSchema string

	// Placeholder formats the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// SessionTimeout returns a statement that bounds query run time on the
	// current session, or "" when the database has no such setting.
	SessionTimeout func(timeout time.Duration) string
}

// QuestionPlaceholder formats bind parameters as "?".
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder formats bind parameters as "$n".
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Column describes one table column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}

// Table describes one table.
type Table struct {
	Schema  string   `json:"schema,omitempty"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Schema is the set of tables visible to an adapter.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Describe renders the schema as plain text, one block per table:
//
//	Table: customers
//	Columns: id (integer), name (varchar)
func (s *Schema) Describe() string {
	if s == nil {
		return ""
	}
	blocks := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = fmt.Sprintf("%s (%s)", c.Name, strings.ToLower(c.Type))
		}
		blocks = append(blocks, fmt.Sprintf("Table: %s\nColumns: %s", t.Name, strings.Join(cols, ", ")))
	}
	return strings.Join(blocks, "\n\n")
}
