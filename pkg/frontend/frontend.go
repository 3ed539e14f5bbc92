// Package frontend turns SQL text into the parser AST through a chain of
// parsers: a strict primary grammar and a permissive fallback whose output
// is mapped onto the same AST at reduced fidelity.
package frontend

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlbench/pkg/parser"
)

// Frontend parses SQL into a statement.
type Frontend interface {
	// Name identifies the frontend in diagnostics.
	Name() string
	// Parse parses a single statement.
	Parse(sql string) (parser.Statement, error)
}

// Parsed is a statement together with the frontend that produced it.
type Parsed struct {
	Stmt     parser.Statement
	Frontend string
	// Degraded is set when the statement came from the fallback frontend.
	Degraded bool
}

// ParseFailure is returned when every frontend in a chain rejected the input.
type ParseFailure struct {
	Primary  error
	Fallback error
}

func (e *ParseFailure) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("failed to parse query: %v", e.Primary)
	}
	return fmt.Sprintf("failed to parse query: %v; fallback parser: %v", e.Primary, e.Fallback)
}

// Unwrap returns the underlying frontend errors.
func (e *ParseFailure) Unwrap() []error {
	if e.Fallback == nil {
		return []error{e.Primary}
	}
	return []error{e.Primary, e.Fallback}
}

// Strict is the primary frontend backed by pkg/parser.
type Strict struct{}

// Name implements Frontend.
func (Strict) Name() string { return "strict" }

// Parse implements Frontend.
func (Strict) Parse(sql string) (parser.Statement, error) {
	return parser.Parse(sql)
}

// Chain tries Primary and falls back to Fallback when Primary rejects the input.
type Chain struct {
	Primary  Frontend
	Fallback Frontend // optional
	Logger   *slog.Logger
}

// NewChain returns the default chain: Strict with Permissive as fallback.
func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Chain{
		Primary:  Strict{},
		Fallback: Permissive{},
		Logger:   logger,
	}
}

// Parse parses sql with the primary frontend, then with the fallback.
// When both fail the error is a *ParseFailure carrying both messages.
func (c *Chain) Parse(sql string) (*Parsed, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	stmt, err := c.Primary.Parse(sql)
	if err == nil {
		return &Parsed{Stmt: stmt, Frontend: c.Primary.Name()}, nil
	}
	if c.Fallback == nil {
		return nil, &ParseFailure{Primary: err}
	}

	logger.Debug("primary parser rejected query, trying fallback",
		"primary", c.Primary.Name(),
		"fallback", c.Fallback.Name(),
		"error", err)

	stmt, fbErr := c.Fallback.Parse(sql)
	if fbErr != nil {
		return nil, &ParseFailure{Primary: err, Fallback: fbErr}
	}
	return &Parsed{Stmt: stmt, Frontend: c.Fallback.Name(), Degraded: true}, nil
}
