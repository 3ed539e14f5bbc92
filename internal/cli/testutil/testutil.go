// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // database/sql driver for fixture databases

	"github.com/leapstack-labs/sqlbench/internal/cli/output"
)

// SuiteYAML is a two-model benchmark suite over the fixture database.
const SuiteYAML = `queries:
  - id: adults
    text: Names of adult users
    complexity: simple
    expected_sql: SELECT name FROM users WHERE age > 18
  - id: count
    text: Number of users
    complexity: medium
    expected_sql: SELECT COUNT(*) AS n FROM users
models:
  baseline:
    adults:
      response: select name from users where age > 18
      execution_time: 120
    count:
      response: SELECT COUNT(id) AS n FROM users
      execution_time: 80
  weak:
    adults:
      response: SELECT email FROM users
      execution_time: 40
`

// SetupTestProject creates a temporary directory holding suite.yaml and a
// populated SQLite database bench.db, and returns the directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "suite.yaml"), []byte(SuiteYAML), 0o600))

	db, err := sql.Open("sqlite", filepath.Join(tmpDir, "bench.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT, age INTEGER)`,
		`INSERT INTO users VALUES (1, 'ada', 'ada@example.com', 36), (2, 'bob', 'bob@example.com', 17), (3, 'cy', NULL, 52)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
