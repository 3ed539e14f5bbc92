package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/internal/cli/testutil"
	"github.com/leapstack-labs/sqlbench/pkg/adapter"
	"github.com/leapstack-labs/sqlbench/pkg/benchmark"
	"github.com/leapstack-labs/sqlbench/pkg/metrics"

	_ "github.com/leapstack-labs/sqlbench/pkg/adapters/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"evaluate", "batch", "schema", "serve", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlbench v"+Version)
}

func TestCompletion(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlbench")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestEvaluate_Static(t *testing.T) {
	out, err := run(t, "evaluate",
		"--generated", "SELECT name FROM users WHERE age > 18 ORDER BY name",
		"--reference", "SELECT name FROM users WHERE age > 18",
		"--complexity", "simple",
		"-o", "json")
	require.NoError(t, err)

	var resp metrics.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 0.0, resp.Metrics.ExactMatchAccuracy)
	assert.Equal(t, 1.0, resp.Metrics.LogicalFormAccuracy)
	assert.Equal(t, true, resp.Metrics.ExecutionDetails["skipped"])
}

func TestEvaluate_WithDatabase(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	dbURL := "sqlite://" + filepath.Join(dir, "bench.db")

	out, err := run(t, "evaluate",
		"--generated", "SELECT COUNT(id) AS n FROM users",
		"--reference", "SELECT COUNT(*) AS n FROM users",
		"--database", dbURL,
		"--timeout", "2000",
		"-o", "json")
	require.NoError(t, err)

	var resp metrics.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1.0, resp.Metrics.ExecutionAccuracy)
	assert.Equal(t, 1.0, resp.Metrics.LogicalFormAccuracy, "matching results upgrade the verdict")
}

func TestEvaluate_NoExecute(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out, err := run(t, "evaluate",
		"--generated", "SELECT COUNT(id) AS n FROM users",
		"--reference", "SELECT COUNT(*) AS n FROM users",
		"--database", "sqlite://"+filepath.Join(dir, "bench.db"),
		"--no-execute",
		"-o", "json")
	require.NoError(t, err)

	var resp metrics.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, true, resp.Metrics.ExecutionDetails["skipped"])
}

func TestEvaluate_FilesAndSchema(t *testing.T) {
	dir := t.TempDir()
	gen := filepath.Join(dir, "gen.sql")
	schema := filepath.Join(dir, "schema.txt")
	require.NoError(t, os.WriteFile(gen, []byte("SELECT name FROM users"), 0o600))
	require.NoError(t, os.WriteFile(schema, []byte("Table: users\nColumns: id (integer), name (text)"), 0o600))

	out, err := run(t, "evaluate",
		"--generated", "@"+gen,
		"--reference", "SELECT name FROM users",
		"--schema-file", schema,
		"-o", "json")
	require.NoError(t, err)

	var resp metrics.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1.0, resp.Metrics.ExactMatchAccuracy)
	require.NotNil(t, resp.Metrics.ZeroShotPerformance)
	assert.Equal(t, 1.0, *resp.Metrics.ZeroShotPerformance)
}

func TestEvaluate_Markdown(t *testing.T) {
	out, err := run(t, "evaluate",
		"--generated", "SELECT email FROM users",
		"--reference", "SELECT name FROM users",
		"-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Evaluation")
	assert.Contains(t, out, "| Exact Match | 0.00 |")
	assert.Contains(t, out, "| Column | FAIL |")
	testutil.AssertNoANSI(t, out)
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing reference", []string{"evaluate", "--generated", "SELECT 1"}},
		{"bad complexity", []string{"evaluate", "-g", "SELECT 1", "-r", "SELECT 1", "-c", "extreme"}},
		{"missing file", []string{"evaluate", "-g", "@/nonexistent.sql", "-r", "SELECT 1"}},
		{"unknown database", []string{"evaluate", "-g", "SELECT 1", "-r", "SELECT 1", "--database", "oracle://db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestBatch(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, err := run(t, "batch", filepath.Join(dir, "suite.yaml"),
		"--database", "sqlite://"+filepath.Join(dir, "bench.db"),
		"--workers", "2",
		"-o", "json")
	require.NoError(t, err)

	var report benchmark.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Models, 2)

	baseline := report.Models[0]
	assert.Equal(t, "baseline", baseline.Model)
	assert.Equal(t, 2, baseline.Overall.Count)
	assert.Equal(t, 1.0, baseline.Overall.ExecutionAccuracy)
	assert.Equal(t, 100.0, baseline.Overall.InferenceLatency)

	weak := report.Models[1]
	assert.Equal(t, 1, weak.Overall.Count)
	assert.Equal(t, 1, weak.Skipped)
	assert.Equal(t, 0.0, weak.Overall.LogicalFormAccuracy)
}

func TestBatch_Markdown(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out, err := run(t, "batch", filepath.Join(dir, "suite.yaml"), "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Benchmark Results")
	assert.Contains(t, out, "## baseline")
	assert.Contains(t, out, "| Simple |")
}

func TestBatch_MissingSuite(t *testing.T) {
	_, err := run(t, "batch", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, err := run(t, "schema", "--database", "sqlite://"+filepath.Join(dir, "bench.db"), "-o", "json")
	require.NoError(t, err)

	var schema adapter.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "users", schema.Tables[0].Name)
	assert.Len(t, schema.Tables[0].Columns, 4)

	out, err = run(t, "schema", "--database", "sqlite://"+filepath.Join(dir, "bench.db"), "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Table: users\nColumns: id (integer), name (text), email (text), age (integer)")
}

func TestSchema_RequiresDatabase(t *testing.T) {
	_, err := run(t, "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}

func TestBatch_SaveAndHistory(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	historyPath := filepath.Join(dir, "history.db")

	out, err := run(t, "batch", filepath.Join(dir, "suite.yaml"), "--save", "--history", historyPath, "-o", "json")
	require.NoError(t, err)
	var report benchmark.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	out, err = run(t, "history", "--history", historyPath, "-o", "json")
	require.NoError(t, err)
	var runs []struct {
		ID     string `json:"id"`
		Models []struct {
			Model string `json:"model"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID.String(), runs[0].ID)
	require.Len(t, runs[0].Models, 2)
	assert.Equal(t, "baseline", runs[0].Models[0].Model)

	out, err = run(t, "history", report.RunID.String(), "--history", historyPath, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Benchmark History")
	assert.Contains(t, out, "| baseline |")

	_, err = run(t, "history", "missing", "--history", historyPath)
	assert.Error(t, err)
}

func TestHistory_Empty(t *testing.T) {
	out, err := run(t, "history", "--history", filepath.Join(t.TempDir(), "h.db"), "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
