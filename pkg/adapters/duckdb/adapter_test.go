package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/pkg/adapter"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, adapter.Config{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			assert.NoError(t, adp.Ping(ctx))
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.Execute(ctx, "SELECT 1", time.Second)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.DescribeSchema(ctx)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func setupCustomers(t *testing.T) *Adapter {
	t.Helper()
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	for _, stmt := range []string{
		"CREATE TABLE customers (id INTEGER, name VARCHAR)",
		"INSERT INTO customers VALUES (1, 'ada'), (2, 'grace'), (3, 'linus')",
	} {
		_, err := adp.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return adp
}

func TestAdapter_Execute(t *testing.T) {
	adp := setupCustomers(t)

	rows, err := adp.Execute(context.Background(), "SELECT name FROM customers WHERE id > 1 ORDER BY id", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []verify.Row{
		{{Column: "name", Value: "grace"}},
		{{Column: "name", Value: "linus"}},
	}, rows)
}

func TestAdapter_VerifierEquivalence(t *testing.T) {
	adp := setupCustomers(t)
	v := verify.New(adp, time.Second, nil)

	ok, cmp := v.ExecuteAndCompare(context.Background(),
		"SELECT id, name FROM customers WHERE id >= 2",
		"SELECT name, id FROM customers WHERE id IN (3, 2) ORDER BY name DESC")
	assert.True(t, ok)
	assert.Equal(t, 2, cmp.RowCount1)

	ok, cmp = v.ExecuteAndCompare(context.Background(),
		"SELECT id FROM customers",
		"SELECT missing FROM customers")
	assert.False(t, ok)
	assert.True(t, cmp.Query1Success)
	assert.False(t, cmp.Query2Success)
	assert.Contains(t, cmp.Error, "Query 2 failed")
}

func TestAdapter_DescribeSchema(t *testing.T) {
	adp := setupCustomers(t)

	schema, err := adp.DescribeSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "Table: customers\nColumns: id (integer), name (varchar)", schema.Describe())
}

func TestAdapter_ConnectAppliesSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Path:   ":memory:",
		Params: map[string]any{"settings": map[string]any{"threads": 2}},
	}))
	defer func() { _ = adp.Close() }()

	rows, err := adp.Execute(ctx, "SELECT current_setting('threads') AS threads", time.Second)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", verify.CanonicalValue(rows[0][0].Value))
}

func TestAdapter_ConnectRejectsBadSetting(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{
		Params: map[string]any{"settings": map[string]any{"threads; DROP": "1"}},
	})
	assert.ErrorContains(t, err, "invalid setting name")
}

func TestAdapter_ReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bench.duckdb")

	rw := New(nil)
	require.NoError(t, rw.Connect(ctx, adapter.Config{Path: path}))
	_, err := rw.DB.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro := New(nil)
	require.NoError(t, ro.Connect(ctx, adapter.Config{Path: path, Params: map[string]any{"read_only": true}}))
	defer func() { _ = ro.Close() }()

	_, err = ro.Execute(ctx, "SELECT id FROM t", time.Second)
	require.NoError(t, err)
	_, err = ro.Execute(ctx, "INSERT INTO t VALUES (1)", time.Second)
	assert.Error(t, err)
}

func TestRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"), "duckdb adapter should be auto-registered")
}
