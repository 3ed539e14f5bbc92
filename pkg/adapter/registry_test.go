package adapter

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

type stubAdapter struct {
	connectErr error
	closed     bool
}

func (s *stubAdapter) Connect(context.Context, Config) error { return s.connectErr }
func (s *stubAdapter) Ping(context.Context) error { return nil }
func (s *stubAdapter) Dialect() *Dialect { return &Dialect{Name: "stub"} }
func (s *stubAdapter) DescribeSchema(context.Context) (*Schema, error) {
	return &Schema{}, nil
}
func (s *stubAdapter) Execute(context.Context, string, time.Duration) ([]verify.Row, error) {
	return nil, nil
}
func (s *stubAdapter) Close() error {
	s.closed = true
	return nil
}

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "oracle", Available: []string{"duckdb", "postgres"}}

	msg := err.Error()
	assert.Contains(t, msg, `"oracle"`)
	assert.Contains(t, msg, "duckdb, postgres")
	assert.Contains(t, msg, "sqlbench.yaml")
}

func TestRegister_Aliases(t *testing.T) {
	Register("registry_test_db", func(*slog.Logger) Adapter { return &stubAdapter{} }, "RTDB", "rtdb2")

	assert.True(t, IsRegistered("registry_test_db"))
	assert.True(t, IsRegistered("rtdb"), "aliases are case-insensitive")
	assert.Contains(t, ListAdapters(), "registry_test_db")
	assert.NotContains(t, ListAdapters(), "rtdb2", "aliases are not listed")

	name, ok := Resolve("rtdb2")
	require.True(t, ok)
	assert.Equal(t, "registry_test_db", name)

	a, err := NewAdapter(Config{Type: "RTDB"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", a.Dialect().Name)
}

func TestRegister_NilFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { Register("registry_test_nil", nil) })
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.EqualError(t, err, "adapter type not specified")
}

func TestOpen(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		_, err := Open(context.Background(), Config{Type: "nope"}, nil)

		var unknown *UnknownAdapterError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "nope", unknown.Type)
	})

	t.Run("connect failure closes", func(t *testing.T) {
		stub := &stubAdapter{connectErr: assert.AnError}
		Register("registry_test_broken", func(*slog.Logger) Adapter { return stub })

		_, err := Open(context.Background(), Config{Type: "registry_test_broken"}, nil)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "connect registry_test_broken")
		assert.True(t, stub.closed)
	})
}
