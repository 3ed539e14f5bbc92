package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/pkg/adapter"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "url passes through",
			config: adapter.Config{
				DSN:      "postgresql://bench@db:5433/evals",
				Database: "ignored",
			},
			expected: "postgresql://bench@db:5433/evals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestAdapter_ExecuteSetsStatementTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("SET statement_timeout = 1500")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	adp := New(nil)
	adp.DB = db

	rows, err := adp.Execute(context.Background(), "SELECT count(*) FROM orders", 1500*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(12), rows[0][0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DescribeSchemaUsesConfiguredSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("table_schema = $1")).
		WithArgs("analytics").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("events", "id", "bigint", "NO", 1))

	adp := New(nil)
	adp.DB = db
	adp.Cfg = adapter.Config{Options: map[string]string{"schema": "analytics"}}

	schema, err := adp.DescribeSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Table: events\nColumns: id (bigint)", schema.Describe())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))
	assert.True(t, adapter.IsRegistered("pg"))
	a, err := adapter.NewAdapter(adapter.Config{Type: "postgres"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", a.Dialect().Name)
}
