package metrics_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/internal/testutil"
	"github.com/leapstack-labs/sqlbench/pkg/adapter"
	"github.com/leapstack-labs/sqlbench/pkg/adapters/sqlite"
	"github.com/leapstack-labs/sqlbench/pkg/metrics"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

func newEvaluator(t *testing.T) *metrics.Evaluator {
	t.Helper()
	return metrics.NewEvaluator(nil, testutil.NewTestLogger(t))
}

func evaluate(t *testing.T, e *metrics.Evaluator, generated, reference string, c metrics.Complexity) metrics.SQLMetrics {
	t.Helper()
	return e.Evaluate(context.Background(), metrics.Request{
		GeneratedQuery:  generated,
		ReferenceQuery:  reference,
		QueryComplexity: c,
	}).Metrics
}

func TestEvaluate_SimpleQueries(t *testing.T) {
	e := newEvaluator(t)

	t.Run("exact match", func(t *testing.T) {
		m := evaluate(t, e, testutil.SimpleExactMatch, testutil.SimpleReference, metrics.Simple)
		assert.Equal(t, 1.0, m.ExactMatchAccuracy)
		assert.Equal(t, 1.0, m.LogicalFormAccuracy)
		assert.Equal(t, 1.0, m.ExecutionAccuracy)
		assert.Equal(t, 1.0, m.ComplexityHandling)
		assert.Empty(t, m.ErrorMessages)
	})

	t.Run("order by does not gate equivalence", func(t *testing.T) {
		m := evaluate(t, e, testutil.SimpleLogicalEquivalent, testutil.SimpleReference, metrics.Simple)
		assert.Equal(t, 0.0, m.ExactMatchAccuracy)
		assert.Equal(t, 1.0, m.LogicalFormAccuracy)
		assert.GreaterOrEqual(t, m.ComplexityHandling, 0.8)
	})

	t.Run("incorrect", func(t *testing.T) {
		m := evaluate(t, e, testutil.SimpleIncorrect, testutil.SimpleReference, metrics.Simple)
		assert.Equal(t, 0.0, m.ExactMatchAccuracy)
		assert.Equal(t, 0.0, m.LogicalFormAccuracy)
	})
}

func TestEvaluate_StatementKindMismatch(t *testing.T) {
	e := newEvaluator(t)

	tests := []struct {
		name                 string
		generated, reference string
	}{
		{"delete for select", "DELETE FROM t", "SELECT * FROM t"},
		{"insert for delete", "INSERT INTO t SELECT * FROM s", "DELETE FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := evaluate(t, e, tt.generated, tt.reference, metrics.Simple)
			assert.Equal(t, 0.0, m.LogicalFormAccuracy)
			assert.Equal(t, 0.0, m.ComplexityHandling)
		})
	}
}

func TestEvaluate_ComplexQueries(t *testing.T) {
	e := newEvaluator(t)

	eq := evaluate(t, e, testutil.ComplexLogicalEquivalent, testutil.ComplexReference, metrics.Complex)
	assert.Equal(t, 1.0, eq.LogicalFormAccuracy)
	assert.GreaterOrEqual(t, eq.ComplexityHandling, 0.8)

	bad := evaluate(t, e, testutil.ComplexIncorrect, testutil.ComplexReference, metrics.Complex)
	assert.Equal(t, 0.0, bad.LogicalFormAccuracy)
	assert.Less(t, bad.ComplexityHandling, 0.8)
}

func TestEvaluate_ZeroShot(t *testing.T) {
	e := newEvaluator(t)
	schema := testutil.Schema

	good := e.Evaluate(context.Background(), metrics.Request{
		GeneratedQuery:  testutil.ComplexLogicalEquivalent,
		ReferenceQuery:  testutil.ComplexReference,
		QueryComplexity: metrics.Complex,
		DatabaseSchema:  &schema,
	}).Metrics
	require.NotNil(t, good.ZeroShotPerformance)
	assert.GreaterOrEqual(t, *good.ZeroShotPerformance, 0.8)

	bad := e.Evaluate(context.Background(), metrics.Request{
		GeneratedQuery:  testutil.ComplexIncorrect,
		ReferenceQuery:  testutil.ComplexReference,
		QueryComplexity: metrics.Complex,
		DatabaseSchema:  &schema,
	}).Metrics
	require.NotNil(t, bad.ZeroShotPerformance)
	assert.Less(t, *bad.ZeroShotPerformance, 0.8)

	none := evaluate(t, e, testutil.ComplexIncorrect, testutil.ComplexReference, metrics.Complex)
	assert.Nil(t, none.ZeroShotPerformance)
}

func TestEvaluate_ParseFailure(t *testing.T) {
	m := evaluate(t, newEvaluator(t), "SELEC name FRM users", testutil.SimpleReference, metrics.Simple)

	assert.Equal(t, 0.0, m.ExactMatchAccuracy)
	assert.Equal(t, 0.0, m.LogicalFormAccuracy)
	assert.Equal(t, 0.0, m.ExecutionAccuracy)
	assert.Equal(t, 0.0, m.ComplexityHandling)
	require.Len(t, m.ErrorMessages, 1)
	assert.True(t, strings.HasPrefix(m.ErrorMessages[0], "Error parsing first query"))
}

func TestEvaluate_InvalidRequest(t *testing.T) {
	resp := newEvaluator(t).Evaluate(context.Background(), metrics.Request{QueryComplexity: "hard"})

	require.Len(t, resp.Metrics.ErrorMessages, 1)
	msg := resp.Metrics.ErrorMessages[0]
	assert.Contains(t, msg, "generated_query is required")
	assert.Contains(t, msg, "reference_query is required")
	assert.Contains(t, msg, "invalid query complexity")
}

func TestEvaluate_NoDatabaseSkipsExecution(t *testing.T) {
	e := newEvaluator(t)
	assert.False(t, e.ExecutionEnabled())

	m := evaluate(t, e, testutil.SimpleIncorrect, testutil.SimpleReference, metrics.Simple)
	assert.Equal(t, true, m.ExecutionDetails["skipped"])
	assert.Equal(t, verify.ErrEngineNotConfigured.Error(), m.ExecutionDetails["reason"])
}

func TestEvaluate_WithExecution(t *testing.T) {
	ctx := context.Background()
	db := sqlite.New(nil)
	require.NoError(t, db.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER, name TEXT, email TEXT, age INTEGER)",
		"INSERT INTO users VALUES (1, 'ada', 'a@x', 36), (2, 'bob', 'b@x', 17)",
	} {
		_, err := db.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	e := metrics.NewEvaluator(verify.New(db, time.Second, nil), testutil.NewTestLogger(t))
	require.True(t, e.ExecutionEnabled())

	timeout := 500
	resp := e.Evaluate(ctx, metrics.Request{
		GeneratedQuery:   "SELECT name FROM users WHERE NOT age <= 18",
		ReferenceQuery:   testutil.SimpleReference,
		QueryComplexity:  metrics.Simple,
		ExecutionTimeout: &timeout,
	})

	m := resp.Metrics
	assert.Equal(t, 1.0, m.ExecutionAccuracy)
	assert.Equal(t, 1.0, m.LogicalFormAccuracy, "matching results upgrade the static verdict")
	assert.Equal(t, true, m.ExecutionDetails["result_match"])
	assert.Equal(t, 1, m.ExecutionDetails["row_count1"])
}

func TestEvaluateBatch(t *testing.T) {
	e := newEvaluator(t)
	e.Workers = 2

	reqs := []metrics.Request{
		{GeneratedQuery: testutil.SimpleExactMatch, ReferenceQuery: testutil.SimpleReference, QueryComplexity: metrics.Simple},
		{GeneratedQuery: "SELEC", ReferenceQuery: testutil.SimpleReference, QueryComplexity: metrics.Simple},
		{GeneratedQuery: testutil.ComplexLogicalEquivalent, ReferenceQuery: testutil.ComplexReference, QueryComplexity: metrics.Complex},
		{GeneratedQuery: testutil.SimpleIncorrect, ReferenceQuery: testutil.SimpleReference, QueryComplexity: metrics.Simple},
	}

	batch := e.EvaluateBatch(context.Background(), reqs)

	require.Len(t, batch.Responses, len(reqs))
	for i, resp := range batch.Responses {
		assert.Equal(t, reqs[i].GeneratedQuery, resp.GeneratedQuery, "order preserved")
	}
	assert.Equal(t, 1.0, batch.Responses[0].Metrics.ExactMatchAccuracy)
	assert.NotEmpty(t, batch.Responses[1].Metrics.ErrorMessages, "one failure does not abort the batch")
	assert.Equal(t, 1.0, batch.Responses[2].Metrics.LogicalFormAccuracy)
	assert.Equal(t, 0.0, batch.Responses[3].Metrics.LogicalFormAccuracy)
	assert.GreaterOrEqual(t, batch.TotalTime, 0.0)
}
