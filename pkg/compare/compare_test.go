package compare_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/internal/testutil"
	"github.com/leapstack-labs/sqlbench/pkg/compare"
	"github.com/leapstack-labs/sqlbench/pkg/facets"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

func newComparator(t *testing.T, v *verify.Verifier) *compare.Comparator {
	t.Helper()
	return compare.NewComparator(v, testutil.NewTestLogger(t))
}

func TestCompareSQL_SimpleCases(t *testing.T) {
	c := newComparator(t, nil)

	t.Run("exact match", func(t *testing.T) {
		r := c.CompareSQL(testutil.SimpleReference, testutil.SimpleExactMatch)
		assert.True(t, r.ExactMatch)
		assert.True(t, r.LogicalEquivalence)
		assert.Equal(t, compare.GatingFacets, r.GatingMatches())
		assert.True(t, r.OrderByMatch)
		assert.True(t, r.LimitMatch)
	})

	t.Run("layout and case only", func(t *testing.T) {
		r := c.CompareSQL(testutil.SimpleReference, "select NAME\n  from USERS where AGE > 18;")
		assert.True(t, r.ExactMatch)
	})

	t.Run("logical equivalent with order by", func(t *testing.T) {
		r := c.CompareSQL(testutil.SimpleReference, testutil.SimpleLogicalEquivalent)
		assert.False(t, r.ExactMatch)
		assert.True(t, r.LogicalEquivalence)
		assert.False(t, r.OrderByMatch)
		assert.True(t, r.ColumnMatch)
	})

	t.Run("incorrect", func(t *testing.T) {
		r := c.CompareSQL(testutil.SimpleReference, testutil.SimpleIncorrect)
		assert.False(t, r.ExactMatch)
		assert.False(t, r.LogicalEquivalence)
		assert.True(t, r.TableMatch)
		assert.False(t, r.ColumnMatch)
		assert.False(t, r.WhereMatch)
	})
}

func TestCompareSQL_ComplexCases(t *testing.T) {
	c := newComparator(t, nil)

	eq := c.CompareSQL(testutil.ComplexReference, testutil.ComplexLogicalEquivalent)
	assert.False(t, eq.ExactMatch)
	assert.True(t, eq.LogicalEquivalence)
	assert.Equal(t, compare.GatingFacets, eq.GatingMatches())

	bad := c.CompareSQL(testutil.ComplexReference, testutil.ComplexIncorrect)
	assert.False(t, bad.LogicalEquivalence)
	assert.False(t, bad.WhereMatch)
	assert.False(t, bad.AggregationMatch)
	assert.False(t, bad.LimitMatch)
	assert.Equal(t, 4, bad.GatingMatches())
}

func TestCompareSQL_Reflexive(t *testing.T) {
	c := newComparator(t, nil)
	for _, q := range []string{
		testutil.SimpleReference,
		testutil.ComplexReference,
		"SELECT `a` FROM t LIMIT 1, 2",
		"DELETE FROM t WHERE a = 1",
	} {
		r := c.CompareSQL(q, q)
		assert.True(t, r.ExactMatch, q)
		assert.True(t, r.LogicalEquivalence, q)
	}
}

func TestCompareSQL_Permutations(t *testing.T) {
	c := newComparator(t, nil)
	tests := []struct {
		name string
		a, b string
	}{
		{"select list", "SELECT a, b FROM t", "SELECT b, a FROM t"},
		{"and-ed predicates", "SELECT a FROM t WHERE x = 1 AND y = 2", "SELECT a FROM t WHERE y = 2 AND x = 1"},
		{"same-kind joins", "SELECT a.x FROM a JOIN b ON a.id = b.id JOIN c ON a.id = c.id", "SELECT a.x FROM a JOIN c ON a.id = c.id JOIN b ON a.id = b.id"},
		{"aliases", "SELECT u.name FROM users u WHERE u.age > 18", "SELECT users.name FROM users WHERE users.age > 18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.CompareSQL(tt.a, tt.b)
			assert.True(t, r.LogicalEquivalence)
			assert.Empty(t, r.Error)
		})
	}
}

func TestCompareSQL_JoinKindMatters(t *testing.T) {
	r := newComparator(t, nil).CompareSQL(
		"SELECT a.x FROM a JOIN b ON a.id = b.id",
		"SELECT a.x FROM a LEFT JOIN b ON a.id = b.id",
	)
	assert.False(t, r.JoinMatch)
	assert.False(t, r.LogicalEquivalence)
}

func TestCompareSQL_ParseErrors(t *testing.T) {
	c := newComparator(t, nil)

	r := c.CompareSQL("SELEC nonsense FRM", testutil.SimpleReference)
	assert.True(t, strings.HasPrefix(r.Error, "Error parsing first query: "), r.Error)
	assert.False(t, r.LogicalEquivalence)
	assert.False(t, r.TableMatch)

	r = c.CompareSQL(testutil.SimpleReference, "SELEC nonsense FRM")
	assert.True(t, strings.HasPrefix(r.Error, "Error parsing second query: "), r.Error)
}

func TestCompareSQL_Degraded(t *testing.T) {
	r := newComparator(t, nil).CompareSQL(
		"SELECT `name` FROM users WHERE age > 18 LIMIT 0, 10",
		"SELECT name FROM users WHERE age > 18 LIMIT 10",
	)
	assert.True(t, r.Degraded)
	assert.True(t, r.TableMatch)
	assert.True(t, r.LimitMatch)
}

func TestCompare_TypeMismatch(t *testing.T) {
	r := compare.Compare(
		facets.QueryFacets{Type: facets.QuerySelect},
		facets.QueryFacets{Type: facets.QueryDelete},
	)
	assert.False(t, r.LogicalEquivalence)
	assert.True(t, r.TypeMismatch())
	assert.Equal(t, 0, r.GatingMatches())
	assert.False(t, r.OrderByMatch)
	assert.False(t, r.LimitMatch)
	assert.Contains(t, r.Error, compare.ErrQueryTypeMismatch.Error())
	assert.Contains(t, r.Error, "SELECT vs DELETE")
}

func TestCompareSQL_TypeMismatch(t *testing.T) {
	c := newComparator(t, nil)

	tests := []struct {
		name string
		a, b string
	}{
		{"delete vs select", "DELETE FROM t", "SELECT * FROM t"},
		{"insert vs delete", "INSERT INTO t SELECT * FROM s", "DELETE FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.CompareSQL(tt.a, tt.b)
			assert.False(t, r.LogicalEquivalence)
			assert.Equal(t, 0, r.GatingMatches())
			assert.NotEmpty(t, r.Error)
		})
	}
}

func TestCompareSQL_FilteredAggregate(t *testing.T) {
	r := newComparator(t, nil).CompareSQL(
		"SELECT COUNT(*) FROM t",
		"SELECT COUNT(*) FILTER (WHERE status = 'paid') FROM t")
	assert.False(t, r.AggregationMatch)
	assert.False(t, r.LogicalEquivalence)
}

func TestCompare_JoinMultisets(t *testing.T) {
	j := func(kind facets.JoinKind, table string) facets.JoinFacet {
		return facets.JoinFacet{Kind: kind, Table: table}
	}
	tests := []struct {
		name string
		a, b []facets.JoinFacet
		want bool
	}{
		{"empty", nil, nil, true},
		{"reordered", []facets.JoinFacet{j(facets.JoinInner, "a"), j(facets.JoinLeft, "b")}, []facets.JoinFacet{j(facets.JoinLeft, "b"), j(facets.JoinInner, "a")}, true},
		{"count sensitive", []facets.JoinFacet{j(facets.JoinInner, "a"), j(facets.JoinInner, "a")}, []facets.JoinFacet{j(facets.JoinInner, "a")}, false},
		{"kind sensitive", []facets.JoinFacet{j(facets.JoinInner, "a")}, []facets.JoinFacet{j(facets.JoinRight, "a")}, false},
		{"condition ignored", []facets.JoinFacet{{Kind: facets.JoinInner, Table: "a", Condition: "x = y"}}, []facets.JoinFacet{j(facets.JoinInner, "a")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := compare.Compare(
				facets.QueryFacets{Type: facets.QuerySelect, Joins: tt.a},
				facets.QueryFacets{Type: facets.QuerySelect, Joins: tt.b},
			)
			assert.Equal(t, tt.want, r.JoinMatch)
		})
	}
}

func TestCompare_OrderByDirection(t *testing.T) {
	a := facets.QueryFacets{OrderBy: []facets.OrderKey{{Column: "x"}, {Column: "y", Desc: true}}}
	b := facets.QueryFacets{OrderBy: []facets.OrderKey{{Column: "y", Desc: true}, {Column: "x"}}}
	c := facets.QueryFacets{OrderBy: []facets.OrderKey{{Column: "x"}, {Column: "y"}}}

	assert.True(t, compare.Compare(a, b).OrderByMatch)
	assert.False(t, compare.Compare(a, c).OrderByMatch)
}

// staticExecutor returns the same rows for every query unless the query is
// listed in fail.
type staticExecutor struct {
	rows []verify.Row
	fail map[string]bool
}

func (s staticExecutor) Execute(_ context.Context, query string, _ time.Duration) ([]verify.Row, error) {
	if s.fail[query] {
		return nil, verify.ErrTimeout
	}
	return s.rows, nil
}

func TestWithExecution(t *testing.T) {
	rows := []verify.Row{{{Column: "n", Value: 1}}}
	ctx := context.Background()

	t.Run("no verifier keeps static verdict", func(t *testing.T) {
		ok, r := newComparator(t, nil).WithExecution(ctx, testutil.SimpleReference, testutil.SimpleIncorrect)
		assert.False(t, ok)
		assert.Nil(t, r.Execution)
	})

	t.Run("exact match skips execution", func(t *testing.T) {
		exec := staticExecutor{fail: map[string]bool{testutil.SimpleReference: true}}
		c := newComparator(t, verify.New(exec, time.Second, nil))
		ok, r := c.WithExecution(ctx, testutil.SimpleReference, testutil.SimpleExactMatch)
		assert.True(t, ok)
		assert.Nil(t, r.Execution)
	})

	t.Run("matching results upgrade", func(t *testing.T) {
		c := newComparator(t, verify.New(staticExecutor{rows: rows}, time.Second, nil))
		ok, r := c.WithExecution(ctx, testutil.SimpleReference, testutil.SimpleIncorrect)
		assert.True(t, ok)
		assert.True(t, r.LogicalEquivalence)
		require.NotNil(t, r.Execution)
		assert.True(t, r.Execution.ResultMatch)
	})

	t.Run("matching results do not upgrade a type mismatch", func(t *testing.T) {
		c := newComparator(t, verify.New(staticExecutor{}, time.Second, nil))
		ok, r := c.WithExecution(ctx, "DELETE FROM t", "SELECT * FROM t")
		assert.False(t, ok)
		assert.False(t, r.LogicalEquivalence)
		require.NotNil(t, r.Execution)
		assert.True(t, r.Execution.ResultMatch)
	})

	t.Run("failed execution never downgrades", func(t *testing.T) {
		exec := staticExecutor{rows: rows, fail: map[string]bool{testutil.SimpleLogicalEquivalent: true}}
		c := newComparator(t, verify.New(exec, time.Second, nil))
		ok, r := c.WithExecution(ctx, testutil.SimpleReference, testutil.SimpleLogicalEquivalent)
		assert.True(t, ok)
		require.NotNil(t, r.Execution)
		assert.True(t, r.Execution.TimedOut)
		assert.Equal(t, "Query 2 failed: query timed out", r.Execution.Error)
	})
}
