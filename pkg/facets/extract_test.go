package facets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/internal/testutil"
	"github.com/leapstack-labs/sqlbench/pkg/facets"
	"github.com/leapstack-labs/sqlbench/pkg/frontend"
	"github.com/leapstack-labs/sqlbench/pkg/parser"
)

func extract(t *testing.T, sql string) facets.QueryFacets {
	t.Helper()
	f, err := facets.FromSQL(sql, frontend.NewChain(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	return f
}

func TestExtract_SimpleSelect(t *testing.T) {
	f := extract(t, "SELECT name FROM users WHERE age > 18")

	assert.Equal(t, facets.QuerySelect, f.Type)
	assert.Equal(t, facets.Set{"users"}, f.Tables)
	assert.Equal(t, facets.Set{"age", "name"}, f.Columns)
	assert.Equal(t, facets.Set{"age > 18"}, f.WherePredicates)
	assert.Empty(t, f.Joins)
	assert.Empty(t, f.GroupBy)
	assert.Empty(t, f.OrderBy)
	assert.Nil(t, f.Limit)
	assert.Empty(t, f.Aggregations)
	assert.False(t, f.Degraded)
}

func TestExtract_ComplexReference(t *testing.T) {
	f := extract(t, testutil.ComplexReference)

	assert.Equal(t, facets.QuerySelect, f.Type)
	assert.Equal(t, facets.Set{"customers", "orders"}, f.Tables)
	assert.Equal(t, facets.Set{"id", "name", "order_date", "total_amount"}, f.Columns)
	assert.Equal(t, []facets.JoinFacet{
		{Kind: facets.JoinInner, Table: "orders", Condition: "c.id = o.customer_id"},
	}, f.Joins)
	assert.Equal(t, facets.Set{"order_date >= CURRENT_DATE - INTERVAL '1 year'"}, f.WherePredicates)
	assert.Equal(t, facets.Set{"id", "name"}, f.GroupBy)
	assert.Equal(t, []facets.OrderKey{{Column: "total_spent", Desc: true}}, f.OrderBy)
	require.NotNil(t, f.Limit)
	assert.Equal(t, 10, *f.Limit)
	assert.Equal(t, facets.Set{"AVG(total_amount)", "COUNT(id)", "SUM(total_amount)"}, f.Aggregations)
}

func TestExtract_AliasInvariance(t *testing.T) {
	ref := extract(t, testutil.ComplexReference)
	alt := extract(t, testutil.ComplexLogicalEquivalent)

	assert.Equal(t, ref.Tables, alt.Tables)
	assert.Equal(t, ref.Columns, alt.Columns)
	assert.Equal(t, ref.WherePredicates, alt.WherePredicates)
	assert.Equal(t, ref.GroupBy, alt.GroupBy)
	assert.Equal(t, ref.Aggregations, alt.Aggregations)
	assert.Equal(t, ref.OrderBy, alt.OrderBy)
	require.Len(t, alt.Joins, 1)
	assert.Equal(t, ref.Joins[0].Kind, alt.Joins[0].Kind)
	assert.Equal(t, ref.Joins[0].Table, alt.Joins[0].Table)
	assert.Equal(t, "customers.id = orders.customer_id", alt.Joins[0].Condition)
}

func TestExtract_ComplexIncorrectDiffers(t *testing.T) {
	ref := extract(t, testutil.ComplexReference)
	bad := extract(t, testutil.ComplexIncorrect)

	assert.Equal(t, ref.Tables, bad.Tables)
	assert.Equal(t, ref.Columns, bad.Columns)
	assert.Equal(t, ref.GroupBy, bad.GroupBy)
	assert.NotEqual(t, ref.WherePredicates, bad.WherePredicates)
	assert.NotEqual(t, ref.Aggregations, bad.Aggregations)
	assert.Equal(t, facets.Set{"SUM(total_amount)"}, bad.Aggregations)
	require.NotNil(t, bad.Limit)
	assert.Equal(t, 5, *bad.Limit)
}

func TestExtract_PermutationInvariance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{
			name: "where conjuncts",
			a:    "SELECT id FROM t WHERE a = 1 AND b = 2",
			b:    "SELECT id FROM t WHERE b = 2 AND a = 1",
		},
		{
			name: "select list",
			a:    "SELECT a, b FROM t",
			b:    "SELECT b, a FROM t",
		},
		{
			name: "group by keys",
			a:    "SELECT a, b, COUNT(*) FROM t GROUP BY a, b",
			b:    "SELECT a, b, COUNT(*) FROM t GROUP BY b, a",
		},
		{
			name: "keyword case and layout",
			a:    "select a from t where x in (1, 2)",
			b:    "SELECT   a\nFROM T\nWHERE X IN (1,2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := extract(t, tt.a)
			fb := extract(t, tt.b)
			assert.Equal(t, fa.Columns, fb.Columns)
			assert.Equal(t, fa.Tables, fb.Tables)
			assert.Equal(t, fa.WherePredicates, fb.WherePredicates)
			assert.Equal(t, fa.GroupBy, fb.GroupBy)
		})
	}
}

func TestExtract_WherePredicates(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		preds facets.Set
	}{
		{"or is flattened", "SELECT a FROM t WHERE a = 1 OR b <> 2", facets.Set{"a = 1", "b <> 2"}},
		{"parens are flattened", "SELECT a FROM t WHERE (a = 1 AND (b < 2 OR c >= 3))", facets.Set{"a = 1", "b < 2", "c >= 3"}},
		{"like and in", "SELECT a FROM t WHERE name LIKE 'a%' AND id NOT IN (1, 2)", facets.Set{"id NOT IN (1, 2)", "name LIKE 'a%'"}},
		{"not between and is are dropped", "SELECT a FROM t WHERE NOT a = 1 AND b BETWEEN 1 AND 2 AND c IS NULL", nil},
		{"qualifiers are stripped", "SELECT a FROM t x WHERE x.a = 1", facets.Set{"a = 1"}},
		{"not-equal spellings agree", "SELECT a FROM t WHERE a != 1", facets.Set{"a <> 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.preds, extract(t, tt.sql).WherePredicates)
		})
	}
}

func TestExtract_Columns(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		cols facets.Set
	}{
		{"star has no columns", "SELECT * FROM t", nil},
		{"expressions are descended", "SELECT UPPER(a) || b AS x FROM t", facets.Set{"a", "b"}},
		{"order by alias is skipped", "SELECT a AS x FROM t ORDER BY x", facets.Set{"a"}},
		{"group by column is counted", "SELECT COUNT(*) FROM t GROUP BY region", facets.Set{"region"}},
		{"join condition is not counted", "SELECT t.a FROM t JOIN u ON t.k = u.k", facets.Set{"a"}},
		{"having is not counted", "SELECT a FROM t GROUP BY a HAVING SUM(b) > 1", facets.Set{"a"}},
		{"where subquery columns", "SELECT a FROM t WHERE b IN (SELECT c FROM u)", facets.Set{"a", "b", "c"}},
		{"niladic function is not a column", "SELECT CURRENT_DATE FROM t", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cols, extract(t, tt.sql).Columns)
		})
	}
}

func TestExtract_Aggregations(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		aggs facets.Set
	}{
		{"count star", "SELECT COUNT(*) FROM t", facets.Set{"COUNT(*)"}},
		{"count distinct", "SELECT count(distinct t.a) FROM t", facets.Set{"COUNT(DISTINCT a)"}},
		{"having", "SELECT a FROM t GROUP BY a HAVING MAX(b) > 1", facets.Set{"MAX(b)"}},
		{"nested in expression", "SELECT SUM(a) / COUNT(a) FROM t", facets.Set{"COUNT(a)", "SUM(a)"}},
		{"window calls are not aggregations", "SELECT SUM(a) OVER (PARTITION BY b) FROM t", nil},
		{"other functions", "SELECT UPPER(a) FROM t", nil},
		{"filtered aggregate", "SELECT COUNT(*) FILTER (WHERE o.status = 'paid') FROM orders o",
			facets.Set{"COUNT(*) FILTER (WHERE status = 'paid')"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.aggs, extract(t, tt.sql).Aggregations)
		})
	}
}

func TestExtract_FilterDistinguishesAggregates(t *testing.T) {
	plain := extract(t, "SELECT COUNT(*) FROM t")
	filtered := extract(t, "SELECT COUNT(*) FILTER (WHERE status = 'paid') FROM t")

	assert.False(t, plain.Aggregations.Equal(filtered.Aggregations))
	assert.Contains(t, filtered.Columns, "status")
	assert.False(t, filtered.Degraded)
}

func TestExtract_NonReservedKeywordColumns(t *testing.T) {
	f := extract(t, "SELECT first, last FROM people")

	assert.False(t, f.Degraded)
	assert.Equal(t, facets.Set{"first", "last"}, f.Columns)
}

func TestExtract_Joins(t *testing.T) {
	f := extract(t, "SELECT a.x FROM a LEFT OUTER JOIN b ON a.id = b.id CROSS JOIN c, d")

	assert.Equal(t, facets.Set{"a", "b", "c", "d"}, f.Tables)
	assert.Equal(t, []facets.JoinFacet{
		{Kind: facets.JoinLeft, Table: "b", Condition: "a.id = b.id"},
		{Kind: facets.JoinCross, Table: "c"},
		{Kind: facets.JoinCross, Table: "d"},
	}, f.Joins)
}

func TestExtract_JoinUsing(t *testing.T) {
	f := extract(t, "SELECT x FROM a JOIN b USING (id)")
	require.Len(t, f.Joins, 1)
	assert.Equal(t, "USING (id)", f.Joins[0].Condition)
}

func TestExtract_DerivedTablesAndCTEs(t *testing.T) {
	t.Run("derived table", func(t *testing.T) {
		f := extract(t, "SELECT s.total FROM (SELECT SUM(amount) AS total FROM orders WHERE status = 'paid') s")
		assert.Equal(t, facets.Set{"orders"}, f.Tables)
		assert.Equal(t, facets.Set{"amount", "status", "total"}, f.Columns)
		assert.Equal(t, facets.Set{"status = 'paid'"}, f.WherePredicates)
		assert.Equal(t, facets.Set{"SUM(amount)"}, f.Aggregations)
	})

	t.Run("cte reference", func(t *testing.T) {
		f := extract(t, "WITH paid AS (SELECT id FROM orders WHERE status = 'paid') SELECT p.id FROM paid p JOIN users u ON u.id = p.id")
		assert.Equal(t, facets.Set{"orders", "users"}, f.Tables)
		assert.Equal(t, facets.Set{"status = 'paid'"}, f.WherePredicates)
	})

	t.Run("join against a subquery", func(t *testing.T) {
		f := extract(t, "SELECT a.x FROM a JOIN (SELECT id FROM b) s ON s.id = a.id")
		require.Len(t, f.Joins, 1)
		assert.Equal(t, "b", f.Joins[0].Table)
	})

	t.Run("recursive cte terminates", func(t *testing.T) {
		f := extract(t, "WITH RECURSIVE r AS (SELECT id FROM nodes UNION ALL SELECT n.id FROM nodes n JOIN r ON n.parent = r.id) SELECT id FROM r")
		assert.Equal(t, facets.Set{"nodes", "r"}, f.Tables)
	})
}

func TestExtract_Union(t *testing.T) {
	f := extract(t, "SELECT a FROM t WHERE a = 1 UNION SELECT b FROM u ORDER BY a LIMIT 3")

	assert.Equal(t, facets.QueryUnion, f.Type)
	assert.Equal(t, facets.Set{"t", "u"}, f.Tables)
	assert.Equal(t, facets.Set{"a", "b"}, f.Columns)
	assert.Equal(t, facets.Set{"a = 1"}, f.WherePredicates)
	require.NotNil(t, f.Limit)
	assert.Equal(t, 3, *f.Limit)
}

func TestExtract_NonSelect(t *testing.T) {
	tests := []struct {
		sql  string
		want facets.QueryType
	}{
		{"INSERT INTO t (a) VALUES (1)", facets.QueryInsert},
		{"UPDATE t SET a = 1 WHERE b = 2", facets.QueryUpdate},
		{"DELETE FROM t WHERE a = 1", facets.QueryDelete},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			f := extract(t, tt.sql)
			assert.Equal(t, tt.want, f.Type)
			assert.Empty(t, f.Tables)
			assert.Empty(t, f.Columns)
			assert.Empty(t, f.WherePredicates)
		})
	}
}

func TestExtract_LimitOnlyForIntegerLiterals(t *testing.T) {
	assert.Nil(t, extract(t, "SELECT a FROM t LIMIT ?").Limit)
	assert.Nil(t, extract(t, "SELECT a FROM t").Limit)
}

func TestExtract_DegradedPath(t *testing.T) {
	f := extract(t, "SELECT `name` FROM users WHERE age > 18 LIMIT 5, 10")

	assert.True(t, f.Degraded)
	assert.Equal(t, facets.QuerySelect, f.Type)
	assert.Equal(t, facets.Set{"users"}, f.Tables)
	assert.Len(t, f.WherePredicates, 1)
	require.NotNil(t, f.Limit)
	assert.Equal(t, 10, *f.Limit)
}

func TestExtract_UnknownStatement(t *testing.T) {
	assert.Equal(t, facets.QueryUnknown, facets.Extract(nil).Type)
	assert.Equal(t, facets.QueryUnknown, facets.Extract(&parser.SelectStmt{}).Type)
}

func TestFromSQL_Unparseable(t *testing.T) {
	_, err := facets.FromSQL("SELEC name FRM users", frontend.NewChain(testutil.NewTestLogger(t)))
	require.Error(t, err)

	var pf *frontend.ParseFailure
	assert.ErrorAs(t, err, &pf)
}
