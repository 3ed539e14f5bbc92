package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlbench/pkg/compare"
	"github.com/leapstack-labs/sqlbench/pkg/facets"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

func allMatch() compare.Result {
	return compare.Result{
		TableMatch: true, ColumnMatch: true, JoinMatch: true, WhereMatch: true,
		GroupByMatch: true, AggregationMatch: true, LogicalEquivalence: true,
	}
}

func TestScore_Bounds(t *testing.T) {
	m := Score(ScoreInput{Result: compare.Result{}, Latency: -5})

	assert.Equal(t, 0.0, m.ExactMatchAccuracy)
	assert.Equal(t, 0.0, m.LogicalFormAccuracy)
	assert.Equal(t, 0.0, m.ComplexityHandling)
	assert.Equal(t, 0.0, m.InferenceLatency)
	assert.Nil(t, m.ZeroShotPerformance)
}

func TestScore_ComplexityHandlingIsPartialCredit(t *testing.T) {
	r := allMatch()
	r.WhereMatch = false
	r.AggregationMatch = false
	r.LogicalEquivalence = false

	m := Score(ScoreInput{Result: r})
	assert.InDelta(t, 4.0/6.0, m.ComplexityHandling, 1e-9)
	assert.Equal(t, 0.0, m.LogicalFormAccuracy)
}

func TestScore_TypeMismatchEarnsNoCredit(t *testing.T) {
	r := compare.Compare(
		facets.QueryFacets{Type: facets.QueryInsert, Tables: facets.NewSet("t")},
		facets.QueryFacets{Type: facets.QueryDelete, Tables: facets.NewSet("t")},
	)

	m := Score(ScoreInput{Result: r, Complexity: Simple})
	assert.Equal(t, 0.0, m.ComplexityHandling)
	assert.Equal(t, 0.0, m.LogicalFormAccuracy)
	assert.NotEmpty(t, m.ErrorMessages)
}

func TestScore_ExecutionAccuracy(t *testing.T) {
	t.Run("mirrors logical form when skipped", func(t *testing.T) {
		m := Score(ScoreInput{Result: allMatch(), SkipReason: "exact match"})
		assert.Equal(t, 1.0, m.ExecutionAccuracy)
		assert.Equal(t, true, m.ExecutionDetails["skipped"])
		assert.Equal(t, "exact match", m.ExecutionDetails["reason"])
	})

	t.Run("uses result match when executed", func(t *testing.T) {
		r := allMatch()
		r.Execution = &verify.Comparison{Query1Success: true, Error: "Query 2 failed: boom"}
		m := Score(ScoreInput{Result: r})
		assert.Equal(t, 0.0, m.ExecutionAccuracy)
		assert.Equal(t, false, m.ExecutionDetails["both_succeeded"])
		assert.Contains(t, m.ErrorMessages, "Query 2 failed: boom")
	})
}

func TestScore_ZeroShot(t *testing.T) {
	schema := "Table: users\nColumns: id (int), name (varchar), age (int)"

	tests := []struct {
		name      string
		logical   bool
		generated *facets.QueryFacets
		want      float64
	}{
		{
			name:      "grounded and equivalent",
			logical:   true,
			generated: &facets.QueryFacets{Tables: facets.NewSet("users"), Columns: facets.NewSet("name", "age")},
			want:      1.0,
		},
		{
			name:      "grounded but wrong",
			logical:   false,
			generated: &facets.QueryFacets{Tables: facets.NewSet("users"), Columns: facets.NewSet("name")},
			want:      0.5,
		},
		{
			name:      "half grounded",
			logical:   true,
			generated: &facets.QueryFacets{Tables: facets.NewSet("users"), Columns: facets.NewSet("email", "phone", "name")},
			want:      0.75,
		},
		{
			name:      "substring is not a match",
			logical:   false,
			generated: &facets.QueryFacets{Tables: facets.NewSet("user")},
			want:      0.0,
		},
		{
			name:      "no identifiers",
			logical:   false,
			generated: &facets.QueryFacets{},
			want:      0.5,
		},
		{
			name:    "unparsed",
			logical: false,
			want:    0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := compare.Result{LogicalEquivalence: tt.logical}
			m := Score(ScoreInput{Result: r, Schema: &schema, Generated: tt.generated})
			require.NotNil(t, m.ZeroShotPerformance)
			assert.InDelta(t, tt.want, *m.ZeroShotPerformance, 1e-9)
		})
	}
}

func TestScore_ParsingDetails(t *testing.T) {
	r := allMatch()
	r.Degraded = true
	m := Score(ScoreInput{Result: r, Complexity: Medium})

	assert.Equal(t, "medium", m.ParsingDetails["complexity"])
	assert.Equal(t, true, m.ParsingDetails["degraded"])
	assert.Equal(t, true, m.ParsingDetails["table_match"])
}

func TestScore_ErrorMessages(t *testing.T) {
	m := Score(ScoreInput{Result: compare.Result{Error: "Error parsing first query: nope"}})
	assert.Equal(t, []string{"Error parsing first query: nope"}, m.ErrorMessages)
}
