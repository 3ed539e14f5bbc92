// Package metrics scores a generated SQL query against a reference query
// and aggregates the scores over batches.
package metrics

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/compare"
	"github.com/leapstack-labs/sqlbench/pkg/facets"
)

// SQLMetrics is the bounded score vector for one evaluation.
type SQLMetrics struct {
	ExecutionAccuracy   float64        `json:"execution_accuracy"`
	ExactMatchAccuracy  float64        `json:"exact_match_accuracy"`
	LogicalFormAccuracy float64        `json:"logical_form_accuracy"`
	InferenceLatency    float64        `json:"inference_latency"`
	ComplexityHandling  float64        `json:"complexity_handling"`
	ZeroShotPerformance *float64       `json:"zero_shot_performance,omitempty"`
	ExecutionDetails    map[string]any `json:"execution_details,omitempty"`
	ParsingDetails      map[string]any `json:"parsing_details,omitempty"`
	ErrorMessages       []string       `json:"error_messages,omitempty"`
}

// ScoreInput carries everything Score needs for one query.
type ScoreInput struct {
	Result     compare.Result
	Complexity Complexity
	// Schema is the plain-text schema description; nil disables zero-shot
	// scoring.
	Schema *string
	// Latency is the caller-measured inference latency in milliseconds.
	Latency float64
	// Generated holds the facets of the generated query, or nil when it
	// could not be parsed.
	Generated *facets.QueryFacets
	// SkipReason explains why execution was not attempted.
	SkipReason string
}

// Score computes the metrics for one comparison. It is pure.
func Score(in ScoreInput) SQLMetrics {
	r := in.Result
	m := SQLMetrics{
		ExactMatchAccuracy:  boolScore(r.ExactMatch),
		LogicalFormAccuracy: boolScore(r.LogicalEquivalence),
		InferenceLatency:    max(in.Latency, 0),
		ComplexityHandling:  clamp(float64(r.GatingMatches()) / compare.GatingFacets),
		ParsingDetails:      parsingDetails(r, in.Complexity),
	}

	if r.Execution != nil {
		m.ExecutionAccuracy = boolScore(r.Execution.ResultMatch)
		m.ExecutionDetails = executionDetails(r)
	} else {
		m.ExecutionAccuracy = m.LogicalFormAccuracy
		reason := in.SkipReason
		if reason == "" {
			reason = "execution not attempted"
		}
		m.ExecutionDetails = map[string]any{"skipped": true, "reason": reason}
	}

	if in.Schema != nil {
		zs := clamp((m.LogicalFormAccuracy + grounding(in.Generated, *in.Schema)) / 2)
		m.ZeroShotPerformance = &zs
	}

	if r.Error != "" {
		m.ErrorMessages = append(m.ErrorMessages, r.Error)
	}
	if r.Execution != nil && r.Execution.Error != "" {
		m.ErrorMessages = append(m.ErrorMessages, r.Execution.Error)
	}
	return m
}

func parsingDetails(r compare.Result, c Complexity) map[string]any {
	return map[string]any{
		"complexity":        string(c),
		"table_match":       r.TableMatch,
		"column_match":      r.ColumnMatch,
		"join_match":        r.JoinMatch,
		"where_match":       r.WhereMatch,
		"group_by_match":    r.GroupByMatch,
		"order_by_match":    r.OrderByMatch,
		"limit_match":       r.LimitMatch,
		"aggregation_match": r.AggregationMatch,
		"degraded":          r.Degraded,
	}
}

func executionDetails(r compare.Result) map[string]any {
	e := r.Execution
	return map[string]any{
		"query1_success":  e.Query1Success,
		"query2_success":  e.Query2Success,
		"both_succeeded":  e.BothSucceeded,
		"result_match":    e.ResultMatch,
		"row_count_match": e.RowCountMatch,
		"row_count1":      e.RowCount1,
		"row_count2":      e.RowCount2,
		"query1_time":     e.Query1Time,
		"query2_time":     e.Query2Time,
		"timed_out":       e.TimedOut,
	}
}

var identWord = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// grounding returns the fraction of tables and columns referenced by the
// generated query that appear as identifier words in schema. A query that
// references nothing is fully grounded; one that failed to parse is not.
func grounding(f *facets.QueryFacets, schema string) float64 {
	if f == nil {
		return 0
	}
	refs := f.Tables.Union(f.Columns)
	if refs.Len() == 0 {
		return 1
	}

	words := facets.NewSet(identWord.FindAllString(strings.ToLower(schema), -1)...)
	found := 0
	for _, id := range refs {
		if words.Contains(strings.ToLower(id)) {
			found++
		}
	}
	return float64(found) / float64(refs.Len())
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
