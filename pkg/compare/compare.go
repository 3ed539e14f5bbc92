// Package compare decides whether two SQL queries are structurally
// equivalent by comparing their facets, optionally backed by executing
// both queries.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/sqlbench/pkg/facets"
	"github.com/leapstack-labs/sqlbench/pkg/format"
	"github.com/leapstack-labs/sqlbench/pkg/frontend"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

// ErrQueryTypeMismatch is wrapped by the error recorded when the two
// queries are different statement kinds.
var ErrQueryTypeMismatch = errors.New("query types differ")

// Result is the per-facet verdict of a comparison.
type Result struct {
	TableMatch         bool   `json:"table_match"`
	ColumnMatch        bool   `json:"column_match"`
	JoinMatch          bool   `json:"join_match"`
	WhereMatch         bool   `json:"where_match"`
	GroupByMatch       bool   `json:"group_by_match"`
	OrderByMatch       bool   `json:"order_by_match"`
	LimitMatch         bool   `json:"limit_match"`
	AggregationMatch   bool   `json:"aggregation_match"`
	ExactMatch         bool   `json:"exact_match"`
	LogicalEquivalence bool   `json:"logical_equivalence"`
	Error              string `json:"error,omitempty"`
	// Degraded is set when either side was parsed by the fallback frontend.
	Degraded  bool               `json:"degraded,omitempty"`
	Execution *verify.Comparison `json:"execution,omitempty"`

	typeMismatch bool
}

// TypeMismatch reports whether the queries were different statement kinds.
func (r Result) TypeMismatch() bool {
	return r.typeMismatch
}

// GatingMatches returns how many of the six facets that decide logical
// equivalence matched.
func (r Result) GatingMatches() int {
	n := 0
	for _, ok := range []bool{r.TableMatch, r.ColumnMatch, r.JoinMatch, r.WhereMatch, r.GroupByMatch, r.AggregationMatch} {
		if ok {
			n++
		}
	}
	return n
}

// GatingFacets is the number of facets GatingMatches counts.
const GatingFacets = 6

func exactResult() Result {
	return Result{
		TableMatch:         true,
		ColumnMatch:        true,
		JoinMatch:          true,
		WhereMatch:         true,
		GroupByMatch:       true,
		OrderByMatch:       true,
		LimitMatch:         true,
		AggregationMatch:   true,
		ExactMatch:         true,
		LogicalEquivalence: true,
	}
}

// Compare compares two facet sets. It never sets ExactMatch; that is decided
// on normalized text by Comparator.CompareSQL. Different statement kinds
// are never equivalent and match on no facet.
func Compare(a, b facets.QueryFacets) Result {
	if a.Type != b.Type {
		return Result{
			Error:        fmt.Errorf("%w: %s vs %s", ErrQueryTypeMismatch, a.Type, b.Type).Error(),
			Degraded:     a.Degraded || b.Degraded,
			typeMismatch: true,
		}
	}

	r := Result{
		TableMatch:       a.Tables.Equal(b.Tables),
		ColumnMatch:      a.Columns.Equal(b.Columns),
		JoinMatch:        joinsEqual(a.Joins, b.Joins),
		WhereMatch:       a.WherePredicates.Equal(b.WherePredicates),
		GroupByMatch:     a.GroupBy.Equal(b.GroupBy),
		OrderByMatch:     orderKeySet(a.OrderBy).Equal(orderKeySet(b.OrderBy)),
		LimitMatch:       limitsEqual(a.Limit, b.Limit),
		AggregationMatch: a.Aggregations.Equal(b.Aggregations),
		Degraded:         a.Degraded || b.Degraded,
	}
	r.LogicalEquivalence = r.TableMatch && r.ColumnMatch && r.JoinMatch &&
		r.WhereMatch && r.GroupByMatch && r.AggregationMatch
	return r
}

// joinsEqual groups joins by kind and compares the multisets of target
// tables per kind.
func joinsEqual(a, b []facets.JoinFacet) bool {
	if len(a) != len(b) {
		return false
	}
	ga, gb := groupJoins(a), groupJoins(b)
	if len(ga) != len(gb) {
		return false
	}
	for kind, tables := range ga {
		if !slices.Equal(tables, gb[kind]) {
			return false
		}
	}
	return true
}

func groupJoins(joins []facets.JoinFacet) map[facets.JoinKind][]string {
	out := make(map[facets.JoinKind][]string)
	for _, j := range joins {
		out[j.Kind] = append(out[j.Kind], j.Table)
	}
	for _, tables := range out {
		slices.Sort(tables)
	}
	return out
}

func orderKeySet(keys []facets.OrderKey) facets.Set {
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = k.Column + " " + k.Direction()
	}
	return facets.NewSet(items...)
}

func limitsEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Comparator compares raw SQL text.
type Comparator struct {
	Chain    *frontend.Chain
	Verifier *verify.Verifier
	Logger   *slog.Logger
}

// NewComparator creates a Comparator using the default frontend chain.
// verifier may be nil, in which case execution checks are skipped.
func NewComparator(verifier *verify.Verifier, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Comparator{
		Chain:    frontend.NewChain(logger),
		Verifier: verifier,
		Logger:   logger,
	}
}

// Facets parses sql through the comparator's frontend chain.
func (c *Comparator) Facets(sql string) (facets.QueryFacets, error) {
	return facets.FromSQL(sql, c.Chain)
}

// CompareSQL compares two queries statically. Identical normalized text is
// an exact match on every facet. Parse failures are reported in
// Result.Error with every flag false.
func (c *Comparator) CompareSQL(a, b string) Result {
	if format.Normalize(a) == format.Normalize(b) {
		return exactResult()
	}

	fa, err := c.Facets(a)
	if err != nil {
		return Result{Error: fmt.Sprintf("Error parsing first query: %v", err)}
	}
	fb, err := c.Facets(b)
	if err != nil {
		return Result{Error: fmt.Sprintf("Error parsing second query: %v", err)}
	}

	r := Compare(fa, fb)
	c.Logger.Debug("compared queries",
		slog.Bool("logical", r.LogicalEquivalence),
		slog.Int("gating_matches", r.GatingMatches()),
		slog.Bool("degraded", r.Degraded))
	return r
}

// WithExecution compares statically and then, unless the queries already
// match exactly, executes both. A matching execution upgrades
// LogicalEquivalence to true unless the statement kinds differ; a mismatch
// never downgrades it. Without a verifier the static verdict stands and
// Execution is nil.
func (c *Comparator) WithExecution(ctx context.Context, a, b string) (bool, Result) {
	r := c.CompareSQL(a, b)
	if r.ExactMatch {
		return true, r
	}

	if c.Verifier == nil {
		c.Logger.Debug("execution check skipped", slog.String("reason", verify.ErrEngineNotConfigured.Error()))
		return r.LogicalEquivalence, r
	}

	ok, cmp := c.Verifier.ExecuteAndCompare(ctx, a, b)
	r.Execution = &cmp
	if ok && !r.typeMismatch {
		r.LogicalEquivalence = true
	}
	return r.LogicalEquivalence, r
}
