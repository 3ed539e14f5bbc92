// Package facets extracts order-independent structural facets (tables,
// columns, joins, predicates, grouping, ordering, limit and aggregations)
// from a parsed SQL statement.
package facets

import (
	"slices"
	"sort"
)

// QueryType classifies a statement.
type QueryType string

// QueryType values.
const (
	QuerySelect  QueryType = "SELECT"
	QueryInsert  QueryType = "INSERT"
	QueryUpdate  QueryType = "UPDATE"
	QueryDelete  QueryType = "DELETE"
	QueryUnion   QueryType = "UNION"
	QueryUnknown QueryType = "UNKNOWN"
)

// JoinKind is the kind of a join. Comma joins are reported as JoinCross.
type JoinKind string

// JoinKind values.
const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinCross JoinKind = "CROSS"
)

// JoinFacet describes one join clause.
type JoinFacet struct {
	Kind      JoinKind `json:"kind"`
	Table     string   `json:"table"`
	Condition string   `json:"condition,omitempty"`
}

// OrderKey is one ORDER BY key.
type OrderKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Direction returns "ASC" or "DESC".
func (k OrderKey) Direction() string {
	if k.Desc {
		return "DESC"
	}
	return "ASC"
}

// QueryFacets is the structural summary of one statement. Values are
// never mutated after Extract returns them.
type QueryFacets struct {
	Type            QueryType   `json:"query_type"`
	Tables          Set         `json:"tables"`
	Columns         Set         `json:"columns"`
	Joins           []JoinFacet `json:"joins"`
	WherePredicates Set         `json:"where_predicates"`
	GroupBy         Set         `json:"group_by"`
	OrderBy         []OrderKey  `json:"order_by"`
	Limit           *int        `json:"limit,omitempty"`
	Aggregations    Set         `json:"aggregations"`
	// Degraded marks facets extracted from the fallback frontend's output.
	Degraded bool `json:"degraded,omitempty"`
}

// Set is a sorted, duplicate-free list of strings.
type Set []string

// NewSet builds a Set from items.
func NewSet(items ...string) Set {
	if len(items) == 0 {
		return nil
	}
	s := slices.Clone(items)
	sort.Strings(s)
	return slices.Compact(s)
}

// Union returns the union of s and others.
func (s Set) Union(others ...Set) Set {
	all := slices.Clone([]string(s))
	for _, o := range others {
		all = append(all, o...)
	}
	return NewSet(all...)
}

// Equal reports whether both sets hold the same members.
func (s Set) Equal(o Set) bool {
	return slices.Equal(s, o)
}

// Contains reports whether v is a member.
func (s Set) Contains(v string) bool {
	_, ok := slices.BinarySearch(s, v)
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}
