package facets

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/format"
	"github.com/leapstack-labs/sqlbench/pkg/frontend"
	"github.com/leapstack-labs/sqlbench/pkg/parser"
	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// aggregateFunctions are the calls recorded in QueryFacets.Aggregations.
var aggregateFunctions = map[string]bool{
	"COUNT": true,
	"SUM":   true,
	"AVG":   true,
	"MIN":   true,
	"MAX":   true,
}

// FromSQL normalizes sql, parses it through chain and extracts its facets.
// Facets from the fallback frontend are flagged Degraded. When every
// frontend rejects the input the error is a *frontend.ParseFailure.
func FromSQL(sql string, chain *frontend.Chain) (QueryFacets, error) {
	parsed, err := chain.Parse(format.Normalize(sql))
	if err != nil {
		return QueryFacets{}, err
	}
	f := Extract(parsed.Stmt)
	f.Degraded = parsed.Degraded
	return f, nil
}

// Extract computes the facets of stmt. Only SELECT statements and set
// operations produce facet values; other statement kinds carry just their
// Type.
func Extract(stmt parser.Statement) QueryFacets {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return extractSelect(s)
	case *parser.InsertStmt:
		return QueryFacets{Type: QueryInsert}
	case *parser.UpdateStmt:
		return QueryFacets{Type: QueryUpdate}
	case *parser.DeleteStmt:
		return QueryFacets{Type: QueryDelete}
	default:
		return QueryFacets{Type: QueryUnknown}
	}
}

// scope maps CTE names visible at a point of the query to their bodies.
type scope map[string]*parser.SelectStmt

// with returns a new scope extended by the CTEs of w.
func (s scope) with(w *parser.WithClause) scope {
	if w == nil || len(w.CTEs) == 0 {
		return s
	}
	out := make(scope, len(s)+len(w.CTEs))
	for k, v := range s {
		out[k] = v
	}
	for _, cte := range w.CTEs {
		out[ident(cte.Name)] = cte.Select
	}
	return out
}

// without returns the scope minus name, so recursive CTEs terminate.
func (s scope) without(name string) scope {
	out := make(scope, len(s))
	for k, v := range s {
		if k != name {
			out[k] = v
		}
	}
	return out
}

func extractSelect(stmt *parser.SelectStmt) QueryFacets {
	if stmt == nil || stmt.Body == nil {
		return QueryFacets{Type: QueryUnknown}
	}
	sc := scope{}.with(stmt.With)

	f := QueryFacets{Type: QuerySelect}
	if stmt.Body.IsSetOp() {
		f.Type = QueryUnion
	}

	var last *parser.SelectCore
	for body := stmt.Body; body != nil; body = body.Right {
		core := body.Left
		if core == nil {
			continue
		}
		aliases := selectAliases(core)

		f.Tables = f.Tables.Union(fromTables(core.From, sc))
		f.Columns = f.Columns.Union(coreColumns(core, aliases, sc))
		f.Joins = append(f.Joins, fromJoins(core.From, sc)...)
		f.WherePredicates = f.WherePredicates.Union(predicates(core.Where), nestedPredicates(core.From, sc))
		f.GroupBy = f.GroupBy.Union(groupKeys(core.GroupBy))
		f.Aggregations = f.Aggregations.Union(coreAggregations(core), nestedAggregations(core.From, sc))
		last = core
	}

	if last != nil {
		f.OrderBy = orderKeys(last.OrderBy)
		f.Limit = limitOf(last.Limit)
	}
	return f
}

// ---------- Tables ----------

func fromTables(from *parser.FromClause, sc scope) Set {
	if from == nil {
		return nil
	}
	tables := refTables(from.Source, sc)
	for _, j := range from.Joins {
		tables = tables.Union(refTables(j.Right, sc))
	}
	return tables
}

// refTables returns the base tables behind a table reference. Derived tables
// and CTE references resolve to the tables they read.
func refTables(ref parser.TableRef, sc scope) Set {
	switch t := ref.(type) {
	case *parser.TableName:
		name := ident(t.Name)
		if cte, ok := sc[name]; ok && t.Schema == "" {
			return selectTables(cte, sc.without(name))
		}
		return NewSet(name)
	case *parser.DerivedTable:
		return selectTables(t.Select, sc)
	default:
		return nil
	}
}

func selectTables(stmt *parser.SelectStmt, sc scope) Set {
	if stmt == nil {
		return nil
	}
	sc = sc.with(stmt.With)
	var tables Set
	for body := stmt.Body; body != nil; body = body.Right {
		if body.Left != nil {
			tables = tables.Union(fromTables(body.Left.From, sc))
		}
	}
	return tables
}

// ---------- Joins ----------

func fromJoins(from *parser.FromClause, sc scope) []JoinFacet {
	if from == nil {
		return nil
	}
	var joins []JoinFacet
	for _, j := range from.Joins {
		joins = append(joins, JoinFacet{
			Kind:      joinKind(j.Type),
			Table:     joinTarget(j.Right, sc),
			Condition: joinCondition(j),
		})
	}
	return joins
}

func joinKind(t parser.JoinType) JoinKind {
	switch t {
	case parser.JoinLeft:
		return JoinLeft
	case parser.JoinRight:
		return JoinRight
	case parser.JoinFull:
		return JoinFull
	case parser.JoinCross, parser.JoinComma:
		return JoinCross
	default:
		return JoinInner
	}
}

// joinTarget names the right-hand side of a join: a base table name, or for
// subqueries and CTEs the first base table they read.
func joinTarget(ref parser.TableRef, sc scope) string {
	tables := refTables(ref, sc)
	if len(tables) == 0 {
		return ""
	}
	if tn, ok := ref.(*parser.TableName); ok && tables.Contains(ident(tn.Name)) {
		return ident(tn.Name)
	}
	return tables[0]
}

func joinCondition(j *parser.Join) string {
	switch {
	case j.Condition != nil:
		return verbatim.expr(j.Condition)
	case len(j.Using) > 0:
		cols := make([]string, len(j.Using))
		for i, c := range j.Using {
			cols[i] = ident(c)
		}
		return "USING (" + strings.Join(cols, ", ") + ")"
	default:
		return ""
	}
}

// ---------- Columns ----------

// selectAliases returns the lower-cased aliases of the select list.
func selectAliases(core *parser.SelectCore) map[string]bool {
	aliases := map[string]bool{}
	for _, item := range core.Columns {
		if item.Alias != "" {
			aliases[ident(item.Alias)] = true
		}
	}
	return aliases
}

// coreColumns collects columns from the select list, WHERE, GROUP BY and
// ORDER BY. GROUP BY and ORDER BY references that name a select alias are
// not columns. Derived tables contribute their own columns.
func coreColumns(core *parser.SelectCore, aliases map[string]bool, sc scope) Set {
	var cols Set
	for _, item := range core.Columns {
		cols = cols.Union(exprColumns(item.Expr))
	}
	cols = cols.Union(exprColumns(core.Where))
	for _, g := range core.GroupBy {
		cols = cols.Union(keyColumns(g, aliases))
	}
	for _, o := range core.OrderBy {
		cols = cols.Union(keyColumns(o.Expr, aliases))
	}
	return cols.Union(nestedColumns(core.From, sc))
}

func keyColumns(e parser.Expr, aliases map[string]bool) Set {
	if ref, ok := e.(*parser.ColumnRef); ok && ref.Table == "" && aliases[ident(ref.Column)] {
		return nil
	}
	return exprColumns(e)
}

// exprColumns returns every column referenced in e, unqualified.
func exprColumns(e parser.Expr) Set {
	switch x := e.(type) {
	case nil:
		return nil
	case *parser.ColumnRef:
		return NewSet(ident(x.Column))
	case *parser.BinaryExpr:
		return exprColumns(x.Left).Union(exprColumns(x.Right))
	case *parser.UnaryExpr:
		return exprColumns(x.Expr)
	case *parser.FuncCall:
		cols := exprsColumns(x.Args).Union(exprColumns(x.Filter))
		if x.Over != nil {
			cols = cols.Union(exprsColumns(x.Over.PartitionBy))
			for _, o := range x.Over.OrderBy {
				cols = cols.Union(exprColumns(o.Expr))
			}
		}
		return cols
	case *parser.CaseExpr:
		cols := exprColumns(x.Operand).Union(exprColumns(x.Else))
		for _, w := range x.Whens {
			cols = cols.Union(exprColumns(w.Condition), exprColumns(w.Result))
		}
		return cols
	case *parser.CastExpr:
		return exprColumns(x.Expr)
	case *parser.InExpr:
		return exprColumns(x.Expr).Union(exprsColumns(x.Values), subqueryColumns(x.Query))
	case *parser.BetweenExpr:
		return exprColumns(x.Expr).Union(exprColumns(x.Low), exprColumns(x.High))
	case *parser.IsNullExpr:
		return exprColumns(x.Expr)
	case *parser.IsBoolExpr:
		return exprColumns(x.Expr)
	case *parser.LikeExpr:
		return exprColumns(x.Expr).Union(exprColumns(x.Pattern))
	case *parser.ParenExpr:
		return exprColumns(x.Expr)
	case *parser.SubqueryExpr:
		return subqueryColumns(x.Select)
	case *parser.ExistsExpr:
		return subqueryColumns(x.Select)
	case *parser.IntervalExpr:
		return exprColumns(x.Value)
	case *parser.Literal, *parser.StarExpr, *parser.ParamExpr, *parser.RawExpr:
		return nil
	default:
		return nil
	}
}

func exprsColumns(exprs []parser.Expr) Set {
	var cols Set
	for _, e := range exprs {
		cols = cols.Union(exprColumns(e))
	}
	return cols
}

// subqueryColumns returns the column facet of a nested SELECT.
func subqueryColumns(stmt *parser.SelectStmt) Set {
	if stmt == nil {
		return nil
	}
	return extractSelect(stmt).Columns
}

// nestedColumns returns the columns of derived tables and referenced CTEs.
func nestedColumns(from *parser.FromClause, sc scope) Set {
	var cols Set
	for _, sub := range nestedSelects(from, sc) {
		cols = cols.Union(extractSelect(sub).Columns)
	}
	return cols
}

// nestedSelects returns the SELECTs behind derived tables and CTE references
// of a FROM clause.
func nestedSelects(from *parser.FromClause, sc scope) []*parser.SelectStmt {
	if from == nil {
		return nil
	}
	refs := []parser.TableRef{from.Source}
	for _, j := range from.Joins {
		refs = append(refs, j.Right)
	}

	var out []*parser.SelectStmt
	for _, ref := range refs {
		switch t := ref.(type) {
		case *parser.DerivedTable:
			if t.Select != nil {
				out = append(out, t.Select)
			}
		case *parser.TableName:
			if cte, ok := sc[ident(t.Name)]; ok && t.Schema == "" && cte != nil {
				out = append(out, cte)
			}
		}
	}
	return out
}

// ---------- Predicates ----------

// predicates flattens AND/OR trees and parentheses and returns the canonical
// text of each leaf comparison, pattern or membership test. Other node kinds
// (NOT, BETWEEN, IS NULL, EXISTS, bare booleans) are not recorded. Opaque
// predicates from the fallback frontend are recorded whole.
func predicates(e parser.Expr) Set {
	switch x := e.(type) {
	case nil:
		return nil
	case *parser.BinaryExpr:
		switch x.Op {
		case token.AND, token.OR:
			return predicates(x.Left).Union(predicates(x.Right))
		case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
			return NewSet(canonical.expr(x))
		}
		return nil
	case *parser.ParenExpr:
		return predicates(x.Expr)
	case *parser.LikeExpr, *parser.InExpr:
		return NewSet(canonical.expr(x))
	case *parser.RawExpr:
		return NewSet(x.Text)
	default:
		return nil
	}
}

// nestedPredicates returns the WHERE predicates of derived tables and
// referenced CTEs.
func nestedPredicates(from *parser.FromClause, sc scope) Set {
	var preds Set
	for _, sub := range nestedSelects(from, sc) {
		preds = preds.Union(extractSelect(sub).WherePredicates)
	}
	return preds
}

// ---------- Grouping, ordering, limit ----------

func groupKeys(exprs []parser.Expr) Set {
	var keys Set
	for _, e := range exprs {
		keys = keys.Union(NewSet(canonical.expr(e)))
	}
	return keys
}

func orderKeys(items []parser.OrderByItem) []OrderKey {
	if len(items) == 0 {
		return nil
	}
	keys := make([]OrderKey, len(items))
	for i, item := range items {
		keys[i] = OrderKey{Column: canonical.expr(item.Expr), Desc: item.Desc}
	}
	return keys
}

// limitOf returns the integer value of a LIMIT literal, or nil.
func limitOf(e parser.Expr) *int {
	lit, ok := e.(*parser.Literal)
	if !ok || lit.Type != parser.LiteralNumber {
		return nil
	}
	n, err := strconv.Atoi(lit.Value)
	if err != nil {
		return nil
	}
	return &n
}

// ---------- Aggregations ----------

// coreAggregations collects aggregate calls in the select list and HAVING.
func coreAggregations(core *parser.SelectCore) Set {
	var aggs Set
	for _, item := range core.Columns {
		aggs = aggs.Union(exprAggregations(item.Expr))
	}
	return aggs.Union(exprAggregations(core.Having))
}

func nestedAggregations(from *parser.FromClause, sc scope) Set {
	var aggs Set
	for _, sub := range nestedSelects(from, sc) {
		aggs = aggs.Union(extractSelect(sub).Aggregations)
	}
	return aggs
}

// exprAggregations returns canonical FUNC(arg) strings for every aggregate
// call in e. Subqueries are separate scopes and are not descended into.
func exprAggregations(e parser.Expr) Set {
	switch x := e.(type) {
	case nil:
		return nil
	case *parser.FuncCall:
		var aggs Set
		if aggregateFunctions[strings.ToUpper(x.Name)] && !x.Niladic && x.Over == nil {
			aggs = NewSet(canonical.expr(x))
		}
		for _, a := range x.Args {
			aggs = aggs.Union(exprAggregations(a))
		}
		return aggs
	case *parser.BinaryExpr:
		return exprAggregations(x.Left).Union(exprAggregations(x.Right))
	case *parser.UnaryExpr:
		return exprAggregations(x.Expr)
	case *parser.ParenExpr:
		return exprAggregations(x.Expr)
	case *parser.CastExpr:
		return exprAggregations(x.Expr)
	case *parser.CaseExpr:
		aggs := exprAggregations(x.Operand).Union(exprAggregations(x.Else))
		for _, w := range x.Whens {
			aggs = aggs.Union(exprAggregations(w.Condition), exprAggregations(w.Result))
		}
		return aggs
	case *parser.BetweenExpr:
		return exprAggregations(x.Expr).Union(exprAggregations(x.Low), exprAggregations(x.High))
	case *parser.InExpr:
		aggs := exprAggregations(x.Expr)
		for _, v := range x.Values {
			aggs = aggs.Union(exprAggregations(v))
		}
		return aggs
	case *parser.IsNullExpr:
		return exprAggregations(x.Expr)
	case *parser.LikeExpr:
		return exprAggregations(x.Expr)
	default:
		return nil
	}
}
