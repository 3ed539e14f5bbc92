package frontend

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/sqlbench/pkg/parser"
	"github.com/xwb1989/sqlparser"
)

// Permissive is the fallback frontend backed by github.com/xwb1989/sqlparser.
// It accepts MySQL-isms the strict grammar rejects (backtick identifiers,
// LIMIT offset, count) and maps the result onto the parser AST:
//
//   - only top-level FROM and JOIN tables are kept; derived tables are opaque
//   - WHERE and HAVING are kept as single opaque predicates
//   - select items, GROUP BY and ORDER BY keep columns and function calls
type Permissive struct{}

// Name implements Frontend.
func (Permissive) Name() string { return "permissive" }

// Parse implements Frontend.
func (Permissive) Parse(sql string) (parser.Statement, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return convertStatement(stmt)
}

func convertStatement(stmt sqlparser.Statement) (parser.Statement, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return &parser.SelectStmt{Body: &parser.SelectBody{Left: convertSelect(s)}}, nil
	case *sqlparser.Union:
		return &parser.SelectStmt{Body: convertUnion(s)}, nil
	case *sqlparser.ParenSelect:
		return convertStatement(s.Select)
	case *sqlparser.Insert:
		return &parser.InsertStmt{Table: convertTableName(s.Table, "")}, nil
	case *sqlparser.Update:
		return &parser.UpdateStmt{Table: firstTable(s.TableExprs)}, nil
	case *sqlparser.Delete:
		return &parser.DeleteStmt{Table: firstTable(s.TableExprs)}, nil
	default:
		return nil, fmt.Errorf("unsupported statement type %T", stmt)
	}
}

// convertUnion flattens a left-deep union tree into a right-linked body chain.
func convertUnion(u *sqlparser.Union) *parser.SelectBody {
	type part struct {
		core *parser.SelectCore
		op   string
	}
	var parts []part

	var walk func(s sqlparser.SelectStatement, op string)
	walk = func(s sqlparser.SelectStatement, op string) {
		switch v := s.(type) {
		case *sqlparser.Union:
			walk(v.Left, op)
			walk(v.Right, v.Type)
		case *sqlparser.ParenSelect:
			walk(v.Select, op)
		case *sqlparser.Select:
			parts = append(parts, part{core: convertSelect(v), op: op})
		}
	}
	walk(u, "")

	if len(parts) == 0 {
		return &parser.SelectBody{Left: &parser.SelectCore{}}
	}

	last := parts[len(parts)-1].core
	last.OrderBy = append(last.OrderBy, convertOrderBy(u.OrderBy)...)
	if u.Limit != nil {
		last.Limit, last.Offset = convertLimit(u.Limit)
	}

	var body *parser.SelectBody
	for i := len(parts) - 1; i >= 0; i-- {
		b := &parser.SelectBody{Left: parts[i].core}
		if body != nil {
			b.Right = body
			b.Op = parser.SetOpUnion
			b.All = parts[i+1].op == sqlparser.UnionAllStr
		}
		body = b
	}
	return body
}

func convertSelect(sel *sqlparser.Select) *parser.SelectCore {
	core := &parser.SelectCore{Distinct: sel.Distinct != ""}

	for _, se := range sel.SelectExprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			if e.TableName.IsEmpty() {
				core.Columns = append(core.Columns, parser.SelectItem{Star: true})
			} else {
				core.Columns = append(core.Columns, parser.SelectItem{TableStar: e.TableName.Name.String()})
			}
		case *sqlparser.AliasedExpr:
			core.Columns = append(core.Columns, parser.SelectItem{Expr: convertExpr(e.Expr), Alias: e.As.String()})
		}
	}

	if len(sel.From) > 0 {
		core.From = convertFrom(sel.From)
	}
	if sel.Where != nil {
		core.Where = &parser.RawExpr{Text: sqlparser.String(sel.Where.Expr)}
	}
	for _, g := range sel.GroupBy {
		core.GroupBy = append(core.GroupBy, convertExpr(g))
	}
	if sel.Having != nil {
		core.Having = &parser.RawExpr{Text: sqlparser.String(sel.Having.Expr)}
	}
	core.OrderBy = convertOrderBy(sel.OrderBy)
	if sel.Limit != nil {
		core.Limit, core.Offset = convertLimit(sel.Limit)
	}
	return core
}

func convertOrderBy(orders sqlparser.OrderBy) []parser.OrderByItem {
	var items []parser.OrderByItem
	for _, o := range orders {
		items = append(items, parser.OrderByItem{Expr: convertExpr(o.Expr), Desc: o.Direction == sqlparser.DescScr})
	}
	return items
}

func convertLimit(l *sqlparser.Limit) (limit, offset parser.Expr) {
	if l.Rowcount != nil {
		limit = convertExpr(l.Rowcount)
	}
	if l.Offset != nil {
		offset = convertExpr(l.Offset)
	}
	return limit, offset
}

// convertFrom flattens the table expression list into a source and joins.
// Comma-separated entries become comma joins.
func convertFrom(exprs sqlparser.TableExprs) *parser.FromClause {
	from := &parser.FromClause{}
	add := func(ref parser.TableRef, join *parser.Join) {
		switch {
		case from.Source == nil:
			from.Source = ref
		case join != nil:
			join.Right = ref
			from.Joins = append(from.Joins, join)
		default:
			from.Joins = append(from.Joins, &parser.Join{Type: parser.JoinComma, Right: ref})
		}
	}

	var walk func(te sqlparser.TableExpr, join *parser.Join)
	walk = func(te sqlparser.TableExpr, join *parser.Join) {
		switch t := te.(type) {
		case *sqlparser.AliasedTableExpr:
			add(convertAliased(t), join)
		case *sqlparser.ParenTableExpr:
			for i, inner := range t.Exprs {
				if i == 0 {
					walk(inner, join)
				} else {
					walk(inner, nil)
				}
			}
		case *sqlparser.JoinTableExpr:
			walk(t.LeftExpr, join)
			j := convertJoinType(t.Join)
			if t.Condition.On != nil {
				j.Condition = &parser.RawExpr{Text: sqlparser.String(t.Condition.On)}
			}
			for _, col := range t.Condition.Using {
				j.Using = append(j.Using, col.String())
			}
			walk(t.RightExpr, j)
		}
	}

	for _, te := range exprs {
		walk(te, nil)
	}
	return from
}

func convertAliased(t *sqlparser.AliasedTableExpr) parser.TableRef {
	alias := t.As.String()
	switch e := t.Expr.(type) {
	case sqlparser.TableName:
		return convertTableName(e, alias)
	default:
		// subqueries are not descended into
		return &parser.DerivedTable{Alias: alias}
	}
}

func convertJoinType(join string) *parser.Join {
	switch join {
	case sqlparser.LeftJoinStr:
		return &parser.Join{Type: parser.JoinLeft}
	case sqlparser.RightJoinStr:
		return &parser.Join{Type: parser.JoinRight}
	case sqlparser.NaturalJoinStr:
		return &parser.Join{Type: parser.JoinInner, Natural: true}
	case sqlparser.NaturalLeftJoinStr:
		return &parser.Join{Type: parser.JoinLeft, Natural: true}
	case sqlparser.NaturalRightJoinStr:
		return &parser.Join{Type: parser.JoinRight, Natural: true}
	default:
		// JOIN, STRAIGHT_JOIN
		return &parser.Join{Type: parser.JoinInner}
	}
}

func convertTableName(tn sqlparser.TableName, alias string) *parser.TableName {
	return &parser.TableName{
		Schema: tn.Qualifier.String(),
		Name:   tn.Name.String(),
		Alias:  alias,
	}
}

func firstTable(exprs sqlparser.TableExprs) *parser.TableName {
	from := convertFrom(exprs)
	if tn, ok := from.Source.(*parser.TableName); ok {
		return tn
	}
	return &parser.TableName{}
}

// convertExpr maps column references, literals and function calls. Anything
// else is kept as opaque text.
func convertExpr(e sqlparser.Expr) parser.Expr {
	switch v := e.(type) {
	case *sqlparser.ColName:
		return &parser.ColumnRef{Table: v.Qualifier.Name.String(), Column: v.Name.String()}
	case *sqlparser.SQLVal:
		switch v.Type {
		case sqlparser.IntVal, sqlparser.FloatVal:
			return &parser.Literal{Type: parser.LiteralNumber, Value: string(v.Val)}
		case sqlparser.StrVal:
			return &parser.Literal{Type: parser.LiteralString, Value: string(v.Val)}
		case sqlparser.ValArg:
			return &parser.ParamExpr{Text: string(v.Val)}
		}
	case *sqlparser.NullVal:
		return &parser.Literal{Type: parser.LiteralNull, Value: "NULL"}
	case sqlparser.BoolVal:
		return &parser.Literal{Type: parser.LiteralBool, Value: strconv.FormatBool(bool(v))}
	case *sqlparser.ParenExpr:
		return &parser.ParenExpr{Expr: convertExpr(v.Expr)}
	case *sqlparser.FuncExpr:
		fn := &parser.FuncCall{Name: v.Name.String(), Distinct: v.Distinct}
		for _, arg := range v.Exprs {
			switch a := arg.(type) {
			case *sqlparser.StarExpr:
				fn.Star = true
			case *sqlparser.AliasedExpr:
				fn.Args = append(fn.Args, convertExpr(a.Expr))
			}
		}
		return fn
	}
	return &parser.RawExpr{Text: sqlparser.String(e)}
}
