package facets

import (
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/parser"
	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// renderer prints AST nodes in canonical form: upper-case keywords and
// function names, lower-case identifiers, single spaces. With qualified
// unset, column qualifiers and table aliases are dropped so the output
// does not depend on aliasing style.
type renderer struct {
	qualified bool
}

var (
	canonical = renderer{}
	verbatim  = renderer{qualified: true}
)

func (r renderer) expr(e parser.Expr) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *parser.ColumnRef:
		if r.qualified && x.Table != "" {
			return ident(x.Table) + "." + ident(x.Column)
		}
		return ident(x.Column)
	case *parser.Literal:
		if x.Type == parser.LiteralString {
			return "'" + strings.ReplaceAll(x.Value, "'", "''") + "'"
		}
		return strings.ToUpper(x.Value)
	case *parser.BinaryExpr:
		return r.expr(x.Left) + " " + x.Op.String() + " " + r.expr(x.Right)
	case *parser.UnaryExpr:
		if x.Op == token.NOT {
			return "NOT " + r.expr(x.Expr)
		}
		return x.Op.String() + r.expr(x.Expr)
	case *parser.FuncCall:
		return r.funcCall(x)
	case *parser.CaseExpr:
		var b strings.Builder
		b.WriteString("CASE")
		if x.Operand != nil {
			b.WriteString(" " + r.expr(x.Operand))
		}
		for _, w := range x.Whens {
			b.WriteString(" WHEN " + r.expr(w.Condition) + " THEN " + r.expr(w.Result))
		}
		if x.Else != nil {
			b.WriteString(" ELSE " + r.expr(x.Else))
		}
		b.WriteString(" END")
		return b.String()
	case *parser.CastExpr:
		return "CAST(" + r.expr(x.Expr) + " AS " + x.TypeName + ")"
	case *parser.InExpr:
		var list string
		if x.Query != nil {
			list = r.selectStmt(x.Query)
		} else {
			list = r.exprList(x.Values)
		}
		return r.expr(x.Expr) + not(x.Not) + " IN (" + list + ")"
	case *parser.BetweenExpr:
		return r.expr(x.Expr) + not(x.Not) + " BETWEEN " + r.expr(x.Low) + " AND " + r.expr(x.High)
	case *parser.IsNullExpr:
		return r.expr(x.Expr) + " IS" + not(x.Not) + " NULL"
	case *parser.IsBoolExpr:
		v := "FALSE"
		if x.Value {
			v = "TRUE"
		}
		return r.expr(x.Expr) + " IS" + not(x.Not) + " " + v
	case *parser.LikeExpr:
		op := " LIKE "
		if x.ILike {
			op = " ILIKE "
		}
		return r.expr(x.Expr) + not(x.Not) + op + r.expr(x.Pattern)
	case *parser.ParenExpr:
		return "(" + r.expr(x.Expr) + ")"
	case *parser.StarExpr:
		if r.qualified && x.Table != "" {
			return ident(x.Table) + ".*"
		}
		return "*"
	case *parser.SubqueryExpr:
		return "(" + r.selectStmt(x.Select) + ")"
	case *parser.ExistsExpr:
		return strings.TrimPrefix(not(x.Not)+" ", " ") + "EXISTS (" + r.selectStmt(x.Select) + ")"
	case *parser.IntervalExpr:
		s := "INTERVAL " + r.expr(x.Value)
		if x.Unit != "" {
			s += " " + x.Unit
		}
		return s
	case *parser.ParamExpr:
		return x.Text
	case *parser.RawExpr:
		return x.Text
	default:
		return ""
	}
}

func (r renderer) funcCall(fn *parser.FuncCall) string {
	name := strings.ToUpper(fn.Name)
	if fn.Niladic {
		return name
	}

	var b strings.Builder
	b.WriteString(name + "(")
	switch {
	case fn.Star:
		b.WriteString("*")
	default:
		if fn.Distinct {
			b.WriteString("DISTINCT ")
		}
		b.WriteString(r.exprList(fn.Args))
	}
	b.WriteString(")")

	if fn.Filter != nil {
		b.WriteString(" FILTER (WHERE " + r.expr(fn.Filter) + ")")
	}
	if fn.Over != nil {
		var parts []string
		if len(fn.Over.PartitionBy) > 0 {
			parts = append(parts, "PARTITION BY "+r.exprList(fn.Over.PartitionBy))
		}
		if len(fn.Over.OrderBy) > 0 {
			parts = append(parts, "ORDER BY "+r.orderList(fn.Over.OrderBy))
		}
		b.WriteString(" OVER (" + strings.Join(parts, " ") + ")")
	}
	return b.String()
}

func (r renderer) exprList(exprs []parser.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = r.expr(e)
	}
	return strings.Join(parts, ", ")
}

func (r renderer) orderList(items []parser.OrderByItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = r.expr(item.Expr)
		if item.Desc {
			parts[i] += " DESC"
		}
	}
	return strings.Join(parts, ", ")
}

// selectStmt renders a nested SELECT on one line.
func (r renderer) selectStmt(stmt *parser.SelectStmt) string {
	if stmt == nil {
		return ""
	}
	var b strings.Builder
	if stmt.With != nil {
		b.WriteString("WITH ")
		for i, cte := range stmt.With.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ident(cte.Name) + " AS (" + r.selectStmt(cte.Select) + ")")
		}
		b.WriteString(" ")
	}
	for body := stmt.Body; body != nil; body = body.Right {
		b.WriteString(r.selectCore(body.Left))
		if body.IsSetOp() {
			b.WriteString(" " + string(body.Op))
			if body.All {
				b.WriteString(" ALL")
			}
			b.WriteString(" ")
		}
	}
	return b.String()
}

func (r renderer) selectCore(core *parser.SelectCore) string {
	if core == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if core.Distinct {
		b.WriteString("DISTINCT ")
	}
	items := make([]string, len(core.Columns))
	for i, item := range core.Columns {
		switch {
		case item.Star:
			items[i] = "*"
		case item.TableStar != "":
			items[i] = r.expr(&parser.StarExpr{Table: item.TableStar})
		default:
			items[i] = r.expr(item.Expr)
			if item.Alias != "" {
				items[i] += " AS " + ident(item.Alias)
			}
		}
	}
	b.WriteString(strings.Join(items, ", "))

	if core.From != nil {
		b.WriteString(" FROM " + r.tableRef(core.From.Source))
		for _, j := range core.From.Joins {
			if j.Type == parser.JoinComma {
				b.WriteString(", " + r.tableRef(j.Right))
				continue
			}
			b.WriteString(" " + string(j.Type) + " JOIN " + r.tableRef(j.Right))
			if j.Condition != nil {
				b.WriteString(" ON " + r.expr(j.Condition))
			}
		}
	}
	if core.Where != nil {
		b.WriteString(" WHERE " + r.expr(core.Where))
	}
	if len(core.GroupBy) > 0 {
		b.WriteString(" GROUP BY " + r.exprList(core.GroupBy))
	}
	if core.Having != nil {
		b.WriteString(" HAVING " + r.expr(core.Having))
	}
	if len(core.OrderBy) > 0 {
		b.WriteString(" ORDER BY " + r.orderList(core.OrderBy))
	}
	if core.Limit != nil {
		b.WriteString(" LIMIT " + r.expr(core.Limit))
	}
	if core.Offset != nil {
		b.WriteString(" OFFSET " + r.expr(core.Offset))
	}
	return b.String()
}

func (r renderer) tableRef(ref parser.TableRef) string {
	switch t := ref.(type) {
	case *parser.TableName:
		s := ident(t.Name)
		if t.Schema != "" {
			s = ident(t.Schema) + "." + s
		}
		if r.qualified && t.Alias != "" {
			s += " " + ident(t.Alias)
		}
		return s
	case *parser.DerivedTable:
		s := "(" + r.selectStmt(t.Select) + ")"
		if r.qualified && t.Alias != "" {
			s += " " + ident(t.Alias)
		}
		return s
	default:
		return ""
	}
}

func ident(name string) string {
	return strings.ToLower(name)
}

func not(negated bool) string {
	if negated {
		return " NOT"
	}
	return ""
}
