package parser

import "github.com/leapstack-labs/sqlbench/pkg/token"

// Position is the source position type used by the parser.
type Position = token.Position

// Statement represents a SQL statement.
type Statement interface {
	stmtNode()
}

// Expr represents an expression in SQL.
type Expr interface {
	exprNode()
}

// TableRef represents a table reference in a FROM clause.
type TableRef interface {
	tableRefNode()
}

// ---------- Statement Types ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	Name    string
	Columns []string
	Select  *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
type SelectBody struct {
	Left  *SelectCore
	Op    SetOpType   // UNION, INTERSECT, EXCEPT, or empty
	All   bool        // UNION ALL
	Right *SelectBody // chained set operations
}

// IsSetOp reports whether the body combines more than one SELECT.
func (b *SelectBody) IsSetOp() bool {
	return b != nil && b.Op != SetOpNone && b.Right != nil
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents a single SELECT ... FROM ... block.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string
}

// FromClause represents the FROM clause.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Natural   bool
	Right     TableRef
	Condition Expr     // ON clause
	Using     []string // USING (col1, col2)
}

// JoinType represents the type of join as its SQL keyword.
type JoinType string

// JoinType constants. JoinComma is the implicit cross join written as "FROM a, b".
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	JoinComma JoinType = ","
)

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means default
}

// InsertStmt represents INSERT INTO ... VALUES / SELECT.
type InsertStmt struct {
	With    *WithClause
	Table   *TableName
	Columns []string
	Values  [][]Expr
	Select  *SelectStmt
}

func (*InsertStmt) stmtNode() {}

// UpdateStmt represents UPDATE ... SET ... [FROM ...] [WHERE ...].
type UpdateStmt struct {
	With  *WithClause
	Table *TableName
	Set   []Assignment
	From  *FromClause
	Where Expr
}

func (*UpdateStmt) stmtNode() {}

// Assignment is a single column = value pair in an UPDATE.
type Assignment struct {
	Column string
	Value  Expr
}

// DeleteStmt represents DELETE FROM ... [USING ...] [WHERE ...].
type DeleteStmt struct {
	With  *WithClause
	Table *TableName
	Using *FromClause
	Where Expr
}

func (*DeleteStmt) stmtNode() {}

// ---------- Table Reference Types ----------

// TableName represents a table name reference.
type TableName struct {
	Catalog string
	Schema  string
	Name    string
	Alias   string
}

func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) tableRefNode() {}

// ---------- Expression Types ----------

// ColumnRef is a possibly qualified column reference.
type ColumnRef struct {
	Table  string
	Column string
}

func (*ColumnRef) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants.
const (
	LiteralNull LiteralType = iota
	LiteralBool
	LiteralNumber
	LiteralString
)

// Literal is a constant value.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// BinaryExpr is an infix arithmetic, comparison or boolean expression.
type BinaryExpr struct {
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a prefix NOT, - or + expression.
type UnaryExpr struct {
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall is a function invocation. Niladic is set for keyword functions
// written without parentheses, such as CURRENT_DATE.
type FuncCall struct {
	Name     string
	Distinct bool
	Star     bool
	Args     []Expr
	Niladic  bool
	Filter   Expr        // aggregate FILTER (WHERE ...) condition
	Over     *WindowSpec // non-nil for window function calls
}

func (*FuncCall) exprNode() {}

// WindowSpec is the PARTITION BY / ORDER BY part of an OVER clause.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr is a simple or searched CASE expression.
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause is a single WHEN ... THEN ... branch.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr is CAST(expr AS type) or expr::type.
type CastExpr struct {
	Expr     Expr
	TypeName string
}

func (*CastExpr) exprNode() {}

// InExpr is expr [NOT] IN (list | subquery).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

func (*InExpr) exprNode() {}

// BetweenExpr is expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr is expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// IsBoolExpr is expr IS [NOT] TRUE|FALSE.
type IsBoolExpr struct {
	Expr  Expr
	Not   bool
	Value bool
}

func (*IsBoolExpr) exprNode() {}

// LikeExpr is expr [NOT] LIKE|ILIKE pattern.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	ILike   bool
	Pattern Expr
}

func (*LikeExpr) exprNode() {}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// StarExpr is * or t.* used as an expression (e.g. COUNT(*)).
type StarExpr struct {
	Table string
}

func (*StarExpr) exprNode() {}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ExistsExpr is [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// IntervalExpr is INTERVAL 'value' [unit].
type IntervalExpr struct {
	Value Expr
	Unit  string
}

func (*IntervalExpr) exprNode() {}

// ParamExpr is a bind placeholder such as ?, $1 or :name.
type ParamExpr struct {
	Text string
}

func (*ParamExpr) exprNode() {}

// RawExpr is an opaque expression kept as text. Lower-fidelity frontends use
// it for fragments they cannot map onto typed nodes.
type RawExpr struct {
	Text string
}

func (*RawExpr) exprNode() {}
