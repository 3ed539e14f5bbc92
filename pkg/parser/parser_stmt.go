package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// SELECT statement grammar:
//
//	with_clause   → WITH [RECURSIVE] cte ("," cte)*
//	cte           → ident ["(" ident_list ")"] AS "(" select_stmt ")"
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" | ident "." "*" | expr [[AS] ident]
//	order_list    → expr [ASC|DESC] [NULLS (FIRST|LAST)] ("," ...)*
//	limit_clause  → LIMIT expr [OFFSET expr] | OFFSET expr [LIMIT expr]
//	                | FETCH (FIRST|NEXT) expr (ROW|ROWS) ONLY

// parseSelectStmt parses [WITH ...] select_body.
func (p *Parser) parseSelectStmt() *SelectStmt {
	stmt := &SelectStmt{}
	if p.check(token.WITH) {
		stmt.With = p.parseWith()
	}
	stmt.Body = p.parseSelectBody()
	return stmt
}

func (p *Parser) parseWith() *WithClause {
	p.expect(token.WITH)
	with := &WithClause{Recursive: p.match(token.RECURSIVE)}

	for !p.failed() {
		cte := &CTE{Name: p.parseIdent()}
		if p.check(token.LPAREN) {
			cte.Columns = p.parseIdentList()
		}
		p.expect(token.AS)
		p.expect(token.LPAREN)
		cte.Select = p.parseSelectStmt()
		p.expect(token.RPAREN)
		with.CTEs = append(with.CTEs, cte)

		if !p.match(token.COMMA) {
			break
		}
	}
	return with
}

func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{Left: p.parseSelectCore()}

	switch p.token.Type {
	case token.UNION:
		body.Op = SetOpUnion
	case token.INTERSECT:
		body.Op = SetOpIntersect
	case token.EXCEPT:
		body.Op = SetOpExcept
	default:
		return body
	}
	p.nextToken()

	if p.match(token.ALL) {
		body.All = true
	} else {
		p.match(token.DISTINCT)
	}
	body.Right = p.parseSelectBody()
	return body
}

func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}
	if !p.expect(token.SELECT) {
		return core
	}

	if p.match(token.DISTINCT) {
		core.Distinct = true
	} else {
		p.match(token.ALL)
	}

	core.Columns = p.parseSelectList()

	if p.match(token.FROM) {
		core.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		core.Where = p.parseExpression()
	}
	if p.match(token.GROUP) {
		p.expect(token.BY)
		core.GroupBy = p.parseExpressionList()
	}
	if p.match(token.HAVING) {
		core.Having = p.parseExpression()
	}
	if p.match(token.ORDER) {
		p.expect(token.BY)
		core.OrderBy = p.parseOrderByList()
	}
	p.parseLimitClause(core)

	return core
}

func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for !p.failed() {
		items = append(items, p.parseSelectItem())
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

func (p *Parser) parseSelectItem() SelectItem {
	if p.match(token.STAR) {
		return SelectItem{Star: true}
	}

	if p.checkName() && p.checkPeek(token.DOT) && p.peek2.Type == token.STAR {
		table := p.token.Literal
		p.nextToken() // ident
		p.nextToken() // .
		p.nextToken() // *
		return SelectItem{TableStar: table}
	}

	item := SelectItem{Expr: p.parseExpression()}
	item.Alias = p.parseAlias()
	return item
}

// parseAlias parses an optional [AS] alias. String literals are accepted
// after AS, as several engines allow.
func (p *Parser) parseAlias() string {
	if p.match(token.AS) {
		if p.check(token.STRING) {
			alias := p.token.Literal
			p.nextToken()
			return alias
		}
		return p.parseIdent()
	}
	if p.check(token.IDENT) && !p.isSoftClauseWord() {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	return ""
}

// isSoftClauseWord reports identifiers that begin a construct after a table
// or expression and so cannot be an implicit alias.
func (p *Parser) isSoftClauseWord() bool {
	return p.checkWord("window") || p.checkWord("qualify") || p.checkWord("returning")
}

func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr
	for !p.failed() {
		exprs = append(exprs, p.parseExpression())
		if !p.match(token.COMMA) {
			break
		}
	}
	return exprs
}

func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem
	for !p.failed() {
		item := OrderByItem{Expr: p.parseExpression()}
		if p.match(token.DESC) {
			item.Desc = true
		} else {
			p.match(token.ASC)
		}
		if p.match(token.NULLS) {
			first := p.check(token.FIRST)
			if first || p.check(token.LAST) {
				p.nextToken()
				item.NullsFirst = &first
			} else {
				p.expect(token.FIRST)
			}
		}
		items = append(items, item)
		if !p.match(token.COMMA) {
			break
		}
	}
	return items
}

func (p *Parser) parseLimitClause(core *SelectCore) {
	for !p.failed() {
		switch {
		case p.check(token.LIMIT) && core.Limit == nil:
			p.nextToken()
			if p.checkWord("all") || p.check(token.ALL) {
				p.nextToken()
				continue
			}
			core.Limit = p.parseExpression()
		case p.check(token.OFFSET) && core.Offset == nil:
			p.nextToken()
			core.Offset = p.parseExpression()
			if p.checkWord("rows") || p.checkWord("row") {
				p.nextToken()
			}
		case p.check(token.FETCH) && core.Limit == nil:
			p.nextToken()
			if !p.match(token.FIRST) && !p.checkWord("next") {
				p.expect(token.FIRST)
				return
			}
			if p.checkWord("next") {
				p.nextToken()
			}
			core.Limit = p.parseExpression()
			if p.checkWord("rows") || p.checkWord("row") {
				p.nextToken()
			}
			if !p.checkWord("only") {
				p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "ONLY"))
				return
			}
			p.nextToken()
		default:
			return
		}
	}
}

// parseTypeName parses a type name such as INTEGER, VARCHAR(20) or
// DOUBLE PRECISION and returns it upper-cased.
func (p *Parser) parseTypeName() string {
	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "type name"))
		return ""
	}
	parts := []string{strings.ToUpper(p.token.Literal)}
	p.nextToken()
	for p.checkWord("precision") || p.checkWord("varying") {
		parts = append(parts, strings.ToUpper(p.token.Literal))
		p.nextToken()
	}
	name := strings.Join(parts, " ")

	if p.check(token.LPAREN) {
		p.nextToken()
		var args []string
		for !p.failed() && p.check(token.NUMBER) {
			args = append(args, p.token.Literal)
			p.nextToken()
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
		name += "(" + strings.Join(args, ",") + ")"
	}
	return name
}
