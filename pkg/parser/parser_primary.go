package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// niladicFunctions are keyword functions that take no parentheses.
var niladicFunctions = map[string]bool{
	"current_date":      true,
	"current_time":      true,
	"current_timestamp": true,
	"current_user":      true,
	"localtime":         true,
	"localtimestamp":    true,
}

// intervalUnits are the units accepted after INTERVAL <value>.
var intervalUnits = map[string]bool{
	"year": true, "years": true, "month": true, "months": true,
	"week": true, "weeks": true, "day": true, "days": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
	"second": true, "seconds": true,
}

// parsePrimary parses literals, column references, function calls,
// parenthesized expressions and keyword-introduced expressions.
func (p *Parser) parsePrimary() Expr {
	tok := p.token

	switch tok.Type {
	case token.NUMBER:
		p.nextToken()
		return &Literal{Type: LiteralNumber, Value: tok.Literal}
	case token.STRING:
		p.nextToken()
		return &Literal{Type: LiteralString, Value: tok.Literal}
	case token.TRUE, token.FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: strings.ToUpper(tok.Literal)}
	case token.NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "NULL"}
	case token.PARAM:
		p.nextToken()
		return &ParamExpr{Text: tok.Literal}
	case token.STAR:
		p.nextToken()
		return &StarExpr{}
	case token.LPAREN:
		return p.parseParenExpr()
	case token.CASE:
		return p.parseCaseExpr()
	case token.CAST:
		return p.parseCastExpr()
	case token.EXISTS:
		p.nextToken()
		p.expect(token.LPAREN)
		sel := p.parseSelectStmt()
		p.expect(token.RPAREN)
		return &ExistsExpr{Select: sel}
	case token.INTERVAL:
		return p.parseIntervalExpr()
	case token.LEFT, token.RIGHT:
		// LEFT(s, n) and RIGHT(s, n) string functions
		if p.checkPeek(token.LPAREN) {
			name := strings.ToUpper(tok.Literal)
			p.nextToken()
			return p.parseFuncCall(name)
		}
	case token.IDENT:
		return p.parseIdentExpr()
	default:
		if token.IsNonReserved(tok.Type) {
			return p.parseIdentExpr()
		}
	}

	p.addError(fmt.Sprintf(ErrUnexpectedExpression, describe(tok)))
	return nil
}

func (p *Parser) parseParenExpr() Expr {
	p.expect(token.LPAREN)
	if p.check(token.SELECT) || p.check(token.WITH) {
		sel := p.parseSelectStmt()
		p.expect(token.RPAREN)
		return &SubqueryExpr{Select: sel}
	}
	inner := p.parseExpression()
	p.expect(token.RPAREN)
	return &ParenExpr{Expr: inner}
}

// parseIdentExpr parses column references (a, t.a, s.t.a), t.*, function
// calls and niladic keyword functions.
func (p *Parser) parseIdentExpr() Expr {
	tok := p.token
	p.nextToken()

	if p.check(token.LPAREN) && !tok.Quoted {
		return p.parseFuncCall(tok.Literal)
	}

	if !p.check(token.DOT) {
		if !tok.Quoted && niladicFunctions[strings.ToLower(tok.Literal)] {
			return &FuncCall{Name: strings.ToUpper(tok.Literal), Niladic: true}
		}
		return &ColumnRef{Column: tok.Literal}
	}

	parts := []string{tok.Literal}
	for p.match(token.DOT) {
		if p.match(token.STAR) {
			return &StarExpr{Table: parts[len(parts)-1]}
		}
		parts = append(parts, p.parseIdent())
		if p.failed() {
			return nil
		}
	}
	return &ColumnRef{Table: parts[len(parts)-2], Column: parts[len(parts)-1]}
}

// parseFuncCall parses name ( [DISTINCT] args | * ) [FILTER (WHERE ...)]
// [OVER (...)] with the
// current token on the opening parenthesis.
func (p *Parser) parseFuncCall(name string) Expr {
	p.expect(token.LPAREN)
	fn := &FuncCall{Name: name}

	if strings.EqualFold(name, "extract") {
		return p.parseExtractArgs(fn)
	}

	switch {
	case p.match(token.RPAREN):
		return p.parseOver(fn)
	case p.match(token.STAR):
		fn.Star = true
	default:
		fn.Distinct = p.match(token.DISTINCT)
		fn.Args = p.parseExpressionList()
	}
	p.expect(token.RPAREN)

	if p.match(token.FILTER) {
		p.expect(token.LPAREN)
		p.expect(token.WHERE)
		fn.Filter = p.parseExpression()
		p.expect(token.RPAREN)
	}
	return p.parseOver(fn)
}

// parseExtractArgs parses EXTRACT(field FROM expr). The field is kept as a
// string literal argument.
func (p *Parser) parseExtractArgs(fn *FuncCall) Expr {
	field := strings.ToUpper(p.parseIdent())
	p.expect(token.FROM)
	src := p.parseExpression()
	p.expect(token.RPAREN)
	fn.Args = []Expr{&Literal{Type: LiteralString, Value: field}, src}
	return fn
}

// parseOver parses an optional window specification. Partitioning and
// ordering are kept; frame clauses are skipped.
func (p *Parser) parseOver(fn *FuncCall) Expr {
	if !p.checkWord("over") {
		return fn
	}
	p.nextToken()
	if !p.expect(token.LPAREN) {
		return nil
	}

	spec := &WindowSpec{}
	if p.checkWord("partition") {
		p.nextToken()
		p.expect(token.BY)
		spec.PartitionBy = p.parseExpressionList()
	}
	if p.match(token.ORDER) {
		p.expect(token.BY)
		spec.OrderBy = p.parseOrderByList()
	}

	depth := 1
	for !p.failed() && !p.check(token.EOF) {
		if p.check(token.LPAREN) {
			depth++
		}
		if p.check(token.RPAREN) {
			depth--
			if depth == 0 {
				break
			}
		}
		p.nextToken()
	}
	p.expect(token.RPAREN)

	fn.Over = spec
	return fn
}

func (p *Parser) parseCaseExpr() Expr {
	p.expect(token.CASE)
	c := &CaseExpr{}
	if !p.check(token.WHEN) {
		c.Operand = p.parseExpression()
	}

	for !p.failed() && p.match(token.WHEN) {
		cond := p.parseExpression()
		p.expect(token.THEN)
		c.Whens = append(c.Whens, WhenClause{Condition: cond, Result: p.parseExpression()})
	}
	if len(c.Whens) == 0 {
		p.expect(token.WHEN)
	}
	if p.match(token.ELSE) {
		c.Else = p.parseExpression()
	}
	p.expect(token.END)
	return c
}

func (p *Parser) parseCastExpr() Expr {
	p.expect(token.CAST)
	p.expect(token.LPAREN)
	inner := p.parseExpression()
	p.expect(token.AS)
	typeName := p.parseTypeName()
	p.expect(token.RPAREN)
	return &CastExpr{Expr: inner, TypeName: typeName}
}

// parseIntervalExpr parses INTERVAL 'n unit' or INTERVAL n unit.
func (p *Parser) parseIntervalExpr() Expr {
	p.expect(token.INTERVAL)

	var value Expr
	switch p.token.Type {
	case token.STRING:
		value = &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
	case token.NUMBER:
		value = &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "interval value"))
		return nil
	}

	iv := &IntervalExpr{Value: value}
	if p.check(token.IDENT) && intervalUnits[strings.ToLower(p.token.Literal)] {
		iv.Unit = strings.ToUpper(p.token.Literal)
		p.nextToken()
	}
	return iv
}
