package parser

import "github.com/leapstack-labs/sqlbench/pkg/token"

// FROM clause grammar:
//
//	from_clause → table_ref (join_clause | "," table_ref)*
//	table_ref   → table_name [[AS] alias]
//	            | "(" select_stmt ")" [[AS] alias]
//	table_name  → ident ("." ident){0,2}
//	join_clause → [NATURAL] [INNER | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER] | CROSS] JOIN
//	              table_ref [ON expr | USING "(" ident_list ")"]

func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{Source: p.parseTableRef()}

	for !p.failed() {
		switch {
		case p.check(token.COMMA):
			p.nextToken()
			from.Joins = append(from.Joins, &Join{Type: JoinComma, Right: p.parseTableRef()})
		case p.isJoinStart():
			from.Joins = append(from.Joins, p.parseJoin())
		default:
			return from
		}
	}
	return from
}

func (p *Parser) isJoinStart() bool {
	switch p.token.Type {
	case token.JOIN, token.INNER, token.LEFT, token.RIGHT, token.FULL, token.CROSS, token.NATURAL:
		return true
	}
	return false
}

func (p *Parser) parseJoin() *Join {
	join := &Join{Natural: p.match(token.NATURAL)}

	switch p.token.Type {
	case token.JOIN:
		join.Type = JoinInner
	case token.INNER:
		join.Type = JoinInner
		p.nextToken()
	case token.LEFT:
		join.Type = JoinLeft
		p.nextToken()
		p.match(token.OUTER)
	case token.RIGHT:
		join.Type = JoinRight
		p.nextToken()
		p.match(token.OUTER)
	case token.FULL:
		join.Type = JoinFull
		p.nextToken()
		p.match(token.OUTER)
	case token.CROSS:
		join.Type = JoinCross
		p.nextToken()
	}
	p.expect(token.JOIN)

	join.Right = p.parseTableRef()

	switch {
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.check(token.USING):
		p.nextToken()
		join.Using = p.parseIdentList()
	}
	return join
}

func (p *Parser) parseTableRef() TableRef {
	if p.check(token.LPAREN) && (p.checkPeek(token.SELECT) || p.checkPeek(token.WITH)) {
		p.nextToken()
		sel := p.parseSelectStmt()
		p.expect(token.RPAREN)
		return &DerivedTable{Select: sel, Alias: p.parseAlias()}
	}
	return p.parseTableName()
}

// parseTableName parses [[catalog.]schema.]name [[AS] alias].
func (p *Parser) parseTableName() *TableName {
	parts := []string{p.parseIdent()}
	for len(parts) < 3 && p.check(token.DOT) && !p.failed() {
		p.nextToken()
		parts = append(parts, p.parseIdent())
	}

	tn := &TableName{Name: parts[len(parts)-1]}
	switch len(parts) {
	case 2:
		tn.Schema = parts[0]
	case 3:
		tn.Catalog = parts[0]
		tn.Schema = parts[1]
	}
	tn.Alias = p.parseAlias()
	return tn
}
