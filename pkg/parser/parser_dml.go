package parser

import "github.com/leapstack-labs/sqlbench/pkg/token"

// DML grammar:
//
//	insert → INSERT INTO table_name ["(" ident_list ")"]
//	         (VALUES "(" expr_list ")" ("," "(" expr_list ")")* | select_stmt)
//	update → UPDATE table_name SET ident "=" expr ("," ident "=" expr)*
//	         [FROM from_clause] [WHERE expr]
//	delete → DELETE FROM table_name [USING from_clause] [WHERE expr]

func (p *Parser) parseInsert(with *WithClause) *InsertStmt {
	stmt := &InsertStmt{With: with}
	p.expect(token.INSERT)
	p.expect(token.INTO)
	stmt.Table = p.parseDMLTarget()

	if p.check(token.LPAREN) && !(p.checkPeek(token.SELECT) || p.checkPeek(token.WITH)) {
		stmt.Columns = p.parseIdentList()
	}

	switch {
	case p.match(token.VALUES):
		for !p.failed() {
			p.expect(token.LPAREN)
			stmt.Values = append(stmt.Values, p.parseExpressionList())
			p.expect(token.RPAREN)
			if !p.match(token.COMMA) {
				break
			}
		}
	case p.check(token.SELECT), p.check(token.WITH):
		stmt.Select = p.parseSelectStmt()
	case p.check(token.LPAREN):
		p.nextToken()
		stmt.Select = p.parseSelectStmt()
		p.expect(token.RPAREN)
	default:
		p.expect(token.VALUES)
	}
	return stmt
}

func (p *Parser) parseUpdate(with *WithClause) *UpdateStmt {
	stmt := &UpdateStmt{With: with}
	p.expect(token.UPDATE)
	stmt.Table = p.parseTableName()
	p.expect(token.SET)

	for !p.failed() {
		col := p.parseIdent()
		// SET t.col = ... is accepted by some engines
		if p.match(token.DOT) {
			col = p.parseIdent()
		}
		p.expect(token.EQ)
		stmt.Set = append(stmt.Set, Assignment{Column: col, Value: p.parseExpression()})
		if !p.match(token.COMMA) {
			break
		}
	}

	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	return stmt
}

func (p *Parser) parseDelete(with *WithClause) *DeleteStmt {
	stmt := &DeleteStmt{With: with}
	p.expect(token.DELETE)
	p.expect(token.FROM)
	stmt.Table = p.parseTableName()

	if p.match(token.USING) {
		stmt.Using = p.parseFromClause()
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	return stmt
}

// parseDMLTarget parses an INSERT target, which never takes an implicit alias
// because a column list or VALUES may follow directly.
func (p *Parser) parseDMLTarget() *TableName {
	parts := []string{p.parseIdent()}
	for len(parts) < 3 && p.check(token.DOT) && !p.failed() {
		p.nextToken()
		parts = append(parts, p.parseIdent())
	}
	tn := &TableName{Name: parts[len(parts)-1]}
	if len(parts) > 1 {
		tn.Schema = parts[len(parts)-2]
	}
	if p.match(token.AS) {
		tn.Alias = p.parseIdent()
	}
	return tn
}
