// Package parser provides a strict recursive descent SQL parser producing a
// closed AST for SELECT, INSERT, UPDATE and DELETE statements.
//
// # Usage
//
//	stmt, err := parser.Parse("SELECT a, b FROM t WHERE a > 1")
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
//	statement     → [WITH cte_list] (select_body | insert | update | delete) [;]
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] select_body]
//	select_core   → SELECT [DISTINCT] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [ORDER BY order_list] [LIMIT expr] [OFFSET expr]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	peek2  token.Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SQL statement. Lexical errors take precedence over
// parse errors since they usually cause them.
func Parse(sql string) (Statement, error) {
	p := NewParser(sql)
	stmt := p.parseStatement()
	if errs := p.lexer.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// parseStatement parses one statement followed by optional semicolons and EOF.
func (p *Parser) parseStatement() Statement {
	var with *WithClause
	if p.check(token.WITH) {
		with = p.parseWith()
	}

	var stmt Statement
	switch p.token.Type {
	case token.SELECT:
		sel := &SelectStmt{With: with, Body: p.parseSelectBody()}
		stmt = sel
	case token.INSERT:
		stmt = p.parseInsert(with)
	case token.UPDATE:
		stmt = p.parseUpdate(with)
	case token.DELETE:
		stmt = p.parseDelete(with)
	default:
		p.addError(fmt.Sprintf(ErrUnsupportedStatement, describe(p.token)))
		return nil
	}

	for p.match(token.SEMICOLON) {
	}
	if len(p.errors) == 0 && !p.check(token.EOF) {
		p.addError(fmt.Sprintf(ErrTrailingInput, describe(p.token)))
	}
	return stmt
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkWord returns true if the current token is an identifier spelled word
// (case-insensitive). Used for soft keywords such as OVER or ROWS.
func (p *Parser) checkWord(word string) bool {
	return p.token.Type == token.IDENT && !p.token.Quoted && strings.EqualFold(p.token.Literal, word)
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

// failed reports whether any error has been recorded, used to stop list loops.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// checkName returns true if the current token can be used as a name: an
// identifier or a non-reserved keyword.
func (p *Parser) checkName() bool {
	return p.check(token.IDENT) || token.IsNonReserved(p.token.Type)
}

// parseIdent consumes a name and returns it.
func (p *Parser) parseIdent() string {
	if !p.checkName() {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
		return ""
	}
	name := p.token.Literal
	p.nextToken()
	return name
}

// parseIdentList parses ( ident, ident, ... ).
func (p *Parser) parseIdentList() []string {
	if !p.expect(token.LPAREN) {
		return nil
	}
	var names []string
	for !p.failed() {
		names = append(names, p.parseIdent())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return names
}

// describe renders a token for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "EOF"
	case token.IDENT, token.NUMBER, token.STRING, token.PARAM, token.ILLEGAL:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	default:
		return tok.Type.String()
	}
}
