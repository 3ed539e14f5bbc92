// Package format canonicalizes SQL text.
//
// Normalize produces the single-line canonical form used for exact-match
// comparison and as parser input. Pretty produces a deterministic
// clause-per-line layout for display. Neither function fails: input the
// lexer rejects is reduced to comment-free, whitespace-collapsed text.
package format

import (
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/parser"
	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// Normalize returns the canonical single-line form of raw: comments removed,
// keywords upper-cased, unquoted identifiers lower-cased, literals re-quoted
// and tokens separated by single spaces. Trailing semicolons are dropped.
//
// Normalize is idempotent.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	tokens, err := parser.Tokenize(raw)
	if err != nil {
		return Collapse(raw)
	}
	tokens = trimTerminators(tokens)

	var b strings.Builder
	var prev token.Token
	for i, tok := range tokens {
		if tok.Type == token.EOF {
			break
		}
		if i > 0 && needsSpace(prev, tok) {
			b.WriteByte(' ')
		}
		b.WriteString(render(tok))
		prev = tok
	}
	return b.String()
}

// Pretty returns a deterministic multi-line rendering of raw with one clause
// per line and subqueries indented by nesting depth.
func Pretty(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	tokens, err := parser.Tokenize(raw)
	if err != nil {
		return Collapse(raw)
	}
	tokens = trimTerminators(tokens)

	p := newPrinter()
	p.printTokens(tokens)
	return p.String()
}

// trimTerminators drops trailing semicolons in front of EOF.
func trimTerminators(tokens []token.Token) []token.Token {
	end := len(tokens) - 1 // EOF
	for end > 0 && tokens[end-1].Type == token.SEMICOLON {
		end--
	}
	out := make([]token.Token, 0, end+1)
	out = append(out, tokens[:end]...)
	return append(out, tokens[len(tokens)-1])
}

// render returns the canonical text of a single token.
func render(tok token.Token) string {
	switch {
	case token.IsKeyword(tok.Type):
		return tok.Type.String()
	case tok.Type == token.IDENT && tok.Quoted:
		return `"` + strings.ReplaceAll(tok.Literal, `"`, `""`) + `"`
	case tok.Type == token.IDENT:
		return strings.ToLower(tok.Literal)
	case tok.Type == token.STRING:
		return "'" + strings.ReplaceAll(tok.Literal, "'", "''") + "'"
	case tok.Type == token.NE, tok.Type == token.EQ:
		return tok.Type.String()
	default:
		return tok.Literal
	}
}

// needsSpace decides whether a separator goes between prev and next.
func needsSpace(prev, next token.Token) bool {
	if keepTogether(prev, next) {
		return false
	}
	switch next.Type {
	case token.COMMA, token.RPAREN, token.SEMICOLON, token.DCOLON:
		return false
	case token.DOT:
		return prev.Type == token.NUMBER
	case token.LPAREN:
		// function call
		if prev.Type == token.IDENT {
			return false
		}
	case token.NUMBER:
		// t.5 would re-lex as t followed by the number .5
		if prev.Type == token.DOT {
			return true
		}
	}
	switch prev.Type {
	case token.LPAREN, token.DOT, token.DCOLON:
		return false
	}
	return true
}

// keepTogether reports pairs written without a space whose meaning changes
// if one is added: a string prefix as in e'\n' or x'ff', and a number
// directly followed by a dot or a name as in 1.e.
func keepTogether(prev, next token.Token) bool {
	if prev.Pos.Offset+len(prev.Literal) != next.Pos.Offset {
		return false
	}
	switch {
	case prev.Type == token.IDENT && !prev.Quoted:
		return next.Type == token.STRING
	case prev.Type == token.NUMBER:
		return next.Type == token.DOT || next.Type == token.IDENT
	}
	return false
}
