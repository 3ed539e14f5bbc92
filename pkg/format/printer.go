package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/sqlbench/pkg/token"
)

const indentSize = 2

// Printer lays out a token stream with indentation.
type Printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
}

func newPrinter() *Printer {
	return &Printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), "\n ")
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	if p.atLineStart {
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// clauseStarts are keywords that begin a new line at the current depth.
var clauseStarts = map[token.TokenType]bool{
	token.SELECT: true, token.FROM: true, token.WHERE: true, token.GROUP: true,
	token.HAVING: true, token.ORDER: true, token.LIMIT: true, token.OFFSET: true,
	token.FETCH: true, token.UNION: true, token.INTERSECT: true, token.EXCEPT: true,
	token.SET: true, token.VALUES: true, token.WITH: true, token.USING: true,
	token.INSERT: true, token.UPDATE: true, token.DELETE: true,
}

// joinModifiers may precede JOIN on the same line.
var joinModifiers = map[token.TokenType]bool{
	token.INNER: true, token.LEFT: true, token.RIGHT: true, token.FULL: true,
	token.CROSS: true, token.NATURAL: true, token.OUTER: true,
}

func (p *Printer) printTokens(tokens []token.Token) {
	// parens records, per open parenthesis, whether it introduced a subquery
	var parens []bool
	inline := 0 // open parentheses that are not subqueries
	var prev token.Token

	for i, tok := range tokens {
		if tok.Type == token.EOF {
			break
		}
		var next token.Token
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		if i > 0 && inline == 0 && breaksLine(prev, tok, next) {
			p.writeln()
		} else if i > 0 && !p.atLineStart && needsSpace(prev, tok) {
			p.write(" ")
		}

		switch tok.Type {
		case token.LPAREN:
			p.write(render(tok))
			isSub := inline == 0 && (next.Type == token.SELECT || next.Type == token.WITH)
			parens = append(parens, isSub)
			if isSub {
				p.indent()
				p.writeln()
			} else {
				inline++
			}
		case token.RPAREN:
			if n := len(parens); n > 0 {
				if parens[n-1] {
					p.dedent()
					p.writeln()
				} else {
					inline--
				}
				parens = parens[:n-1]
			}
			p.write(render(tok))
		default:
			p.write(render(tok))
		}
		prev = tok
	}
}

// breaksLine reports whether tok starts a new line.
func breaksLine(prev, tok, next token.Token) bool {
	switch {
	case prev.Type == token.LPAREN:
		return false
	case clauseStarts[tok.Type]:
		switch prev.Type {
		case token.UNION, token.INTERSECT, token.EXCEPT, token.ALL, token.DELETE, token.INSERT:
			return false
		}
		return true
	case joinModifiers[tok.Type]:
		if next.Type == token.LPAREN {
			return false // LEFT(...) and RIGHT(...) functions
		}
		return !joinModifiers[prev.Type]
	case tok.Type == token.JOIN:
		return !joinModifiers[prev.Type]
	}
	return false
}
