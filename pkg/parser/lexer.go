package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/leapstack-labs/sqlbench/pkg/token"
)

// Lexer tokenizes SQL input. Comments and whitespace are skipped.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	errors []error
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors seen so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) addError(pos Position, msg string) {
	l.errors = append(l.errors, &LexError{Pos: pos, Message: msg})
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := token.Token{Pos: pos}

	if l.atEOF() {
		tok.Type = token.EOF
		return tok
	}

	switch l.ch {
	case '+':
		tok = l.single(token.PLUS, pos)
	case '-':
		tok = l.single(token.MINUS, pos)
	case '*':
		tok = l.single(token.STAR, pos)
	case '/':
		tok = l.single(token.SLASH, pos)
	case '%':
		tok = l.single(token.PERCENT, pos)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
		}
		tok = l.single(token.EQ, pos)
		tok.Literal = "="
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = l.single(token.LE, pos)
			tok.Literal = "<="
		case '>':
			l.readChar()
			tok = l.single(token.NE, pos)
			tok.Literal = "<>"
		default:
			tok = l.single(token.LT, pos)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.single(token.GE, pos)
			tok.Literal = ">="
		} else {
			tok = l.single(token.GT, pos)
		}
	case '!':
		if l.peekChar() != '=' {
			return l.illegal(pos)
		}
		l.readChar()
		tok = l.single(token.NE, pos)
		tok.Literal = "<>"
	case '|':
		if l.peekChar() != '|' {
			return l.illegal(pos)
		}
		l.readChar()
		tok = l.single(token.DPIPE, pos)
		tok.Literal = "||"
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			tok = l.single(token.DCOLON, pos)
			tok.Literal = "::"
		} else if isLetter(l.peekChar()) {
			return l.readParam(pos)
		} else {
			return l.illegal(pos)
		}
	case '?':
		return l.readParam(pos)
	case '$':
		if !isDigit(l.peekChar()) {
			return l.illegal(pos)
		}
		return l.readParam(pos)
	case '.':
		if isDigit(l.peekChar()) {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		tok = l.single(token.DOT, pos)
	case ',':
		tok = l.single(token.COMMA, pos)
	case '(':
		tok = l.single(token.LPAREN, pos)
	case ')':
		tok = l.single(token.RPAREN, pos)
	case ';':
		tok = l.single(token.SEMICOLON, pos)
	case '\'':
		lit, ok := l.readQuoted('\'')
		if !ok {
			l.addError(pos, ErrUnterminatedString)
			return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos}
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos}
	case '"':
		lit, ok := l.readQuoted('"')
		if !ok {
			l.addError(pos, ErrUnterminatedIdent)
			return token.Token{Type: token.ILLEGAL, Literal: lit, Pos: pos}
		}
		return token.Token{Type: token.IDENT, Literal: lit, Pos: pos, Quoted: true}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		case isDigit(l.ch):
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		default:
			return l.illegal(pos)
		}
	}

	l.readChar()
	return tok
}

// single builds a token for the current character without consuming it.
func (l *Lexer) single(t token.TokenType, pos Position) token.Token {
	return token.Token{Type: t, Literal: string(l.ch), Pos: pos}
}

func (l *Lexer) illegal(pos Position) token.Token {
	ch := l.ch
	l.addError(pos, fmt.Sprintf(ErrIllegalCharacter, ch))
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Literal: string(ch), Pos: pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.currentPos()
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
	l.addError(start, ErrUnterminatedComment)
}

// readQuoted reads a string or quoted identifier delimited by quote.
// A doubled quote is an escaped quote: 'it''s' -> it's.
// The second result is false when the closing quote is missing.
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readParam(pos Position) token.Token {
	start := l.pos
	l.readChar() // skip ?, $ or :
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos], Pos: pos}
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && l.pos == start {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return ch >= 0x80 || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input up to and including EOF.
// The error is the first lexical error, if any; tokens are still returned.
func Tokenize(input string) ([]token.Token, error) {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if len(l.errors) > 0 {
		return tokens, l.errors[0]
	}
	return tokens, nil
}
