// Package lexer tokenizes warehouse SQL.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ha1tch/fakesnow/pkg/sfparser/token"
)

// Lexer tokenizes SQL held in memory. Comments and whitespace are skipped.
type Lexer struct {
	src  string
	off  int
	line int
	col  int
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Source returns the text being tokenized.
func (l *Lexer) Source() string {
	return l.src
}

// Error is a lexical error.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d at position %d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

func (l *Lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Offset: l.off, Line: l.line, Col: l.col}
}

func (l *Lexer) skipSpaceAndComments() error {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			l.advance()
		case c == '-' && l.peek(1) == '-', c == '/' && l.peek(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance()
			}
		case c == '/' && l.peek(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			for {
				if l.off >= len(l.src) {
					return &Error{Pos: start, Msg: "unterminated comment"}
				}
				if l.src[l.off] == '*' && l.peek(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			r, _ := utf8.DecodeRuneInString(l.src[l.off:])
			if r == '\uFEFF' || unicode.IsSpace(r) {
				l.advance()
				continue
			}
			return nil
		}
	}
	return nil
}

// Next returns the next token.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token.Token{}, err
	}
	start := l.pos()
	tok := func(k token.Kind, lit string) (token.Token, error) {
		return token.Token{Kind: k, Lit: lit, Pos: start, End: l.off}, nil
	}
	if l.off >= len(l.src) {
		return tok(token.EOF, "")
	}

	c := l.src[l.off]
	switch {
	case isIdentStart(c):
		for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
			l.advance()
		}
		return tok(token.IDENT, l.src[start.Offset:l.off])
	case c >= 0x80:
		r, _ := utf8.DecodeRuneInString(l.src[l.off:])
		if unicode.IsLetter(r) {
			for l.off < len(l.src) {
				r, _ := utf8.DecodeRuneInString(l.src[l.off:])
				if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
					break
				}
				l.advance()
			}
			return tok(token.IDENT, l.src[start.Offset:l.off])
		}
		l.advance()
		return token.Token{}, &Error{Pos: start, Msg: fmt.Sprintf("unexpected character %q", r)}
	case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
		return tok(token.NUMBER, l.readNumber())
	case c == '\'':
		s, err := l.readQuoted('\'', true)
		if err != nil {
			return token.Token{}, err
		}
		return tok(token.STRING, s)
	case c == '"':
		s, err := l.readQuoted('"', false)
		if err != nil {
			return token.Token{}, err
		}
		return tok(token.QIDENT, s)
	case c == '$' && l.peek(1) == '$':
		l.advance()
		l.advance()
		end := strings.Index(l.src[l.off:], "$$")
		if end < 0 {
			return token.Token{}, &Error{Pos: start, Msg: "unterminated $$ string"}
		}
		body := l.src[l.off : l.off+end]
		for l.off < start.Offset+2+end+2 {
			l.advance()
		}
		return tok(token.STRING, body)
	}

	l.advance()
	switch c {
	case ',':
		return tok(token.COMMA, ",")
	case '.':
		return tok(token.DOT, ".")
	case ';':
		return tok(token.SEMI, ";")
	case '(':
		return tok(token.LPAREN, "(")
	case ')':
		return tok(token.RPAREN, ")")
	case '[':
		return tok(token.LBRACKET, "[")
	case ']':
		return tok(token.RBRACKET, "]")
	case '{':
		return tok(token.LBRACE, "{")
	case '}':
		return tok(token.RBRACE, "}")
	case '+':
		return tok(token.PLUS, "+")
	case '-':
		return tok(token.MINUS, "-")
	case '*':
		return tok(token.STAR, "*")
	case '/':
		return tok(token.SLASH, "/")
	case '?':
		return tok(token.PARAM, "?")
	case ':':
		if l.peek(0) == ':' {
			l.advance()
			return tok(token.DCOLON, "::")
		}
		return tok(token.COLON, ":")
	case '|':
		if l.peek(0) == '|' {
			l.advance()
			return tok(token.CONCAT, "||")
		}
	case '%':
		if l.peek(0) == 's' && !isIdentPart(l.peek(1)) {
			l.advance()
			return tok(token.PARAM, "%s")
		}
		if l.peek(0) == '(' {
			if end := strings.Index(l.src[l.off:], ")s"); end > 0 {
				for l.off < start.Offset+1+end+2 {
					l.advance()
				}
				return tok(token.PARAM, l.src[start.Offset:l.off])
			}
		}
		return tok(token.PERCENT, "%")
	case '=':
		if l.peek(0) == '>' {
			l.advance()
			return tok(token.ARROW, "=>")
		}
		if l.peek(0) == '=' {
			l.advance()
		}
		return tok(token.EQ, "=")
	case '!':
		if l.peek(0) == '=' {
			l.advance()
			return tok(token.NEQ, "!=")
		}
	case '<':
		switch l.peek(0) {
		case '=':
			l.advance()
			return tok(token.LTE, "<=")
		case '>':
			l.advance()
			return tok(token.NEQ, "<>")
		}
		return tok(token.LT, "<")
	case '>':
		if l.peek(0) == '=' {
			l.advance()
			return tok(token.GTE, ">=")
		}
		return tok(token.GT, ">")
	}
	return token.Token{}, &Error{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

// All tokenizes the whole input, ending with EOF.
func (l *Lexer) All() ([]token.Token, error) {
	var toks []token.Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) readNumber() string {
	start := l.off
	for isDigit(l.peek(0)) {
		l.advance()
	}
	if l.peek(0) == '.' && (isDigit(l.peek(1)) || !isIdentStart(l.peek(1))) {
		l.advance()
		for isDigit(l.peek(0)) {
			l.advance()
		}
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		n := 1
		if s := l.peek(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peek(n)) {
			for i := 0; i < n; i++ {
				l.advance()
			}
			for isDigit(l.peek(0)) {
				l.advance()
			}
		}
	}
	return l.src[start:l.off]
}

// readQuoted reads a quoted run, doubling the quote to escape it. String
// literals additionally accept backslash escapes.
func (l *Lexer) readQuoted(q byte, backslash bool) (string, error) {
	start := l.pos()
	l.advance()
	var sb strings.Builder
	for {
		if l.off >= len(l.src) {
			return "", &Error{Pos: start, Msg: "unterminated quoted text"}
		}
		c := l.src[l.off]
		switch {
		case c == q && l.peek(1) == q:
			l.advance()
			l.advance()
			sb.WriteByte(q)
		case c == q:
			l.advance()
			return sb.String(), nil
		case c == '\\' && backslash && l.off+1 < len(l.src):
			l.advance()
			e := l.advance()
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			default:
				sb.WriteRune(e)
			}
		default:
			sb.WriteRune(l.advance())
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
