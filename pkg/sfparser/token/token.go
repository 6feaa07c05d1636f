// Package token defines the lexical tokens of the warehouse SQL dialect.
package token

import (
	"fmt"
	"strings"
)

// Kind is the type of a token.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	IDENT  // name or keyword
	QIDENT // "quoted name"
	STRING // 'text' or $$text$$
	NUMBER // 12, 1.5, 1e3
	PARAM  // ?, %s, %(name)s

	COMMA    // ,
	DOT      // .
	SEMI     // ;
	COLON    // :
	DCOLON   // ::
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }

	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	CONCAT  // ||
	EQ      // =
	NEQ     // <> or !=
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=
	ARROW   // =>
)

var kindNames = map[Kind]string{
	ILLEGAL:  "ILLEGAL",
	EOF:      "EOF",
	IDENT:    "IDENT",
	QIDENT:   "QIDENT",
	STRING:   "STRING",
	NUMBER:   "NUMBER",
	PARAM:    "PARAM",
	COMMA:    ",",
	DOT:      ".",
	SEMI:     ";",
	COLON:    ":",
	DCOLON:   "::",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",
	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	PERCENT:  "%",
	CONCAT:   "||",
	EQ:       "=",
	NEQ:      "<>",
	LT:       "<",
	LTE:      "<=",
	GT:       ">",
	GTE:      ">=",
	ARROW:    "=>",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is a position in the source text. Line and Col are 1-based.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a lexical token.
type Token struct {
	Kind Kind
	Lit  string // unquoted text for STRING and QIDENT, raw text otherwise
	Pos  Pos
	End  int // offset just past the token
}

// Is reports whether the token is the keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Kind == IDENT && strings.EqualFold(t.Lit, kw)
}

// Upper returns the literal upper-cased.
func (t Token) Upper() string {
	return strings.ToUpper(t.Lit)
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case STRING:
		return "'" + t.Lit + "'"
	case QIDENT:
		return `"` + t.Lit + `"`
	default:
		return t.Lit
	}
}

// reserved words cannot be used as implicit aliases.
var reserved = map[string]bool{
	"ALL": true, "ALTER": true, "AND": true, "ANY": true, "AS": true,
	"BETWEEN": true, "BY": true, "CASE": true, "CAST": true, "CHECK": true,
	"COLUMN": true, "CONNECT": true, "CREATE": true, "CROSS": true,
	"CURRENT": true, "DELETE": true, "DISTINCT": true, "DROP": true,
	"ELSE": true, "END": true, "EXCEPT": true, "EXISTS": true, "FALSE": true,
	"FOR": true, "FROM": true, "FULL": true, "GRANT": true, "GROUP": true,
	"HAVING": true, "ILIKE": true, "IN": true, "INNER": true, "INSERT": true,
	"INTERSECT": true, "INTO": true, "IS": true, "JOIN": true, "LATERAL": true,
	"LEFT": true, "LIKE": true, "LIMIT": true, "MINUS": true, "NATURAL": true,
	"NOT": true, "NULL": true, "OFFSET": true, "ON": true, "OR": true,
	"ORDER": true, "OUTER": true, "QUALIFY": true, "REGEXP": true,
	"RIGHT": true, "RLIKE": true, "SELECT": true, "SET": true, "SOME": true,
	"START": true, "TABLE": true, "THEN": true, "TO": true, "TRUE": true,
	"TRY_CAST": true, "UNION": true, "UNIQUE": true, "UPDATE": true,
	"USING": true, "VALUES": true, "WHEN": true, "WHERE": true,
	"WINDOW": true, "WITH": true, "FETCH": true,
}

// IsReserved reports whether word is a reserved keyword of the dialect.
func IsReserved(word string) bool {
	return reserved[strings.ToUpper(word)]
}
