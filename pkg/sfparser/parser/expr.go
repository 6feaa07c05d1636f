package parser

import (
	"strconv"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
	"github.com/ha1tch/fakesnow/pkg/sfparser/token"
)

// Binding powers, lowest first.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precUnary
)

func (p *Parser) expr() ast.Expr {
	return p.exprPrec(precLowest)
}

func (p *Parser) exprList() []ast.Expr {
	var list []ast.Expr
	for {
		list = append(list, p.expr())
		if !p.accept(token.COMMA) {
			return list
		}
	}
}

// exprPrec parses operators binding tighter than min.
func (p *Parser) exprPrec(min int) ast.Expr {
	left := p.unary()
	for {
		prec := p.infixPrec()
		if prec <= min {
			return left
		}
		left = p.infix(left, prec)
	}
}

func (p *Parser) infixPrec() int {
	t := p.cur()
	switch t.Kind {
	case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
		return precCmp
	case token.PLUS, token.MINUS, token.CONCAT:
		return precAdd
	case token.STAR, token.SLASH, token.PERCENT:
		return precMul
	case token.IDENT:
		switch t.Upper() {
		case "OR":
			return precOr
		case "AND":
			return precAnd
		case "IS", "IN", "BETWEEN", "LIKE", "ILIKE", "RLIKE", "REGEXP":
			return precCmp
		case "NOT":
			switch p.peek(1).Upper() {
			case "IN", "BETWEEN", "LIKE", "ILIKE", "RLIKE", "REGEXP":
				return precCmp
			}
		}
	}
	return 0
}

func (p *Parser) infix(left ast.Expr, prec int) ast.Expr {
	t := p.next()
	if t.Kind != token.IDENT {
		op := t.Lit
		if t.Kind == token.NEQ {
			op = "<>"
		}
		return &ast.Binary{Op: op, L: left, R: p.exprPrec(prec)}
	}

	word := t.Upper()
	not := false
	if word == "NOT" {
		not = true
		word = p.next().Upper()
	}
	switch word {
	case "OR", "AND":
		return &ast.Binary{Op: word, L: left, R: p.exprPrec(prec)}
	case "IS":
		isNot := p.acceptKw("NOT")
		if p.acceptKw("NULL") {
			return &ast.IsNull{X: left, Not: isNot}
		}
		if p.acceptKw("DISTINCT", "FROM") {
			op := "IS DISTINCT FROM"
			if isNot {
				op = "IS NOT DISTINCT FROM"
			}
			return &ast.Binary{Op: op, L: left, R: p.exprPrec(prec)}
		}
		p.unexpected()
	case "IN":
		p.expect(token.LPAREN)
		if p.atKw("SELECT", "WITH") {
			q := p.query()
			p.expect(token.RPAREN)
			return &ast.InSubquery{X: left, Query: q, Not: not}
		}
		list := p.exprList()
		p.expect(token.RPAREN)
		return &ast.InList{X: left, List: list, Not: not}
	case "BETWEEN":
		lo := p.exprPrec(precCmp)
		p.expectKw("AND")
		hi := p.exprPrec(precCmp)
		return &ast.Between{X: left, Lo: lo, Hi: hi, Not: not}
	case "LIKE", "ILIKE", "RLIKE", "REGEXP":
		op := word
		if op == "REGEXP" {
			op = "RLIKE"
		}
		if not {
			op = "NOT " + op
		}
		return &ast.Binary{Op: op, L: left, R: p.exprPrec(prec)}
	}
	p.unexpected()
	return nil
}

func (p *Parser) unary() ast.Expr {
	switch {
	case p.atKw("NOT"):
		p.next()
		return &ast.Unary{Op: "NOT", X: p.exprPrec(precNot)}
	case p.at(token.MINUS), p.at(token.PLUS):
		op := p.next().Lit
		return &ast.Unary{Op: op, X: p.exprPrec(precUnary)}
	}
	return p.postfix(p.primary())
}

// postfix applies ::type, [index] and :path suffixes.
func (p *Parser) postfix(x ast.Expr) ast.Expr {
	for {
		switch {
		case p.accept(token.DCOLON):
			x = &ast.Cast{X: x, Type: p.dataType()}
		case p.at(token.LBRACKET):
			p.next()
			idx := p.expr()
			p.expect(token.RBRACKET)
			x = &ast.Bracket{X: x, Index: idx}
		case p.at(token.COLON) && isPathStart(p.peek(1)):
			p.next()
			x = &ast.PathAccess{X: x, Path: p.path()}
		default:
			return x
		}
	}
}

func isPathStart(t token.Token) bool {
	return t.Kind == token.IDENT || t.Kind == token.QIDENT
}

// path parses a:b.c[0]."D" after the first colon. Keys keep their case.
func (p *Parser) path() []ast.PathSegment {
	var segs []ast.PathSegment
	key := p.next()
	segs = append(segs, ast.PathSegment{Key: key.Lit, IsKey: true})
	for {
		switch {
		case p.at(token.DOT) && isPathStart(p.peek(1)):
			p.next()
			segs = append(segs, ast.PathSegment{Key: p.next().Lit, IsKey: true})
		case p.at(token.LBRACKET):
			p.next()
			t := p.next()
			switch t.Kind {
			case token.NUMBER:
				n, err := strconv.Atoi(t.Lit)
				if err != nil {
					p.fail("invalid array index '%s'.", t.Lit)
				}
				segs = append(segs, ast.PathSegment{Index: n})
			case token.STRING:
				segs = append(segs, ast.PathSegment{Key: t.Lit, IsKey: true})
			default:
				p.pos--
				p.unexpected()
			}
			p.expect(token.RBRACKET)
		default:
			return segs
		}
	}
}

func (p *Parser) primary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.NUMBER:
		p.next()
		return &ast.NumberLit{Raw: t.Lit}
	case token.STRING:
		p.next()
		return &ast.StringLit{Value: t.Lit}
	case token.PARAM:
		p.next()
		prm := &ast.Param{Raw: t.Lit}
		if strings.HasPrefix(t.Lit, "%(") {
			prm.Name = strings.TrimSuffix(strings.TrimPrefix(t.Lit, "%("), ")s")
		}
		return prm
	case token.COLON:
		if n := p.peek(1); n.Kind == token.NUMBER {
			p.next()
			p.next()
			idx, err := strconv.Atoi(n.Lit)
			if err != nil || idx < 1 {
				p.fail("invalid bind variable ':%s'.", n.Lit)
			}
			return &ast.Param{Raw: ":" + n.Lit, Index: idx}
		}
	case token.STAR:
		p.next()
		return &ast.Star{}
	case token.LPAREN:
		p.next()
		if p.atKw("SELECT", "WITH") {
			q := p.query()
			p.expect(token.RPAREN)
			return &ast.Subquery{Query: q}
		}
		x := p.expr()
		p.expect(token.RPAREN)
		return &ast.Paren{X: x}
	case token.LBRACKET:
		p.next()
		arr := &ast.ArrayLit{}
		if !p.at(token.RBRACKET) {
			arr.Elems = p.exprList()
		}
		p.expect(token.RBRACKET)
		return arr
	case token.LBRACE:
		return p.objectLit()
	case token.QIDENT:
		return p.nameExpr()
	case token.IDENT:
		return p.keywordExpr()
	}
	p.unexpected()
	return nil
}

func (p *Parser) objectLit() ast.Expr {
	p.expect(token.LBRACE)
	obj := &ast.ObjectLit{}
	for !p.at(token.RBRACE) {
		kv := &ast.KeyValue{Key: p.primary()}
		p.expect(token.COLON)
		kv.Value = p.expr()
		obj.Pairs = append(obj.Pairs, kv)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return obj
}

func (p *Parser) keywordExpr() ast.Expr {
	t := p.cur()
	switch t.Upper() {
	case "NULL":
		p.next()
		return &ast.NullLit{}
	case "TRUE", "FALSE":
		p.next()
		return &ast.BoolLit{Value: t.Upper() == "TRUE"}
	case "CASE":
		return p.caseExpr()
	case "CAST", "TRY_CAST":
		if p.peek(1).Kind == token.LPAREN {
			p.next()
			p.next()
			c := &ast.Cast{Try: t.Upper() == "TRY_CAST", X: p.expr()}
			p.expectKw("AS")
			c.Type = p.dataType()
			p.expect(token.RPAREN)
			return c
		}
	case "EXISTS":
		p.next()
		p.expect(token.LPAREN)
		q := p.query()
		p.expect(token.RPAREN)
		return &ast.Exists{Query: q}
	case "INTERVAL":
		p.next()
		iv := &ast.Interval{Value: p.primary()}
		if p.at(token.IDENT) && !token.IsReserved(p.cur().Lit) && isIntervalUnit(p.cur().Upper()) {
			iv.Unit = p.next().Upper()
		}
		return iv
	case "EXTRACT":
		if p.peek(1).Kind == token.LPAREN {
			p.next()
			p.next()
			ex := &ast.Extract{Field: strings.ToUpper(p.next().Lit)}
			p.expectKw("FROM")
			ex.X = p.expr()
			p.expect(token.RPAREN)
			return ex
		}
	case "DATE", "TIME", "TIMESTAMP", "TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		if p.peek(1).Kind == token.STRING {
			p.next()
			s := p.next().Lit
			return &ast.Cast{X: &ast.StringLit{Value: s}, Type: &ast.DataType{Name: t.Upper()}}
		}
	}
	if token.IsReserved(t.Lit) && p.peek(1).Kind != token.LPAREN {
		p.unexpected()
	}
	return p.nameExpr()
}

var intervalUnits = map[string]bool{
	"YEAR": true, "YEARS": true, "MONTH": true, "MONTHS": true,
	"WEEK": true, "WEEKS": true, "DAY": true, "DAYS": true,
	"HOUR": true, "HOURS": true, "MINUTE": true, "MINUTES": true,
	"SECOND": true, "SECONDS": true, "MILLISECOND": true, "MILLISECONDS": true,
	"MICROSECOND": true, "MICROSECONDS": true,
}

func isIntervalUnit(s string) bool { return intervalUnits[s] }

// nameExpr parses a column reference, qualified star or function call.
func (p *Parser) nameExpr() ast.Expr {
	parts := []*ast.Ident{p.ident()}
	for p.at(token.DOT) {
		p.next()
		if p.accept(token.STAR) {
			return &ast.Star{Qualifier: parts}
		}
		parts = append(parts, p.ident())
	}
	if p.at(token.LPAREN) && !parts[len(parts)-1].Quoted {
		names := make([]string, len(parts))
		for i, id := range parts {
			names[i] = id.Value
		}
		return p.funcCall(strings.Join(names, "."))
	}
	return &ast.ColumnRef{Parts: parts}
}

func (p *Parser) funcCall(name string) *ast.FuncCall {
	fc := &ast.FuncCall{Name: strings.ToUpper(name)}
	p.expect(token.LPAREN)
	switch {
	case p.at(token.STAR) && p.peek(1).Kind == token.RPAREN:
		p.next()
		fc.Star = true
	case p.acceptKw("DISTINCT"):
		fc.Distinct = true
		fc.Args = p.args()
	case !p.at(token.RPAREN):
		fc.Args = p.args()
	}
	p.expect(token.RPAREN)

	if p.acceptKw("WITHIN", "GROUP") {
		p.expect(token.LPAREN)
		p.expectKw("ORDER", "BY")
		fc.WithinGroup = p.orderItems()
		p.expect(token.RPAREN)
	}
	if p.atKw("FILTER") && p.peek(1).Kind == token.LPAREN {
		p.next()
		p.next()
		p.expectKw("WHERE")
		fc.Filter = p.expr()
		p.expect(token.RPAREN)
	}
	if !p.acceptKw("IGNORE", "NULLS") {
		p.acceptKw("RESPECT", "NULLS")
	}
	if p.acceptKw("OVER") {
		fc.Over = p.window()
	}
	return fc
}

func (p *Parser) args() []ast.Expr {
	var list []ast.Expr
	for {
		if (p.at(token.IDENT) || p.at(token.QIDENT)) && p.peek(1).Kind == token.ARROW {
			name := p.next().Lit
			p.next()
			list = append(list, &ast.NamedArg{Name: strings.ToUpper(name), Value: p.expr()})
		} else {
			list = append(list, p.expr())
		}
		if !p.accept(token.COMMA) {
			return list
		}
	}
}

func (p *Parser) window() *ast.Window {
	p.expect(token.LPAREN)
	w := &ast.Window{}
	if p.acceptKw("PARTITION", "BY") {
		w.PartitionBy = p.exprList()
	}
	if p.acceptKw("ORDER", "BY") {
		w.OrderBy = p.orderItems()
	}
	if p.atKw("ROWS", "RANGE", "GROUPS") {
		start := p.cur().Pos.Offset
		depth := 0
		for !(p.at(token.RPAREN) && depth == 0) {
			switch p.next().Kind {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			case token.EOF:
				p.unexpected()
			}
		}
		w.Frame = p.rawFrom(start)
	}
	p.expect(token.RPAREN)
	return w
}

func (p *Parser) caseExpr() ast.Expr {
	p.expectKw("CASE")
	c := &ast.Case{}
	if !p.atKw("WHEN") {
		c.Operand = p.expr()
	}
	for p.acceptKw("WHEN") {
		w := &ast.When{Cond: p.expr()}
		p.expectKw("THEN")
		w.Result = p.expr()
		c.Whens = append(c.Whens, w)
	}
	if len(c.Whens) == 0 {
		p.unexpected()
	}
	if p.acceptKw("ELSE") {
		c.Else = p.expr()
	}
	p.expectKw("END")
	return c
}

// multiWordTypes maps a leading type word to the words that may follow it.
var multiWordTypes = map[string][][]string{
	"DOUBLE":    {{"PRECISION"}},
	"CHARACTER": {{"VARYING"}},
	"CHAR":      {{"VARYING"}},
	"TIMESTAMP": {{"WITH", "LOCAL", "TIME", "ZONE"}, {"WITH", "TIME", "ZONE"}, {"WITHOUT", "TIME", "ZONE"}},
	"TIME":      {{"WITH", "TIME", "ZONE"}, {"WITHOUT", "TIME", "ZONE"}},
}

func (p *Parser) dataType() *ast.DataType {
	t := p.cur()
	if t.Kind != token.IDENT {
		p.unexpected()
	}
	p.next()
	dt := &ast.DataType{Name: t.Upper()}

	params := func() {
		if !p.accept(token.LPAREN) {
			return
		}
		start := p.cur().Pos.Offset
		depth := 0
		for {
			switch p.cur().Kind {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				if depth == 0 {
					dt.Params = append(dt.Params, strings.TrimSpace(p.src[start:p.cur().Pos.Offset]))
					p.next()
					return
				}
				depth--
			case token.COMMA:
				if depth == 0 {
					dt.Params = append(dt.Params, strings.TrimSpace(p.src[start:p.cur().Pos.Offset]))
					p.next()
					start = p.cur().Pos.Offset
					continue
				}
			case token.EOF:
				p.unexpected()
			}
			p.next()
		}
	}

	params()
	for _, seq := range multiWordTypes[dt.Name] {
		if p.acceptKw(seq...) {
			dt.Name += " " + strings.Join(seq, " ")
			params()
			break
		}
	}
	return dt
}
