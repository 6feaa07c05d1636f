package parser

import (
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
	"github.com/ha1tch/fakesnow/pkg/sfparser/token"
)

// query parses [WITH ...] select-or-set-operation [ORDER BY] [LIMIT].
func (p *Parser) query() ast.Query {
	var with *ast.With
	if p.acceptKw("WITH") {
		with = &ast.With{Recursive: p.acceptKw("RECURSIVE")}
		for {
			cte := &ast.CTE{Name: p.ident()}
			if p.at(token.LPAREN) {
				cte.Columns = p.identList()
			}
			p.expectKw("AS")
			p.expect(token.LPAREN)
			cte.Query = p.query()
			p.expect(token.RPAREN)
			with.CTEs = append(with.CTEs, cte)
			if !p.accept(token.COMMA) {
				break
			}
		}
	}

	q := p.setExpr()
	orderBy, limit, offset := p.queryTail()

	switch x := q.(type) {
	case *ast.Select:
		if with != nil {
			x.With = with
		}
		if orderBy != nil {
			x.OrderBy = orderBy
		}
		if limit != nil {
			x.Limit = limit
		}
		if offset != nil {
			x.Offset = offset
		}
	case *ast.SetOperation:
		if with != nil {
			x.With = with
		}
		x.OrderBy, x.Limit, x.Offset = orderBy, limit, offset
	}
	return q
}

func (p *Parser) queryTail() (orderBy []*ast.OrderItem, limit, offset ast.Expr) {
	if p.acceptKw("ORDER", "BY") {
		orderBy = p.orderItems()
	}
	if p.acceptKw("LIMIT") {
		limit = p.expr()
		if p.acceptKw("OFFSET") {
			offset = p.expr()
		}
	}
	if p.acceptKw("OFFSET") {
		offset = p.expr()
		if !p.acceptKw("ROWS") {
			p.acceptKw("ROW")
		}
	}
	if p.acceptKw("FETCH") {
		if !p.acceptKw("FIRST") {
			p.expectKw("NEXT")
		}
		limit = p.expr()
		if !p.acceptKw("ROWS") {
			p.acceptKw("ROW")
		}
		p.expectKw("ONLY")
	}
	return orderBy, limit, offset
}

func (p *Parser) setExpr() ast.Query {
	left := p.queryPrimary()
	for {
		var op string
		switch {
		case p.acceptKw("UNION"):
			op = "UNION"
		case p.acceptKw("EXCEPT"), p.acceptKw("MINUS"):
			op = "EXCEPT"
		case p.acceptKw("INTERSECT"):
			op = "INTERSECT"
		default:
			return left
		}
		if p.acceptKw("ALL") {
			op += " ALL"
		} else {
			p.acceptKw("DISTINCT")
		}
		if op == "UNION" && p.acceptKw("BY", "NAME") {
			op = "UNION BY NAME"
		}
		left = &ast.SetOperation{Op: op, Left: left, Right: p.queryPrimary()}
	}
}

func (p *Parser) queryPrimary() ast.Query {
	if p.accept(token.LPAREN) {
		q := p.query()
		p.expect(token.RPAREN)
		return q
	}
	return p.selectBody()
}

func (p *Parser) selectBody() *ast.Select {
	p.expectKw("SELECT")
	sel := &ast.Select{}
	if p.acceptKw("DISTINCT") {
		sel.Distinct = true
	} else {
		p.acceptKw("ALL")
	}
	if p.acceptKw("TOP") {
		sel.Limit = p.primary()
	}
	for {
		sel.Columns = append(sel.Columns, p.selectItem())
		if !p.accept(token.COMMA) {
			break
		}
	}
	if p.acceptKw("FROM") {
		sel.From = p.tableExprs()
	}
	if p.acceptKw("WHERE") {
		sel.Where = p.expr()
	}
	if p.acceptKw("GROUP", "BY") {
		sel.GroupBy = p.exprList()
	}
	if p.acceptKw("HAVING") {
		sel.Having = p.expr()
	}
	if p.acceptKw("QUALIFY") {
		sel.Qualify = p.expr()
	}
	return sel
}

func (p *Parser) selectItem() *ast.SelectItem {
	item := &ast.SelectItem{Expr: p.expr()}
	if star, ok := item.Expr.(*ast.Star); ok {
		if p.acceptKw("EXCLUDE") {
			if p.at(token.LPAREN) {
				star.Exclude = p.identList()
			} else {
				star.Exclude = []*ast.Ident{p.ident()}
			}
		}
		return item
	}
	if p.acceptKw("AS") {
		item.Alias = p.ident()
	} else if p.atAliasName() {
		item.Alias = p.ident()
	}
	return item
}

// atAliasName reports whether the current token can be an implicit alias.
func (p *Parser) atAliasName() bool {
	t := p.cur()
	switch t.Kind {
	case token.QIDENT:
		return true
	case token.IDENT:
		return !token.IsReserved(t.Lit)
	}
	return false
}

func (p *Parser) orderItems() []*ast.OrderItem {
	var items []*ast.OrderItem
	for {
		it := &ast.OrderItem{Expr: p.expr()}
		if p.acceptKw("DESC") {
			it.Desc = true
		} else {
			p.acceptKw("ASC")
		}
		switch {
		case p.acceptKw("NULLS", "FIRST"):
			b := true
			it.NullsFirst = &b
		case p.acceptKw("NULLS", "LAST"):
			b := false
			it.NullsFirst = &b
		}
		items = append(items, it)
		if !p.accept(token.COMMA) {
			return items
		}
	}
}

// ---------------------------------------------------------------------------
// FROM clause

func (p *Parser) tableExprs() []ast.TableExpr {
	var list []ast.TableExpr
	for {
		list = append(list, p.joinedTable())
		if !p.accept(token.COMMA) {
			return list
		}
	}
}

func (p *Parser) joinKind() (string, bool) {
	save := p.pos
	kind := "INNER"
	switch {
	case p.acceptKw("NATURAL"):
		kind = "NATURAL"
		p.acceptKw("INNER")
	case p.acceptKw("INNER"):
	case p.acceptKw("LEFT"):
		kind = "LEFT"
		p.acceptKw("OUTER")
	case p.acceptKw("RIGHT"):
		kind = "RIGHT"
		p.acceptKw("OUTER")
	case p.acceptKw("FULL"):
		kind = "FULL"
		p.acceptKw("OUTER")
	case p.acceptKw("CROSS"):
		kind = "CROSS"
	}
	if p.acceptKw("JOIN") {
		return kind, true
	}
	p.pos = save
	return "", false
}

func (p *Parser) joinedTable() ast.TableExpr {
	left := p.tablePrimary()
	for {
		kind, ok := p.joinKind()
		if !ok {
			return left
		}
		j := &ast.Join{Kind: kind, Left: left, Right: p.tablePrimary()}
		switch {
		case p.acceptKw("ON"):
			j.On = p.expr()
		case p.atKw("USING"):
			p.next()
			j.Using = p.identList()
		}
		left = j
	}
}

func (p *Parser) tablePrimary() ast.TableExpr {
	switch {
	case p.at(token.LPAREN):
		nt := p.peek(1)
		switch {
		case nt.Is("SELECT"), nt.Is("WITH"), nt.Kind == token.LPAREN && p.peek(2).Is("SELECT"):
			p.next()
			dt := &ast.DerivedTable{Query: p.query()}
			p.expect(token.RPAREN)
			dt.Alias = p.optAlias(true)
			return dt
		case nt.Is("VALUES"):
			p.next()
			p.next()
			vt := &ast.ValuesTable{Rows: p.valuesRows()}
			p.expect(token.RPAREN)
			vt.Alias = p.optAlias(true)
			return vt
		}
		p.next()
		inner := p.joinedTable()
		p.expect(token.RPAREN)
		return inner
	case p.acceptKw("VALUES"):
		vt := &ast.ValuesTable{Rows: p.valuesRows()}
		vt.Alias = p.optAlias(true)
		return vt
	case p.acceptKw("LATERAL"):
		if p.accept(token.LPAREN) {
			dt := &ast.DerivedTable{Lateral: true, Query: p.query()}
			p.expect(token.RPAREN)
			dt.Alias = p.optAlias(true)
			return dt
		}
		tf := &ast.TableFunc{Lateral: true, Func: p.funcCall(p.objectName().String())}
		tf.Alias = p.optAlias(true)
		return tf
	case p.cur().Is("TABLE") && p.peek(1).Kind == token.LPAREN:
		p.next()
		p.next()
		name := p.objectName().String()
		tf := &ast.TableFunc{Func: p.funcCall(name)}
		p.expect(token.RPAREN)
		tf.Alias = p.optAlias(true)
		return tf
	}

	name := p.objectName()
	if p.at(token.LPAREN) {
		tf := &ast.TableFunc{Func: p.funcCall(name.String())}
		tf.Alias = p.optAlias(true)
		return tf
	}
	return &ast.TableRef{Name: name, Alias: p.optAlias(true)}
}

func (p *Parser) optAlias(columns bool) *ast.Alias {
	if !p.acceptKw("AS") && !p.atAliasName() {
		return nil
	}
	a := &ast.Alias{Name: p.ident()}
	if columns && p.at(token.LPAREN) {
		a.Columns = p.identList()
	}
	return a
}
