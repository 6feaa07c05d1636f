// Package parser parses warehouse SQL into the ast package's tree.
//
// The parser is hand-written recursive descent with precedence climbing for
// expressions. Statements it has no dedicated node for are kept verbatim as
// ast.Command so they can still be passed through to the engine.
package parser

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
	"github.com/ha1tch/fakesnow/pkg/sfparser/lexer"
	"github.com/ha1tch/fakesnow/pkg/sfparser/token"
)

// Parser holds the token stream of one SQL text.
type Parser struct {
	src  string
	toks []token.Token
	pos  int
}

// bailout carries a syntax error up to the entry point.
type bailout struct {
	err error
}

// New tokenizes src and returns a parser positioned at the first token.
func New(src string) (*Parser, error) {
	toks, err := lexer.New(src).All()
	if err != nil {
		if le, ok := err.(*lexer.Error); ok {
			return nil, errors.Syntax(le.Pos.Line, le.Pos.Col, le.Msg+".").WithCause(err).Err()
		}
		return nil, err
	}
	return &Parser{src: src, toks: toks}, nil
}

// Parse parses exactly one statement. A trailing semicolon is allowed.
func Parse(sql string) (ast.Statement, error) {
	stmts, err := ParseAll(sql)
	if err != nil {
		return nil, err
	}
	switch len(stmts) {
	case 0:
		return nil, errors.New(errors.ErrCodeSyntax, "Empty SQL statement.").Err()
	case 1:
		return stmts[0], nil
	default:
		return nil, errors.Newf(errors.ErrCodeStatement,
			"Actual statement count %d did not match the desired statement count 1.", len(stmts)).Err()
	}
}

// ParseAll parses a semicolon separated script.
func ParseAll(sql string) ([]ast.Statement, error) {
	p, err := New(sql)
	if err != nil {
		return nil, err
	}
	return p.All()
}

// All parses every remaining statement.
func (p *Parser) All() (stmts []ast.Statement, err error) {
	defer p.recover(&err)
	for {
		for p.accept(token.SEMI) {
		}
		if p.at(token.EOF) {
			return stmts, nil
		}
		stmts = append(stmts, p.statement())
		if !p.at(token.EOF) {
			p.expect(token.SEMI)
		}
	}
}

func (p *Parser) recover(errp *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*errp = b.err
	}
}

// ---------------------------------------------------------------------------
// Token helpers

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) peek(n int) token.Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) next() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) atKw(kws ...string) bool {
	for _, kw := range kws {
		if p.cur().Is(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) accept(k token.Kind) bool {
	if p.at(k) {
		p.next()
		return true
	}
	return false
}

// acceptKw consumes the keyword sequence if all words are present.
func (p *Parser) acceptKw(kws ...string) bool {
	for i, kw := range kws {
		if !p.peek(i).Is(kw) {
			return false
		}
	}
	p.pos += len(kws)
	return true
}

func (p *Parser) expect(k token.Kind) token.Token {
	if !p.at(k) {
		p.unexpected()
	}
	return p.next()
}

func (p *Parser) expectKw(kws ...string) {
	if !p.acceptKw(kws...) {
		p.unexpected()
	}
}

func (p *Parser) fail(format string, args ...interface{}) {
	t := p.cur()
	panic(bailout{errors.Syntax(t.Pos.Line, t.Pos.Col, fmt.Sprintf(format, args...)).Err()})
}

func (p *Parser) unexpected() {
	t := p.cur()
	if t.Kind == token.EOF {
		p.fail("unexpected '<EOF>'.")
	}
	p.fail("unexpected '%s'.", t)
}

// rawFrom returns the source text from offset start to the last consumed token.
func (p *Parser) rawFrom(start int) string {
	if p.pos == 0 {
		return ""
	}
	end := p.toks[p.pos-1].End
	if end < start {
		return ""
	}
	return strings.TrimSpace(p.src[start:end])
}

// skipToEnd consumes tokens up to the end of the statement.
func (p *Parser) skipToEnd() {
	for !p.at(token.SEMI) && !p.at(token.EOF) {
		p.next()
	}
}

// skipParens consumes a balanced parenthesised group if present.
func (p *Parser) skipParens() {
	if !p.at(token.LPAREN) {
		return
	}
	depth := 0
	for {
		switch p.next().Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return
			}
		case token.EOF:
			p.unexpected()
		}
	}
}

func (p *Parser) command(start int) *ast.Command {
	p.skipToEnd()
	return &ast.Command{Text: p.rawFrom(start)}
}

// ---------------------------------------------------------------------------
// Names

func (p *Parser) ident() *ast.Ident {
	t := p.cur()
	switch t.Kind {
	case token.IDENT:
		p.next()
		return &ast.Ident{Value: t.Lit}
	case token.QIDENT:
		p.next()
		return &ast.Ident{Value: t.Lit, Quoted: true}
	}
	p.unexpected()
	return nil
}

func (p *Parser) objectName() *ast.ObjectName {
	n := &ast.ObjectName{Parts: []*ast.Ident{p.ident()}}
	for p.at(token.DOT) {
		p.next()
		if p.at(token.DOT) {
			// db..table names the default schema
			n.Parts = append(n.Parts, ast.NewIdent("PUBLIC"))
			continue
		}
		n.Parts = append(n.Parts, p.ident())
	}
	return n
}

func (p *Parser) identList() []*ast.Ident {
	p.expect(token.LPAREN)
	var ids []*ast.Ident
	for {
		ids = append(ids, p.ident())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return ids
}

func (p *Parser) stringLit() string {
	return p.expect(token.STRING).Lit
}

// ---------------------------------------------------------------------------
// Statements

func (p *Parser) statement() ast.Statement {
	t := p.cur()
	start := t.Pos.Offset
	switch {
	case t.Is("SELECT"), t.Is("WITH"), t.Kind == token.LPAREN:
		return p.query()
	case t.Is("INSERT"):
		return p.insert(start)
	case t.Is("UPDATE"):
		return p.update()
	case t.Is("DELETE"):
		return p.delete()
	case t.Is("TRUNCATE"):
		return p.truncate()
	case t.Is("CREATE"):
		return p.create(start)
	case t.Is("DROP"):
		return p.drop(start)
	case t.Is("ALTER"):
		return p.alter(start)
	case t.Is("COMMENT"):
		return p.commentOn()
	case t.Is("USE"):
		return p.use()
	case t.Is("DESCRIBE"), t.Is("DESC"):
		return p.describe(start)
	case t.Is("BEGIN"), t.Is("START"), t.Is("COMMIT"), t.Is("ROLLBACK"):
		return p.transaction(start)
	case t.Kind == token.IDENT:
		return p.command(start)
	}
	p.unexpected()
	return nil
}

func (p *Parser) transaction(start int) ast.Statement {
	switch {
	case p.acceptKw("BEGIN"):
		p.acceptKw("TRANSACTION")
		p.acceptKw("WORK")
		if p.acceptKw("NAME") {
			p.ident()
		}
		return &ast.Transaction{Action: "BEGIN"}
	case p.acceptKw("START", "TRANSACTION"):
		return &ast.Transaction{Action: "BEGIN"}
	case p.acceptKw("COMMIT"):
		p.acceptKw("WORK")
		return &ast.Transaction{Action: "COMMIT"}
	case p.acceptKw("ROLLBACK"):
		p.acceptKw("WORK")
		return &ast.Transaction{Action: "ROLLBACK"}
	}
	return p.command(start)
}

func (p *Parser) insert(start int) ast.Statement {
	p.expectKw("INSERT")
	ins := &ast.Insert{}
	if p.acceptKw("OVERWRITE") {
		ins.Overwrite = true
	}
	if p.atKw("ALL", "FIRST") {
		// multi-table insert
		return p.command(start)
	}
	p.expectKw("INTO")
	ins.Table = p.objectName()
	if p.at(token.LPAREN) && !p.peek(1).Is("SELECT") && !p.peek(1).Is("WITH") {
		ins.Columns = p.identList()
	}
	if p.acceptKw("VALUES") {
		ins.Values = p.valuesRows()
		return ins
	}
	ins.Query = p.query()
	return ins
}

func (p *Parser) valuesRows() [][]ast.Expr {
	var rows [][]ast.Expr
	for {
		p.expect(token.LPAREN)
		var row []ast.Expr
		if !p.at(token.RPAREN) {
			row = p.exprList()
		}
		p.expect(token.RPAREN)
		rows = append(rows, row)
		if !p.accept(token.COMMA) {
			return rows
		}
	}
}

func (p *Parser) update() ast.Statement {
	p.expectKw("UPDATE")
	up := &ast.Update{Table: &ast.TableRef{Name: p.objectName()}}
	up.Table.Alias = p.optAlias(false)
	p.expectKw("SET")
	for {
		a := &ast.Assignment{}
		a.Column = p.ident()
		for p.accept(token.DOT) {
			// t.col = ...; the qualifier is redundant
			a.Column = p.ident()
		}
		p.expect(token.EQ)
		a.Value = p.expr()
		up.Set = append(up.Set, a)
		if !p.accept(token.COMMA) {
			break
		}
	}
	if p.acceptKw("FROM") {
		up.From = p.tableExprs()
	}
	if p.acceptKw("WHERE") {
		up.Where = p.expr()
	}
	return up
}

func (p *Parser) delete() ast.Statement {
	p.expectKw("DELETE")
	p.expectKw("FROM")
	del := &ast.Delete{Table: &ast.TableRef{Name: p.objectName()}}
	del.Table.Alias = p.optAlias(false)
	if p.acceptKw("USING") {
		del.Using = p.tableExprs()
	}
	if p.acceptKw("WHERE") {
		del.Where = p.expr()
	}
	return del
}

func (p *Parser) truncate() ast.Statement {
	p.expectKw("TRUNCATE")
	p.acceptKw("TABLE")
	tr := &ast.Truncate{}
	tr.IfExists = p.acceptKw("IF", "EXISTS")
	tr.Name = p.objectName()
	return tr
}

func (p *Parser) create(start int) ast.Statement {
	p.expectKw("CREATE")
	orReplace := p.acceptKw("OR", "REPLACE")
	var temporary, transient, secure bool
modifiers:
	for {
		switch {
		case p.acceptKw("LOCAL"), p.acceptKw("GLOBAL"):
		case p.acceptKw("TEMP"), p.acceptKw("TEMPORARY"), p.acceptKw("VOLATILE"):
			temporary = true
		case p.acceptKw("TRANSIENT"):
			transient = true
		case p.acceptKw("SECURE"):
			secure = true
		default:
			break modifiers
		}
	}
	switch {
	case p.acceptKw("TABLE"):
		ct := &ast.CreateTable{OrReplace: orReplace, Temporary: temporary, Transient: transient}
		ct.IfNotExists = p.acceptKw("IF", "NOT", "EXISTS")
		ct.Name = p.objectName()
		p.createTableBody(ct)
		return ct
	case p.acceptKw("VIEW"):
		cv := &ast.CreateView{OrReplace: orReplace, Secure: secure, Temporary: temporary}
		cv.IfNotExists = p.acceptKw("IF", "NOT", "EXISTS")
		cv.Name = p.objectName()
		p.createViewBody(cv)
		return cv
	case p.acceptKw("DATABASE"):
		cd := &ast.CreateDatabase{OrReplace: orReplace, Transient: transient}
		cd.IfNotExists = p.acceptKw("IF", "NOT", "EXISTS")
		cd.Name = p.ident()
		p.skipToEnd()
		return cd
	case p.acceptKw("SCHEMA"):
		cs := &ast.CreateSchema{OrReplace: orReplace, Transient: transient}
		cs.IfNotExists = p.acceptKw("IF", "NOT", "EXISTS")
		cs.Name = p.objectName()
		p.skipToEnd()
		return cs
	case p.acceptKw("TAG"):
		p.acceptKw("IF", "NOT", "EXISTS")
		tag := &ast.TagDDL{Action: "CREATE", Name: p.objectName()}
		p.skipToEnd()
		tag.Raw = p.rawFrom(start)
		return tag
	}
	return p.command(start)
}

func (p *Parser) createTableBody(ct *ast.CreateTable) {
	if p.acceptKw("LIKE") {
		ct.Like = p.objectName()
		return
	}
	if p.accept(token.LPAREN) {
		for {
			if c := p.tableConstraint(); c != nil {
				ct.Constraints = append(ct.Constraints, c)
			} else {
				ct.Columns = append(ct.Columns, p.columnDef())
			}
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}
	p.tableOptions(&ct.Comment, &ct.Options)
	if p.acceptKw("AS") {
		ct.AsQuery = p.query()
	}
}

func (p *Parser) tableOptions(comment **string, opts *[]*ast.TableOption) {
	for p.at(token.IDENT) && !p.atKw("AS") {
		switch {
		case p.acceptKw("COMMENT"):
			p.accept(token.EQ)
			s := p.stringLit()
			*comment = &s
		case p.acceptKw("CLUSTER", "BY"):
			p.skipParens()
		case p.acceptKw("COPY", "GRANTS"):
		case p.acceptKw("WITH", "TAG"), p.acceptKw("TAG"):
			p.skipParens()
		case p.acceptKw("WITH", "ROW", "ACCESS", "POLICY"):
			p.objectName()
			p.expectKw("ON")
			p.skipParens()
		default:
			key := p.next().Upper()
			p.expect(token.EQ)
			v := p.next()
			if opts != nil {
				*opts = append(*opts, &ast.TableOption{Key: key, Value: v.Lit})
			}
		}
	}
}

func (p *Parser) tableConstraint() *ast.TableConstraint {
	c := &ast.TableConstraint{}
	save := p.pos
	if p.acceptKw("CONSTRAINT") {
		c.Name = p.ident()
	}
	switch {
	case p.acceptKw("PRIMARY", "KEY"):
		c.Kind = "PRIMARY KEY"
	case p.atKw("UNIQUE") && p.peek(1).Kind == token.LPAREN:
		p.next()
		c.Kind = "UNIQUE"
	case p.acceptKw("FOREIGN", "KEY"):
		c.Kind = "FOREIGN KEY"
	default:
		p.pos = save
		return nil
	}
	c.Columns = p.identList()
	if c.Kind == "FOREIGN KEY" {
		p.expectKw("REFERENCES")
		c.RefTable = p.objectName()
		if p.at(token.LPAREN) {
			c.RefColumns = p.identList()
		}
	}
	p.constraintProperties()
	return c
}

// constraintProperties skips ENFORCED, DEFERRABLE and similar qualifiers.
func (p *Parser) constraintProperties() {
	for {
		switch {
		case p.acceptKw("NOT", "ENFORCED"), p.acceptKw("ENFORCED"),
			p.acceptKw("NOT", "DEFERRABLE"), p.acceptKw("DEFERRABLE"),
			p.acceptKw("INITIALLY", "DEFERRED"), p.acceptKw("INITIALLY", "IMMEDIATE"),
			p.acceptKw("ENABLE"), p.acceptKw("DISABLE"),
			p.acceptKw("VALIDATE"), p.acceptKw("NOVALIDATE"),
			p.acceptKw("RELY"), p.acceptKw("NORELY"):
		default:
			return
		}
	}
}

func (p *Parser) columnDef() *ast.ColumnDef {
	col := &ast.ColumnDef{Name: p.ident()}
	if !p.at(token.COMMA) && !p.at(token.RPAREN) && !p.atKw("COMMENT") {
		col.Type = p.dataType()
	}
	for {
		switch {
		case p.acceptKw("NOT", "NULL"):
			col.NotNull = true
		case p.acceptKw("NULL"):
		case p.acceptKw("CONSTRAINT"):
			p.ident()
		case p.acceptKw("PRIMARY", "KEY"):
			col.PrimaryKey = true
			p.constraintProperties()
		case p.acceptKw("UNIQUE"):
			col.Unique = true
			p.constraintProperties()
		case p.acceptKw("REFERENCES"):
			p.objectName()
			p.skipParens()
			p.constraintProperties()
		case p.acceptKw("DEFAULT"):
			col.Default = p.exprPrec(precCmp)
		case p.acceptKw("AUTOINCREMENT"), p.acceptKw("IDENTITY"):
			p.skipParens()
			for p.acceptKw("START") || p.acceptKw("INCREMENT") {
				p.accept(token.EQ)
				p.expect(token.NUMBER)
			}
			p.acceptKw("ORDER")
			p.acceptKw("NOORDER")
		case p.acceptKw("COMMENT"):
			s := p.stringLit()
			col.Comment = &s
		case p.acceptKw("COLLATE"):
			p.stringLit()
		case p.acceptKw("WITH", "TAG"), p.acceptKw("TAG"):
			p.skipParens()
		case p.acceptKw("WITH", "MASKING", "POLICY"), p.acceptKw("MASKING", "POLICY"):
			p.objectName()
			if p.acceptKw("USING") {
				p.skipParens()
			}
		default:
			return col
		}
	}
}

func (p *Parser) createViewBody(cv *ast.CreateView) {
	if p.accept(token.LPAREN) {
		for {
			cv.Columns = append(cv.Columns, p.ident())
			if p.acceptKw("COMMENT") {
				p.stringLit()
			}
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}
	p.tableOptions(&cv.Comment, nil)
	p.expectKw("AS")
	cv.Query = p.query()
}

var dropKinds = map[string]ast.ObjectKind{
	"TABLE":    ast.KindTable,
	"VIEW":     ast.KindView,
	"SCHEMA":   ast.KindSchema,
	"DATABASE": ast.KindDatabase,
	"TAG":      ast.KindTag,
	"SEQUENCE": ast.KindSequence,
}

func (p *Parser) drop(start int) ast.Statement {
	p.expectKw("DROP")
	kind, ok := dropKinds[p.cur().Upper()]
	if !ok || p.cur().Kind != token.IDENT {
		return p.command(start)
	}
	p.next()
	d := &ast.Drop{Kind: kind}
	d.IfExists = p.acceptKw("IF", "EXISTS")
	for {
		d.Names = append(d.Names, p.objectName())
		if !p.accept(token.COMMA) {
			break
		}
	}
	switch {
	case p.acceptKw("CASCADE"):
		d.Cascade = true
	case p.acceptKw("RESTRICT"):
		d.Restrict = true
	}
	return d
}

func (p *Parser) alter(start int) ast.Statement {
	save := p.pos
	p.expectKw("ALTER")
	switch {
	case p.acceptKw("TABLE"):
		at := &ast.AlterTable{}
		at.IfExists = p.acceptKw("IF", "EXISTS")
		at.Name = p.objectName()
		if at.Action = p.alterAction(start); at.Action == nil {
			p.pos = save
			return p.command(start)
		}
		return at
	case p.acceptKw("TAG"):
		p.acceptKw("IF", "EXISTS")
		tag := &ast.TagDDL{Action: "ALTER", Name: p.objectName()}
		p.skipToEnd()
		tag.Raw = p.rawFrom(start)
		return tag
	}
	return p.command(start)
}

// alterAction returns nil for actions without a dedicated node.
func (p *Parser) alterAction(start int) ast.AlterAction {
	switch {
	case p.acceptKw("ADD"):
		p.acceptKw("COLUMN")
		add := &ast.AddColumn{}
		add.IfNotExists = p.acceptKw("IF", "NOT", "EXISTS")
		add.Column = p.columnDef()
		return add
	case p.acceptKw("DROP"):
		if p.atKw("PRIMARY", "CONSTRAINT", "UNIQUE", "FOREIGN") {
			return nil
		}
		p.acceptKw("COLUMN")
		dc := &ast.DropColumn{}
		dc.IfExists = p.acceptKw("IF", "EXISTS")
		dc.Column = p.ident()
		return dc
	case p.acceptKw("RENAME", "TO"):
		return &ast.RenameTable{To: p.objectName()}
	case p.acceptKw("RENAME", "COLUMN"):
		rc := &ast.RenameColumn{From: p.ident()}
		p.expectKw("TO")
		rc.To = p.ident()
		return rc
	case p.acceptKw("SET", "COMMENT"):
		p.accept(token.EQ)
		return &ast.SetTableComment{Comment: p.stringLit()}
	case p.acceptKw("UNSET", "COMMENT"):
		return &ast.SetTableComment{}
	case p.atKw("SET", "UNSET") && p.peek(1).Is("TAG"):
		unset := p.next().Is("UNSET")
		p.skipToEnd()
		return &ast.TagAction{Unset: unset, Raw: p.rawFrom(start)}
	case p.acceptKw("ALTER"), p.acceptKw("MODIFY"):
		p.acceptKw("COLUMN")
		return p.alterColumn(start)
	}
	return nil
}

func (p *Parser) alterColumn(start int) ast.AlterAction {
	col := p.ident()
	switch {
	case p.acceptKw("COMMENT"):
		return &ast.AlterColumnComment{Column: col, Comment: p.stringLit()}
	case p.acceptKw("UNSET", "COMMENT"):
		return &ast.AlterColumnComment{Column: col}
	case p.acceptKw("SET", "DATA", "TYPE"), p.acceptKw("SET", "TYPE"), p.acceptKw("TYPE"):
		return &ast.AlterColumnType{Column: col, Type: p.dataType()}
	case p.acceptKw("SET", "NOT", "NULL"):
		return &ast.AlterColumnNotNull{Column: col}
	case p.acceptKw("DROP", "NOT", "NULL"):
		return &ast.AlterColumnNotNull{Column: col, Drop: true}
	case p.acceptKw("SET", "DEFAULT"):
		return &ast.AlterColumnDefault{Column: col, Default: p.expr()}
	case p.acceptKw("DROP", "DEFAULT"):
		return &ast.AlterColumnDefault{Column: col}
	case p.atKw("SET", "UNSET") && p.peek(1).Is("TAG"):
		unset := p.next().Is("UNSET")
		p.skipToEnd()
		return &ast.TagAction{Column: col, Unset: unset, Raw: p.rawFrom(start)}
	}
	return nil
}

var commentKinds = map[string]ast.ObjectKind{
	"TABLE":    ast.KindTable,
	"VIEW":     ast.KindView,
	"COLUMN":   ast.KindColumn,
	"SCHEMA":   ast.KindSchema,
	"DATABASE": ast.KindDatabase,
}

func (p *Parser) commentOn() ast.Statement {
	p.expectKw("COMMENT")
	c := &ast.CommentOn{}
	c.IfExists = p.acceptKw("IF", "EXISTS")
	p.expectKw("ON")
	kind, ok := commentKinds[p.cur().Upper()]
	if !ok {
		p.unexpected()
	}
	p.next()
	c.Kind = kind
	c.Name = p.objectName()
	p.expectKw("IS")
	c.Comment = p.stringLit()
	return c
}

func (p *Parser) use() ast.Statement {
	p.expectKw("USE")
	u := &ast.Use{}
	switch {
	case p.acceptKw("DATABASE"):
		u.Kind = ast.UseDatabase
	case p.acceptKw("SCHEMA"):
		u.Kind = ast.UseSchema
	case p.acceptKw("WAREHOUSE"):
		u.Kind = ast.UseWarehouse
	case p.acceptKw("ROLE"):
		u.Kind = ast.UseRole
	case p.acceptKw("SECONDARY", "ROLES"):
		u.Kind = ast.UseSecondaryRoles
		p.skipToEnd()
		return u
	}
	u.Name = p.objectName()
	if u.Kind == "" {
		u.Kind = ast.UseDatabase
		if len(u.Name.Parts) > 1 {
			u.Kind = ast.UseSchema
		}
	}
	return u
}

func (p *Parser) describe(start int) ast.Statement {
	p.next()
	d := &ast.Describe{Kind: ast.KindTable}
	switch {
	case p.acceptKw("TABLE"):
	case p.acceptKw("VIEW"):
		d.Kind = ast.KindView
	case p.atKw("SELECT", "WITH"):
		d.Kind = ""
		d.Query = p.query()
		return d
	case p.cur().Kind == token.IDENT && p.peek(1).Kind == token.IDENT:
		// DESCRIBE WAREHOUSE x and friends
		return p.command(start)
	}
	d.Name = p.objectName()
	p.skipToEnd()
	return d
}
