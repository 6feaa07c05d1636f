// Package duckgen renders a rewritten syntax tree as DuckDB SQL.
//
// The generator expects trees produced by the transform pipeline: warehouse
// only statements such as USE or COMMENT ON must already have been replaced
// and are reported as errors.
package duckgen

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// Generate renders stmt as a single DuckDB statement.
func Generate(stmt ast.Statement) (sql string, err error) {
	g := &generator{}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(emitError)
			if !ok {
				panic(r)
			}
			sql, err = "", e.err
		}
	}()
	g.statement(stmt)
	return g.sb.String(), nil
}

// Expr renders a single expression. Used by tests and diagnostics.
func Expr(e ast.Expr) (string, error) {
	return Generate(&ast.Select{Columns: []*ast.SelectItem{{Expr: e}}})
}

type emitError struct {
	err error
}

type generator struct {
	sb strings.Builder
}

func (g *generator) w(s string) { g.sb.WriteString(s) }

func (g *generator) wf(format string, args ...interface{}) {
	fmt.Fprintf(&g.sb, format, args...)
}

func (g *generator) unsupported(what string) {
	panic(emitError{errors.NotImplemented(what).WithOp("duckgen.Generate").Err()})
}

func (g *generator) unrewritten(n ast.Node) {
	panic(emitError{errors.Internal(fmt.Sprintf("%T reached the generator without being rewritten", n)).Err()})
}

// ---------------------------------------------------------------------------
// Names and literals

// QuoteIdent quotes name for DuckDB, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString renders s as a DuckDB string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (g *generator) ident(id *ast.Ident) {
	if id.Quoted || !isSimple(id.Value) || isReserved(id.Value) {
		g.w(QuoteIdent(id.Value))
		return
	}
	g.w(id.Value)
}

func (g *generator) idents(ids []*ast.Ident) {
	for i, id := range ids {
		if i > 0 {
			g.w(", ")
		}
		g.ident(id)
	}
}

func (g *generator) dotted(ids []*ast.Ident) {
	for i, id := range ids {
		if i > 0 {
			g.w(".")
		}
		g.ident(id)
	}
}

func (g *generator) name(n *ast.ObjectName) {
	g.dotted(n.Parts)
}

func isSimple(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func (g *generator) dataType(dt *ast.DataType) {
	g.w(dt.Name)
	if len(dt.Params) > 0 {
		g.w("(")
		g.w(strings.Join(dt.Params, ", "))
		g.w(")")
	}
}

// ---------------------------------------------------------------------------
// Statements

func (g *generator) statement(s ast.Statement) {
	switch x := s.(type) {
	case *ast.Select:
		g.selectStmt(x)
	case *ast.SetOperation:
		g.setOperation(x)
	case *ast.Insert:
		g.insert(x)
	case *ast.Update:
		g.update(x)
	case *ast.Delete:
		g.delete(x)
	case *ast.Truncate:
		g.w("TRUNCATE TABLE ")
		g.name(x.Name)
	case *ast.CreateTable:
		g.createTable(x)
	case *ast.CreateView:
		g.createView(x)
	case *ast.CreateSchema:
		g.w("CREATE SCHEMA ")
		if x.IfNotExists {
			g.w("IF NOT EXISTS ")
		}
		g.name(x.Name)
	case *ast.Drop:
		g.drop(x)
	case *ast.AlterTable:
		g.alterTable(x)
	case *ast.Describe:
		g.w("DESCRIBE ")
		if x.Query != nil {
			g.statement(x.Query)
		} else {
			g.name(x.Name)
		}
	case *ast.Transaction:
		if x.Action == "BEGIN" {
			g.w("BEGIN TRANSACTION")
		} else {
			g.w(x.Action)
		}
	case *ast.Command:
		g.w(x.Text)
	case *ast.NoOp:
		g.wf("SELECT %s AS status", QuoteString(x.Status))
	case *ast.SetSearchPath:
		g.wf("SET schema = %s", QuoteString(x.Catalog+"."+x.Schema))
	case *ast.Attach:
		g.w("ATTACH ")
		if x.IfNotExists {
			g.w("IF NOT EXISTS ")
		}
		g.w("':memory:' AS ")
		g.ident(x.Name)
	case *ast.Detach:
		g.w("DETACH DATABASE ")
		if x.IfExists {
			g.w("IF EXISTS ")
		}
		g.ident(x.Name)
	case *ast.Use, *ast.CommentOn, *ast.TagDDL, *ast.CreateDatabase:
		g.unrewritten(x)
	default:
		g.unrewritten(s)
	}
}

func (g *generator) with(w *ast.With) {
	if w == nil {
		return
	}
	g.w("WITH ")
	if w.Recursive {
		g.w("RECURSIVE ")
	}
	for i, cte := range w.CTEs {
		if i > 0 {
			g.w(", ")
		}
		g.ident(cte.Name)
		if len(cte.Columns) > 0 {
			g.w("(")
			g.idents(cte.Columns)
			g.w(")")
		}
		g.w(" AS (")
		g.statement(cte.Query)
		g.w(")")
	}
	g.w(" ")
}

func (g *generator) selectStmt(s *ast.Select) {
	g.with(s.With)
	g.w("SELECT ")
	if s.Distinct {
		g.w("DISTINCT ")
	}
	for i, item := range s.Columns {
		if i > 0 {
			g.w(", ")
		}
		g.expr(item.Expr)
		if item.Alias != nil {
			g.w(" AS ")
			g.ident(item.Alias)
		}
	}
	if len(s.From) > 0 {
		g.w(" FROM ")
		g.tableExprs(s.From)
	}
	if s.Where != nil {
		g.w(" WHERE ")
		g.expr(s.Where)
	}
	if len(s.GroupBy) > 0 {
		g.w(" GROUP BY ")
		g.exprs(s.GroupBy)
	}
	if s.Having != nil {
		g.w(" HAVING ")
		g.expr(s.Having)
	}
	if s.Qualify != nil {
		g.w(" QUALIFY ")
		g.expr(s.Qualify)
	}
	g.tail(s.OrderBy, s.Limit, s.Offset)
}

func (g *generator) tail(orderBy []*ast.OrderItem, limit, offset ast.Expr) {
	if len(orderBy) > 0 {
		g.w(" ORDER BY ")
		g.orderItems(orderBy)
	}
	if limit != nil {
		g.w(" LIMIT ")
		g.expr(limit)
	}
	if offset != nil {
		g.w(" OFFSET ")
		g.expr(offset)
	}
}

func (g *generator) orderItems(items []*ast.OrderItem) {
	for i, it := range items {
		if i > 0 {
			g.w(", ")
		}
		g.expr(it.Expr)
		if it.Desc {
			g.w(" DESC")
		}
		if it.NullsFirst != nil {
			if *it.NullsFirst {
				g.w(" NULLS FIRST")
			} else {
				g.w(" NULLS LAST")
			}
		}
	}
}

func (g *generator) setOperation(s *ast.SetOperation) {
	g.with(s.With)
	g.setSide(s.Left, false)
	g.w(" ")
	g.w(s.Op)
	g.w(" ")
	g.setSide(s.Right, true)
	g.tail(s.OrderBy, s.Limit, s.Offset)
}

func (g *generator) setSide(q ast.Query, right bool) {
	wrap := right
	if sel, ok := q.(*ast.Select); ok {
		wrap = sel.With != nil || len(sel.OrderBy) > 0 || sel.Limit != nil || sel.Offset != nil
	}
	if op, ok := q.(*ast.SetOperation); ok && (op.With != nil || len(op.OrderBy) > 0 || op.Limit != nil) {
		wrap = true
	}
	if wrap {
		g.w("(")
		g.statement(q)
		g.w(")")
		return
	}
	g.statement(q)
}

func (g *generator) insert(ins *ast.Insert) {
	if ins.Overwrite {
		g.unsupported("INSERT OVERWRITE")
	}
	g.w("INSERT INTO ")
	g.name(ins.Table)
	if len(ins.Columns) > 0 {
		g.w(" (")
		g.idents(ins.Columns)
		g.w(")")
	}
	if ins.Query != nil {
		g.w(" ")
		g.statement(ins.Query)
		return
	}
	g.w(" VALUES ")
	g.rows(ins.Values)
}

func (g *generator) rows(rows [][]ast.Expr) {
	for i, row := range rows {
		if i > 0 {
			g.w(", ")
		}
		g.w("(")
		g.exprs(row)
		g.w(")")
	}
}

func (g *generator) update(up *ast.Update) {
	g.w("UPDATE ")
	g.tableExpr(up.Table)
	g.w(" SET ")
	for i, a := range up.Set {
		if i > 0 {
			g.w(", ")
		}
		g.ident(a.Column)
		g.w(" = ")
		g.expr(a.Value)
	}
	if len(up.From) > 0 {
		g.w(" FROM ")
		g.tableExprs(up.From)
	}
	if up.Where != nil {
		g.w(" WHERE ")
		g.expr(up.Where)
	}
}

func (g *generator) delete(del *ast.Delete) {
	g.w("DELETE FROM ")
	g.tableExpr(del.Table)
	if len(del.Using) > 0 {
		g.w(" USING ")
		g.tableExprs(del.Using)
	}
	if del.Where != nil {
		g.w(" WHERE ")
		g.expr(del.Where)
	}
}

func (g *generator) createTable(ct *ast.CreateTable) {
	g.w("CREATE ")
	if ct.OrReplace {
		g.w("OR REPLACE ")
	}
	if ct.Temporary {
		g.w("TEMPORARY ")
	}
	g.w("TABLE ")
	if ct.IfNotExists {
		g.w("IF NOT EXISTS ")
	}
	g.name(ct.Name)

	if ct.Like != nil {
		g.w(" AS SELECT * FROM ")
		g.name(ct.Like)
		g.w(" LIMIT 0")
		return
	}

	typed := len(ct.Columns) > 0
	for _, c := range ct.Columns {
		if c.Type == nil {
			typed = false
		}
	}
	if typed || (len(ct.Columns) == 0 && len(ct.Constraints) > 0) {
		g.w(" (")
		for i, c := range ct.Columns {
			if i > 0 {
				g.w(", ")
			}
			g.columnDef(c)
		}
		n := len(ct.Columns)
		for _, tc := range ct.Constraints {
			if tc.Kind == "FOREIGN KEY" {
				continue
			}
			if n > 0 {
				g.w(", ")
			}
			n++
			if tc.Name != nil {
				g.w("CONSTRAINT ")
				g.ident(tc.Name)
				g.w(" ")
			}
			g.w(tc.Kind)
			g.w(" (")
			g.idents(tc.Columns)
			g.w(")")
		}
		g.w(")")
	}

	if ct.AsQuery != nil {
		g.w(" AS ")
		if len(ct.Columns) > 0 && !typed {
			names := make([]*ast.Ident, len(ct.Columns))
			for i, c := range ct.Columns {
				names[i] = c.Name
			}
			g.w("SELECT * FROM (")
			g.statement(ct.AsQuery)
			g.w(") AS _(")
			g.idents(names)
			g.w(")")
			return
		}
		g.statement(ct.AsQuery)
	}
}

func (g *generator) columnDef(c *ast.ColumnDef) {
	g.ident(c.Name)
	if c.Type != nil {
		g.w(" ")
		g.dataType(c.Type)
	}
	if c.NotNull {
		g.w(" NOT NULL")
	}
	if c.PrimaryKey {
		g.w(" PRIMARY KEY")
	}
	if c.Unique {
		g.w(" UNIQUE")
	}
	if c.Default != nil {
		g.w(" DEFAULT ")
		g.operand(c.Default, precCmp)
	}
}

func (g *generator) createView(cv *ast.CreateView) {
	g.w("CREATE ")
	if cv.OrReplace {
		g.w("OR REPLACE ")
	}
	if cv.Temporary {
		g.w("TEMPORARY ")
	}
	g.w("VIEW ")
	if cv.IfNotExists {
		g.w("IF NOT EXISTS ")
	}
	g.name(cv.Name)
	if len(cv.Columns) > 0 {
		g.w(" (")
		g.idents(cv.Columns)
		g.w(")")
	}
	g.w(" AS ")
	g.statement(cv.Query)
}

func (g *generator) drop(d *ast.Drop) {
	switch d.Kind {
	case ast.KindDatabase, ast.KindTag:
		g.unrewritten(d)
	}
	if len(d.Names) != 1 {
		g.unsupported("DROP of several objects in one statement")
	}
	g.wf("DROP %s ", d.Kind)
	if d.IfExists {
		g.w("IF EXISTS ")
	}
	g.name(d.Names[0])
	switch {
	case d.Cascade:
		g.w(" CASCADE")
	case d.Restrict:
		g.w(" RESTRICT")
	}
}

func (g *generator) alterTable(at *ast.AlterTable) {
	g.w("ALTER TABLE ")
	if at.IfExists {
		g.w("IF EXISTS ")
	}
	g.name(at.Name)
	g.w(" ")
	switch a := at.Action.(type) {
	case *ast.AddColumn:
		g.w("ADD COLUMN ")
		if a.IfNotExists {
			g.w("IF NOT EXISTS ")
		}
		g.columnDef(a.Column)
	case *ast.DropColumn:
		g.w("DROP COLUMN ")
		if a.IfExists {
			g.w("IF EXISTS ")
		}
		g.ident(a.Column)
	case *ast.RenameTable:
		g.w("RENAME TO ")
		g.ident(a.To.Last())
	case *ast.RenameColumn:
		g.w("RENAME COLUMN ")
		g.ident(a.From)
		g.w(" TO ")
		g.ident(a.To)
	case *ast.AlterColumnType:
		g.w("ALTER COLUMN ")
		g.ident(a.Column)
		g.w(" TYPE ")
		g.dataType(a.Type)
	case *ast.AlterColumnNotNull:
		g.w("ALTER COLUMN ")
		g.ident(a.Column)
		if a.Drop {
			g.w(" DROP NOT NULL")
		} else {
			g.w(" SET NOT NULL")
		}
	case *ast.AlterColumnDefault:
		g.w("ALTER COLUMN ")
		g.ident(a.Column)
		if a.Default == nil {
			g.w(" DROP DEFAULT")
		} else {
			g.w(" SET DEFAULT ")
			g.expr(a.Default)
		}
	default:
		g.unrewritten(at.Action)
	}
}

// ---------------------------------------------------------------------------
// FROM clause

func (g *generator) tableExprs(list []ast.TableExpr) {
	for i, t := range list {
		if i > 0 {
			g.w(", ")
		}
		g.tableExpr(t)
	}
}

func (g *generator) alias(a *ast.Alias) {
	if a == nil {
		return
	}
	g.w(" AS ")
	g.ident(a.Name)
	if len(a.Columns) > 0 {
		g.w("(")
		g.idents(a.Columns)
		g.w(")")
	}
}

func (g *generator) tableExpr(t ast.TableExpr) {
	switch x := t.(type) {
	case *ast.TableRef:
		g.name(x.Name)
		g.alias(x.Alias)
	case *ast.DerivedTable:
		if x.Lateral {
			g.w("LATERAL ")
		}
		g.w("(")
		g.statement(x.Query)
		g.w(")")
		g.alias(x.Alias)
	case *ast.ValuesTable:
		g.w("(VALUES ")
		g.rows(x.Rows)
		g.w(")")
		g.alias(x.Alias)
	case *ast.TableFunc:
		if x.Lateral {
			g.w("LATERAL ")
		}
		g.funcCall(x.Func)
		g.alias(x.Alias)
	case *ast.Join:
		g.tableExpr(x.Left)
		switch x.Kind {
		case "INNER":
			g.w(" JOIN ")
		case "NATURAL":
			g.w(" NATURAL JOIN ")
		default:
			g.wf(" %s JOIN ", x.Kind)
		}
		if _, nested := x.Right.(*ast.Join); nested {
			g.w("(")
			g.tableExpr(x.Right)
			g.w(")")
		} else {
			g.tableExpr(x.Right)
		}
		if x.On != nil {
			g.w(" ON ")
			g.expr(x.On)
		}
		if len(x.Using) > 0 {
			g.w(" USING (")
			g.idents(x.Using)
			g.w(")")
		}
	default:
		g.unrewritten(t)
	}
}
