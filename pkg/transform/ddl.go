package transform

import (
	"strings"

	"github.com/ha1tch/fakesnow/pkg/session"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// StatusSuccess is the status row returned for statements answered
// without touching the engine's catalog.
const StatusSuccess = "Statement executed successfully."

// upperCaseIdentifiers folds unquoted identifiers to upper case, the way
// the warehouse resolves them. Quoted identifiers keep their case.
func upperCaseIdentifiers(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return rewrite(stmt, func(n ast.Node) ast.Node {
		if id, ok := n.(*ast.Ident); ok && !id.Quoted {
			id.Value = strings.ToUpper(id.Value)
		}
		return n
	}), nil
}

// useStatement turns USE into a search path change. The session itself is
// updated by the caller from the annotations once the statement ran.
func useStatement(stmt ast.Statement, env *Env) (ast.Statement, error) {
	use, ok := stmt.(*ast.Use)
	if !ok {
		return stmt, nil
	}
	ann := env.Annotations

	switch use.Kind {
	case ast.UseDatabase:
		db := use.Name.Last().Value
		ann.UseDatabase = db
		return &ast.SetSearchPath{Catalog: db, Schema: session.DefaultSchema}, nil

	case ast.UseSchema:
		schema := use.Name.Last().Value
		db := env.Session.CurrentDatabase()
		if cat := use.Name.Schema(); cat != nil {
			db = cat.Value
			ann.UseDatabase = db
		}
		ann.UseSchema = schema
		return &ast.SetSearchPath{Catalog: db, Schema: schema}, nil
	}
	// Warehouses and roles have no engine counterpart.
	return &ast.NoOp{Status: StatusSuccess}, nil
}

// createDatabase maps warehouse databases onto attached in-memory catalogs.
func createDatabase(stmt ast.Statement, env *Env) (ast.Statement, error) {
	switch s := stmt.(type) {
	case *ast.CreateDatabase:
		env.Annotations.CreatedDatabase = s.Name.Value
		return &ast.Attach{IfNotExists: s.IfNotExists, Name: s.Name}, nil
	case *ast.Drop:
		if s.Kind != ast.KindDatabase || len(s.Names) == 0 {
			return stmt, nil
		}
		name := s.Names[0].Last()
		env.Annotations.DroppedDatabase = name.Value
		return &ast.Detach{IfExists: s.IfExists, Name: name}, nil
	}
	return stmt, nil
}

// dropSchemaCascade makes DROP SCHEMA drop the schema's objects too, as the
// warehouse does unless RESTRICT is written.
func dropSchemaCascade(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	if d, ok := stmt.(*ast.Drop); ok && d.Kind == ast.KindSchema && !d.Restrict {
		d.Cascade = true
	}
	return stmt, nil
}

// tagNoOp answers object tagging statements with a success status.
func tagNoOp(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	switch s := stmt.(type) {
	case *ast.TagDDL:
		return &ast.NoOp{Status: StatusSuccess}, nil
	case *ast.Drop:
		if s.Kind == ast.KindTag {
			return &ast.NoOp{Status: StatusSuccess}, nil
		}
	case *ast.AlterTable:
		if _, ok := s.Action.(*ast.TagAction); ok {
			return &ast.NoOp{Status: StatusSuccess}, nil
		}
	}
	return stmt, nil
}
