package transform

import (
	"strings"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// CommandName returns the warehouse name of the statement's command, as
// used in error messages: SELECT, INSERT, CREATE TABLE, USE SCHEMA...
func CommandName(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case *ast.Select, *ast.SetOperation:
		return "SELECT"
	case *ast.Insert:
		return "INSERT"
	case *ast.Update:
		return "UPDATE"
	case *ast.Delete:
		return "DELETE"
	case *ast.Truncate:
		return "TRUNCATE TABLE"
	case *ast.CreateTable:
		return "CREATE TABLE"
	case *ast.CreateView:
		return "CREATE VIEW"
	case *ast.CreateDatabase:
		return "CREATE DATABASE"
	case *ast.CreateSchema:
		return "CREATE SCHEMA"
	case *ast.TagDDL:
		return s.Action + " TAG"
	case *ast.Drop:
		return "DROP " + string(s.Kind)
	case *ast.AlterTable:
		return "ALTER TABLE"
	case *ast.CommentOn:
		return "COMMENT"
	case *ast.Use:
		return "USE " + string(s.Kind)
	case *ast.Describe:
		return "DESCRIBE"
	case *ast.Transaction:
		return s.Action
	case *ast.Command:
		if f := strings.Fields(s.Text); len(f) > 0 {
			return strings.ToUpper(f[0])
		}
	}
	return ""
}

// nameScope says which qualifiers a name needs from the session.
type nameScope int

const (
	scopeNone     nameScope = iota
	scopeCatalog            // a schema name: needs a database
	scopeTable              // a table name: needs a database and a schema
)

type scopedName struct {
	name  *ast.ObjectName
	scope nameScope
}

// checkSession fails when the statement names an object whose missing
// qualifiers cannot be filled from the session.
func checkSession(stmt ast.Statement, env *Env) (ast.Statement, error) {
	var noDatabase, noSchema bool
	for _, sn := range referencedNames(stmt) {
		parts := len(sn.name.Parts)
		switch sn.scope {
		case scopeCatalog:
			if parts < 2 {
				noDatabase = true
			}
		case scopeTable:
			if parts < 3 {
				noDatabase = true
			}
			if parts < 2 {
				noSchema = true
			}
		}
	}

	switch {
	case noDatabase && !env.Session.IsDatabaseSet():
		return nil, errors.NoCurrentDatabase(env.Command).WithOp("transform.checkSession").Err()
	case noSchema && !env.Session.IsSchemaSet():
		return nil, errors.NoCurrentSchema(env.Command).WithOp("transform.checkSession").Err()
	}
	return stmt, nil
}

// referencedNames lists the object names a statement resolves against the
// session. References to common table expressions are left out; a
// reference matches a CTE only when both fold to the same name.
func referencedNames(stmt ast.Statement) []scopedName {
	var names []scopedName
	add := func(n *ast.ObjectName, scope nameScope) {
		if n != nil && len(n.Parts) > 0 {
			names = append(names, scopedName{n, scope})
		}
	}

	switch s := stmt.(type) {
	case *ast.Insert:
		add(s.Table, scopeTable)
	case *ast.Truncate:
		add(s.Name, scopeTable)
	case *ast.CreateTable:
		add(s.Name, scopeTable)
		add(s.Like, scopeTable)
	case *ast.CreateView:
		add(s.Name, scopeTable)
	case *ast.CreateSchema:
		add(s.Name, scopeCatalog)
	case *ast.Drop:
		for _, n := range s.Names {
			switch s.Kind {
			case ast.KindSchema:
				add(n, scopeCatalog)
			case ast.KindTable, ast.KindView, ast.KindSequence:
				add(n, scopeTable)
			}
		}
	case *ast.AlterTable:
		add(s.Name, scopeTable)
	case *ast.CommentOn:
		switch s.Kind {
		case ast.KindTable, ast.KindView:
			add(s.Name, scopeTable)
		case ast.KindColumn:
			if len(s.Name.Parts) < 2 {
				break
			}
			add(&ast.ObjectName{Parts: s.Name.Parts[:len(s.Name.Parts)-1]}, scopeTable)
		case ast.KindSchema:
			add(s.Name, scopeCatalog)
		}
	case *ast.Use:
		if s.Kind == ast.UseSchema {
			add(s.Name, scopeCatalog)
		}
	case *ast.Describe:
		add(s.Name, scopeTable)
	}

	ctes := map[string]bool{}
	ast.Inspect(stmt, func(n ast.Node) bool {
		if c, ok := n.(*ast.CTE); ok {
			ctes[c.Name.Folded()] = true
		}
		return true
	})
	ast.Inspect(stmt, func(n ast.Node) bool {
		ref, ok := n.(*ast.TableRef)
		if !ok {
			return true
		}
		if len(ref.Name.Parts) == 1 && ctes[ref.Name.Parts[0].Folded()] {
			return false
		}
		add(ref.Name, scopeTable)
		return false
	})
	return names
}
