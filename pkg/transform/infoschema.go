package transform

import (
	"github.com/ha1tch/fakesnow/pkg/catalog"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// infoSchemaCatalog reports whether name is [catalog.]INFORMATION_SCHEMA.<view>
// and returns the catalog it lives in.
func infoSchemaCatalog(name *ast.ObjectName, view string, env *Env) (string, bool) {
	if len(name.Parts) < 2 || len(name.Parts) > 3 {
		return "", false
	}
	if !name.Last().EqualFold(view) || !name.Schema().EqualFold("INFORMATION_SCHEMA") {
		return "", false
	}
	if cat := name.Catalog(); cat != nil {
		return cat.Value, true
	}
	return env.Session.CurrentDatabase(), true
}

func defaultAlias(a *ast.Alias, name string) *ast.Alias {
	if a != nil {
		return a
	}
	return &ast.Alias{Name: ast.NewIdent(name)}
}

// informationSchemaColumns points information_schema.columns at the
// catalog's columns view, which reports declared text lengths and the
// warehouse's integer precision.
func informationSchemaColumns(stmt ast.Statement, env *Env) (ast.Statement, error) {
	return rewrite(stmt, func(n ast.Node) ast.Node {
		ref, ok := n.(*ast.TableRef)
		if !ok {
			return n
		}
		cat, ok := infoSchemaCatalog(ref.Name, "COLUMNS", env)
		if !ok {
			return n
		}
		return &ast.TableRef{
			Name:  ast.NewObjectName(cat, catalog.ExtensionSchema, catalog.ColumnsView),
			Alias: defaultAlias(ref.Alias, "COLUMNS"),
		}
	}), nil
}

// informationSchemaTables replaces information_schema.tables with the
// native view joined to the recorded table comments.
func informationSchemaTables(stmt ast.Statement, env *Env) (ast.Statement, error) {
	replace := func(t ast.TableExpr) ast.TableExpr {
		ref, ok := t.(*ast.TableRef)
		if !ok {
			return t
		}
		cat, ok := infoSchemaCatalog(ref.Name, "TABLES", env)
		if !ok {
			return t
		}
		return &ast.DerivedTable{
			Query: tablesWithComments(cat),
			Alias: defaultAlias(ref.Alias, "TABLES"),
		}
	}

	return rewrite(stmt, func(n ast.Node) ast.Node {
		switch x := n.(type) {
		case *ast.Select:
			for i, t := range x.From {
				x.From[i] = replace(t)
			}
		case *ast.Join:
			x.Left = replace(x.Left)
			x.Right = replace(x.Right)
		case *ast.Update:
			for i, t := range x.From {
				x.From[i] = replace(t)
			}
		case *ast.Delete:
			for i, t := range x.Using {
				x.Using[i] = replace(t)
			}
		}
		return n
	}), nil
}

// tablesWithComments builds
//
//	SELECT T.*, EXT.COMMENT AS COMMENT
//	FROM cat.information_schema.tables AS T
//	LEFT JOIN cat._FS_INFORMATION_SCHEMA.TABLES_EXT AS EXT
//	  ON EXT.ext_table_catalog = T.table_catalog AND ...
//	WHERE T.table_catalog = 'cat' AND T.table_schema <> '_FS_INFORMATION_SCHEMA'
func tablesWithComments(cat string) *ast.Select {
	col := func(parts ...string) ast.Expr {
		ref := &ast.ColumnRef{}
		for _, p := range parts {
			ref.Parts = append(ref.Parts, ast.NewIdent(p))
		}
		return ref
	}
	eq := func(ext, native string) ast.Expr {
		return &ast.Binary{Op: "=", L: col("EXT", ext), R: col("T", native)}
	}
	on := &ast.Binary{Op: "AND",
		L: &ast.Binary{Op: "AND",
			L: eq("EXT_TABLE_CATALOG", "TABLE_CATALOG"),
			R: eq("EXT_TABLE_SCHEMA", "TABLE_SCHEMA")},
		R: eq("EXT_TABLE_NAME", "TABLE_NAME"),
	}

	return &ast.Select{
		Columns: []*ast.SelectItem{
			{Expr: &ast.Star{Qualifier: []*ast.Ident{ast.NewIdent("T")}}},
			{Expr: col("EXT", "COMMENT"), Alias: ast.NewIdent("COMMENT")},
		},
		From: []ast.TableExpr{&ast.Join{
			Kind: "LEFT",
			Left: &ast.TableRef{
				Name:  ast.NewObjectName(cat, "INFORMATION_SCHEMA", "TABLES"),
				Alias: &ast.Alias{Name: ast.NewIdent("T")},
			},
			Right: &ast.TableRef{
				Name:  ast.NewObjectName(cat, catalog.ExtensionSchema, catalog.TablesExt),
				Alias: &ast.Alias{Name: ast.NewIdent("EXT")},
			},
			On: on,
		}},
		Where: &ast.Binary{Op: "AND",
			L: &ast.Binary{Op: "=", L: col("T", "TABLE_CATALOG"), R: &ast.StringLit{Value: cat}},
			R: &ast.Binary{Op: "<>", L: col("T", "TABLE_SCHEMA"), R: &ast.StringLit{Value: catalog.ExtensionSchema}},
		},
	}
}
