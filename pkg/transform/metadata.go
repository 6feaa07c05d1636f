package transform

import (
	stderrors "errors"
	"strconv"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// MaxTextLength is the warehouse's largest VARCHAR, in characters. Text
// columns declared without a length get this bound.
const MaxTextLength = 16777216

// varyingText lists the text types whose length is an upper bound.
var varyingText = map[string]bool{
	"VARCHAR":           true,
	"STRING":            true,
	"TEXT":              true,
	"NVARCHAR":          true,
	"NVARCHAR2":         true,
	"CHAR VARYING":      true,
	"NCHAR VARYING":     true,
	"CHARACTER VARYING": true,
}

// fixedText lists the text types that default to a single character.
var fixedText = map[string]bool{
	"CHAR":      true,
	"NCHAR":     true,
	"CHARACTER": true,
}

// textLength returns the declared character length of a text type and
// drops it from the type. Lengths above MaxTextLength are rejected.
func textLength(dt *ast.DataType) (int, bool, error) {
	if dt == nil {
		return 0, false, nil
	}
	size := 0
	switch {
	case varyingText[dt.Name]:
		size = MaxTextLength
	case fixedText[dt.Name]:
		size = 1
	default:
		return 0, false, nil
	}
	if len(dt.Params) > 0 {
		n, err := strconv.ParseInt(dt.Params[0], 10, 64)
		if (err == nil && n > MaxTextLength) || stderrors.Is(err, strconv.ErrRange) {
			return 0, false, errors.Newf(errors.ErrCodeInvalidParameter,
				"Length %s of type %s exceeds the maximum of %d.",
				dt.Params[0], dt.Name, MaxTextLength).WithOp("transform.textLength").Err()
		}
		if err == nil && n > 0 {
			size = int(n)
		}
		dt.Params = nil
	}
	return size, true, nil
}

// extractMetadata moves comments and text lengths out of DDL into
// annotations. Statements that only set a comment become no-ops.
func extractMetadata(stmt ast.Statement, env *Env) (ast.Statement, error) {
	ann := env.Annotations

	column := func(table QualifiedName, c *ast.ColumnDef) error {
		if c.Comment != nil {
			ann.ColumnComments = append(ann.ColumnComments, ColumnComment{
				Table: table, Column: c.Name.Value, Comment: *c.Comment,
			})
			c.Comment = nil
		}
		n, ok, err := textLength(c.Type)
		if err != nil {
			return err
		}
		if ok {
			ann.TextLengths = append(ann.TextLengths, ColumnLength{
				Table: table, Column: c.Name.Value, MaxChars: n,
			})
		}
		return nil
	}

	switch s := stmt.(type) {
	case *ast.CreateTable:
		table := env.qualify(s.Name)
		if s.Comment != nil {
			ann.TableComment = &TableComment{Table: table, Comment: *s.Comment}
			s.Comment = nil
		}
		for _, c := range s.Columns {
			if err := column(table, c); err != nil {
				return nil, err
			}
		}

	case *ast.CreateView:
		if s.Comment != nil {
			ann.TableComment = &TableComment{Table: env.qualify(s.Name), Comment: *s.Comment}
			s.Comment = nil
		}

	case *ast.AlterTable:
		table := env.qualify(s.Name)
		switch a := s.Action.(type) {
		case *ast.AddColumn:
			if err := column(table, a.Column); err != nil {
				return nil, err
			}
		case *ast.AlterColumnType:
			n, ok, err := textLength(a.Type)
			if err != nil {
				return nil, err
			}
			if ok {
				ann.TextLengths = append(ann.TextLengths, ColumnLength{
					Table: table, Column: a.Column.Value, MaxChars: n,
				})
			}
		case *ast.SetTableComment:
			ann.TableComment = &TableComment{Table: table, Comment: a.Comment}
			return &ast.NoOp{Status: StatusSuccess}, nil
		case *ast.AlterColumnComment:
			ann.ColumnComments = append(ann.ColumnComments, ColumnComment{
				Table: table, Column: a.Column.Value, Comment: a.Comment,
			})
			return &ast.NoOp{Status: StatusSuccess}, nil
		}

	case *ast.CommentOn:
		switch s.Kind {
		case ast.KindTable, ast.KindView:
			ann.TableComment = &TableComment{Table: env.qualify(s.Name), Comment: s.Comment}
		case ast.KindColumn:
			parts := s.Name.Parts
			if len(parts) >= 2 {
				table := env.qualify(&ast.ObjectName{Parts: parts[:len(parts)-1]})
				ann.ColumnComments = append(ann.ColumnComments, ColumnComment{
					Table: table, Column: parts[len(parts)-1].Value, Comment: s.Comment,
				})
			}
		}
		return &ast.NoOp{Status: StatusSuccess}, nil
	}
	return stmt, nil
}
