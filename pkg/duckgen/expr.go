package duckgen

import (
	"strconv"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

const (
	precOr = iota + 1
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precAtom
)

func binaryPrec(op string) int {
	switch op {
	case "OR":
		return precOr
	case "AND":
		return precAnd
	case "+", "-", "||":
		return precAdd
	case "*", "/", "%":
		return precMul
	default:
		return precCmp
	}
}

// exprPrec reports how tightly the rendered form of e binds.
func exprPrec(e ast.Expr) int {
	switch x := e.(type) {
	case *ast.Binary:
		return binaryPrec(x.Op)
	case *ast.Unary:
		if x.Op == "NOT" {
			return precNot
		}
		return precAtom
	case *ast.Between, *ast.InList, *ast.InSubquery, *ast.IsNull, *ast.JSONExtract:
		return precCmp
	default:
		return precAtom
	}
}

// operand renders e, parenthesised when it binds looser than min.
func (g *generator) operand(e ast.Expr, min int) {
	if exprPrec(e) < min {
		g.w("(")
		g.expr(e)
		g.w(")")
		return
	}
	g.expr(e)
}

func (g *generator) exprs(list []ast.Expr) {
	for i, e := range list {
		if i > 0 {
			g.w(", ")
		}
		g.expr(e)
	}
}

func (g *generator) expr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.ColumnRef:
		g.dotted(x.Parts)
	case *ast.Star:
		if len(x.Qualifier) > 0 {
			g.dotted(x.Qualifier)
			g.w(".")
		}
		g.w("*")
		if len(x.Exclude) > 0 {
			g.w(" EXCLUDE (")
			g.idents(x.Exclude)
			g.w(")")
		}
	case *ast.StringLit:
		g.w(QuoteString(x.Value))
	case *ast.NumberLit:
		g.w(x.Raw)
	case *ast.BoolLit:
		if x.Value {
			g.w("TRUE")
		} else {
			g.w("FALSE")
		}
	case *ast.NullLit:
		g.w("NULL")
	case *ast.Param:
		switch {
		case x.Index > 0:
			g.w("$" + strconv.Itoa(x.Index))
		case x.Name != "":
			g.w("$" + x.Name)
		default:
			g.w("?")
		}
	case *ast.Unary:
		if x.Op == "NOT" {
			g.w("NOT ")
			g.operand(x.X, precNot)
			return
		}
		g.w(x.Op)
		if _, nested := x.X.(*ast.Unary); nested {
			// "--x" would start a comment
			g.w("(")
			g.expr(x.X)
			g.w(")")
			return
		}
		g.operand(x.X, precAtom)
	case *ast.Binary:
		p := binaryPrec(x.Op)
		g.operand(x.L, p)
		g.w(" " + x.Op + " ")
		g.operand(x.R, p+1)
	case *ast.NamedArg:
		g.w(strings.ToLower(x.Name))
		g.w(" := ")
		g.expr(x.Value)
	case *ast.FuncCall:
		g.funcCall(x)
	case *ast.Cast:
		if x.Try {
			g.w("TRY_CAST(")
		} else {
			g.w("CAST(")
		}
		g.expr(x.X)
		g.w(" AS ")
		g.dataType(x.Type)
		g.w(")")
	case *ast.Case:
		g.w("CASE")
		if x.Operand != nil {
			g.w(" ")
			g.expr(x.Operand)
		}
		for _, wh := range x.Whens {
			g.w(" WHEN ")
			g.expr(wh.Cond)
			g.w(" THEN ")
			g.expr(wh.Result)
		}
		if x.Else != nil {
			g.w(" ELSE ")
			g.expr(x.Else)
		}
		g.w(" END")
	case *ast.Between:
		g.operand(x.X, precAdd)
		if x.Not {
			g.w(" NOT")
		}
		g.w(" BETWEEN ")
		g.operand(x.Lo, precAdd)
		g.w(" AND ")
		g.operand(x.Hi, precAdd)
	case *ast.InList:
		g.operand(x.X, precAdd)
		if x.Not {
			g.w(" NOT")
		}
		g.w(" IN (")
		g.exprs(x.List)
		g.w(")")
	case *ast.InSubquery:
		g.operand(x.X, precAdd)
		if x.Not {
			g.w(" NOT")
		}
		g.w(" IN (")
		g.statement(x.Query)
		g.w(")")
	case *ast.IsNull:
		g.operand(x.X, precAdd)
		if x.Not {
			g.w(" IS NOT NULL")
		} else {
			g.w(" IS NULL")
		}
	case *ast.Exists:
		if x.Not {
			g.w("NOT ")
		}
		g.w("EXISTS (")
		g.statement(x.Query)
		g.w(")")
	case *ast.Subquery:
		g.w("(")
		g.statement(x.Query)
		g.w(")")
	case *ast.Paren:
		g.w("(")
		g.expr(x.X)
		g.w(")")
	case *ast.Bracket:
		g.operand(x.X, precAtom)
		g.w("[")
		g.expr(x.Index)
		g.w("]")
	case *ast.JSONExtract:
		g.operand(x.X, precAtom)
		if x.Scalar {
			g.w(" ->> ")
		} else {
			g.w(" -> ")
		}
		g.w(QuoteString(x.Path))
	case *ast.ArrayLit:
		g.w("[")
		g.exprs(x.Elems)
		g.w("]")
	case *ast.ObjectLit:
		g.w("{")
		for i, kv := range x.Pairs {
			if i > 0 {
				g.w(", ")
			}
			g.expr(kv.Key)
			g.w(": ")
			g.expr(kv.Value)
		}
		g.w("}")
	case *ast.Interval:
		g.w("INTERVAL ")
		g.operand(x.Value, precAtom)
		if x.Unit != "" {
			g.w(" " + x.Unit)
		}
	case *ast.Extract:
		g.w("EXTRACT(" + x.Field + " FROM ")
		g.expr(x.X)
		g.w(")")
	case *ast.PathAccess:
		g.unrewritten(x)
	default:
		g.unrewritten(e)
	}
}

func (g *generator) funcCall(fc *ast.FuncCall) {
	g.w(fc.Name)
	g.w("(")
	switch {
	case fc.Star:
		g.w("*")
	case fc.Distinct:
		g.w("DISTINCT ")
		g.exprs(fc.Args)
	default:
		g.exprs(fc.Args)
	}
	g.w(")")
	if len(fc.WithinGroup) > 0 {
		g.w(" WITHIN GROUP (ORDER BY ")
		g.orderItems(fc.WithinGroup)
		g.w(")")
	}
	if fc.Filter != nil {
		g.w(" FILTER (WHERE ")
		g.expr(fc.Filter)
		g.w(")")
	}
	if fc.Over != nil {
		g.w(" OVER (")
		sep := ""
		if len(fc.Over.PartitionBy) > 0 {
			g.w("PARTITION BY ")
			g.exprs(fc.Over.PartitionBy)
			sep = " "
		}
		if len(fc.Over.OrderBy) > 0 {
			g.w(sep + "ORDER BY ")
			g.orderItems(fc.Over.OrderBy)
			sep = " "
		}
		if fc.Over.Frame != "" {
			g.w(sep + fc.Over.Frame)
		}
		g.w(")")
	}
}

// reserved holds DuckDB keywords that cannot appear as bare identifiers.
var reserved = map[string]bool{
	"ALL": true, "ANALYSE": true, "ANALYZE": true, "AND": true, "ANY": true,
	"ARRAY": true, "AS": true, "ASC": true, "ASYMMETRIC": true, "BOTH": true,
	"CASE": true, "CAST": true, "CHECK": true, "COLLATE": true, "COLUMN": true,
	"CONSTRAINT": true, "CREATE": true, "DEFAULT": true, "DEFERRABLE": true,
	"DESC": true, "DESCRIBE": true, "DISTINCT": true, "DO": true, "ELSE": true,
	"END": true, "EXCEPT": true, "FALSE": true, "FETCH": true, "FOR": true,
	"FOREIGN": true, "FROM": true, "GRANT": true, "GROUP": true, "HAVING": true,
	"IN": true, "INITIALLY": true, "INTERSECT": true, "INTO": true,
	"LATERAL": true, "LEADING": true, "LIMIT": true, "NOT": true, "NULL": true,
	"OFFSET": true, "ON": true, "ONLY": true, "OR": true, "ORDER": true,
	"PIVOT": true, "PIVOT_LONGER": true, "PIVOT_WIDER": true, "PLACING": true,
	"PRIMARY": true, "QUALIFY": true, "REFERENCES": true, "RETURNING": true,
	"SELECT": true, "SHOW": true, "SOME": true, "SUMMARIZE": true,
	"SYMMETRIC": true, "TABLE": true, "THEN": true, "TO": true,
	"TRAILING": true, "TRUE": true, "UNION": true, "UNIQUE": true,
	"UNPIVOT": true, "USING": true, "VARIADIC": true, "WHEN": true,
	"WHERE": true, "WINDOW": true, "WITH": true,
}

func isReserved(s string) bool {
	return reserved[strings.ToUpper(s)]
}
