package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

var semiStructuredTypes = map[string]bool{
	"VARIANT": true,
	"OBJECT":  true,
	"ARRAY":   true,
}

// semiStructured maps VARIANT, OBJECT and ARRAY values onto the engine's
// JSON type and its -> / ->> path operators.
func semiStructured(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return rewrite(stmt, func(n ast.Node) ast.Node {
		switch x := n.(type) {
		case *ast.DataType:
			if semiStructuredTypes[x.Name] {
				x.Name, x.Params = "JSON", nil
			}
		case *ast.FuncCall:
			if fn, ok := jsonRewrites[x.Name]; ok {
				return fn(x)
			}
		case *ast.ArrayLit:
			return call("to_json", x)
		case *ast.ObjectLit:
			return call("to_json", x)
		case *ast.Bracket:
			if seg, ok := bracketSegment(x.Index); ok {
				return extend(x.X, []ast.PathSegment{seg})
			}
		case *ast.PathAccess:
			return extend(x.X, x.Path)
		case *ast.Cast:
			if je, ok := x.X.(*ast.JSONExtract); ok && isTextType(x.Type) && !x.Try {
				je.Scalar = true
				return je
			}
		case *ast.ValuesTable:
			valuesColumns(x)
		}
		return n
	}), nil
}

var jsonRewrites = map[string]func(*ast.FuncCall) ast.Expr{
	"PARSE_JSON":       parseJSON,
	"TRY_PARSE_JSON":   tryParseJSON,
	"OBJECT_CONSTRUCT": objectConstruct,
	"ARRAY_CONSTRUCT":  arrayConstruct,
	"ARRAY_SIZE":       renameTo("json_array_length"),
	"TO_VARIANT":       renameTo("to_json"),
	"GET":              getElement,
	"GET_PATH":         getPath,
}

func renameTo(name string) func(*ast.FuncCall) ast.Expr {
	return func(fc *ast.FuncCall) ast.Expr {
		fc.Name = name
		return fc
	}
}

func parseJSON(fc *ast.FuncCall) ast.Expr {
	fc.Name = "json"
	return fc
}

// TRY_PARSE_JSON(x) yields NULL for invalid input instead of failing.
func tryParseJSON(fc *ast.FuncCall) ast.Expr {
	x := arg(fc, 0)
	if x == nil {
		return fc
	}
	return &ast.Case{
		Whens: []*ast.When{{Cond: call("json_valid", x), Result: call("json", x)}},
	}
}

// objectConstruct builds a JSON object. Pairs with a NULL value are left
// out, as the warehouse does.
func objectConstruct(fc *ast.FuncCall) ast.Expr {
	if fc.Star || len(fc.Args)%2 != 0 {
		return fc
	}
	literalKeys := true
	for i := 0; i < len(fc.Args); i += 2 {
		if _, ok := fc.Args[i].(*ast.StringLit); !ok {
			literalKeys = false
		}
	}
	if !literalKeys {
		fc.Name = "json_object"
		return fc
	}
	obj := &ast.ObjectLit{}
	for i := 0; i < len(fc.Args); i += 2 {
		if _, isNull := fc.Args[i+1].(*ast.NullLit); isNull {
			continue
		}
		obj.Pairs = append(obj.Pairs, &ast.KeyValue{Key: fc.Args[i], Value: fc.Args[i+1]})
	}
	return call("to_json", obj)
}

func arrayConstruct(fc *ast.FuncCall) ast.Expr {
	return call("to_json", &ast.ArrayLit{Elems: fc.Args})
}

// GET(x, index_or_key)
func getElement(fc *ast.FuncCall) ast.Expr {
	if len(fc.Args) != 2 {
		return fc
	}
	seg, ok := bracketSegment(fc.Args[1])
	if !ok {
		return fc
	}
	return extend(fc.Args[0], []ast.PathSegment{seg})
}

// GET_PATH(x, 'a.b[0]')
func getPath(fc *ast.FuncCall) ast.Expr {
	if len(fc.Args) != 2 {
		return fc
	}
	lit, ok := fc.Args[1].(*ast.StringLit)
	if !ok {
		return fc
	}
	path := lit.Value
	if !strings.HasPrefix(path, "[") {
		path = "." + path
	}
	return &ast.JSONExtract{X: fc.Args[0], Path: "$" + path}
}

// bracketSegment converts a literal subscript into a path step.
func bracketSegment(index ast.Expr) (ast.PathSegment, bool) {
	switch ix := index.(type) {
	case *ast.NumberLit:
		n, err := strconv.Atoi(ix.Raw)
		if err != nil || n < 0 {
			return ast.PathSegment{}, false
		}
		return ast.PathSegment{Index: n}, true
	case *ast.StringLit:
		return ast.PathSegment{Key: ix.Value, IsKey: true}, true
	}
	return ast.PathSegment{}, false
}

// extend appends path steps to x, merging with an extraction x already is.
func extend(x ast.Expr, path []ast.PathSegment) ast.Expr {
	if je, ok := x.(*ast.JSONExtract); ok && !je.Scalar {
		je.Path += jsonPath(path)
		return je
	}
	return &ast.JSONExtract{X: x, Path: "$" + jsonPath(path)}
}

// jsonPath renders path steps in JSONPath syntax, without the leading $.
func jsonPath(path []ast.PathSegment) string {
	var sb strings.Builder
	for _, seg := range path {
		switch {
		case !seg.IsKey:
			fmt.Fprintf(&sb, "[%d]", seg.Index)
		case simpleKey(seg.Key):
			sb.WriteString("." + seg.Key)
		default:
			sb.WriteString(`."` + strings.ReplaceAll(seg.Key, `"`, `\"`) + `"`)
		}
	}
	return sb.String()
}

func simpleKey(k string) bool {
	if k == "" {
		return false
	}
	for i, c := range k {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func isTextType(dt *ast.DataType) bool {
	return dt != nil && (varyingText[dt.Name] || fixedText[dt.Name])
}

// valuesColumns names VALUES columns COLUMN1, COLUMN2... as the warehouse
// does.
func valuesColumns(v *ast.ValuesTable) {
	if len(v.Rows) == 0 || (v.Alias != nil && len(v.Alias.Columns) > 0) {
		return
	}
	if v.Alias == nil {
		v.Alias = &ast.Alias{Name: ast.NewIdent("_")}
	}
	for i := range v.Rows[0] {
		v.Alias.Columns = append(v.Alias.Columns, &ast.Ident{Value: "COLUMN" + strconv.Itoa(i+1), Quoted: true})
	}
}
