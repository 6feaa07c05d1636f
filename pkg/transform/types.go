package transform

import (
	"strings"

	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// retype applies fn to every data type in the statement.
func retype(stmt ast.Statement, fn func(dt *ast.DataType)) ast.Statement {
	return rewrite(stmt, func(n ast.Node) ast.Node {
		if dt, ok := n.(*ast.DataType); ok {
			fn(dt)
		}
		return n
	})
}

var naiveTimestamps = map[string]bool{
	"TIMESTAMP":                   true,
	"TIMESTAMP_NTZ":               true,
	"TIMESTAMPNTZ":                true,
	"DATETIME":                    true,
	"TIMESTAMP WITHOUT TIME ZONE": true,
}

var zonedTimestamps = map[string]bool{
	"TIMESTAMP_TZ":                   true,
	"TIMESTAMPTZ":                    true,
	"TIMESTAMP_LTZ":                  true,
	"TIMESTAMPLTZ":                   true,
	"TIMESTAMP WITH TIME ZONE":       true,
	"TIMESTAMP WITH LOCAL TIME ZONE": true,
}

// temporal maps timestamp types to the engine's and rewrites TO_DATE.
func temporal(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return rewrite(stmt, func(n ast.Node) ast.Node {
		switch x := n.(type) {
		case *ast.DataType:
			switch {
			case naiveTimestamps[x.Name]:
				// Nanosecond precision needs the engine's nanosecond type.
				if len(x.Params) == 1 && x.Params[0] == "9" {
					x.Name = "TIMESTAMP_NS"
				} else {
					x.Name = "TIMESTAMP"
				}
				x.Params = nil
			case zonedTimestamps[x.Name]:
				x.Name, x.Params = "TIMESTAMPTZ", nil
			case x.Name == "TIME":
				x.Params = nil
			}
		case *ast.FuncCall:
			if x.Name == "TO_DATE" || x.Name == "DATE" {
				return toDate(x)
			}
		}
		return n
	}), nil
}

func toDate(fc *ast.FuncCall) ast.Expr {
	date := &ast.DataType{Name: "DATE"}
	switch len(fc.Args) {
	case 1:
		return &ast.Cast{X: fc.Args[0], Type: date}
	case 2:
		format := fc.Args[1]
		if lit, ok := format.(*ast.StringLit); ok {
			if strings.EqualFold(lit.Value, "AUTO") {
				return &ast.Cast{X: fc.Args[0], Type: date}
			}
			format = str(StrftimeFormat(lit.Value))
		}
		return &ast.Cast{X: call("strptime", fc.Args[0], format), Type: date}
	}
	return fc
}

// dateParts maps warehouse format elements to strftime directives. Longer
// elements come first so that a prefix never shadows them.
var dateParts = []struct{ elem, directive string }{
	{"YYYY", "%Y"},
	{"MMMM", "%B"},
	{"HH24", "%H"},
	{"HH12", "%I"},
	{"FF9", "%n"},
	{"FF6", "%f"},
	{"FF3", "%g"},
	{"MON", "%b"},
	{"DY", "%a"},
	{"YY", "%y"},
	{"MM", "%m"},
	{"DD", "%d"},
	{"HH", "%H"},
	{"MI", "%M"},
	{"SS", "%S"},
	{"FF", "%n"},
	{"AM", "%p"},
	{"PM", "%p"},
	{"TZH", "%z"},
}

// StrftimeFormat converts a warehouse date format such as 'YYYY-MM-DD' into
// the engine's strftime format. Text in double quotes is copied verbatim.
func StrftimeFormat(format string) string {
	var sb strings.Builder
	upper := strings.ToUpper(format)
	for i := 0; i < len(format); {
		if format[i] == '"' {
			end := strings.IndexByte(format[i+1:], '"')
			if end < 0 {
				sb.WriteString(format[i+1:])
				break
			}
			sb.WriteString(strings.ReplaceAll(format[i+1:i+1+end], "%", "%%"))
			i += end + 2
			continue
		}
		matched := false
		for _, p := range dateParts {
			if strings.HasPrefix(upper[i:], p.elem) {
				sb.WriteString(p.directive)
				i += len(p.elem)
				matched = true
				break
			}
		}
		if !matched {
			if format[i] == '%' {
				sb.WriteString("%%")
			} else {
				sb.WriteByte(format[i])
			}
			i++
		}
	}
	return sb.String()
}

var floatTypes = map[string]bool{
	"FLOAT":            true,
	"FLOAT4":           true,
	"FLOAT8":           true,
	"REAL":             true,
	"DOUBLE":           true,
	"DOUBLE PRECISION": true,
}

// floatToDouble maps every floating point type to DOUBLE; the warehouse
// stores all of them as 64-bit floats.
func floatToDouble(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return retype(stmt, func(dt *ast.DataType) {
		if floatTypes[dt.Name] {
			dt.Name, dt.Params = "DOUBLE", nil
		}
	}), nil
}

var integerTypes = map[string]bool{
	"INT":      true,
	"INTEGER":  true,
	"BIGINT":   true,
	"SMALLINT": true,
	"TINYINT":  true,
	"BYTEINT":  true,
}

var decimalTypes = map[string]bool{
	"NUMBER":  true,
	"NUMERIC": true,
	"DECIMAL": true,
}

// integerPrecision maps the warehouse's 38 digit integers onto BIGINT.
// The columns view and the result translator report BIGINT as precision
// 38, scale 0.
func integerPrecision(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return retype(stmt, func(dt *ast.DataType) {
		switch {
		case integerTypes[dt.Name]:
			dt.Name, dt.Params = "BIGINT", nil
		case decimalTypes[dt.Name]:
			precision, scale := "38", "0"
			if len(dt.Params) > 0 {
				precision = strings.TrimSpace(dt.Params[0])
			}
			if len(dt.Params) > 1 {
				scale = strings.TrimSpace(dt.Params[1])
			}
			if precision == "38" && scale == "0" {
				dt.Name, dt.Params = "BIGINT", nil
				return
			}
			dt.Name, dt.Params = "DECIMAL", []string{precision, scale}
		}
	}), nil
}

var binaryTypes = map[string]bool{
	"BINARY":    true,
	"VARBINARY": true,
}

// textTypes maps every text type to VARCHAR without a length; declared
// lengths were recorded by extractMetadata. Binary types become BLOB.
func textTypes(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return retype(stmt, func(dt *ast.DataType) {
		switch {
		case varyingText[dt.Name], fixedText[dt.Name]:
			dt.Name, dt.Params = "VARCHAR", nil
		case binaryTypes[dt.Name]:
			dt.Name, dt.Params = "BLOB", nil
		}
	}), nil
}
