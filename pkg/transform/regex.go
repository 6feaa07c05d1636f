package transform

import (
	"strings"

	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

func call(name string, args ...ast.Expr) *ast.FuncCall {
	return &ast.FuncCall{Name: name, Args: args}
}

func str(s string) ast.Expr { return &ast.StringLit{Value: s} }

func num(raw string) ast.Expr { return &ast.NumberLit{Raw: raw} }

// arg returns the i-th argument or nil.
func arg(fc *ast.FuncCall, i int) ast.Expr {
	if i < len(fc.Args) {
		return fc.Args[i]
	}
	return nil
}

// isNumber reports whether e is the integer literal raw.
func isNumber(e ast.Expr, raw string) bool {
	n, ok := e.(*ast.NumberLit)
	return ok && n.Raw == raw
}

// regexFlags drops the warehouse-only 'e' (extract sub-match) flag from a
// literal parameter string. It reports whether 'e' was present.
func regexFlags(e ast.Expr) (ast.Expr, bool) {
	lit, ok := e.(*ast.StringLit)
	if !ok {
		return e, false
	}
	if !strings.Contains(lit.Value, "e") {
		return e, false
	}
	return str(strings.ReplaceAll(lit.Value, "e", "")), true
}

// fromPosition returns subject starting at the 1-based position pos.
func fromPosition(subject, pos ast.Expr) ast.Expr {
	if pos == nil || isNumber(pos, "1") {
		return subject
	}
	return call("substring", subject, pos)
}

// regexFunctions maps the warehouse regex functions onto the engine's.
// Warehouse patterns match the whole subject, the engine's partial match
// does not, hence regexp_full_match.
func regexFunctions(stmt ast.Statement, _ *Env) (ast.Statement, error) {
	return rewrite(stmt, func(n ast.Node) ast.Node {
		switch x := n.(type) {
		case *ast.Binary:
			switch x.Op {
			case "RLIKE":
				return call("regexp_full_match", x.L, x.R)
			case "NOT RLIKE":
				return &ast.Unary{Op: "NOT", X: call("regexp_full_match", x.L, x.R)}
			}
		case *ast.FuncCall:
			if fn, ok := regexRewrites[x.Name]; ok && len(x.Args) >= 2 {
				return fn(x)
			}
		}
		return n
	}), nil
}

var regexRewrites = map[string]func(*ast.FuncCall) ast.Expr{
	"REGEXP_LIKE":    regexpLike,
	"RLIKE":          regexpLike,
	"REGEXP_SUBSTR":  regexpSubstr,
	"REGEXP_REPLACE": regexpReplace,
	"REGEXP_COUNT":   regexpCount,
}

// REGEXP_LIKE(subject, pattern [, parameters])
func regexpLike(fc *ast.FuncCall) ast.Expr {
	args := []ast.Expr{fc.Args[0], fc.Args[1]}
	if p := arg(fc, 2); p != nil {
		p, _ = regexFlags(p)
		args = append(args, p)
	}
	return call("regexp_full_match", args...)
}

// REGEXP_SUBSTR(subject, pattern [, position [, occurrence [, parameters [, group]]]])
func regexpSubstr(fc *ast.FuncCall) ast.Expr {
	subject := fromPosition(fc.Args[0], arg(fc, 2))

	occurrence := arg(fc, 3)
	if occurrence == nil {
		occurrence = num("1")
	}
	params := arg(fc, 4)
	extract := false
	if params == nil {
		params = str("c")
	} else {
		params, extract = regexFlags(params)
	}
	group := arg(fc, 5)
	if group == nil {
		group = num("0")
		if extract {
			group = num("1")
		}
	}

	all := call("regexp_extract_all", subject, fc.Args[1], group, params)
	return call("list_extract", all, occurrence)
}

// REGEXP_REPLACE(subject, pattern [, replacement [, position [, occurrence [, parameters]]]])
func regexpReplace(fc *ast.FuncCall) ast.Expr {
	replacement := arg(fc, 2)
	if replacement == nil {
		replacement = str("")
	}

	// Occurrence 0, the default, replaces every match. Any other occurrence
	// replaces the first match only.
	flags := "g"
	if occ := arg(fc, 4); occ != nil && !isNumber(occ, "0") {
		flags = ""
	}
	var options ast.Expr = str(flags)
	if p := arg(fc, 5); p != nil {
		p, _ = regexFlags(p)
		if lit, ok := p.(*ast.StringLit); ok {
			options = str(lit.Value + flags)
		} else {
			options = &ast.Binary{Op: "||", L: p, R: str(flags)}
		}
	}

	pos := arg(fc, 3)
	if pos == nil || isNumber(pos, "1") {
		return call("regexp_replace", fc.Args[0], fc.Args[1], replacement, options)
	}
	// Keep the prefix before the start position untouched.
	prefix := call("substring", fc.Args[0], num("1"), &ast.Binary{Op: "-", L: pos, R: num("1")})
	rest := call("regexp_replace", call("substring", fc.Args[0], pos), fc.Args[1], replacement, options)
	return &ast.Binary{Op: "||", L: prefix, R: rest}
}

// REGEXP_COUNT(subject, pattern [, position [, parameters]])
func regexpCount(fc *ast.FuncCall) ast.Expr {
	subject := fromPosition(fc.Args[0], arg(fc, 2))
	params := arg(fc, 3)
	if params == nil {
		params = str("c")
	} else {
		params, _ = regexFlags(params)
	}
	return call("len", call("regexp_extract_all", subject, fc.Args[1], num("0"), params))
}
