package ast

import "fmt"

// Rewrite rewrites the tree bottom-up: the children of n are rewritten
// first, then fn is called on n and its result replaces n. fn must return a
// node that fits wherever n was (an Expr for an Expr, and so on).
func Rewrite(n Node, fn func(Node) Node) Node {
	if n == nil {
		return nil
	}
	eachChild(n, func(c Node) Node { return Rewrite(c, fn) })
	return fn(n)
}

// RewriteStatement is Rewrite for a statement root.
func RewriteStatement(s Statement, fn func(Node) Node) Statement {
	return Rewrite(s, fn).(Statement)
}

// Inspect walks the tree top-down. If fn returns false the children of n
// are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	eachChild(n, func(c Node) Node {
		Inspect(c, fn)
		return c
	})
}

func one[T Node](n T, f func(Node) Node) T {
	if any(n) == nil {
		return n
	}
	return f(n).(T)
}

func ptr[T any, PT interface {
	*T
	Node
}](n PT, f func(Node) Node) PT {
	if n == nil {
		return nil
	}
	return f(n).(PT)
}

func many[T Node](xs []T, f func(Node) Node) []T {
	for i := range xs {
		xs[i] = one(xs[i], f)
	}
	return xs
}

func rows(rs [][]Expr, f func(Node) Node) [][]Expr {
	for i := range rs {
		rs[i] = many(rs[i], f)
	}
	return rs
}

// eachChild replaces every child of n with f(child).
func eachChild(n Node, f func(Node) Node) {
	switch x := n.(type) {
	case *Ident, *StringLit, *NumberLit, *BoolLit, *NullLit, *Param,
		*DataType, *TableOption, *TagDDL, *Transaction, *Command, *NoOp,
		*SetSearchPath, *SetTableComment, *TagAction:
		// leaves

	case *ObjectName:
		x.Parts = many(x.Parts, f)
	case *Select:
		x.With = ptr(x.With, f)
		x.Columns = many(x.Columns, f)
		x.From = many(x.From, f)
		x.Where = one(x.Where, f)
		x.GroupBy = many(x.GroupBy, f)
		x.Having = one(x.Having, f)
		x.Qualify = one(x.Qualify, f)
		x.OrderBy = many(x.OrderBy, f)
		x.Limit = one(x.Limit, f)
		x.Offset = one(x.Offset, f)
	case *With:
		x.CTEs = many(x.CTEs, f)
	case *CTE:
		x.Name = ptr(x.Name, f)
		x.Columns = many(x.Columns, f)
		x.Query = one(x.Query, f)
	case *SelectItem:
		x.Expr = one(x.Expr, f)
		x.Alias = ptr(x.Alias, f)
	case *OrderItem:
		x.Expr = one(x.Expr, f)
	case *SetOperation:
		x.With = ptr(x.With, f)
		x.Left = one(x.Left, f)
		x.Right = one(x.Right, f)
		x.OrderBy = many(x.OrderBy, f)
		x.Limit = one(x.Limit, f)
		x.Offset = one(x.Offset, f)

	case *Insert:
		x.Table = ptr(x.Table, f)
		x.Columns = many(x.Columns, f)
		x.Values = rows(x.Values, f)
		x.Query = one(x.Query, f)
	case *Assignment:
		x.Column = ptr(x.Column, f)
		x.Value = one(x.Value, f)
	case *Update:
		x.Table = ptr(x.Table, f)
		x.Set = many(x.Set, f)
		x.From = many(x.From, f)
		x.Where = one(x.Where, f)
	case *Delete:
		x.Table = ptr(x.Table, f)
		x.Using = many(x.Using, f)
		x.Where = one(x.Where, f)
	case *Truncate:
		x.Name = ptr(x.Name, f)

	case *ColumnDef:
		x.Name = ptr(x.Name, f)
		x.Type = ptr(x.Type, f)
		x.Default = one(x.Default, f)
	case *TableConstraint:
		x.Name = ptr(x.Name, f)
		x.Columns = many(x.Columns, f)
		x.RefTable = ptr(x.RefTable, f)
		x.RefColumns = many(x.RefColumns, f)
	case *CreateTable:
		x.Name = ptr(x.Name, f)
		x.Columns = many(x.Columns, f)
		x.Constraints = many(x.Constraints, f)
		x.AsQuery = one(x.AsQuery, f)
		x.Like = ptr(x.Like, f)
		x.Options = many(x.Options, f)
	case *CreateView:
		x.Name = ptr(x.Name, f)
		x.Columns = many(x.Columns, f)
		x.Query = one(x.Query, f)
	case *CreateDatabase:
		x.Name = ptr(x.Name, f)
	case *CreateSchema:
		x.Name = ptr(x.Name, f)
	case *Drop:
		x.Names = many(x.Names, f)
	case *AlterTable:
		x.Name = ptr(x.Name, f)
		x.Action = one(x.Action, f)
	case *AddColumn:
		x.Column = ptr(x.Column, f)
	case *DropColumn:
		x.Column = ptr(x.Column, f)
	case *RenameTable:
		x.To = ptr(x.To, f)
	case *RenameColumn:
		x.From = ptr(x.From, f)
		x.To = ptr(x.To, f)
	case *AlterColumnComment:
		x.Column = ptr(x.Column, f)
	case *AlterColumnType:
		x.Column = ptr(x.Column, f)
		x.Type = ptr(x.Type, f)
	case *AlterColumnNotNull:
		x.Column = ptr(x.Column, f)
	case *AlterColumnDefault:
		x.Column = ptr(x.Column, f)
		x.Default = one(x.Default, f)
	case *CommentOn:
		x.Name = ptr(x.Name, f)

	case *Use:
		x.Name = ptr(x.Name, f)
	case *Describe:
		x.Name = ptr(x.Name, f)
		x.Query = one(x.Query, f)
	case *Attach:
		x.Name = ptr(x.Name, f)
	case *Detach:
		x.Name = ptr(x.Name, f)

	case *ColumnRef:
		x.Parts = many(x.Parts, f)
	case *Star:
		x.Qualifier = many(x.Qualifier, f)
		x.Exclude = many(x.Exclude, f)
	case *Unary:
		x.X = one(x.X, f)
	case *Binary:
		x.L = one(x.L, f)
		x.R = one(x.R, f)
	case *NamedArg:
		x.Value = one(x.Value, f)
	case *Window:
		x.PartitionBy = many(x.PartitionBy, f)
		x.OrderBy = many(x.OrderBy, f)
	case *FuncCall:
		x.Args = many(x.Args, f)
		x.WithinGroup = many(x.WithinGroup, f)
		x.Filter = one(x.Filter, f)
		x.Over = ptr(x.Over, f)
	case *Cast:
		x.X = one(x.X, f)
		x.Type = ptr(x.Type, f)
	case *When:
		x.Cond = one(x.Cond, f)
		x.Result = one(x.Result, f)
	case *Case:
		x.Operand = one(x.Operand, f)
		x.Whens = many(x.Whens, f)
		x.Else = one(x.Else, f)
	case *Between:
		x.X = one(x.X, f)
		x.Lo = one(x.Lo, f)
		x.Hi = one(x.Hi, f)
	case *InList:
		x.X = one(x.X, f)
		x.List = many(x.List, f)
	case *InSubquery:
		x.X = one(x.X, f)
		x.Query = one(x.Query, f)
	case *IsNull:
		x.X = one(x.X, f)
	case *Exists:
		x.Query = one(x.Query, f)
	case *Subquery:
		x.Query = one(x.Query, f)
	case *Paren:
		x.X = one(x.X, f)
	case *Bracket:
		x.X = one(x.X, f)
		x.Index = one(x.Index, f)
	case *PathAccess:
		x.X = one(x.X, f)
	case *JSONExtract:
		x.X = one(x.X, f)
	case *ArrayLit:
		x.Elems = many(x.Elems, f)
	case *KeyValue:
		x.Key = one(x.Key, f)
		x.Value = one(x.Value, f)
	case *ObjectLit:
		x.Pairs = many(x.Pairs, f)
	case *Interval:
		x.Value = one(x.Value, f)
	case *Extract:
		x.X = one(x.X, f)

	case *Alias:
		x.Name = ptr(x.Name, f)
		x.Columns = many(x.Columns, f)
	case *TableRef:
		x.Name = ptr(x.Name, f)
		x.Alias = ptr(x.Alias, f)
	case *DerivedTable:
		x.Query = one(x.Query, f)
		x.Alias = ptr(x.Alias, f)
	case *ValuesTable:
		x.Rows = rows(x.Rows, f)
		x.Alias = ptr(x.Alias, f)
	case *TableFunc:
		x.Func = ptr(x.Func, f)
		x.Alias = ptr(x.Alias, f)
	case *Join:
		x.Left = one(x.Left, f)
		x.Right = one(x.Right, f)
		x.On = one(x.On, f)
		x.Using = many(x.Using, f)

	default:
		panic(fmt.Sprintf("ast: unknown node %T", n))
	}
}
