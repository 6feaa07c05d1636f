// Package ast defines the syntax tree for warehouse SQL.
//
// The node set is closed: every node implements an unexported marker method,
// so only this package can add variants. Rewrite and Inspect visit every
// variant and panic on a node they do not know.
package ast

import "strings"

// Node is any syntax tree node.
type Node interface {
	node()
}

// Statement is a top-level SQL statement.
type Statement interface {
	Node
	stmtNode()
}

// Query is a statement producing rows: a SELECT or a set operation.
type Query interface {
	Statement
	queryNode()
}

// Expr is a scalar expression.
type Expr interface {
	Node
	exprNode()
}

// TableExpr is an item of a FROM clause.
type TableExpr interface {
	Node
	tableNode()
}

// AlterAction is the action of an ALTER TABLE statement.
type AlterAction interface {
	Node
	alterNode()
}

// ---------------------------------------------------------------------------
// Names

// Ident is an identifier. Quoted identifiers keep their case.
type Ident struct {
	Value  string
	Quoted bool
}

// NewIdent returns an unquoted identifier.
func NewIdent(v string) *Ident { return &Ident{Value: v} }

// EqualFold compares the identifier with s, ignoring case for unquoted names.
func (i *Ident) EqualFold(s string) bool {
	if i == nil {
		return false
	}
	if i.Quoted {
		return i.Value == s
	}
	return strings.EqualFold(i.Value, s)
}

// Folded returns the name the warehouse resolves: upper case unless quoted.
func (i *Ident) Folded() string {
	if i.Quoted {
		return i.Value
	}
	return strings.ToUpper(i.Value)
}

// ObjectName is a dotted name such as db.schema.table.
type ObjectName struct {
	Parts []*Ident
}

// NewObjectName builds an unquoted name from parts, skipping empty ones.
func NewObjectName(parts ...string) *ObjectName {
	n := &ObjectName{}
	for _, p := range parts {
		if p != "" {
			n.Parts = append(n.Parts, NewIdent(p))
		}
	}
	return n
}

// Last returns the final part.
func (n *ObjectName) Last() *Ident {
	if n == nil || len(n.Parts) == 0 {
		return nil
	}
	return n.Parts[len(n.Parts)-1]
}

// part returns the i-th part counting from the end (0 = last) or nil.
func (n *ObjectName) part(fromEnd int) *Ident {
	if n == nil || fromEnd >= len(n.Parts) {
		return nil
	}
	return n.Parts[len(n.Parts)-1-fromEnd]
}

// Schema returns the schema qualifier of a table-level name.
func (n *ObjectName) Schema() *Ident { return n.part(1) }

// Catalog returns the catalog qualifier of a table-level name.
func (n *ObjectName) Catalog() *Ident { return n.part(2) }

// String joins the raw parts with dots.
func (n *ObjectName) String() string {
	if n == nil {
		return ""
	}
	parts := make([]string, len(n.Parts))
	for i, p := range n.Parts {
		parts[i] = p.Value
	}
	return strings.Join(parts, ".")
}

// ---------------------------------------------------------------------------
// Queries

// Select is a SELECT query block.
type Select struct {
	With     *With
	Distinct bool
	Columns  []*SelectItem
	From     []TableExpr
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Qualify  Expr
	OrderBy  []*OrderItem
	Limit    Expr
	Offset   Expr
}

// With is a WITH clause.
type With struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE is one common table expression.
type CTE struct {
	Name    *Ident
	Columns []*Ident
	Query   Query
}

// SelectItem is one projected column.
type SelectItem struct {
	Expr  Expr
	Alias *Ident
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool
}

// SetOperation combines two queries.
type SetOperation struct {
	With    *With
	Op      string // UNION, UNION ALL, INTERSECT, EXCEPT
	Left    Query
	Right   Query
	OrderBy []*OrderItem
	Limit   Expr
	Offset  Expr
}

// ---------------------------------------------------------------------------
// Data manipulation

// Insert is INSERT INTO ... VALUES or INSERT INTO ... SELECT.
type Insert struct {
	Overwrite bool
	Table     *ObjectName
	Columns   []*Ident
	Values    [][]Expr
	Query     Query
}

// Assignment is col = value in UPDATE.
type Assignment struct {
	Column *Ident
	Value  Expr
}

// Update is an UPDATE statement.
type Update struct {
	Table *TableRef
	Set   []*Assignment
	From  []TableExpr
	Where Expr
}

// Delete is a DELETE statement.
type Delete struct {
	Table *TableRef
	Using []TableExpr
	Where Expr
}

// Truncate is TRUNCATE [TABLE] [IF EXISTS] name.
type Truncate struct {
	IfExists bool
	Name     *ObjectName
}

// ---------------------------------------------------------------------------
// Definitions

// DataType is a column or cast type.
type DataType struct {
	Name   string // upper-cased, multi-word names joined with a space
	Params []string
}

// ColumnDef is a column definition in CREATE TABLE or ADD COLUMN.
type ColumnDef struct {
	Name       *Ident
	Type       *DataType
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	Default    Expr
	Comment    *string
}

// TableConstraint is an out-of-line table constraint.
type TableConstraint struct {
	Name       *Ident
	Kind       string // PRIMARY KEY, UNIQUE, FOREIGN KEY
	Columns    []*Ident
	RefTable   *ObjectName
	RefColumns []*Ident
}

// TableOption is a KEY = value table property without engine meaning.
type TableOption struct {
	Key   string
	Value string
}

// CreateTable is CREATE TABLE.
type CreateTable struct {
	OrReplace   bool
	Temporary   bool
	Transient   bool
	IfNotExists bool
	Name        *ObjectName
	Columns     []*ColumnDef
	Constraints []*TableConstraint
	AsQuery     Query
	Like        *ObjectName
	Comment     *string
	Options     []*TableOption
}

// CreateView is CREATE VIEW.
type CreateView struct {
	OrReplace   bool
	Secure      bool
	Temporary   bool
	IfNotExists bool
	Name        *ObjectName
	Columns     []*Ident
	Query       Query
	Comment     *string
}

// CreateDatabase is CREATE DATABASE.
type CreateDatabase struct {
	OrReplace   bool
	Transient   bool
	IfNotExists bool
	Name        *Ident
}

// CreateSchema is CREATE SCHEMA.
type CreateSchema struct {
	OrReplace   bool
	Transient   bool
	IfNotExists bool
	Name        *ObjectName
}

// TagDDL is CREATE TAG or ALTER TAG. The tag options are kept verbatim.
type TagDDL struct {
	Action string // CREATE or ALTER
	Name   *ObjectName
	Raw    string
}

// ObjectKind names the kind of object a DDL statement targets.
type ObjectKind string

const (
	KindTable    ObjectKind = "TABLE"
	KindView     ObjectKind = "VIEW"
	KindSchema   ObjectKind = "SCHEMA"
	KindDatabase ObjectKind = "DATABASE"
	KindTag      ObjectKind = "TAG"
	KindSequence ObjectKind = "SEQUENCE"
	KindColumn   ObjectKind = "COLUMN"
)

// Drop is DROP <kind>.
type Drop struct {
	Kind     ObjectKind
	IfExists bool
	Names    []*ObjectName
	Cascade  bool
	Restrict bool
}

// AlterTable is ALTER TABLE name action.
type AlterTable struct {
	IfExists bool
	Name     *ObjectName
	Action   AlterAction
}

// AddColumn is ADD [COLUMN].
type AddColumn struct {
	IfNotExists bool
	Column      *ColumnDef
}

// DropColumn is DROP [COLUMN].
type DropColumn struct {
	IfExists bool
	Column   *Ident
}

// RenameTable is RENAME TO.
type RenameTable struct {
	To *ObjectName
}

// RenameColumn is RENAME COLUMN a TO b.
type RenameColumn struct {
	From *Ident
	To   *Ident
}

// SetTableComment is SET COMMENT = '...'. UNSET COMMENT sets Comment to "".
type SetTableComment struct {
	Comment string
}

// AlterColumnComment is ALTER COLUMN c COMMENT '...'.
type AlterColumnComment struct {
	Column  *Ident
	Comment string
}

// AlterColumnType is ALTER COLUMN c SET DATA TYPE t.
type AlterColumnType struct {
	Column *Ident
	Type   *DataType
}

// AlterColumnNotNull is ALTER COLUMN c SET NOT NULL or DROP NOT NULL.
type AlterColumnNotNull struct {
	Column *Ident
	Drop   bool
}

// AlterColumnDefault is ALTER COLUMN c SET DEFAULT e or DROP DEFAULT.
type AlterColumnDefault struct {
	Column  *Ident
	Default Expr // nil drops the default
}

// TagAction is SET TAG or UNSET TAG, on the table or on one column.
type TagAction struct {
	Column *Ident
	Unset  bool
	Raw    string
}

// CommentOn is COMMENT [IF EXISTS] ON <kind> name IS '...'.
type CommentOn struct {
	Kind     ObjectKind
	IfExists bool
	Name     *ObjectName
	Comment  string
}

// ---------------------------------------------------------------------------
// Session and utility statements

// UseKind is the target of a USE statement.
type UseKind string

const (
	UseDatabase       UseKind = "DATABASE"
	UseSchema         UseKind = "SCHEMA"
	UseWarehouse      UseKind = "WAREHOUSE"
	UseRole           UseKind = "ROLE"
	UseSecondaryRoles UseKind = "SECONDARY ROLES"
)

// Use is USE [kind] name.
type Use struct {
	Kind UseKind
	Name *ObjectName
}

// Describe is DESCRIBE [TABLE|VIEW] name, or DESCRIBE of a query.
type Describe struct {
	Kind  ObjectKind
	Name  *ObjectName
	Query Query
}

// Transaction is BEGIN, COMMIT or ROLLBACK.
type Transaction struct {
	Action string
}

// Command is a statement passed through verbatim.
type Command struct {
	Text string
}

// The following statements only appear in rewritten trees.

// NoOp answers a statement the engine has no counterpart for.
type NoOp struct {
	Status string
}

// SetSearchPath sets the engine's default catalog and schema.
type SetSearchPath struct {
	Catalog string
	Schema  string
}

// Attach attaches a new in-memory catalog.
type Attach struct {
	IfNotExists bool
	Name        *Ident
}

// Detach detaches a catalog.
type Detach struct {
	IfExists bool
	Name     *Ident
}

// ---------------------------------------------------------------------------
// Expressions

// ColumnRef is a possibly qualified column name.
type ColumnRef struct {
	Parts []*Ident
}

// Star is * or t.*, optionally with EXCLUDE.
type Star struct {
	Qualifier []*Ident
	Exclude   []*Ident
}

// StringLit is a string constant.
type StringLit struct {
	Value string
}

// NumberLit is a numeric constant kept as written.
type NumberLit struct {
	Raw string
}

// BoolLit is TRUE or FALSE.
type BoolLit struct {
	Value bool
}

// NullLit is NULL.
type NullLit struct{}

// Param is a bind parameter: ?, %s, :1 or %(name)s.
type Param struct {
	Raw   string
	Index int    // 1-based for numbered parameters, 0 otherwise
	Name  string // named pyformat parameter
}

// Unary is a prefix operator: NOT, -, +.
type Unary struct {
	Op string
	X  Expr
}

// Binary is an infix operator. Op is upper-cased for word operators.
type Binary struct {
	Op string
	L  Expr
	R  Expr
}

// NamedArg is name => value inside a function call.
type NamedArg struct {
	Name  string
	Value Expr
}

// Window is an OVER clause.
type Window struct {
	PartitionBy []Expr
	OrderBy     []*OrderItem
	Frame       string
}

// FuncCall is a function call. Name is upper-cased.
type FuncCall struct {
	Name        string
	Distinct    bool
	Star        bool
	Args        []Expr
	WithinGroup []*OrderItem
	Filter      Expr
	Over        *Window
}

// Cast is CAST, TRY_CAST or the :: operator.
type Cast struct {
	X    Expr
	Type *DataType
	Try  bool
}

// When is one WHEN ... THEN arm.
type When struct {
	Cond   Expr
	Result Expr
}

// Case is a CASE expression.
type Case struct {
	Operand Expr
	Whens   []*When
	Else    Expr
}

// Between is x [NOT] BETWEEN lo AND hi.
type Between struct {
	X   Expr
	Lo  Expr
	Hi  Expr
	Not bool
}

// InList is x [NOT] IN (a, b).
type InList struct {
	X    Expr
	List []Expr
	Not  bool
}

// InSubquery is x [NOT] IN (SELECT ...).
type InSubquery struct {
	X     Expr
	Query Query
	Not   bool
}

// IsNull is x IS [NOT] NULL.
type IsNull struct {
	X   Expr
	Not bool
}

// Exists is [NOT] EXISTS (SELECT ...).
type Exists struct {
	Query Query
	Not   bool
}

// Subquery is a scalar subquery.
type Subquery struct {
	Query Query
}

// Paren is a parenthesised expression.
type Paren struct {
	X Expr
}

// Bracket is x[index] on an array or object.
type Bracket struct {
	X     Expr
	Index Expr
}

// PathSegment is one step of a semi-structured path.
type PathSegment struct {
	Key   string
	Index int
	IsKey bool
}

// PathAccess is col:a.b[0] traversal. Keys are case-sensitive.
type PathAccess struct {
	X    Expr
	Path []PathSegment
}

// JSONExtract is the engine's JSON operator: -> or ->> with a JSON path.
type JSONExtract struct {
	X      Expr
	Path   string
	Scalar bool
}

// ArrayLit is [a, b] or an array constant.
type ArrayLit struct {
	Elems []Expr
}

// KeyValue is one entry of an object constant.
type KeyValue struct {
	Key   Expr
	Value Expr
}

// ObjectLit is {'k': v} or a struct constant.
type ObjectLit struct {
	Pairs []*KeyValue
}

// Interval is INTERVAL 'n unit'.
type Interval struct {
	Value Expr
	Unit  string
}

// Extract is EXTRACT(field FROM x).
type Extract struct {
	Field string
	X     Expr
}

// ---------------------------------------------------------------------------
// Table expressions

// Alias is AS name (col, ...).
type Alias struct {
	Name    *Ident
	Columns []*Ident
}

// TableRef is a named table.
type TableRef struct {
	Name  *ObjectName
	Alias *Alias
}

// DerivedTable is (SELECT ...) alias.
type DerivedTable struct {
	Lateral bool
	Query   Query
	Alias   *Alias
}

// ValuesTable is (VALUES (...), (...)) alias.
type ValuesTable struct {
	Rows  [][]Expr
	Alias *Alias
}

// TableFunc is TABLE(f(...)) or LATERAL f(...).
type TableFunc struct {
	Lateral bool
	Func    *FuncCall
	Alias   *Alias
}

// Join combines two table expressions.
type Join struct {
	Kind  string // INNER, LEFT, RIGHT, FULL, CROSS, NATURAL
	Left  TableExpr
	Right TableExpr
	On    Expr
	Using []*Ident
}

// ---------------------------------------------------------------------------
// Markers

func (*Ident) node()              {}
func (*ObjectName) node()         {}
func (*Select) node()             {}
func (*With) node()               {}
func (*CTE) node()                {}
func (*SelectItem) node()         {}
func (*OrderItem) node()          {}
func (*SetOperation) node()       {}
func (*Insert) node()             {}
func (*Assignment) node()         {}
func (*Update) node()             {}
func (*Delete) node()             {}
func (*Truncate) node()           {}
func (*DataType) node()           {}
func (*ColumnDef) node()          {}
func (*TableConstraint) node()    {}
func (*TableOption) node()        {}
func (*CreateTable) node()        {}
func (*CreateView) node()         {}
func (*CreateDatabase) node()     {}
func (*CreateSchema) node()       {}
func (*TagDDL) node()             {}
func (*Drop) node()               {}
func (*AlterTable) node()         {}
func (*AddColumn) node()          {}
func (*DropColumn) node()         {}
func (*RenameTable) node()        {}
func (*RenameColumn) node()       {}
func (*SetTableComment) node()    {}
func (*AlterColumnComment) node() {}
func (*AlterColumnType) node()    {}
func (*AlterColumnNotNull) node() {}
func (*AlterColumnDefault) node() {}
func (*TagAction) node()          {}
func (*CommentOn) node()          {}
func (*Use) node()                {}
func (*Describe) node()           {}
func (*Transaction) node()        {}
func (*Command) node()            {}
func (*NoOp) node()               {}
func (*SetSearchPath) node()      {}
func (*Attach) node()             {}
func (*Detach) node()             {}
func (*ColumnRef) node()          {}
func (*Star) node()               {}
func (*StringLit) node()          {}
func (*NumberLit) node()          {}
func (*BoolLit) node()            {}
func (*NullLit) node()            {}
func (*Param) node()              {}
func (*Unary) node()              {}
func (*Binary) node()             {}
func (*NamedArg) node()           {}
func (*Window) node()             {}
func (*FuncCall) node()           {}
func (*Cast) node()               {}
func (*When) node()               {}
func (*Case) node()               {}
func (*Between) node()            {}
func (*InList) node()             {}
func (*InSubquery) node()         {}
func (*IsNull) node()             {}
func (*Exists) node()             {}
func (*Subquery) node()           {}
func (*Paren) node()              {}
func (*Bracket) node()            {}
func (*PathAccess) node()         {}
func (*JSONExtract) node()        {}
func (*ArrayLit) node()           {}
func (*KeyValue) node()           {}
func (*ObjectLit) node()          {}
func (*Interval) node()           {}
func (*Extract) node()            {}
func (*Alias) node()              {}
func (*TableRef) node()           {}
func (*DerivedTable) node()       {}
func (*ValuesTable) node()        {}
func (*TableFunc) node()          {}
func (*Join) node()               {}

func (*Select) stmtNode()         {}
func (*SetOperation) stmtNode()   {}
func (*Insert) stmtNode()         {}
func (*Update) stmtNode()         {}
func (*Delete) stmtNode()         {}
func (*Truncate) stmtNode()       {}
func (*CreateTable) stmtNode()    {}
func (*CreateView) stmtNode()     {}
func (*CreateDatabase) stmtNode() {}
func (*CreateSchema) stmtNode()   {}
func (*TagDDL) stmtNode()         {}
func (*Drop) stmtNode()           {}
func (*AlterTable) stmtNode()     {}
func (*CommentOn) stmtNode()      {}
func (*Use) stmtNode()            {}
func (*Describe) stmtNode()       {}
func (*Transaction) stmtNode()    {}
func (*Command) stmtNode()        {}
func (*NoOp) stmtNode()           {}
func (*SetSearchPath) stmtNode()  {}
func (*Attach) stmtNode()         {}
func (*Detach) stmtNode()         {}

func (*Select) queryNode()       {}
func (*SetOperation) queryNode() {}

func (*ColumnRef) exprNode()   {}
func (*Star) exprNode()        {}
func (*StringLit) exprNode()   {}
func (*NumberLit) exprNode()   {}
func (*BoolLit) exprNode()     {}
func (*NullLit) exprNode()     {}
func (*Param) exprNode()       {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*NamedArg) exprNode()    {}
func (*FuncCall) exprNode()    {}
func (*Cast) exprNode()        {}
func (*Case) exprNode()        {}
func (*Between) exprNode()     {}
func (*InList) exprNode()      {}
func (*InSubquery) exprNode()  {}
func (*IsNull) exprNode()      {}
func (*Exists) exprNode()      {}
func (*Subquery) exprNode()    {}
func (*Paren) exprNode()       {}
func (*Bracket) exprNode()     {}
func (*PathAccess) exprNode()  {}
func (*JSONExtract) exprNode() {}
func (*ArrayLit) exprNode()    {}
func (*ObjectLit) exprNode()   {}
func (*Interval) exprNode()    {}
func (*Extract) exprNode()     {}

func (*TableRef) tableNode()     {}
func (*DerivedTable) tableNode() {}
func (*ValuesTable) tableNode()  {}
func (*TableFunc) tableNode()    {}
func (*Join) tableNode()         {}

func (*AddColumn) alterNode()          {}
func (*DropColumn) alterNode()         {}
func (*RenameTable) alterNode()        {}
func (*RenameColumn) alterNode()       {}
func (*SetTableComment) alterNode()    {}
func (*AlterColumnComment) alterNode() {}
func (*AlterColumnType) alterNode()    {}
func (*AlterColumnNotNull) alterNode() {}
func (*AlterColumnDefault) alterNode() {}
func (*TagAction) alterNode()          {}
