// Package transform rewrites parsed warehouse statements into statements
// the engine can execute.
//
// A Pipeline applies an ordered list of passes to one statement. Each pass
// maps a tree to a tree and may record Annotations: metadata the engine
// cannot hold (comments, declared text lengths) and session changes that
// the caller applies once the rewritten statement has executed.
package transform

import (
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/session"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
)

// QualifiedName names a table by catalog, schema and table.
type QualifiedName struct {
	Catalog string
	Schema  string
	Table   string
}

func (q QualifiedName) String() string {
	return q.Catalog + "." + q.Schema + "." + q.Table
}

// TableComment is a comment recorded for a table.
type TableComment struct {
	Table   QualifiedName
	Comment string
}

// ColumnComment is a comment recorded for a column.
type ColumnComment struct {
	Table   QualifiedName
	Column  string
	Comment string
}

// ColumnLength is the declared character length of a text column.
type ColumnLength struct {
	Table    QualifiedName
	Column   string
	MaxChars int
}

// Annotations carries what a run learned that is not part of the emitted
// SQL. It is consumed once, after the statement executes.
type Annotations struct {
	CreatedDatabase string
	DroppedDatabase string
	UseDatabase     string
	UseSchema       string
	TableComment    *TableComment
	ColumnComments  []ColumnComment
	TextLengths     []ColumnLength
}

// Empty reports whether nothing was recorded.
func (a *Annotations) Empty() bool {
	return a.CreatedDatabase == "" && a.DroppedDatabase == "" &&
		a.UseDatabase == "" && a.UseSchema == "" && a.TableComment == nil &&
		len(a.ColumnComments) == 0 && len(a.TextLengths) == 0
}

// Env is what a pass sees besides the tree.
type Env struct {
	Session     *session.Context
	Annotations *Annotations
	Command     string
}

// qualify resolves a table name against the session.
func (e *Env) qualify(name *ast.ObjectName) QualifiedName {
	var cat, sch string
	if id := name.Catalog(); id != nil {
		cat = id.Value
	}
	if id := name.Schema(); id != nil {
		sch = id.Value
	}
	cat, sch = e.Session.Qualify(cat, sch)
	return QualifiedName{Catalog: cat, Schema: sch, Table: name.Last().Value}
}

// Pass is one named rewrite step.
type Pass struct {
	Name  string
	Apply func(stmt ast.Statement, env *Env) (ast.Statement, error)
}

// Result is the outcome of a pipeline run.
type Result struct {
	Statement   ast.Statement
	Annotations Annotations
	// Command is the warehouse command name of the input, e.g. "CREATE TABLE".
	Command string
}

// Pipeline applies passes in order.
type Pipeline struct {
	passes []Pass
	logger *log.Logger
}

// New returns a pipeline running exactly the given passes.
func New(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes, logger: log.Default()}
}

// Default returns the pipeline used for every warehouse statement.
func Default() *Pipeline {
	return New(DefaultPasses()...)
}

// DefaultPasses returns the standard passes. Order matters: later passes
// rely on the normal forms produced by earlier ones.
func DefaultPasses() []Pass {
	return []Pass{
		{"session-check", checkSession},
		{"upper-case-identifiers", upperCaseIdentifiers},
		{"use", useStatement},
		{"create-database", createDatabase},
		{"extract-metadata", extractMetadata},
		{"information-schema-columns", informationSchemaColumns},
		{"information-schema-tables", informationSchemaTables},
		{"drop-schema-cascade", dropSchemaCascade},
		{"tag", tagNoOp},
		{"regex", regexFunctions},
		{"semi-structured", semiStructured},
		{"temporal", temporal},
		{"float-to-double", floatToDouble},
		{"integer-precision", integerPrecision},
		{"text-types", textTypes},
	}
}

// WithLogger sets the logger used for pass tracing.
func (p *Pipeline) WithLogger(l *log.Logger) *Pipeline {
	p.logger = l
	return p
}

// Names returns the pass names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.passes))
	for i, ps := range p.passes {
		names[i] = ps.Name
	}
	return names
}

// Run applies every pass to stmt. The statement is rewritten in place and
// must not be reused by the caller. sess is read, never modified; session
// changes are reported through Annotations.
func (p *Pipeline) Run(stmt ast.Statement, sess *session.Context) (*Result, error) {
	env := &Env{
		Session:     sess,
		Annotations: &Annotations{},
		Command:     CommandName(stmt),
	}
	lg := p.logger.Pipeline()
	for _, ps := range p.passes {
		out, err := ps.Apply(stmt, env)
		if err != nil {
			lg.Debug("pass failed", "pass", ps.Name, "command", env.Command)
			return nil, err
		}
		stmt = out
	}
	return &Result{Statement: stmt, Annotations: *env.Annotations, Command: env.Command}, nil
}

// Describe runs the pipeline and wraps the resulting query in DESCRIBE so
// the engine reports the output columns without producing rows. A
// statement that does not rewrite to a query is refused, since running it
// would have side effects.
func (p *Pipeline) Describe(stmt ast.Statement, sess *session.Context) (*Result, error) {
	res, err := p.Run(stmt, sess)
	if err != nil {
		return nil, err
	}
	q, ok := res.Statement.(ast.Query)
	if !ok {
		return nil, errors.NotImplemented("describe of "+res.Command).WithOp("transform.Describe").Err()
	}
	res.Statement = &ast.Describe{Query: q}
	return res, nil
}

// rewrite applies fn to every node of stmt, bottom-up.
func rewrite(stmt ast.Statement, fn func(ast.Node) ast.Node) ast.Statement {
	return ast.RewriteStatement(stmt, fn)
}
