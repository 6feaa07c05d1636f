package fakesnow

import (
	"context"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/describe"
	"github.com/ha1tch/fakesnow/pkg/duckgen"
	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
	"github.com/ha1tch/fakesnow/pkg/sfparser/parser"
	"github.com/ha1tch/fakesnow/pkg/transform"
)

// Cursor executes statements and holds the last result. It is not safe
// for concurrent use.
type Cursor struct {
	conn *Conn

	result   *engine.ResultSet
	pos      int
	rowCount int64
	command  string
	isQuery  bool
	lastSQL  string
	lastArgs []any
}

// Execute runs one warehouse statement. Positional arguments bind to %s
// or ? placeholders. A single map argument (named binding) is not
// supported.
func (cur *Cursor) Execute(ctx context.Context, query string, args ...any) error {
	if err := cur.conn.checkOpen(); err != nil {
		return err
	}
	if err := checkArgs(args, "fakesnow.Execute"); err != nil {
		return err
	}
	if len(args) > 0 {
		query = strings.ReplaceAll(query, "%s", "?")
	}
	stmt, err := parser.Parse(query)
	if err != nil {
		return err
	}
	return cur.run(ctx, stmt, args)
}

// ExecuteMany runs query once per argument list, in order.
func (cur *Cursor) ExecuteMany(ctx context.Context, query string, argSets [][]any) error {
	for _, args := range argSets {
		if err := cur.Execute(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// checkArgs rejects a single map argument, which would ask for named
// binding.
func checkArgs(args []any, op string) error {
	if len(args) == 1 {
		if _, named := args[0].(map[string]any); named {
			return errors.NotImplemented("dictionary parameters").WithOp(op).Err()
		}
	}
	return nil
}

// Describe reports the result columns of a query without running it.
// Statements other than queries are refused before they reach the engine.
func (cur *Cursor) Describe(ctx context.Context, query string, args ...any) ([]describe.Column, error) {
	if err := cur.conn.checkOpen(); err != nil {
		return nil, err
	}
	if err := checkArgs(args, "fakesnow.Describe"); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		query = strings.ReplaceAll(query, "%s", "?")
	}
	stmt, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	c := cur.conn
	res, err := c.pipeline.Describe(stmt, c.sess)
	if err != nil {
		return nil, err
	}
	sql, err := duckgen.Generate(res.Statement)
	if err != nil {
		return nil, err
	}
	rs, err := c.eng.Query(ctx, sql, args...)
	if err != nil {
		return nil, engine.Translate(err)
	}
	rows, err := engine.DescribeRows(rs)
	if err != nil {
		return nil, err
	}
	return describe.Translate(rows)
}

// run sends one parsed statement through the pipeline and the engine.
func (cur *Cursor) run(ctx context.Context, stmt ast.Statement, args []any) error {
	c := cur.conn
	lg := c.logger.Pipeline().WithFields("session", c.id)
	ctx = log.WithSessionID(ctx, c.id)

	cur.reset()
	if tx, ok := stmt.(*ast.Transaction); ok && tx.Action != "BEGIN" && !c.inTxn {
		// The warehouse accepts COMMIT and ROLLBACK outside a transaction.
		cur.command = tx.Action
		cur.result = statusResult(transform.StatusSuccess)
		cur.rowCount = 1
		return nil
	}

	res, err := c.pipeline.Run(stmt, c.sess)
	if err != nil {
		return err
	}
	sql, err := duckgen.Generate(res.Statement)
	if err != nil {
		return err
	}
	lg.Debug("statement rewritten", "command", res.Command, "sql", sql)

	cur.command = res.Command
	cur.lastSQL = sql
	cur.lastArgs = args
	_, cur.isQuery = res.Statement.(ast.Query)

	rs, err := c.eng.Query(ctx, sql, args...)
	if err != nil {
		return engine.Translate(err)
	}
	cur.result = rs
	cur.rowCount = rowCount(res.Statement, rs)

	return c.apply(ctx, &res.Annotations, res.Statement)
}

func (cur *Cursor) reset() {
	cur.result = nil
	cur.pos = 0
	cur.rowCount = -1
	cur.command = ""
	cur.isQuery = false
	cur.lastSQL = ""
	cur.lastArgs = nil
}

// rowCount is the number of rows a query returned, or the number of rows a
// DML statement changed.
func rowCount(stmt ast.Statement, rs *engine.ResultSet) int64 {
	switch stmt.(type) {
	case *ast.Insert, *ast.Update, *ast.Delete:
		if len(rs.Rows) == 1 && len(rs.Rows[0]) == 1 {
			if n, ok := rs.Rows[0][0].(int64); ok {
				return n
			}
		}
	}
	return int64(len(rs.Rows))
}

func statusResult(status string) *engine.ResultSet {
	return &engine.ResultSet{
		Columns: []engine.Column{{Name: "status", TypeName: "VARCHAR", Nullable: true}},
		Rows:    [][]any{{status}},
	}
}

// Description reports the result columns of the last statement. For
// queries it asks the engine to describe the statement again, so the
// answer does not depend on how many rows were fetched.
func (cur *Cursor) Description(ctx context.Context) ([]describe.Column, error) {
	if cur.result == nil {
		return nil, nil
	}
	if cur.isQuery {
		rows, err := cur.conn.eng.Describe(ctx, cur.lastSQL, cur.lastArgs...)
		if err != nil {
			return nil, engine.Translate(err)
		}
		return describe.Translate(rows)
	}
	in := make([]describe.Row, len(cur.result.Columns))
	for i, col := range cur.result.Columns {
		null := "YES"
		if !col.Nullable {
			null = "NO"
		}
		in[i] = describe.Row{ColumnName: col.Name, ColumnType: col.TypeName, Null: null}
	}
	return describe.Translate(in)
}

// FetchAll returns the rows not fetched yet.
func (cur *Cursor) FetchAll() [][]any {
	if cur.result == nil {
		return nil
	}
	rows := cur.result.Rows[cur.pos:]
	cur.pos = len(cur.result.Rows)
	return rows
}

// FetchOne returns the next row, or false when there are none left.
func (cur *Cursor) FetchOne() ([]any, bool) {
	if cur.result == nil || cur.pos >= len(cur.result.Rows) {
		return nil, false
	}
	row := cur.result.Rows[cur.pos]
	cur.pos++
	return row, true
}

// FetchMany returns up to n of the rows not fetched yet.
func (cur *Cursor) FetchMany(n int) [][]any {
	if cur.result == nil || n <= 0 {
		return nil
	}
	end := cur.pos + n
	if end > len(cur.result.Rows) {
		end = len(cur.result.Rows)
	}
	rows := cur.result.Rows[cur.pos:end]
	cur.pos = end
	return rows
}

// FetchAllMaps returns the remaining rows keyed by column name.
func (cur *Cursor) FetchAllMaps() []map[string]any {
	rows := cur.FetchAll()
	if rows == nil {
		return nil
	}
	names := cur.Columns()
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(names))
		for j, name := range names {
			m[name] = r[j]
		}
		out[i] = m
	}
	return out
}

// RowCount returns the row count of the last statement, or -1 before one
// has run.
func (cur *Cursor) RowCount() int64 { return cur.rowCount }

// Columns returns the result column names of the last statement.
func (cur *Cursor) Columns() []string {
	if cur.result == nil {
		return nil
	}
	return cur.result.Names()
}

// Result returns the whole result of the last statement, ignoring the
// fetch position.
func (cur *Cursor) Result() *engine.ResultSet { return cur.result }

// IsQuery reports whether the last statement was a query.
func (cur *Cursor) IsQuery() bool { return cur.isQuery }

// Command returns the warehouse command name of the last statement.
func (cur *Cursor) Command() string { return cur.command }

// LastSQL returns the engine SQL of the last statement.
func (cur *Cursor) LastSQL() string { return cur.lastSQL }
