package fakesnow

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ha1tch/fakesnow/pkg/describe"
	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
)

func openDB(t *testing.T) *engine.DB {
	t.Helper()
	db, err := engine.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func connect(t *testing.T, db *engine.DB, opts Options) *Conn {
	t.Helper()
	opts.Logger = log.Discard()
	conn, err := Connect(context.Background(), db, opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func defaultConn(t *testing.T) *Conn {
	opts := DefaultOptions()
	opts.Database, opts.Schema = "db1", "schema1"
	return connect(t, openDB(t), opts)
}

func mustExec(t *testing.T, cur *Cursor, sql string, args ...any) {
	t.Helper()
	if err := cur.Execute(context.Background(), sql, args...); err != nil {
		t.Fatalf("Execute(%q): %v", sql, err)
	}
}

func TestConnectCreatesDatabaseAndSchema(t *testing.T) {
	conn := defaultConn(t)
	s := conn.Session()
	if s.CurrentDatabase() != "DB1" || s.CurrentSchema() != "SCHEMA1" {
		t.Errorf("session = %s.%s", s.CurrentDatabase(), s.CurrentSchema())
	}
	if !s.IsDatabaseSet() || !s.IsSchemaSet() {
		t.Error("database and schema should be set")
	}

	// Unqualified names resolve to the session's database and schema.
	cur := conn.Cursor()
	mustExec(t, cur, "create table t (a int)")
	mustExec(t, cur, "insert into db1.schema1.t values (1)")
	mustExec(t, cur, "select a from t")
	if row, ok := cur.FetchOne(); !ok || fmt.Sprint(row[0]) != "1" {
		t.Errorf("row = %v", row)
	}
}

func TestConnectWithoutCreate(t *testing.T) {
	db := openDB(t)
	conn := connect(t, db, Options{Database: "db1", Schema: "schema1"})
	s := conn.Session()
	if s.IsDatabaseSet() || s.IsSchemaSet() {
		t.Error("missing objects must not be marked set")
	}

	err := conn.Cursor().Execute(context.Background(), "select * from customers")
	if !errors.IsCode(err, errors.ErrCodeNoDatabase) {
		t.Fatalf("got %v", err)
	}
	want := "090105 (22000): Cannot perform SELECT. This session does not have a current database. Call 'USE DATABASE', or use a qualified name."
	if err.Error() != want {
		t.Errorf("message = %s", err)
	}
}

func TestConnectDatabaseOnly(t *testing.T) {
	db := openDB(t)
	opts := DefaultOptions()
	opts.Database = "db1"
	conn := connect(t, db, opts)
	if !conn.Session().IsDatabaseSet() || conn.Session().IsSchemaSet() {
		t.Fatal("only the database should be set")
	}
	err := conn.Cursor().Execute(context.Background(), "create table t (a int)")
	if !errors.IsCode(err, errors.ErrCodeNoSchema) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "Cannot perform CREATE TABLE.") {
		t.Errorf("message = %s", err)
	}
}

func TestUse(t *testing.T) {
	db := openDB(t)
	conn := connect(t, db, DefaultOptions())
	cur := conn.Cursor()
	ctx := context.Background()

	if err := cur.Execute(ctx, "use schema s1"); !errors.IsCode(err, errors.ErrCodeNoDatabase) {
		t.Fatalf("got %v", err)
	}
	mustExec(t, cur, "create database db2")
	mustExec(t, cur, "use database db2")
	if conn.Session().CurrentDatabase() != "DB2" || !conn.Session().IsDatabaseSet() {
		t.Errorf("session = %+v", conn.Session())
	}
	mustExec(t, cur, "create schema s2")
	mustExec(t, cur, "use schema s2")
	if conn.Session().CurrentSchema() != "S2" || !conn.Session().IsSchemaSet() {
		t.Errorf("session = %+v", conn.Session())
	}
	mustExec(t, cur, "create table t (a int)")
	mustExec(t, cur, "insert into db2.s2.t values (1)")
	mustExec(t, cur, "select count(*) from t")
	row, _ := cur.FetchOne()
	if fmt.Sprint(row[0]) != "1" {
		t.Errorf("count = %v", row)
	}
}

func TestExecuteAndFetch(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()

	mustExec(t, cur, "create table customers (id int, first_name varchar, last_name varchar)")
	mustExec(t, cur, "insert into customers values (%s, %s, %s)", 1, "Jenny", "P")
	if cur.RowCount() != 1 {
		t.Errorf("insert row count = %d", cur.RowCount())
	}
	err := cur.ExecuteMany(context.Background(), "insert into customers values (?, ?, ?)", [][]any{
		{2, "Jasper", "M"},
		{3, "Ana", "S"},
	})
	if err != nil {
		t.Fatal(err)
	}

	mustExec(t, cur, "select id, first_name from customers order by id")
	if got := strings.Join(cur.Columns(), ","); got != "ID,FIRST_NAME" {
		t.Errorf("columns = %s", got)
	}
	if cur.RowCount() != 3 {
		t.Errorf("row count = %d", cur.RowCount())
	}
	row, ok := cur.FetchOne()
	if !ok || row[1] != "Jenny" {
		t.Errorf("first row = %v", row)
	}
	if rows := cur.FetchMany(1); len(rows) != 1 || rows[0][1] != "Jasper" {
		t.Errorf("FetchMany = %v", rows)
	}
	if rows := cur.FetchAll(); len(rows) != 1 || rows[0][1] != "Ana" {
		t.Errorf("FetchAll = %v", rows)
	}
	if _, ok := cur.FetchOne(); ok {
		t.Error("expected no rows left")
	}

	mustExec(t, cur, "select first_name from customers where id = 3")
	maps := cur.FetchAllMaps()
	if len(maps) != 1 || maps[0]["FIRST_NAME"] != "Ana" {
		t.Errorf("FetchAllMaps = %v", maps)
	}
}

func TestDictionaryParameters(t *testing.T) {
	conn := defaultConn(t)
	err := conn.Cursor().Execute(context.Background(), "select %(a)s", map[string]any{"a": 1})
	if !errors.IsCode(err, errors.ErrCodeNotImplemented) {
		t.Errorf("got %v", err)
	}
}

func TestDecimals(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "select 12.34::number(10, 2)")
	row, _ := cur.FetchOne()
	d, ok := row[0].(decimal.Decimal)
	if !ok {
		t.Fatalf("value is %T", row[0])
	}
	if d.String() != "12.34" {
		t.Errorf("value = %s", d)
	}
}

func TestDescribe(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "create table example (xint int, xnum number(10, 2), xtext varchar(20), xbool boolean, xts timestamp_ntz(9), xvar variant)")

	want := []struct {
		name string
		code describe.TypeCode
	}{
		{"XINT", describe.TypeFixed},
		{"XNUM", describe.TypeFixed},
		{"XTEXT", describe.TypeText},
		{"XBOOL", describe.TypeBoolean},
		{"XTS", describe.TypeTimestampNTZ},
		{"XVAR", describe.TypeVariant},
	}

	cols, err := cur.Describe(context.Background(), "select * from example")
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != len(want) {
		t.Fatalf("got %d columns", len(cols))
	}
	for i, w := range want {
		if cols[i].Name != w.name || cols[i].TypeCode != w.code {
			t.Errorf("column %d = %s %s, want %s %s", i, cols[i].Name, cols[i].TypeCode, w.name, w.code)
		}
	}
	if *cols[1].Precision != 10 || *cols[1].Scale != 2 {
		t.Errorf("XNUM precision/scale = %d/%d", *cols[1].Precision, *cols[1].Scale)
	}
	if *cols[0].Precision != 38 {
		t.Errorf("XINT precision = %d", *cols[0].Precision)
	}

	// Describe runs nothing; Description follows an executed query.
	mustExec(t, cur, "select xint, xtext from example")
	desc, err := cur.Description(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(desc) != 2 || desc[1].TypeCode != describe.TypeText || *desc[1].InternalSize != describe.MaxTextSize {
		t.Errorf("description = %+v", desc)
	}
}

func TestDescribeRefusesStatements(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	ctx := context.Background()
	mustExec(t, cur, "create table t (a int)")

	_, err := cur.Describe(ctx, "insert into t values (1)")
	if !errors.IsCode(err, errors.ErrCodeNotImplemented) || !strings.Contains(err.Error(), "describe of INSERT") {
		t.Errorf("insert: %v", err)
	}
	_, err = cur.Describe(ctx, "select %(a)s", map[string]any{"a": 1})
	if !errors.IsCode(err, errors.ErrCodeNotImplemented) || !strings.Contains(err.Error(), "dictionary parameters") {
		t.Errorf("dictionary parameters: %v", err)
	}

	mustExec(t, cur, "select count(*) from t")
	if row, _ := cur.FetchOne(); fmt.Sprint(row[0]) != "0" {
		t.Errorf("describe changed the table: count = %v", row)
	}
}

func TestEngineErrors(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	ctx := context.Background()

	err := cur.Execute(ctx, "select * from nope")
	if !errors.IsCode(err, errors.ErrCodeObjectNotFound) || errors.GetSQLState(err) != "42S02" {
		t.Errorf("missing table: %v", err)
	}
	if strings.Contains(err.Error(), "\n") {
		t.Errorf("message should be one line: %q", err)
	}

	mustExec(t, cur, "create table t (a int)")
	err = cur.Execute(ctx, "select b from t")
	if !errors.IsCode(err, errors.ErrCodeBinder) || errors.GetSQLState(err) != "02000" {
		t.Errorf("missing column: %v", err)
	}
}

func TestInformationSchemaColumns(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "create table t1 (id number, name varchar(50) comment 'the name', note string, code char)")
	mustExec(t, cur, `select column_name, data_type, character_maximum_length, character_octet_length, numeric_precision, comment
		from information_schema.columns where table_name = 'T1' order by ordinal_position`)

	rows := cur.FetchAll()
	if len(rows) != 4 {
		t.Fatalf("got %d rows: %v", len(rows), rows)
	}
	want := []string{
		"ID NUMBER <nil> <nil> 38 <nil>",
		"NAME TEXT 50 200 <nil> the name",
		"NOTE TEXT 16777216 16777216 <nil> <nil>",
		"CODE TEXT 1 4 <nil> <nil>",
	}
	for i, w := range want {
		if got := fmt.Sprintln(rows[i]...); strings.TrimSpace(got) != w {
			t.Errorf("row %d = %q, want %q", i, strings.TrimSpace(got), w)
		}
	}

	mustExec(t, cur, "alter table t1 add column extra varchar(10)")
	mustExec(t, cur, "select character_maximum_length from information_schema.columns where table_name = 'T1' and column_name = 'EXTRA'")
	row, _ := cur.FetchOne()
	if fmt.Sprint(row[0]) != "10" {
		t.Errorf("EXTRA length = %v", row)
	}
}

func TestInformationSchemaTables(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "create table t1 (id int) comment = 'first'")
	mustExec(t, cur, "create table t2 (id int)")
	mustExec(t, cur, "comment on table t2 is 'second'")

	mustExec(t, cur, "select table_name, comment from information_schema.tables order by table_name")
	rows := cur.FetchAll()
	if len(rows) != 2 {
		t.Fatalf("got %v", rows)
	}
	if rows[0][0] != "T1" || rows[0][1] != "first" || rows[1][0] != "T2" || rows[1][1] != "second" {
		t.Errorf("rows = %v", rows)
	}

	mustExec(t, cur, "alter table t2 set comment = 'changed'")
	mustExec(t, cur, "select comment from information_schema.tables where table_name = 'T2'")
	if row, _ := cur.FetchOne(); row[0] != "changed" {
		t.Errorf("comment = %v", row)
	}
}

func TestSemiStructured(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "create table j (v variant)")
	mustExec(t, cur, `insert into j select parse_json('{"a": {"b": [10, 20]}, "s": "x"}')`)

	mustExec(t, cur, "select v:a.b[1], v:s::varchar from j")
	row, _ := cur.FetchOne()
	if fmt.Sprint(row[0]) != "20" || row[1] != "x" {
		t.Errorf("row = %v", row)
	}

	mustExec(t, cur, "select object_construct('k', 1, 'n', null), array_size(array_construct(1, 2, 3))")
	row, _ = cur.FetchOne()
	if row[0] != `{"k":1}` || fmt.Sprint(row[1]) != "3" {
		t.Errorf("row = %v", row)
	}
}

func TestRegex(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, `select 'abc' rlike 'a.*', regexp_substr('a1b2', '[0-9]', 1, 2), regexp_replace('aaa', 'a', 'b'), regexp_count('aaa', 'a')`)
	row, _ := cur.FetchOne()
	if got := fmt.Sprint(row...); got != "true2bbb3" {
		t.Errorf("row = %v", row)
	}
}

func TestValuesColumns(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "select column1, column2 from values (1, 'a'), (2, 'b') order by column1")
	rows := cur.FetchAll()
	if len(rows) != 2 || rows[1][1] != "b" {
		t.Errorf("rows = %v", rows)
	}
}

func TestDropSchemaCascadesAndTags(t *testing.T) {
	conn := defaultConn(t)
	cur := conn.Cursor()
	mustExec(t, cur, "create schema s2")
	mustExec(t, cur, "create table s2.t (a int)")
	mustExec(t, cur, "drop schema s2")

	mustExec(t, cur, "create tag cost_center")
	row, _ := cur.FetchOne()
	if row[0] != "Statement executed successfully." {
		t.Errorf("status = %v", row)
	}
	mustExec(t, cur, "alter table s2_missing_is_fine set tag cost_center = 'x'")
}

func TestTransactions(t *testing.T) {
	conn := defaultConn(t)
	ctx := context.Background()
	cur := conn.Cursor()

	// Outside a transaction both succeed without doing anything.
	if err := conn.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := conn.Rollback(ctx); err != nil {
		t.Fatal(err)
	}

	mustExec(t, cur, "create table t (a int)")
	mustExec(t, cur, "begin")
	mustExec(t, cur, "insert into t values (1)")
	if err := conn.Rollback(ctx); err != nil {
		t.Fatal(err)
	}
	mustExec(t, cur, "select count(*) from t")
	if row, _ := cur.FetchOne(); fmt.Sprint(row[0]) != "0" {
		t.Errorf("count after rollback = %v", row)
	}

	mustExec(t, cur, "begin transaction")
	mustExec(t, cur, "insert into t values (1)")
	if err := conn.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	mustExec(t, cur, "select count(*) from t")
	if row, _ := cur.FetchOne(); fmt.Sprint(row[0]) != "1" {
		t.Errorf("count after commit = %v", row)
	}
}

func TestExecuteString(t *testing.T) {
	conn := defaultConn(t)
	cursors, err := conn.ExecuteString(context.Background(), `
		create table t (a int);
		insert into t values (1), (2);
		select sum(a) from t;
	`)
	if err != nil {
		t.Fatal(err)
	}
	if len(cursors) != 3 {
		t.Fatalf("got %d cursors", len(cursors))
	}
	row, _ := cursors[2].FetchOne()
	if fmt.Sprint(row[0]) != "3" {
		t.Errorf("sum = %v", row)
	}

	cursors, err = conn.ExecuteString(context.Background(), "select 1; select * from nope; select 2")
	if err == nil || len(cursors) != 1 {
		t.Errorf("expected failure after one statement, got %d cursors, err %v", len(cursors), err)
	}
}

func TestSessionsShareEngine(t *testing.T) {
	db := openDB(t)
	opts := DefaultOptions()
	opts.Database, opts.Schema = "db1", "schema1"
	a := connect(t, db, opts)
	b := connect(t, db, opts)

	mustExec(t, a.Cursor(), "create table shared (x int)")
	mustExec(t, a.Cursor(), "insert into shared values (7)")

	cur := b.Cursor()
	mustExec(t, cur, "select x from shared")
	if row, _ := cur.FetchOne(); fmt.Sprint(row[0]) != "7" {
		t.Errorf("row = %v", row)
	}
}

func TestClosedConnection(t *testing.T) {
	conn := defaultConn(t)
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	err := conn.Cursor().Execute(context.Background(), "select 1")
	if errors.GetKind(err) != errors.KindInterface {
		t.Errorf("got %v", err)
	}
}

func queryRow(t *testing.T, conn *Conn, sql string) []any {
	t.Helper()
	rs, err := conn.eng.Query(context.Background(), sql)
	if err != nil {
		t.Fatalf("Query(%q): %v", sql, err)
	}
	if len(rs.Rows) != 1 {
		t.Fatalf("Query(%q) returned %d rows", sql, len(rs.Rows))
	}
	return rs.Rows[0]
}

func TestExtensionUpsertKeepsOneRecord(t *testing.T) {
	conn := defaultConn(t)
	ctx := context.Background()
	store := conn.store

	upsert := func(comment string, length int) {
		t.Helper()
		if err := store.UpsertTableComment(ctx, "DB1", "SCHEMA1", "T", comment); err != nil {
			t.Fatal(err)
		}
		if err := store.UpsertColumnComment(ctx, "DB1", "SCHEMA1", "T", "C", comment); err != nil {
			t.Fatal(err)
		}
		if err := store.UpsertColumnLength(ctx, "DB1", "SCHEMA1", "T", "C", length); err != nil {
			t.Fatal(err)
		}
	}

	upsert("same", 20)
	upsert("same", 20)
	for _, table := range []string{"TABLES_EXT", "COLUMNS_EXT"} {
		row := queryRow(t, conn, "SELECT count(*) FROM DB1._FS_INFORMATION_SCHEMA."+table)
		if fmt.Sprint(row[0]) != "1" {
			t.Errorf("%s records = %v", table, row[0])
		}
	}

	upsert("changed", 30)
	row := queryRow(t, conn, "SELECT comment FROM DB1._FS_INFORMATION_SCHEMA.TABLES_EXT")
	if row[0] != "changed" {
		t.Errorf("table comment = %v", row[0])
	}
	row = queryRow(t, conn, "SELECT ext_comment, ext_character_maximum_length, count(*) OVER () "+
		"FROM DB1._FS_INFORMATION_SCHEMA.COLUMNS_EXT")
	if row[0] != "changed" || fmt.Sprint(row[1]) != "30" || fmt.Sprint(row[2]) != "1" {
		t.Errorf("column record = %v", row)
	}
}

func TestExtensionWriteErrorsPassThrough(t *testing.T) {
	conn := defaultConn(t)
	ctx := context.Background()
	if _, err := conn.eng.Exec(ctx, "DROP TABLE DB1._FS_INFORMATION_SCHEMA.TABLES_EXT"); err != nil {
		t.Fatal(err)
	}

	cur := conn.Cursor()
	err := cur.Execute(ctx, "create table t (a int) comment = 'x'")
	if err == nil {
		t.Fatal("expected the comment write to fail")
	}
	var ee *engine.Error
	if !stderrors.As(err, &ee) {
		t.Errorf("err = %T %v, want the engine error", err, err)
	}
	var we *errors.Error
	if stderrors.As(err, &we) {
		t.Errorf("store failure was translated into %v", we)
	}

	// The statement itself is not undone.
	mustExec(t, cur, "select count(*) from t")
	if row, _ := cur.FetchOne(); fmt.Sprint(row[0]) != "0" {
		t.Errorf("count = %v", row)
	}
}
