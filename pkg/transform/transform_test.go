package transform

import (
	"strings"
	"testing"

	"github.com/ha1tch/fakesnow/pkg/duckgen"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/session"
	"github.com/ha1tch/fakesnow/pkg/sfparser/parser"
)

// fullSession has database DB1 and schema SCHEMA1 selected.
func fullSession() *session.Context {
	s := session.New("", "")
	s.SetDatabase("db1")
	s.SetSchema("schema1")
	return s
}

func runSQL(t *testing.T, sql string, sess *session.Context) (string, *Result) {
	t.Helper()
	stmt, err := parser.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sql, err)
	}
	res, err := Default().Run(stmt, sess)
	if err != nil {
		t.Fatalf("Run(%q): %v", sql, err)
	}
	out, err := duckgen.Generate(res.Statement)
	if err != nil {
		t.Fatalf("Generate(%q): %v", sql, err)
	}
	return out, res
}

func TestPassOrder(t *testing.T) {
	want := []string{
		"session-check", "upper-case-identifiers", "use", "create-database",
		"extract-metadata", "information-schema-columns", "information-schema-tables",
		"drop-schema-cascade", "tag", "regex", "semi-structured", "temporal",
		"float-to-double", "integer-precision", "text-types",
	}
	got := Default().Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("passes = %v", got)
	}
}

func TestRewrites(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		excludes string
	}{
		// identifiers
		{"upper case", `select a, "b" from t`, `SELECT A, "b" FROM T`, ""},

		// catalog and session
		{"use database", "use database db2", "SET schema = 'DB2.main'", ""},
		{"use qualified schema", "use schema db2.s2", "SET schema = 'DB2.S2'", ""},
		{"use schema", "use schema s2", "SET schema = 'DB1.S2'", ""},
		{"use warehouse", "use warehouse wh", "SELECT 'Statement executed successfully.' AS status", ""},
		{"create database", "create database if not exists db2", "ATTACH IF NOT EXISTS ':memory:' AS DB2", ""},
		{"drop database", "drop database db2", "DETACH DATABASE DB2", ""},
		{"drop schema cascades", "drop schema s1", "DROP SCHEMA S1 CASCADE", ""},
		{"drop schema restrict", "drop schema s1 restrict", "DROP SCHEMA S1 RESTRICT", "CASCADE"},

		// metadata
		{"create table strips comments",
			"create table t1 (id int, name varchar(50) comment 'the name') comment = 'table comment'",
			"CREATE TABLE T1 (ID BIGINT, NAME VARCHAR)", "comment"},
		{"alter table set comment", "alter table t1 set comment = 'x'", "AS status", "ALTER"},
		{"comment on column", "comment on column t1.name is 'n'", "AS status", ""},
		{"add column", "alter table t1 add column c varchar(10)", "ALTER TABLE T1 ADD COLUMN C VARCHAR", "10"},

		// information schema
		{"information_schema.columns",
			"select column_name from information_schema.columns where table_name = 'T1'",
			"FROM DB1._FS_INFORMATION_SCHEMA.COLUMNS_SNOWFLAKE AS COLUMNS WHERE TABLE_NAME = 'T1'", ""},
		{"information_schema.columns keeps alias",
			"select c.column_name from db2.information_schema.columns c",
			"FROM DB2._FS_INFORMATION_SCHEMA.COLUMNS_SNOWFLAKE AS C", ""},
		{"information_schema.tables",
			"select table_name, comment from information_schema.tables",
			"LEFT JOIN DB1._FS_INFORMATION_SCHEMA.TABLES_EXT AS EXT ON", ""},
		{"information_schema.tables alias", "select * from information_schema.tables", ") AS TABLES", ""},
		{"information_schema.tables own catalog", "select * from information_schema.tables",
			"WHERE T.TABLE_CATALOG = 'DB1' AND T.TABLE_SCHEMA <> '_FS_INFORMATION_SCHEMA'", ""},

		// tags
		{"create tag", "create tag cost_center", "SELECT 'Statement executed successfully.' AS status", ""},
		{"drop tag", "drop tag cost_center", "AS status", "DROP"},
		{"set tag", "alter table t1 set tag cost_center = 'x'", "AS status", "ALTER"},

		// regex
		{"rlike", "select * from t where a rlike 'x.*'", "WHERE regexp_full_match(A, 'x.*')", "RLIKE"},
		{"not regexp", "select * from t where a not regexp 'x'", "WHERE NOT regexp_full_match(A, 'x')", ""},
		{"regexp_like", "select regexp_like(a, 'x', 'i') from t", "regexp_full_match(A, 'x', 'i')", ""},
		{"regexp_substr", "select regexp_substr(a, 'b(.)', 1, 2, 'e') from t",
			"list_extract(regexp_extract_all(A, 'b(.)', 1, ''), 2)", ""},
		{"regexp_substr defaults", "select regexp_substr(a, 'b') from t",
			"list_extract(regexp_extract_all(A, 'b', 0, 'c'), 1)", ""},
		{"regexp_replace", "select regexp_replace(a, 'x', 'y') from t", "regexp_replace(A, 'x', 'y', 'g')", ""},
		{"regexp_replace first", "select regexp_replace(a, 'x', 'y', 1, 1) from t", "regexp_replace(A, 'x', 'y', '')", ""},
		{"regexp_count", "select regexp_count(a, 'x') from t", "len(regexp_extract_all(A, 'x', 0, 'c'))", ""},

		// semi-structured
		{"variant types", "create table t (v variant, o object, a array)", "(V JSON, O JSON, A JSON)", ""},
		{"parse_json", `select parse_json('{"a": 1}')`, `json('{"a": 1}')`, ""},
		{"try_parse_json", "select try_parse_json(s) from t", "CASE WHEN json_valid(S) THEN json(S) END", ""},
		{"path access", "select v:a.b[0] from t", "SELECT V -> '$.a.b[0]' FROM T", ""},
		{"path as varchar", "select v:a::varchar from t", "SELECT V ->> '$.a' FROM T", "CAST"},
		{"brackets", "select v[0], v['k'] from t", "SELECT V -> '$[0]', V -> '$.k' FROM T", ""},
		{"nested brackets", "select v['a'][1] from t", "V -> '$.a[1]'", ""},
		{"get_path", "select get_path(v, 'a.b') from t", "V -> '$.a.b'", ""},
		{"object_construct", "select object_construct('a', 1, 'b', null)", "to_json({'a': 1})", "'b'"},
		{"object_construct computed keys", "select object_construct(k, 1) from t", "json_object(K, 1)", ""},
		{"array_construct", "select array_construct(1, 2)", "to_json([1, 2])", ""},
		{"array_size", "select array_size(v) from t", "json_array_length(V)", ""},
		{"values columns", "select * from values (1, 'a'), (2, 'b')",
			`(VALUES (1, 'a'), (2, 'b')) AS _("COLUMN1", "COLUMN2")`, ""},

		// temporal
		{"to_date", "select to_date('2024-01-02')", "CAST('2024-01-02' AS DATE)", ""},
		{"to_date format", "select to_date(s, 'YYYY/MM/DD') from t", "CAST(strptime(S, '%Y/%m/%d') AS DATE)", ""},
		{"timestamps", "create table t (a timestamp_ntz(9), b timestamp_ntz, c timestamp_tz(3))",
			"(A TIMESTAMP_NS, B TIMESTAMP, C TIMESTAMPTZ)", ""},

		// numeric and text types
		{"floats", "create table t (a float, b real, c double precision)", "(A DOUBLE, B DOUBLE, C DOUBLE)", ""},
		{"integers", "create table t (a int, b number, c number(38,0), d number(10,2), e number(10))",
			"(A BIGINT, B BIGINT, C BIGINT, D DECIMAL(10, 2), E DECIMAL(10, 0))", ""},
		{"number cast", "select 1::number(38, 0)", "CAST(1 AS BIGINT)", ""},
		{"text", "create table t (a string, b text, c char(3), d binary)",
			"(A VARCHAR, B VARCHAR, C VARCHAR, D BLOB)", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := runSQL(t, tc.input, fullSession())
			if !strings.Contains(out, tc.contains) {
				t.Errorf("expected output to contain %q, got: %s", tc.contains, out)
			}
			if tc.excludes != "" && strings.Contains(out, tc.excludes) {
				t.Errorf("expected output to not contain %q, got: %s", tc.excludes, out)
			}
		})
	}
}

func TestSessionCheck(t *testing.T) {
	noDB := func() *session.Context { return session.New("", "") }
	dbOnly := func() *session.Context {
		s := session.New("", "")
		s.SetDatabase("db1")
		return s
	}

	tests := []struct {
		name string
		sql  string
		sess *session.Context
		code errors.Code // 0 means success
		cmd  string
	}{
		{"unqualified select", "select * from t", noDB(), errors.ErrCodeNoDatabase, "SELECT"},
		{"unqualified create", "create table t (a int)", noDB(), errors.ErrCodeNoDatabase, "CREATE TABLE"},
		{"schema missing", "select * from t", dbOnly(), errors.ErrCodeNoSchema, "SELECT"},
		{"schema qualified", "insert into s1.t values (1)", dbOnly(), 0, ""},
		{"fully qualified", "select * from db1.s1.t", noDB(), 0, ""},
		{"create database", "create database db1", noDB(), 0, ""},
		{"use database", "use database db1", noDB(), 0, ""},
		{"use schema needs database", "use schema s1", noDB(), errors.ErrCodeNoDatabase, "USE SCHEMA"},
		{"use qualified schema", "use schema db1.s1", noDB(), 0, ""},
		{"create schema", "create schema s1", dbOnly(), 0, ""},
		{"drop schema needs database", "drop schema s1", noDB(), errors.ErrCodeNoDatabase, "DROP SCHEMA"},
		{"cte is not a table", "with c as (select 1 as x) select * from c", noDB(), 0, ""},
		{"quoted cte reference", `with "c" as (select 1 as x) select * from "c"`, noDB(), 0, ""},
		{"cte folds like a table", `with c as (select 1 as x) select * from "C"`, noDB(), 0, ""},
		{"quoted lower case is a table", `with cte as (select 1 as x) select * from "cte"`, noDB(), errors.ErrCodeNoDatabase, "SELECT"},
		{"subquery table", "select * from db1.s1.t where a in (select a from u)", noDB(), errors.ErrCodeNoDatabase, "SELECT"},
		{"no tables", "select 1", noDB(), 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := parser.Parse(tc.sql)
			if err != nil {
				t.Fatal(err)
			}
			res, err := Default().Run(stmt, tc.sess)
			if tc.code == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if res != nil {
				t.Error("a failed run must not return a statement")
			}
			if !errors.IsCode(err, tc.code) {
				t.Errorf("code = %v, want %v: %v", errors.GetCode(err), tc.code, err)
			}
			if errors.GetSQLState(err) != errors.SQLStateNoCurrentCtx {
				t.Errorf("sqlstate = %s", errors.GetSQLState(err))
			}
			if !strings.Contains(err.Error(), "Cannot perform "+tc.cmd+".") {
				t.Errorf("message = %s", err)
			}
		})
	}
}

func TestUpperCaseIdempotent(t *testing.T) {
	stmt, err := parser.Parse(`select a, "Mixed", b.c from db.s."T" as b`)
	if err != nil {
		t.Fatal(err)
	}
	env := &Env{Session: fullSession(), Annotations: &Annotations{}}
	once, _ := upperCaseIdentifiers(stmt, env)
	first, _ := duckgen.Generate(once)
	twice, _ := upperCaseIdentifiers(once, env)
	second, _ := duckgen.Generate(twice)
	if first != second {
		t.Errorf("second run changed the statement:\n%s\n%s", first, second)
	}
	if !strings.Contains(first, `"Mixed"`) || !strings.Contains(first, `"T"`) {
		t.Errorf("quoted identifiers lost their case: %s", first)
	}
}

func TestAnnotations(t *testing.T) {
	table := QualifiedName{Catalog: "DB1", Schema: "SCHEMA1", Table: "T1"}

	t.Run("create table", func(t *testing.T) {
		_, res := runSQL(t, "create table t1 (id int, name varchar(50) comment 'the name', s string) comment = 'hello'", fullSession())
		ann := res.Annotations
		if ann.TableComment == nil || ann.TableComment.Comment != "hello" || ann.TableComment.Table != table {
			t.Errorf("table comment = %+v", ann.TableComment)
		}
		if len(ann.ColumnComments) != 1 || ann.ColumnComments[0].Column != "NAME" {
			t.Errorf("column comments = %+v", ann.ColumnComments)
		}
		want := []ColumnLength{
			{Table: table, Column: "NAME", MaxChars: 50},
			{Table: table, Column: "S", MaxChars: MaxTextLength},
		}
		if len(ann.TextLengths) != len(want) {
			t.Fatalf("text lengths = %+v", ann.TextLengths)
		}
		for i := range want {
			if ann.TextLengths[i] != want[i] {
				t.Errorf("text length %d = %+v, want %+v", i, ann.TextLengths[i], want[i])
			}
		}
	})

	t.Run("qualified names", func(t *testing.T) {
		_, res := runSQL(t, "create table db2.s2.t (c varchar(5))", fullSession())
		got := res.Annotations.TextLengths[0].Table
		if got != (QualifiedName{Catalog: "DB2", Schema: "S2", Table: "T"}) {
			t.Errorf("table = %+v", got)
		}
	})

	t.Run("comment on", func(t *testing.T) {
		_, res := runSQL(t, "comment on table t1 is 'c1'", fullSession())
		if res.Annotations.TableComment == nil || res.Annotations.TableComment.Comment != "c1" {
			t.Errorf("table comment = %+v", res.Annotations.TableComment)
		}
		_, res = runSQL(t, "comment on column t1.name is 'c2'", fullSession())
		cc := res.Annotations.ColumnComments
		if len(cc) != 1 || cc[0].Table != table || cc[0].Column != "NAME" || cc[0].Comment != "c2" {
			t.Errorf("column comments = %+v", cc)
		}
	})

	t.Run("session changes", func(t *testing.T) {
		_, res := runSQL(t, "use schema db2.s2", fullSession())
		if res.Annotations.UseDatabase != "DB2" || res.Annotations.UseSchema != "S2" {
			t.Errorf("annotations = %+v", res.Annotations)
		}
		_, res = runSQL(t, "use database db3", fullSession())
		if res.Annotations.UseDatabase != "DB3" || res.Annotations.UseSchema != "" {
			t.Errorf("annotations = %+v", res.Annotations)
		}
		_, res = runSQL(t, "create database db4", fullSession())
		if res.Annotations.CreatedDatabase != "DB4" {
			t.Errorf("annotations = %+v", res.Annotations)
		}
		_, res = runSQL(t, "drop database if exists db4", fullSession())
		if res.Annotations.DroppedDatabase != "DB4" {
			t.Errorf("annotations = %+v", res.Annotations)
		}
	})

	t.Run("plain select records nothing", func(t *testing.T) {
		_, res := runSQL(t, "select 1", fullSession())
		if !res.Annotations.Empty() {
			t.Errorf("annotations = %+v", res.Annotations)
		}
	})
}

func TestRunDoesNotMutateSession(t *testing.T) {
	sess := fullSession()
	runSQL(t, "use database other", sess)
	if sess.CurrentDatabase() != "DB1" {
		t.Errorf("session changed during the run: %s", sess.CurrentDatabase())
	}
}

func TestDescribe(t *testing.T) {
	stmt, err := parser.Parse("select 1 as a")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Default().Describe(stmt, fullSession())
	if err != nil {
		t.Fatal(err)
	}
	out, err := duckgen.Generate(res.Statement)
	if err != nil {
		t.Fatal(err)
	}
	if out != "DESCRIBE SELECT 1 AS A" {
		t.Errorf("got %s", out)
	}
}

func TestTextLengthLimit(t *testing.T) {
	_, res := runSQL(t, "create table t (a varchar(16777216))", fullSession())
	if n := res.Annotations.TextLengths[0].MaxChars; n != MaxTextLength {
		t.Errorf("max chars = %d", n)
	}

	for _, sql := range []string{
		"create table t (a varchar(16777217))",
		"create table t (a varchar(3000000000))",
		"create table t (a varchar(99999999999999999999))",
		"alter table t add column b string(20000000)",
		"alter table t alter column a set data type varchar(20000000)",
	} {
		t.Run(sql, func(t *testing.T) {
			stmt, err := parser.Parse(sql)
			if err != nil {
				t.Fatal(err)
			}
			res, err := Default().Run(stmt, fullSession())
			if !errors.IsCode(err, errors.ErrCodeInvalidParameter) {
				t.Fatalf("err = %v, want invalid parameter", err)
			}
			if res != nil {
				t.Error("a rejected statement must not be returned")
			}
			if !strings.Contains(err.Error(), "exceeds the maximum of 16777216") {
				t.Errorf("message = %s", err)
			}
		})
	}
}

func TestDescribeRefusesStatements(t *testing.T) {
	for _, sql := range []string{
		"insert into t values (1)",
		"create table t (a int)",
		"delete from t",
	} {
		t.Run(sql, func(t *testing.T) {
			stmt, err := parser.Parse(sql)
			if err != nil {
				t.Fatal(err)
			}
			_, err = Default().Describe(stmt, fullSession())
			if !errors.IsCode(err, errors.ErrCodeNotImplemented) {
				t.Fatalf("err = %v, want not implemented", err)
			}
			if !strings.Contains(err.Error(), "describe of") {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"select 1":                       "SELECT",
		"select 1 union select 2":        "SELECT",
		"insert into t values (1)":       "INSERT",
		"create table t (a int)":         "CREATE TABLE",
		"drop schema s":                  "DROP SCHEMA",
		"use schema s":                   "USE SCHEMA",
		"create tag x":                   "CREATE TAG",
		"show tables":                    "SHOW",
		"alter table t add column c int": "ALTER TABLE",
	}
	for sql, want := range tests {
		stmt, err := parser.Parse(sql)
		if err != nil {
			t.Fatalf("Parse(%q): %v", sql, err)
		}
		if got := CommandName(stmt); got != want {
			t.Errorf("CommandName(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestStrftimeFormat(t *testing.T) {
	tests := []struct{ in, want string }{
		{"YYYY-MM-DD", "%Y-%m-%d"},
		{"DD/MM/YY", "%d/%m/%y"},
		{"YYYY-MM-DD HH24:MI:SS", "%Y-%m-%d %H:%M:%S"},
		{"MON DD, YYYY", "%b %d, %Y"},
		{`YYYY"T"MM`, "%YT%m"},
		{"yyyy-mm-dd", "%Y-%m-%d"},
		{"100%", "100%%"},
	}
	for _, tt := range tests {
		if got := StrftimeFormat(tt.in); got != tt.want {
			t.Errorf("StrftimeFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
