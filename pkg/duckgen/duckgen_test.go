package duckgen

import (
	"strings"
	"testing"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
	"github.com/ha1tch/fakesnow/pkg/sfparser/parser"
)

func generate(t *testing.T, sql string) string {
	t.Helper()
	stmt, err := parser.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sql, err)
	}
	out, err := Generate(stmt)
	if err != nil {
		t.Fatalf("Generate(%q): %v", sql, err)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"select", "select a, b as c from t where a > 1 order by b desc nulls last limit 10",
			"SELECT a, b AS c FROM t WHERE a > 1 ORDER BY b DESC NULLS LAST LIMIT 10"},
		{"quoted idents", `select "Mixed Case", "order" from "T"`,
			`SELECT "Mixed Case", "order" FROM "T"`},
		{"reserved bare ident", `select t.x from tbl as t`, `SELECT t.x FROM tbl AS t`},
		{"string escaping", `select 'it''s'`, `SELECT 'it''s'`},
		{"join", "select * from a left outer join b on a.id = b.id join c using (id)",
			"SELECT * FROM a LEFT JOIN b ON a.id = b.id JOIN c USING (id)"},
		{"set op", "select 1 union select 2 minus select 3",
			"SELECT 1 UNION SELECT 2 EXCEPT SELECT 3"},
		{"cte", "with x as (select 1 as a) select a from x",
			"WITH x AS (SELECT 1 AS a) SELECT a FROM x"},
		{"insert", "insert into t (a, b) values (1, ?), (2, %s)",
			"INSERT INTO t (a, b) VALUES (1, ?), (2, ?)"},
		{"numbered params", "select :1, :2", "SELECT $1, $2"},
		{"update", "update t set a = a + 1 where b in (1, 2)",
			"UPDATE t SET a = a + 1 WHERE b IN (1, 2)"},
		{"delete", "delete from t where not exists (select 1 from u)",
			"DELETE FROM t WHERE NOT EXISTS (SELECT 1 FROM u)"},
		{"cast", "select x::int, try_cast(y as varchar)",
			"SELECT CAST(x AS INT), TRY_CAST(y AS VARCHAR)"},
		{"case", "select case when a then 1 else 2 end",
			"SELECT CASE WHEN a THEN 1 ELSE 2 END"},
		{"window", "select row_number() over (partition by a order by b) from t",
			"SELECT ROW_NUMBER() OVER (PARTITION BY a ORDER BY b) FROM t"},
		{"star exclude", "select * exclude (a, b) from t", "SELECT * EXCLUDE (a, b) FROM t"},
		{"create table", "create table if not exists t (id int not null primary key, name varchar default 'x')",
			"CREATE TABLE IF NOT EXISTS t (id INT NOT NULL PRIMARY KEY, name VARCHAR DEFAULT 'x')"},
		{"ctas", "create or replace table t as select 1 as a",
			"CREATE OR REPLACE TABLE t AS SELECT 1 AS a"},
		{"create table like", "create table t2 like t1", "CREATE TABLE t2 AS SELECT * FROM t1 LIMIT 0"},
		{"drop", "drop table if exists s.t", "DROP TABLE IF EXISTS s.t"},
		{"alter add", "alter table t add column c int", "ALTER TABLE t ADD COLUMN c INT"},
		{"alter rename", "alter table s.t rename to s.t2", "ALTER TABLE s.t RENAME TO t2"},
		{"alter type", "alter table t alter column c set data type bigint",
			"ALTER TABLE t ALTER COLUMN c TYPE BIGINT"},
		{"describe", "describe table t", "DESCRIBE t"},
		{"command", "show tables", "show tables"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := generate(t, tt.in); got != tt.want {
				t.Errorf("\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestParenthesisation(t *testing.T) {
	expr := &ast.Binary{
		Op: "*",
		L:  &ast.Binary{Op: "+", L: &ast.NumberLit{Raw: "1"}, R: &ast.NumberLit{Raw: "2"}},
		R:  &ast.NumberLit{Raw: "3"},
	}
	got, err := Expr(expr)
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT (1 + 2) * 3" {
		t.Errorf("got %s", got)
	}

	neg := &ast.Unary{Op: "-", X: &ast.Unary{Op: "-", X: &ast.NumberLit{Raw: "1"}}}
	got, _ = Expr(neg)
	if strings.Contains(got, "--") {
		t.Errorf("double minus renders as a comment: %s", got)
	}
}

func TestRewrittenNodes(t *testing.T) {
	tests := []struct {
		name string
		stmt ast.Statement
		want string
	}{
		{"noop", &ast.NoOp{Status: "Statement executed successfully."},
			"SELECT 'Statement executed successfully.' AS status"},
		{"search path", &ast.SetSearchPath{Catalog: "DB1", Schema: "S1"}, "SET schema = 'DB1.S1'"},
		{"attach", &ast.Attach{IfNotExists: true, Name: ast.NewIdent("DB1")},
			"ATTACH IF NOT EXISTS ':memory:' AS DB1"},
		{"detach", &ast.Detach{Name: ast.NewIdent("DB1")}, "DETACH DATABASE DB1"},
		{"json", &ast.Select{Columns: []*ast.SelectItem{{Expr: &ast.JSONExtract{
			X: &ast.ColumnRef{Parts: []*ast.Ident{ast.NewIdent("V")}}, Path: "$.a[0]", Scalar: true}}}},
			"SELECT V ->> '$.a[0]'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.stmt)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnrewrittenStatements(t *testing.T) {
	for _, sql := range []string{"use database db1", "comment on table t is 'x'", "select a:b from t"} {
		t.Run(sql, func(t *testing.T) {
			stmt, err := parser.Parse(sql)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Generate(stmt); err == nil {
				t.Error("expected error")
			}
		})
	}

	stmt, _ := parser.Parse("insert overwrite into t values (1)")
	_, err := Generate(stmt)
	if !errors.IsCode(err, errors.ErrCodeNotImplemented) {
		t.Errorf("expected not implemented, got %v", err)
	}
}
