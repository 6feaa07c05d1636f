package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ha1tch/fakesnow/pkg/errors"
)

func openSession(t *testing.T) *Conn {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	conn, err := db.Session(context.Background())
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDSN(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{}, ""},
		{Config{Path: "/tmp/x.db"}, "/tmp/x.db"},
		{Config{Threads: 2, MemoryLimit: "1GB"}, "?memory_limit=1GB&threads=2"},
	}
	for _, tt := range tests {
		if got := tt.cfg.DSN(); got != tt.want {
			t.Errorf("DSN() = %q, want %q", got, tt.want)
		}
	}
}

func TestExecAndQuery(t *testing.T) {
	conn := openSession(t)
	ctx := context.Background()

	if _, err := conn.Exec(ctx, "CREATE TABLE t (id BIGINT, price DECIMAL(10, 2), name VARCHAR)"); err != nil {
		t.Fatal(err)
	}
	n, err := conn.Exec(ctx, "INSERT INTO t VALUES (1, 9.99, 'a'), (2, 0.50, NULL)")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rows affected = %d", n)
	}

	rs, err := conn.Query(ctx, "SELECT id, price, name FROM t ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(rs.Names(), ",") != "id,price,name" {
		t.Errorf("columns = %v", rs.Names())
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("got %d rows", len(rs.Rows))
	}
	price, ok := rs.Rows[0][1].(decimal.Decimal)
	if !ok {
		t.Fatalf("price is %T", rs.Rows[0][1])
	}
	if !price.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("price = %s", price)
	}
	if rs.Rows[1][2] != nil {
		t.Errorf("name = %v, want NULL", rs.Rows[1][2])
	}
}

func TestDescribe(t *testing.T) {
	conn := openSession(t)
	rows, err := conn.Describe(context.Background(), "SELECT 1::BIGINT AS a, 'x' AS b")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].ColumnName != "a" || rows[0].ColumnType != "BIGINT" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].ColumnType != "VARCHAR" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestSessionsUseUTC(t *testing.T) {
	conn := openSession(t)
	rs, err := conn.Query(context.Background(), "SELECT current_setting('TimeZone')")
	if err != nil {
		t.Fatal(err)
	}
	if rs.Rows[0][0] != "UTC" {
		t.Errorf("TimeZone = %v", rs.Rows[0][0])
	}
}

func TestExists(t *testing.T) {
	conn := openSession(t)
	ctx := context.Background()
	if _, err := conn.Exec(ctx, "ATTACH ':memory:' AS DB1"); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(ctx, "CREATE SCHEMA DB1.S1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		catalog, schema string
		want            bool
	}{
		{"DB1", "", true},
		{"DB1", "S1", true},
		{"DB1", "S2", false},
		{"DB2", "", false},
	}
	for _, tt := range tests {
		got, err := conn.Exists(ctx, tt.catalog, tt.schema)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Exists(%q, %q) = %v", tt.catalog, tt.schema, got)
		}
	}
}

func TestClassify(t *testing.T) {
	conn := openSession(t)
	ctx := context.Background()
	if _, err := conn.Exec(ctx, "CREATE TABLE t (a INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec(ctx, "INSERT INTO t VALUES (1)"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		sql  string
		kind Kind
		code errors.Code
	}{
		{"missing table", "SELECT * FROM nope", KindCatalog, errors.ErrCodeObjectNotFound},
		{"missing column", "SELECT nope FROM t", KindBinder, errors.ErrCodeBinder},
		{"syntax", "SELEC 1", KindParser, errors.ErrCodeSyntax},
		{"duplicate key", "INSERT INTO t VALUES (1)", KindConstraint, errors.ErrCodeConstraint},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := conn.Query(ctx, tc.sql)
			var ee *Error
			if !stderrors.As(err, &ee) {
				t.Fatalf("got %T: %v", err, err)
			}
			if ee.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", ee.Kind, tc.kind)
			}
			werr := Translate(err)
			if !errors.IsCode(werr, tc.code) {
				t.Errorf("code = %v, want %v", errors.GetCode(werr), tc.code)
			}
			if strings.Contains(werr.Error(), "\n") {
				t.Errorf("message keeps more than one line: %q", werr)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	plain := stderrors.New("not from the engine")
	if Translate(plain) != plain {
		t.Error("foreign errors should pass through")
	}

	err := Translate(&Error{Kind: KindCatalog, Msg: "Catalog Error: Table with name X does not exist!\nDid you mean Y?"})
	if got := err.Error(); got != "002003 (42S02): Catalog Error: Table with name X does not exist!" {
		t.Errorf("got %q", got)
	}

	err = Translate(&Error{Kind: KindBinder, Msg: "Binder Error: Referenced column \"Z\" not found"})
	if errors.GetSQLState(err) != "02000" || !errors.IsCode(err, errors.ErrCodeBinder) {
		t.Errorf("got %v", err)
	}

	err = Translate(&Error{Kind: KindOther, Msg: "Out of Range Error: overflow"})
	if !errors.IsCode(err, errors.ErrCodeStatement) {
		t.Errorf("got %v", err)
	}
}

func TestClassifyByPrefix(t *testing.T) {
	err := classify(stderrors.New("Catalog Error: Schema with name S does not exist!"))
	var ee *Error
	if !stderrors.As(err, &ee) || ee.Kind != KindCatalog {
		t.Errorf("got %v", err)
	}
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}

func TestDescribeRows(t *testing.T) {
	rows, err := DescribeRows(&ResultSet{Rows: [][]any{{"A", "INTEGER", "YES", nil, nil, nil}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ColumnName != "A" || rows[0].ColumnType != "INTEGER" || rows[0].Null != "YES" {
		t.Errorf("rows = %+v", rows)
	}

	_, err = DescribeRows(&ResultSet{Rows: [][]any{{int64(1)}}})
	if !errors.IsCode(err, errors.ErrCodeInternal) {
		t.Errorf("short row: %v", err)
	}
}
