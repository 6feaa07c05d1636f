package http

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/protocol"
)

func startListener(t *testing.T) *Listener {
	t.Helper()
	cfg := protocol.DefaultListenerConfig(protocol.ProtocolHTTP)
	cfg.Port = 0
	l, err := NewListener(cfg, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Listen(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

type served struct {
	sql   string
	props map[string]string
	again error
}

// serveOne plays the server's part for a single request.
func serveOne(t *testing.T, l *Listener, result protocol.Result) <-chan served {
	t.Helper()
	ch := make(chan served, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			close(ch)
			return
		}
		defer conn.Close()
		req, err := conn.ReadRequest()
		if err != nil {
			close(ch)
			return
		}
		conn.SendResult(result)
		_, again := conn.ReadRequest()
		ch <- served{sql: req.SQL, props: conn.Properties(), again: again}
	}()
	return ch
}

func post(t *testing.T, l *Listener, body string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post("http://"+l.Addr().String()+"/v1/query", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func TestQuery(t *testing.T) {
	l := startListener(t)
	done := serveOne(t, l, protocol.Result{Statements: []protocol.StatementResult{
		{
			Command:      "SELECT",
			Columns:      []protocol.ColumnInfo{{Name: "A", Type: "DECIMAL(10,2)"}, {Name: "B", Type: "VARCHAR"}},
			Rows:         [][]interface{}{{decimal.RequireFromString("1.50"), nil}},
			RowsAffected: -1,
		},
		{Command: "INSERT", RowsAffected: 2},
	}})

	status, body := post(t, l, `{"sql": "select 1", "database": "DB1", "schema": "S1"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, body)
	}
	for _, want := range []string{
		`"success":true`,
		`"columns":[{"name":"A","type":"DECIMAL(10,2)"},{"name":"B","type":"VARCHAR"}]`,
		`"rows":[[1.50,null]]`,
		`"command":"INSERT","rows_affected":2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s does not contain %s", body, want)
		}
	}

	got := <-done
	if got.sql != "select 1" {
		t.Errorf("sql = %q", got.sql)
	}
	if got.props["database"] != "DB1.S1" {
		t.Errorf("props = %v", got.props)
	}
	if got.again != io.EOF {
		t.Errorf("second ReadRequest = %v, want io.EOF", got.again)
	}
}

func TestQueryError(t *testing.T) {
	l := startListener(t)
	serveOne(t, l, protocol.Result{
		Statements: []protocol.StatementResult{{Command: "CREATE TABLE", RowsAffected: -1}},
		Error:      errors.New(errors.ErrCodeObjectNotFound, "Table 'T9' does not exist or not authorized.").Err(),
	})

	status, body := post(t, l, `{"sql": "create table t1 (x int); select * from t9"}`)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d", status)
	}
	var resp QueryResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Error.Code != "002003" || resp.Error.SQLState != "42S02" {
		t.Errorf("error = %+v", resp.Error)
	}
	if len(resp.Statements) != 1 || resp.Statements[0].Command != "CREATE TABLE" {
		t.Errorf("statements = %+v", resp.Statements)
	}
}

func TestBadRequests(t *testing.T) {
	l := startListener(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `select 1`, "invalid request body"},
		{"no sql", `{"database": "DB1"}`, "request has no sql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, l, tt.body)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d", status)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body %s does not mention %q", body, tt.want)
			}
		})
	}

	resp, err := http.Get("http://" + l.Addr().String() + "/v1/query")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	l := startListener(t)
	for _, path := range []string{"/", "/health"} {
		resp, err := http.Get("http://" + l.Addr().String() + path)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"status":"ok"`) {
			t.Errorf("%s: %d %s", path, resp.StatusCode, b)
		}
	}
	resp, err := http.Get("http://" + l.Addr().String() + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d", resp.StatusCode)
	}
}

func TestAcceptAfterClose(t *testing.T) {
	l := startListener(t)
	l.Close()
	if _, err := l.Accept(); err != io.EOF {
		t.Errorf("Accept after Close = %v, want io.EOF", err)
	}
}

func TestJSONValue(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		v    any
		typ  string
		want string
	}{
		{"null", nil, "INTEGER", `null`},
		{"integer", int64(7), "BIGINT", `7`},
		{"decimal keeps scale", decimal.RequireFromString("2.10"), "DECIMAL(10,2)", `2.10`},
		{"nan", math.NaN(), "DOUBLE", `"NaN"`},
		{"binary", []byte{0xde, 0xad}, "BLOB", `"DEAD"`},
		{"date", ts, "DATE", `"2024-01-02"`},
		{"timestamp", ts, "TIMESTAMP", `"2024-01-02T03:04:05"`},
		{"object", map[string]any{"k": decimal.RequireFromString("1.0")}, "JSON", `{"k":1.0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(jsonValue(tt.v, tt.typ))
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestGzipResponse(t *testing.T) {
	l := startListener(t)
	rows := make([][]interface{}, 200)
	for i := range rows {
		rows[i] = []interface{}{"a fairly repetitive string value"}
	}
	serveOne(t, l, protocol.Result{Statements: []protocol.StatementResult{{
		Command:      "SELECT",
		Columns:      []protocol.ColumnInfo{{Name: "S", Type: "VARCHAR"}},
		Rows:         rows,
		RowsAffected: -1,
	}}})

	req, err := http.NewRequest(http.MethodPost, "http://"+l.Addr().String()+"/v1/query", strings.NewReader(`{"sql": "select s from t"}`))
	if err != nil {
		t.Fatal(err)
	}
	// Setting the header by hand keeps the transport from decoding the body.
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q", got)
	}
}
