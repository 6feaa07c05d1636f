package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--log-level", "warn"}, args...)
	code = run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != 0 || !strings.HasPrefix(out, "fakesnow version ") {
		t.Errorf("code %d, output %q", code, out)
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  []string
	}{
		{
			name: "arguments",
			args: []string{"translate", "create table t1 (id int, name varchar(10))"},
			want: []string{"CREATE TABLE T1 (ID BIGINT, NAME VARCHAR);"},
		},
		{
			name:  "standard input",
			stdin: "use schema db2.s2;\nselect * from t1;\n",
			args:  []string{"translate", "--command"},
			want:  []string{"-- USE SCHEMA\n", "SET schema = 'DB2.S2';", "-- SELECT\n", "SELECT * FROM T1;"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tt.stdin, tt.args...)
			if code != 0 {
				t.Fatalf("code %d: %s", code, errOut)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q does not contain %q", out, w)
				}
			}
		})
	}
}

func TestTranslateError(t *testing.T) {
	code, _, errOut := runCLI(t, "", "translate", "select 'unterminated")
	if code != 1 {
		t.Errorf("code = %d", code)
	}
	if !strings.Contains(errOut, "001003") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestExecFormats(t *testing.T) {
	script := "create table t (a int, b varchar); insert into t values (1, 'x'), (2, null); select a, b from t order by a;"

	code, out, errOut := runCLI(t, "", "exec", "-f", "csv", "-e", script)
	if code != 0 {
		t.Fatalf("code %d: %s", code, errOut)
	}
	if out != "A,B\n1,x\n2,NULL\n" {
		t.Errorf("csv output = %q", out)
	}

	code, out, errOut = runCLI(t, script, "exec", "--format", "json")
	if code != 0 {
		t.Fatalf("code %d: %s", code, errOut)
	}
	for _, want := range []string{`"A": 1`, `"B": "x"`, `"B": null`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output %q does not contain %s", out, want)
		}
	}

	code, out, errOut = runCLI(t, "", "exec", "-e", script)
	if code != 0 {
		t.Fatalf("code %d: %s", code, errOut)
	}
	for _, want := range []string{"CREATE TABLE", "INSERT 2", "2 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output %q does not contain %q", out, want)
		}
	}
}

func TestExecFileAndFixtures(t *testing.T) {
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures")
	if err := os.Mkdir(fixtures, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fixtures, "00_data.sql"),
		[]byte("create table f (a int);\ninsert into f values (5);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "query.sql")
	if err := os.WriteFile(script, []byte("select a * 2 as doubled from f;"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, "", "exec", "--fixtures", fixtures, "-f", "csv", script)
	if code != 0 {
		t.Fatalf("code %d: %s", code, errOut)
	}
	if out != "DOUBLED\n10\n" {
		t.Errorf("output = %q", out)
	}
}

func TestExecFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"missing table", []string{"exec", "-e", "select * from nope"}, 1, "002003 (42S02)"},
		{"unknown format", []string{"exec", "-f", "xml", "-e", "select 1"}, 2, `unknown format "xml"`},
		{"unknown flag", []string{"exec", "--bogus"}, 2, "unknown flag"},
		{"bad database name", []string{"-d", "not-valid", "exec", "-e", "select 1"}, 1, "invalid configuration"},
		{"missing file", []string{"exec", "/does/not/exist.sql"}, 1, "no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, "", tt.args...)
			if code != tt.code {
				t.Errorf("code = %d, want %d (%s)", code, tt.code, errOut)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr %q does not contain %q", errOut, tt.want)
			}
		})
	}
}

func TestShellPiped(t *testing.T) {
	input := strings.Join([]string{
		`\format csv`,
		"create table t (a int);",
		"insert into t",
		"  values (1), (2);",
		"select count(*) as n",
		"from t;",
		"select * from nope;",
		`\translate select * from t`,
		"select 42 as answer",
	}, "\n")

	code, out, errOut := runCLI(t, input, "shell")
	if code != 0 {
		t.Fatalf("code %d: %s", code, errOut)
	}
	for _, want := range []string{
		"Output format set to csv.",
		"N\n2\n",
		"SELECT * FROM T;",
		"ANSWER\n42\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
	if !strings.Contains(errOut, "002003") {
		t.Errorf("stderr %q should report the missing table", errOut)
	}
}

func TestShellQuit(t *testing.T) {
	code, out, _ := runCLI(t, "\\q\nselect 1 as never;\n", "shell", "-f", "csv")
	if code != 0 {
		t.Errorf("code = %d", code)
	}
	if strings.Contains(out, "NEVER") {
		t.Errorf("statement after \\q ran: %q", out)
	}
}
