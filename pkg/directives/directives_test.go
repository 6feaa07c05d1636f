package directives

import (
	"strings"
	"testing"

	"github.com/ha1tch/fakesnow/pkg/errors"
)

func TestParse(t *testing.T) {
	source := `-- seed data for the raw layer
-- @fakesnow:database=analytics
-- @fakesnow:schema = raw

-- @fakesnow:order=10
create table events (id int);
-- @fakesnow:skip
insert into events values (1);`

	set, err := Parse(source)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := set.Get(Database); v != "analytics" {
		t.Errorf("database = %q", v)
	}
	if set.GetString(Schema, "") != "raw" {
		t.Errorf("schema = %q", set.GetString(Schema, ""))
	}
	if set.GetInt(Order, 0) != 10 {
		t.Errorf("order = %d", set.GetInt(Order, 0))
	}
	if set.Has(Skip) {
		t.Error("skip after the first statement must be ignored")
	}
}

func TestScanLines(t *testing.T) {
	tests := []struct {
		line    string
		wantKey string
		wantVal string
	}{
		{"-- @fakesnow:database=db1", "database", "db1"},
		{"-- @fakesnow:order=3", "order", "3"},
		{"-- @fakesnow:skip", "skip", ""},
		{"  -- @fakesnow:Schema = S1  ", "schema", "S1"},
		{"-- @fakesnow:database=a=b", "database", "a=b"},
	}
	for _, tt := range tests {
		ds := Scan(tt.line + "\nselect 1")
		if len(ds) != 1 {
			t.Errorf("%q: got %d directives", tt.line, len(ds))
			continue
		}
		if ds[0].Key != tt.wantKey || ds[0].Value != tt.wantVal {
			t.Errorf("%q: got %s=%q", tt.line, ds[0].Key, ds[0].Value)
		}
		if ds[0].Line != 1 {
			t.Errorf("%q: line = %d", tt.line, ds[0].Line)
		}
	}
}

func TestScanEmpty(t *testing.T) {
	if ds := Scan("-- @fakesnow:\nselect 1"); len(ds) != 0 {
		t.Errorf("got %v", ds)
	}
	if ds := Scan("select 1"); len(ds) != 0 {
		t.Errorf("got %v", ds)
	}
}

func TestGetBool(t *testing.T) {
	set := Set{"a": "", "b": "yes", "c": "ON", "d": "false", "e": "0"}
	tests := map[string]bool{"a": true, "b": true, "c": true, "d": false, "e": false, "missing": false}
	for key, want := range tests {
		if got := set.GetBool(key); got != want {
			t.Errorf("GetBool(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestGetIntDefault(t *testing.T) {
	set := Set{"order": "x"}
	if set.GetInt("order", 7) != 7 {
		t.Error("invalid value should fall back")
	}
	if set.GetInt("missing", 5) != 5 {
		t.Error("missing value should fall back")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown key", "-- @fakesnow:isolated\nselect 1", `unknown directive "isolated" on line 1`},
		{"bad order", "\n-- @fakesnow:order=first\nselect 1", `needs an integer, got "first" on line 2`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.source)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.ErrCodeInvalidParameter) {
				t.Errorf("code = %v", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should contain %q", err, tc.want)
			}
		})
	}
}
