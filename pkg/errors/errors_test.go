package errors

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"no database",
			NoCurrentDatabase("SELECT").Err(),
			"090105 (22000): Cannot perform SELECT. This session does not have a current database. Call 'USE DATABASE', or use a qualified name.",
		},
		{
			"no schema",
			NoCurrentSchema("CREATE TABLE").Err(),
			"090106 (22000): Cannot perform CREATE TABLE. This session does not have a current schema. Call 'USE SCHEMA', or use a qualified name.",
		},
		{
			"binder override",
			New(ErrCodeBinder, "Referenced column \"x\" not found").Err(),
			"002043 (02000): Referenced column \"x\" not found",
		},
		{
			"explicit state",
			New(ErrCodeStatement, "boom").WithSQLState("42601").Err(),
			"100000 (42601): boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := Wrap(cause, ErrCodeStatement, "read failed").Err()

	if !Is(err, io.ErrUnexpectedEOF) {
		t.Error("wrapped cause should be reachable with errors.Is")
	}
	if strings.Contains(err.Error(), "unexpected EOF") {
		t.Error("cause must not leak into the client message")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if GetCode(wrapped) != ErrCodeStatement {
		t.Errorf("GetCode = %v", GetCode(wrapped))
	}
}

func TestExtraction(t *testing.T) {
	err := NotImplemented("dict params").Err()
	if !IsCode(err, ErrCodeNotImplemented) {
		t.Error("expected not implemented code")
	}
	if GetKind(err) != KindNotSupported {
		t.Errorf("kind = %v", GetKind(err))
	}
	if GetSQLState(err) != SQLStateNotImplemented {
		t.Errorf("sqlstate = %s", GetSQLState(err))
	}
	if GetFields(err)["feature"] != "dict params" {
		t.Errorf("fields = %v", GetFields(err))
	}

	foreign := io.EOF
	if GetCode(foreign) != ErrCodeInternal || GetSQLState(foreign) != SQLStateGeneral {
		t.Error("foreign errors should report internal defaults")
	}
}

func TestDetailedFormat(t *testing.T) {
	err := Syntax(1, 7, "unexpected 'FROM'").WithOp("Parser.Parse").Err()
	out := fmt.Sprintf("%+v", err)
	for _, want := range []string{"ProgrammingError", "Parser.Parse", "position: 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("%%+v output missing %q:\n%s", want, out)
		}
	}
}
