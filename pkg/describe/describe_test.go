package describe

import (
	"strings"
	"testing"

	"github.com/ha1tch/fakesnow/pkg/errors"
)

func val(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		typ       string
		code      TypeCode
		precision int
		scale     int
		internal  int
	}{
		{"BIGINT", TypeFixed, 38, 0, -1},
		{"INTEGER", TypeFixed, 38, 0, -1},
		{"HUGEINT", TypeFixed, 38, 0, -1},
		{"DECIMAL(10,2)", TypeFixed, 10, 2, -1},
		{"DECIMAL(18, 4)", TypeFixed, 18, 4, -1},
		{"VARCHAR", TypeText, -1, -1, MaxTextSize},
		{"DOUBLE", TypeReal, -1, -1, -1},
		{"FLOAT", TypeReal, -1, -1, -1},
		{"BOOLEAN", TypeBoolean, -1, -1, -1},
		{"DATE", TypeDate, -1, -1, -1},
		{"TIMESTAMP", TypeTimestampNTZ, 0, 9, -1},
		{"TIMESTAMP_NS", TypeTimestampNTZ, 0, 9, -1},
		{"TIMESTAMP WITH TIME ZONE", TypeTimestampTZ, 0, 9, -1},
		{"TIME", TypeTime, 0, 9, -1},
		{"JSON", TypeVariant, -1, -1, -1},
		{"BLOB", TypeBinary, -1, -1, MaxBinarySize},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cols, err := Translate([]Row{{ColumnName: "C", ColumnType: tt.typ, Null: "YES"}})
			if err != nil {
				t.Fatal(err)
			}
			c := cols[0]
			if c.Name != "C" || !c.IsNullable {
				t.Errorf("column = %+v", c)
			}
			if c.TypeCode != tt.code {
				t.Errorf("type code = %s, want %s", c.TypeCode, tt.code)
			}
			if val(c.Precision) != tt.precision || val(c.Scale) != tt.scale {
				t.Errorf("precision/scale = %d/%d, want %d/%d", val(c.Precision), val(c.Scale), tt.precision, tt.scale)
			}
			if val(c.InternalSize) != tt.internal {
				t.Errorf("internal size = %d, want %d", val(c.InternalSize), tt.internal)
			}
			if c.DisplaySize != nil {
				t.Error("display size should be unset")
			}
		})
	}
}

func TestTranslateNotNull(t *testing.T) {
	cols, err := Translate([]Row{{ColumnName: "ID", ColumnType: "BIGINT", Null: "NO"}})
	if err != nil {
		t.Fatal(err)
	}
	if cols[0].IsNullable {
		t.Error("expected a non-nullable column")
	}
}

func TestTranslateUnsupported(t *testing.T) {
	_, err := Translate([]Row{
		{ColumnName: "A", ColumnType: "BIGINT"},
		{ColumnName: "B", ColumnType: "INTERVAL"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.ErrCodeNotImplemented) {
		t.Errorf("code = %v", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "unsupported column type INTERVAL") {
		t.Errorf("message = %s", err)
	}
	if errors.GetKind(err) != errors.KindNotSupported {
		t.Errorf("kind = %v", errors.GetKind(err))
	}
}
