package http

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/protocol"
)

// QueryResponse is the body answering POST /v1/query.
type QueryResponse struct {
	Success    bool            `json:"success"`
	Statements []StatementJSON `json:"statements"`
	Error      *ErrorJSON      `json:"error,omitempty"`
}

// StatementJSON is the result of one statement.
type StatementJSON struct {
	Command      string       `json:"command"`
	Columns      []ColumnJSON `json:"columns,omitempty"`
	Rows         [][]any      `json:"rows,omitempty"`
	RowsAffected *int64       `json:"rows_affected,omitempty"`
}

type ColumnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ErrorJSON carries the warehouse error number and SQLSTATE apart from the
// rendered message.
type ErrorJSON struct {
	Code     string `json:"code"`
	SQLState string `json:"sql_state"`
	Message  string `json:"message"`
}

func newErrorJSON(err error) *ErrorJSON {
	return &ErrorJSON{
		Code:     errors.GetCode(err).String(),
		SQLState: errors.GetSQLState(err),
		Message:  err.Error(),
	}
}

// statusFor maps a failed request to an HTTP status. Only errors the
// warehouse would call internal are the server's fault.
func statusFor(err error) int {
	if errors.GetCode(err) == errors.ErrCodeInternal {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeResult(w http.ResponseWriter, result protocol.Result) {
	resp := QueryResponse{
		Success:    result.Error == nil,
		Statements: make([]StatementJSON, 0, len(result.Statements)),
	}
	for _, st := range result.Statements {
		resp.Statements = append(resp.Statements, statementJSON(st))
	}
	status := http.StatusOK
	if result.Error != nil {
		resp.Error = newErrorJSON(result.Error)
		status = statusFor(result.Error)
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, QueryResponse{Statements: []StatementJSON{}, Error: newErrorJSON(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statementJSON(st protocol.StatementResult) StatementJSON {
	out := StatementJSON{Command: st.Command}
	if st.RowsAffected >= 0 {
		n := st.RowsAffected
		out.RowsAffected = &n
	}
	if st.Columns == nil {
		return out
	}
	out.Columns = make([]ColumnJSON, len(st.Columns))
	for i, col := range st.Columns {
		out.Columns[i] = ColumnJSON{Name: col.Name, Type: col.Type}
	}
	out.Rows = make([][]any, len(st.Rows))
	for i, row := range st.Rows {
		r := make([]any, len(row))
		for j, v := range row {
			typ := ""
			if j < len(st.Columns) {
				typ = st.Columns[j].Type
			}
			r[j] = jsonValue(v, typ)
		}
		out.Rows[i] = r
	}
	return out
}

// jsonValue converts an engine value to something encoding/json writes
// faithfully. Exact numbers stay JSON numbers with their scale; values
// JSON has no type for become strings.
func jsonValue(v any, engineType string) any {
	switch x := v.(type) {
	case nil, bool, string,
		int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint:
		return v
	case decimal.Decimal:
		if x.Exponent() < 0 {
			return json.Number(x.StringFixed(-x.Exponent()))
		}
		return json.Number(x.String())
	case *big.Int:
		return json.Number(x.String())
	case float32:
		return finite(float64(x))
	case float64:
		return finite(x)
	case []byte:
		return strings.ToUpper(fmt.Sprintf("%x", x))
	case time.Time:
		return formatTime(x, engineType)
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = jsonValue(e, "")
		}
		return m
	case []any:
		l := make([]any, len(x))
		for i, e := range x {
			l[i] = jsonValue(e, "")
		}
		return l
	default:
		return fmt.Sprint(x)
	}
}

// finite keeps NaN and infinities, which JSON cannot encode, as text.
func finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return f
}

func formatTime(t time.Time, engineType string) string {
	switch strings.ToUpper(strings.TrimSpace(engineType)) {
	case "DATE":
		return t.Format("2006-01-02")
	case "TIME":
		return t.Format("15:04:05.999999")
	case "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.Format("2006-01-02T15:04:05.999999999")
}
