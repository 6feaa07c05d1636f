package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/ha1tch/fakesnow/pkg/fakesnow"
)

// Output formats.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

var formats = []string{formatTable, formatCSV, formatJSON}

func validFormat(name string) bool {
	for _, f := range formats {
		if f == name {
			return true
		}
	}
	return false
}

// printer writes statement results in one of the output formats.
type printer struct {
	w      io.Writer
	format string
	timing bool
}

// result prints what one statement returned. DML reports the affected
// row count; statements without a result table print nothing.
func (p *printer) result(cur *fakesnow.Cursor, elapsed time.Duration) error {
	switch cur.Command() {
	case "INSERT", "UPDATE", "DELETE":
		if p.format == formatTable {
			p.footer(fmt.Sprintf("%s %d", cur.Command(), cur.RowCount()), elapsed)
		}
		return nil
	}

	rs := cur.Result()
	if rs == nil || len(rs.Columns) == 0 || (!cur.IsQuery() && len(rs.Rows) == 0) {
		if p.format == formatTable {
			p.footer(orDefault(cur.Command(), "OK"), elapsed)
		}
		return nil
	}

	cols := rs.Names()
	rows := make([][]string, len(rs.Rows))
	for i, r := range rs.Rows {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = formatValue(v, rs.Columns[j].TypeName)
		}
	}

	var err error
	switch p.format {
	case formatCSV:
		err = writeCSV(p.w, cols, rows)
	case formatJSON:
		err = writeJSON(p.w, cols, rows, rs.Rows)
	default:
		err = writeTable(p.w, cols, rows)
		p.footer(fmt.Sprintf("%d rows", len(rows)), elapsed)
	}
	return err
}

func (p *printer) footer(msg string, elapsed time.Duration) {
	if p.timing && elapsed > 0 {
		msg = fmt.Sprintf("%s (%.2fms)", msg, float64(elapsed.Microseconds())/1000)
	}
	fmt.Fprintln(p.w, pterm.FgGray.Sprint(msg))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func writeTable(w io.Writer, cols []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, cols)
	for _, r := range rows {
		data = append(data, r)
	}
	s, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func writeCSV(w io.Writer, cols []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// writeJSON prints one object per row. Numbers, booleans and NULL keep
// their JSON types; everything else uses its display text.
func writeJSON(w io.Writer, cols []string, text [][]string, rows [][]any) error {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		m := make(map[string]any, len(cols))
		for j, col := range cols {
			m[col] = jsonValue(r[j], text[i][j])
		}
		out[i] = m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func jsonValue(v any, text string) any {
	switch x := v.(type) {
	case nil, bool:
		return v
	case float32:
		return finiteNumber(float64(x), text)
	case float64:
		return finiteNumber(x, text)
	case decimal.Decimal, *big.Int,
		int8, int16, int32, int64, uint8, uint16, uint32, uint64, int, uint:
		return json.Number(text)
	}
	return text
}

func finiteNumber(f float64, text string) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return text
	}
	return json.Number(text)
}

// formatValue renders a value for display. nil is NULL.
func formatValue(v any, typeName string) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return strings.ToUpper(fmt.Sprintf("%x", x))
	case bool:
		return strings.ToUpper(strconv.FormatBool(x))
	case decimal.Decimal:
		if x.Exponent() < 0 {
			return x.StringFixed(-x.Exponent())
		}
		return x.String()
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *big.Int:
		return x.String()
	case time.Time:
		switch strings.ToUpper(typeName) {
		case "DATE":
			return x.Format("2006-01-02")
		case "TIME":
			return x.Format("15:04:05.999999")
		}
		return x.Format("2006-01-02 15:04:05.999999999")
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
