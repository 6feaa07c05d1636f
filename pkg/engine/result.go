package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
)

// Column describes one result column as the engine reports it.
type Column struct {
	Name     string
	TypeName string // engine type, e.g. "DECIMAL" or "VARCHAR"
	Nullable bool
}

// ResultSet is a fully read result.
type ResultSet struct {
	Columns []Column
	Rows    [][]any
}

// Names returns the column names.
func (rs *ResultSet) Names() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

func scanResultSet(rows *sql.Rows) (*ResultSet, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: make([]Column, len(colTypes))}
	for i, ct := range colTypes {
		rs.Columns[i] = Column{Name: ct.Name(), TypeName: ct.DatabaseTypeName(), Nullable: true}
		if nullable, ok := ct.Nullable(); ok {
			rs.Columns[i].Nullable = nullable
		}
	}

	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = normalize(values[i], rs.Columns[i].TypeName)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// normalize converts driver values into the types callers see:
// decimals become decimal.Decimal, JSON becomes its text.
func normalize(v any, typeName string) any {
	switch x := v.(type) {
	case duckdb.Decimal:
		if x.Value == nil {
			return nil
		}
		return decimal.NewFromBigInt(x.Value, -int32(x.Scale))
	case *big.Int:
		return decimal.NewFromBigInt(x, 0)
	case time.Time:
		return x.UTC()
	case nil, string, []byte:
		return v
	}
	if typeName == "JSON" {
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return v
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
