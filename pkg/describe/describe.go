// Package describe converts engine DESCRIBE output into warehouse result
// column metadata.
package describe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/errors"
)

// TypeCode is the warehouse connector's column type code.
type TypeCode int

const (
	TypeFixed        TypeCode = 0
	TypeReal         TypeCode = 1
	TypeText         TypeCode = 2
	TypeDate         TypeCode = 3
	TypeVariant      TypeCode = 5
	TypeTimestampTZ  TypeCode = 7
	TypeTimestampNTZ TypeCode = 8
	TypeBinary       TypeCode = 11
	TypeTime         TypeCode = 12
	TypeBoolean      TypeCode = 13
)

func (t TypeCode) String() string {
	switch t {
	case TypeFixed:
		return "FIXED"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	case TypeDate:
		return "DATE"
	case TypeVariant:
		return "VARIANT"
	case TypeTimestampTZ:
		return "TIMESTAMP_TZ"
	case TypeTimestampNTZ:
		return "TIMESTAMP_NTZ"
	case TypeBinary:
		return "BINARY"
	case TypeTime:
		return "TIME"
	case TypeBoolean:
		return "BOOLEAN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Size limits reported for unbounded columns.
const (
	MaxTextSize   = 16777216
	MaxBinarySize = 8388608
)

// Column describes one result column. Nil size, precision and scale mean
// not applicable.
type Column struct {
	Name         string
	TypeCode     TypeCode
	DisplaySize  *int
	InternalSize *int
	Precision    *int
	Scale        *int
	IsNullable   bool
}

// Row is one row of engine DESCRIBE output.
type Row struct {
	ColumnName string
	ColumnType string
	Null       string // "YES" or "NO"
}

var decimalType = regexp.MustCompile(`^DECIMAL\((\d+),\s*(\d+)\)$`)

func intp(n int) *int { return &n }

// Translate maps DESCRIBE rows to column metadata. It fails on the first
// column whose engine type has no warehouse equivalent.
func Translate(rows []Row) ([]Column, error) {
	cols := make([]Column, 0, len(rows))
	for _, r := range rows {
		c, err := column(r)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func column(r Row) (Column, error) {
	c := Column{Name: r.ColumnName, IsNullable: r.Null != "NO"}
	typ := strings.ToUpper(strings.TrimSpace(r.ColumnType))

	switch typ {
	case "BIGINT", "INTEGER", "SMALLINT", "TINYINT", "HUGEINT":
		c.TypeCode = TypeFixed
		c.Precision, c.Scale = intp(38), intp(0)
	case "VARCHAR":
		c.TypeCode = TypeText
		c.InternalSize = intp(MaxTextSize)
	case "DOUBLE", "FLOAT":
		c.TypeCode = TypeReal
	case "BOOLEAN":
		c.TypeCode = TypeBoolean
	case "DATE":
		c.TypeCode = TypeDate
	case "TIMESTAMP", "TIMESTAMP_NS":
		c.TypeCode = TypeTimestampNTZ
		c.Precision, c.Scale = intp(0), intp(9)
	case "TIMESTAMP WITH TIME ZONE":
		c.TypeCode = TypeTimestampTZ
		c.Precision, c.Scale = intp(0), intp(9)
	case "TIME":
		c.TypeCode = TypeTime
		c.Precision, c.Scale = intp(0), intp(9)
	case "JSON":
		c.TypeCode = TypeVariant
	case "BLOB":
		c.TypeCode = TypeBinary
		c.InternalSize = intp(MaxBinarySize)
	default:
		m := decimalType.FindStringSubmatch(typ)
		if m == nil {
			return Column{}, errors.Newf(errors.ErrCodeNotImplemented, "unsupported column type %s", r.ColumnType).
				WithField("column", r.ColumnName).
				WithOp("describe.Translate").Err()
		}
		p, _ := strconv.Atoi(m[1])
		s, _ := strconv.Atoi(m[2])
		c.TypeCode = TypeFixed
		c.Precision, c.Scale = intp(p), intp(s)
	}
	return c, nil
}
