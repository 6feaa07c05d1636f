package postgres

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/shopspring/decimal"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/protocol"
)

// Type OIDs from pg_type.
const (
	oidBool        = 16
	oidBytea       = 17
	oidInt8        = 20
	oidInt2        = 21
	oidInt4        = 23
	oidText        = 25
	oidJSON        = 114
	oidFloat4      = 700
	oidFloat8      = 701
	oidDate        = 1082
	oidTime        = 1083
	oidTimestamp   = 1114
	oidTimestampTZ = 1184
	oidNumeric     = 1700
	oidUUID        = 2950
)

func encodeResult(buf []byte, result protocol.Result) []byte {
	for _, st := range result.Statements {
		if st.Columns != nil {
			fields := make([]pgproto3.FieldDescription, len(st.Columns))
			for i, col := range st.Columns {
				fields[i] = pgproto3.FieldDescription{
					Name:         []byte(col.Name),
					DataTypeOID:  typeOID(col.Type),
					DataTypeSize: -1,
					TypeModifier: -1,
					Format:       0,
				}
			}
			buf = (&pgproto3.RowDescription{Fields: fields}).Encode(buf)

			for _, row := range st.Rows {
				values := make([][]byte, len(row))
				for i, val := range row {
					values[i] = textValue(val, st.Columns[i].Type)
				}
				buf = (&pgproto3.DataRow{Values: values}).Encode(buf)
			}
		}
		buf = (&pgproto3.CommandComplete{CommandTag: []byte(commandTag(st))}).Encode(buf)
	}

	switch {
	case result.Error != nil:
		buf = (&pgproto3.ErrorResponse{
			Severity: "ERROR",
			Code:     sqlState(result.Error),
			Message:  result.Error.Error(),
		}).Encode(buf)
	case len(result.Statements) == 0:
		buf = (&pgproto3.EmptyQueryResponse{}).Encode(buf)
	}

	txStatus := byte('I')
	if result.InTransaction {
		txStatus = 'T'
	}
	return (&pgproto3.ReadyForQuery{TxStatus: txStatus}).Encode(buf)
}

func sqlState(err error) string {
	if s := errors.GetSQLState(err); s != "" {
		return s
	}
	return errors.SQLStateGeneral
}

// commandTag follows PostgreSQL for DML and queries and passes the
// warehouse command name through for everything else.
func commandTag(st protocol.StatementResult) string {
	switch st.Command {
	case "INSERT":
		return fmt.Sprintf("INSERT 0 %d", st.RowsAffected)
	case "UPDATE", "DELETE":
		return fmt.Sprintf("%s %d", st.Command, st.RowsAffected)
	case "SELECT", "DESCRIBE":
		return fmt.Sprintf("SELECT %d", len(st.Rows))
	case "":
		return "OK"
	default:
		return st.Command
	}
}

// baseType strips the parameters of an engine type name: DECIMAL(10,2)
// becomes DECIMAL.
func baseType(engineType string) string {
	t := strings.ToUpper(strings.TrimSpace(engineType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return t
}

func typeOID(engineType string) uint32 {
	switch baseType(engineType) {
	case "BOOLEAN":
		return oidBool
	case "TINYINT", "SMALLINT", "UTINYINT":
		return oidInt2
	case "INTEGER", "USMALLINT":
		return oidInt4
	case "BIGINT", "UINTEGER":
		return oidInt8
	case "HUGEINT", "UBIGINT", "DECIMAL":
		return oidNumeric
	case "FLOAT":
		return oidFloat4
	case "DOUBLE":
		return oidFloat8
	case "DATE":
		return oidDate
	case "TIME":
		return oidTime
	case "TIMESTAMP", "TIMESTAMP_NS", "TIMESTAMP_MS", "TIMESTAMP_S":
		return oidTimestamp
	case "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return oidTimestampTZ
	case "BLOB":
		return oidBytea
	case "UUID":
		return oidUUID
	case "JSON":
		return oidJSON
	default:
		return oidText
	}
}

// textValue renders a value in PostgreSQL text format. nil is NULL.
func textValue(v interface{}, engineType string) []byte {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return []byte(x)
	case []byte:
		return []byte(`\x` + hex.EncodeToString(x))
	case bool:
		if x {
			return []byte("t")
		}
		return []byte("f")
	case decimal.Decimal:
		if x.Exponent() < 0 {
			return []byte(x.StringFixed(-x.Exponent()))
		}
		return []byte(x.String())
	case *big.Int:
		return []byte(x.String())
	case float32:
		return []byte(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		return []byte(strconv.FormatFloat(x, 'g', -1, 64))
	case time.Time:
		return []byte(formatTime(x, baseType(engineType)))
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(x)
		if err != nil {
			return []byte(fmt.Sprint(x))
		}
		return b
	default:
		return []byte(fmt.Sprint(x))
	}
}

func formatTime(t time.Time, base string) string {
	switch base {
	case "DATE":
		return t.Format("2006-01-02")
	case "TIME":
		return t.Format("15:04:05.999999")
	case "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		return t.UTC().Format("2006-01-02 15:04:05.999999") + "+00"
	default:
		return t.Format("2006-01-02 15:04:05.999999")
	}
}
