// Package catalog keeps the table and column metadata the engine's own
// catalog cannot hold: table comments, column comments and declared text
// lengths. Each warehouse database gets a private schema with two tables
// and a view that joins them back onto the engine's information schema.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
)

// Names of the extension objects inside each catalog.
const (
	ExtensionSchema = "_FS_INFORMATION_SCHEMA"
	TablesExt       = "TABLES_EXT"
	ColumnsExt      = "COLUMNS_EXT"
	ColumnsView     = "COLUMNS_SNOWFLAKE"
)

// MaxOctetLength is the warehouse's largest VARCHAR in bytes.
const MaxOctetLength = 16777216

// OctetLength is the byte bound of a text column holding maxChars UTF-8
// characters.
func OctetLength(maxChars int) int {
	if maxChars > MaxOctetLength/4 {
		return MaxOctetLength
	}
	return maxChars * 4
}

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidateName rejects catalog names that could not be spliced into DDL
// safely.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return errors.InvalidInput("catalog name", fmt.Sprintf("%q does not match %s", name, validName)).
			WithOp("catalog.ValidateName").Err()
	}
	return nil
}

// Execer runs a statement. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store writes extension records through an engine connection. Writes
// commit on their own; they are not part of the transaction of the
// statement that produced them and are never retried.
type Store struct {
	db     Execer
	logger *log.Logger
}

// New returns a store writing through db.
func New(db Execer) *Store {
	return &Store{db: db, logger: log.Default()}
}

// WithLogger sets the store's logger.
func (s *Store) WithLogger(l *log.Logger) *Store {
	s.logger = l
	return s
}

// EnsureExtensionObjects creates the extension schema, tables and view of a
// catalog. It is safe to call more than once.
func (s *Store) EnsureExtensionObjects(ctx context.Context, catalog string) error {
	builders := []func(string) (string, error){
		CreateSchemaSQL,
		CreateTablesExtSQL,
		CreateColumnsExtSQL,
		CreateColumnsViewSQL,
	}
	for _, build := range builders {
		stmt, err := build(catalog)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	s.logger.Catalog().Debug("extension objects ready", "catalog", catalog)
	return nil
}

// UpsertTableComment records the comment of a table, replacing any
// earlier one.
func (s *Store) UpsertTableComment(ctx context.Context, catalog, schema, table, comment string) error {
	stmt, err := UpsertTableCommentSQL(catalog)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, stmt, catalog, schema, table, comment); err != nil {
		return err
	}
	s.logger.Catalog().Debug("table comment recorded", "catalog", catalog, "schema", schema, "table", table)
	return nil
}

// UpsertColumnLength records the declared character length of a column
// and its derived byte length.
func (s *Store) UpsertColumnLength(ctx context.Context, catalog, schema, table, column string, maxChars int) error {
	stmt, err := UpsertColumnLengthSQL(catalog)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, stmt, catalog, schema, table, column, maxChars, OctetLength(maxChars))
	if err != nil {
		return err
	}
	s.logger.Catalog().Debug("column length recorded",
		"catalog", catalog, "schema", schema, "table", table, "column", column, "length", maxChars)
	return nil
}

// UpsertColumnComment records the comment of a column.
func (s *Store) UpsertColumnComment(ctx context.Context, catalog, schema, table, column, comment string) error {
	stmt, err := UpsertColumnCommentSQL(catalog)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, stmt, catalog, schema, table, column, comment); err != nil {
		return err
	}
	s.logger.Catalog().Debug("column comment recorded",
		"catalog", catalog, "schema", schema, "table", table, "column", column)
	return nil
}
