package catalog

import (
	"fmt"
	"strings"
)

// The builders below take a catalog name, validate it and return a
// complete statement. Row values are always bind parameters.

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// object returns the qualified name of an extension object.
func object(catalog, name string) (string, error) {
	if err := ValidateName(catalog); err != nil {
		return "", err
	}
	return quote(catalog) + "." + ExtensionSchema + "." + name, nil
}

// CreateSchemaSQL creates the extension schema of catalog.
func CreateSchemaSQL(catalog string) (string, error) {
	if err := ValidateName(catalog); err != nil {
		return "", err
	}
	return "CREATE SCHEMA IF NOT EXISTS " + quote(catalog) + "." + ExtensionSchema, nil
}

// CreateTablesExtSQL creates the table comment store. The ext_ prefix
// keeps the key columns apart from information_schema.tables in joins.
func CreateTablesExtSQL(catalog string) (string, error) {
	name, err := object(catalog, TablesExt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ext_table_catalog VARCHAR,
    ext_table_schema VARCHAR,
    ext_table_name VARCHAR,
    comment VARCHAR,
    PRIMARY KEY (ext_table_catalog, ext_table_schema, ext_table_name)
)`, name), nil
}

// CreateColumnsExtSQL creates the column length and comment store.
func CreateColumnsExtSQL(catalog string) (string, error) {
	name, err := object(catalog, ColumnsExt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ext_table_catalog VARCHAR,
    ext_table_schema VARCHAR,
    ext_table_name VARCHAR,
    ext_column_name VARCHAR,
    ext_character_maximum_length INTEGER,
    ext_character_octet_length INTEGER,
    ext_comment VARCHAR,
    PRIMARY KEY (ext_table_catalog, ext_table_schema, ext_table_name, ext_column_name)
)`, name), nil
}

// CreateColumnsViewSQL creates the warehouse flavoured columns view. It
// only exposes the fields the warehouse's information_schema.columns has.
// Integers are 38 digits in base 10; text without a recorded bound has the
// warehouse maximum.
func CreateColumnsViewSQL(catalog string) (string, error) {
	view, err := object(catalog, ColumnsView)
	if err != nil {
		return "", err
	}
	ext, _ := object(catalog, ColumnsExt)
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %[1]s AS
SELECT
    c.table_catalog, c.table_schema, c.table_name, c.column_name, c.ordinal_position,
    c.column_default, c.is_nullable,
    CASE
        WHEN c.data_type = 'BIGINT' OR starts_with(c.data_type, 'DECIMAL') THEN 'NUMBER'
        WHEN c.data_type = 'VARCHAR' THEN 'TEXT'
        WHEN c.data_type = 'DOUBLE' THEN 'FLOAT'
        WHEN c.data_type IN ('TIMESTAMP', 'TIMESTAMP_NS') THEN 'TIMESTAMP_NTZ'
        WHEN c.data_type = 'TIMESTAMP WITH TIME ZONE' THEN 'TIMESTAMP_TZ'
        WHEN c.data_type = 'JSON' THEN 'VARIANT'
        WHEN c.data_type = 'BLOB' THEN 'BINARY'
        ELSE c.data_type
    END AS data_type,
    CASE WHEN c.data_type = 'VARCHAR'
        THEN coalesce(ext.ext_character_maximum_length, %[3]d) END AS character_maximum_length,
    CASE WHEN c.data_type = 'VARCHAR'
        THEN coalesce(ext.ext_character_octet_length, %[3]d) END AS character_octet_length,
    CASE WHEN c.data_type = 'BIGINT' THEN 38 ELSE c.numeric_precision END AS numeric_precision,
    CASE WHEN c.data_type = 'BIGINT' THEN 10 ELSE c.numeric_precision_radix END AS numeric_precision_radix,
    c.numeric_scale,
    c.collation_name, c.is_identity, c.identity_generation, c.identity_cycle,
    ext.ext_comment AS comment
FROM %[4]s.information_schema.columns AS c
LEFT JOIN %[2]s AS ext
    ON ext.ext_table_catalog = c.table_catalog AND ext.ext_table_schema = c.table_schema
    AND ext.ext_table_name = c.table_name AND ext.ext_column_name = c.column_name
WHERE c.table_catalog = '%[5]s' AND c.table_schema <> '%[6]s'`,
		view, ext, MaxOctetLength, quote(catalog), catalog, ExtensionSchema), nil
}

// UpsertTableCommentSQL inserts or replaces a table comment. Parameters:
// catalog, schema, table, comment.
func UpsertTableCommentSQL(catalog string) (string, error) {
	name, err := object(catalog, TablesExt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`INSERT INTO %s VALUES (?, ?, ?, ?)
ON CONFLICT (ext_table_catalog, ext_table_schema, ext_table_name)
DO UPDATE SET comment = excluded.comment`, name), nil
}

// UpsertColumnLengthSQL inserts or replaces a column's length bounds.
// Parameters: catalog, schema, table, column, max chars, max octets.
func UpsertColumnLengthSQL(catalog string) (string, error) {
	name, err := object(catalog, ColumnsExt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`INSERT INTO %s (ext_table_catalog, ext_table_schema, ext_table_name, ext_column_name,
    ext_character_maximum_length, ext_character_octet_length)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (ext_table_catalog, ext_table_schema, ext_table_name, ext_column_name)
DO UPDATE SET ext_character_maximum_length = excluded.ext_character_maximum_length,
    ext_character_octet_length = excluded.ext_character_octet_length`, name), nil
}

// UpsertColumnCommentSQL inserts or replaces a column comment. Parameters:
// catalog, schema, table, column, comment.
func UpsertColumnCommentSQL(catalog string) (string, error) {
	name, err := object(catalog, ColumnsExt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`INSERT INTO %s (ext_table_catalog, ext_table_schema, ext_table_name, ext_column_name, ext_comment)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (ext_table_catalog, ext_table_schema, ext_table_name, ext_column_name)
DO UPDATE SET ext_comment = excluded.ext_comment`, name), nil
}
