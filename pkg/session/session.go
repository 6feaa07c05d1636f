// Package session holds the per-connection catalog and schema context.
package session

import "strings"

// DefaultSchema is the engine schema a catalog starts with.
const DefaultSchema = "main"

// Context is the current database and schema of one connection. Names are
// stored upper-cased. The "set" flags record whether the name was chosen
// explicitly, either at connect time or by USE; a default alone does not
// satisfy the session check.
//
// A Context is not safe for concurrent use.
type Context struct {
	database    string
	schema      string
	databaseSet bool
	schemaSet   bool
}

// New returns a context seeded with the connection's requested names.
// Seeded names are not marked as set until the bootstrap confirms they
// exist in the engine.
func New(database, schema string) *Context {
	return &Context{
		database: strings.ToUpper(database),
		schema:   strings.ToUpper(schema),
	}
}

// MarkDatabaseSet marks the seeded database as chosen.
func (c *Context) MarkDatabaseSet() { c.databaseSet = c.database != "" }

// MarkSchemaSet marks the seeded schema as chosen.
func (c *Context) MarkSchemaSet() { c.schemaSet = c.schema != "" }

// SetDatabase makes name the current database.
func (c *Context) SetDatabase(name string) {
	c.database = strings.ToUpper(name)
	c.databaseSet = true
}

// SetSchema makes name the current schema.
func (c *Context) SetSchema(name string) {
	c.schema = strings.ToUpper(name)
	c.schemaSet = true
}

// ClearSchema forgets the current schema. USE DATABASE moves the search
// path to the new database's default schema, which is not an explicit
// choice.
func (c *Context) ClearSchema() {
	c.schema = ""
	c.schemaSet = false
}

// CurrentDatabase returns the current database, or "" when there is none.
func (c *Context) CurrentDatabase() string { return c.database }

// CurrentSchema returns the current schema, or "" when there is none.
func (c *Context) CurrentSchema() string { return c.schema }

// IsDatabaseSet reports whether a database was chosen.
func (c *Context) IsDatabaseSet() bool { return c.databaseSet }

// IsSchemaSet reports whether a schema was chosen.
func (c *Context) IsSchemaSet() bool { return c.schemaSet }

// SearchPath returns the catalog and schema the engine resolves
// unqualified names against.
func (c *Context) SearchPath() (catalog, schema string) {
	schema = c.schema
	if !c.schemaSet {
		schema = DefaultSchema
	}
	return c.database, schema
}

// Qualify fills missing catalog and schema parts from the context. Parts
// that are given are returned unchanged.
func (c *Context) Qualify(catalog, schema string) (string, string) {
	cat, sch := c.SearchPath()
	if catalog == "" {
		catalog = cat
	}
	if schema == "" {
		schema = sch
	}
	return catalog, schema
}

// Clone returns a copy of the context.
func (c *Context) Clone() *Context {
	cp := *c
	return &cp
}
