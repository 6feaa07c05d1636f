// Package fakesnow runs warehouse SQL on an embedded engine. A Conn is one
// warehouse session: it owns a pinned engine connection, the session's
// current database and schema, and the pipeline that rewrites each
// statement before it runs.
package fakesnow

import (
	"context"
	"fmt"

	"github.com/ha1tch/fakesnow/pkg/catalog"
	"github.com/ha1tch/fakesnow/pkg/duckgen"
	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/session"
	"github.com/ha1tch/fakesnow/pkg/sfparser/ast"
	"github.com/ha1tch/fakesnow/pkg/sfparser/parser"
	"github.com/ha1tch/fakesnow/pkg/transform"
)

// Options configures a new connection.
type Options struct {
	// Database and Schema are the session's initial names. Either may be
	// empty.
	Database string
	Schema   string

	// CreateDatabase and CreateSchema create the initial database and
	// schema when they do not exist yet.
	CreateDatabase bool
	CreateSchema   bool

	Logger *log.Logger
}

// DefaultOptions creates missing objects on connect.
func DefaultOptions() Options {
	return Options{CreateDatabase: true, CreateSchema: true}
}

// Conn is a warehouse session. It is not safe for concurrent use.
type Conn struct {
	eng      *engine.Conn
	sess     *session.Context
	store    *catalog.Store
	pipeline *transform.Pipeline
	logger   *log.Logger
	id       string

	// catalogs whose extension objects are known to exist
	ensured map[string]bool
	inTxn   bool
	closed  bool
}

// Connect opens a session on db. When the requested database (and
// schema) exist after the optional create steps, they become the session's
// current ones.
func Connect(ctx context.Context, db *engine.DB, opts Options) (*Conn, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	eng, err := db.Session(ctx)
	if err != nil {
		return nil, engine.Translate(err)
	}

	c := &Conn{
		eng:      eng,
		sess:     session.New(opts.Database, opts.Schema),
		store:    catalog.New(eng).WithLogger(logger),
		pipeline: transform.Default().WithLogger(logger),
		logger:   logger,
		id:       fmt.Sprintf("s%d", eng.ID()),
		ensured:  make(map[string]bool),
	}
	if err := c.bootstrap(ctx, opts); err != nil {
		eng.Close()
		return nil, err
	}
	logger.System().Debug("connected", "session", c.id,
		"database", c.sess.CurrentDatabase(), "schema", c.sess.CurrentSchema())
	return c, nil
}

func (c *Conn) bootstrap(ctx context.Context, opts Options) error {
	database, schema := c.sess.CurrentDatabase(), c.sess.CurrentSchema()
	if database == "" {
		return nil
	}
	if err := catalog.ValidateName(database); err != nil {
		return err
	}

	dbExists, err := c.eng.Exists(ctx, database, "")
	if err != nil {
		return engine.Translate(err)
	}
	if opts.CreateDatabase && !dbExists {
		if _, err := c.eng.Exec(ctx, "ATTACH DATABASE ':memory:' AS "+duckgen.QuoteIdent(database)); err != nil {
			return engine.Translate(err)
		}
		if err := c.ensureCatalog(ctx, database); err != nil {
			return engine.Translate(err)
		}
		dbExists = true
	}
	if !dbExists {
		return nil
	}

	schemaExists := false
	if schema != "" {
		if schemaExists, err = c.eng.Exists(ctx, database, schema); err != nil {
			return engine.Translate(err)
		}
		if opts.CreateSchema && !schemaExists {
			stmt := "CREATE SCHEMA " + duckgen.QuoteIdent(database) + "." + duckgen.QuoteIdent(schema)
			if _, err := c.eng.Exec(ctx, stmt); err != nil {
				return engine.Translate(err)
			}
			schemaExists = true
		}
	}

	path := database + "." + session.DefaultSchema
	if schemaExists {
		path = database + "." + schema
	}
	if _, err := c.eng.Exec(ctx, "SET schema = "+duckgen.QuoteString(path)); err != nil {
		return engine.Translate(err)
	}
	c.sess.MarkDatabaseSet()
	if schemaExists {
		c.sess.MarkSchemaSet()
	}
	return nil
}

// ensureCatalog creates the extension objects of a catalog once per
// connection. Store errors are returned unchanged.
func (c *Conn) ensureCatalog(ctx context.Context, name string) error {
	if c.ensured[name] {
		return nil
	}
	if err := c.store.EnsureExtensionObjects(ctx, name); err != nil {
		return err
	}
	c.ensured[name] = true
	return nil
}

// ID identifies the session in logs.
func (c *Conn) ID() string { return c.id }

// Session returns the session's current database and schema.
func (c *Conn) Session() *session.Context { return c.sess }

// InTransaction reports whether a transaction is open.
func (c *Conn) InTransaction() bool { return c.inTxn }

// Cursor returns a new cursor on the connection.
func (c *Conn) Cursor() *Cursor {
	return &Cursor{conn: c, rowCount: -1}
}

// Commit commits the open transaction. Without one it does nothing.
func (c *Conn) Commit(ctx context.Context) error {
	return c.Cursor().Execute(ctx, "COMMIT")
}

// Rollback rolls back the open transaction. Without one it does nothing.
func (c *Conn) Rollback(ctx context.Context) error {
	return c.Cursor().Execute(ctx, "ROLLBACK")
}

// ExecuteString runs every statement of a script in order, each on its own
// cursor. It stops at the first failure and returns the cursors of the
// statements that ran.
func (c *Conn) ExecuteString(ctx context.Context, script string) ([]*Cursor, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	stmts, err := parser.ParseAll(script)
	if err != nil {
		return nil, err
	}
	cursors := make([]*Cursor, 0, len(stmts))
	for _, stmt := range stmts {
		cur := c.Cursor()
		if err := cur.run(ctx, stmt, nil); err != nil {
			return cursors, err
		}
		cursors = append(cursors, cur)
	}
	return cursors, nil
}

// Close releases the engine connection. Closing twice is allowed.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.System().Debug("closed", "session", c.id)
	return c.eng.Close()
}

func (c *Conn) checkOpen() error {
	if c.closed {
		return errors.New(errors.ErrCodeConnection, "Connection is closed").WithKind(errors.KindInterface).Err()
	}
	return nil
}

// apply consumes the annotations of a statement that ran successfully:
// session changes first, then extension catalog writes. The writes are
// separate statements; a failing write does not undo the statement and its
// error reaches the caller as the store returned it, not as a warehouse
// error.
func (c *Conn) apply(ctx context.Context, ann *transform.Annotations, stmt ast.Statement) error {
	applyUse(c.sess, ann)

	if ann.CreatedDatabase != "" {
		delete(c.ensured, ann.CreatedDatabase)
		if err := c.ensureCatalog(ctx, ann.CreatedDatabase); err != nil {
			return err
		}
	}
	if ann.DroppedDatabase != "" {
		delete(c.ensured, ann.DroppedDatabase)
	}

	if tc := ann.TableComment; tc != nil {
		t := tc.Table
		if err := c.ensureCatalog(ctx, t.Catalog); err != nil {
			return err
		}
		if err := c.store.UpsertTableComment(ctx, t.Catalog, t.Schema, t.Table, tc.Comment); err != nil {
			return err
		}
	}
	for _, cl := range ann.TextLengths {
		t := cl.Table
		if err := c.ensureCatalog(ctx, t.Catalog); err != nil {
			return err
		}
		if err := c.store.UpsertColumnLength(ctx, t.Catalog, t.Schema, t.Table, cl.Column, cl.MaxChars); err != nil {
			return err
		}
	}
	for _, cc := range ann.ColumnComments {
		t := cc.Table
		if err := c.ensureCatalog(ctx, t.Catalog); err != nil {
			return err
		}
		if err := c.store.UpsertColumnComment(ctx, t.Catalog, t.Schema, t.Table, cc.Column, cc.Comment); err != nil {
			return err
		}
	}

	if tx, ok := stmt.(*ast.Transaction); ok {
		c.inTxn = tx.Action == "BEGIN"
	}
	return nil
}

// applyUse moves the session after a USE statement. USE DATABASE leaves no
// schema selected.
func applyUse(sess *session.Context, ann *transform.Annotations) {
	switch {
	case ann.UseSchema != "":
		if ann.UseDatabase != "" {
			sess.SetDatabase(ann.UseDatabase)
		}
		sess.SetSchema(ann.UseSchema)
	case ann.UseDatabase != "":
		sess.SetDatabase(ann.UseDatabase)
		sess.ClearSchema()
	}
}
