// Package engine runs emitted SQL on an embedded DuckDB database.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/ha1tch/fakesnow/pkg/describe"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
)

// Config holds engine settings.
type Config struct {
	// Path to the database file. Empty means in-memory.
	Path string

	// Threads caps the engine's worker threads. Zero keeps the engine default.
	Threads int

	// MemoryLimit is passed through as the engine's memory_limit, e.g. "1GB".
	MemoryLimit string
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() Config {
	return Config{}
}

// DSN renders the connection string go-duckdb expects.
func (c Config) DSN() string {
	q := url.Values{}
	if c.Threads > 0 {
		q.Set("threads", strconv.Itoa(c.Threads))
	}
	if c.MemoryLimit != "" {
		q.Set("memory_limit", c.MemoryLimit)
	}
	if len(q) == 0 {
		return c.Path
	}
	return c.Path + "?" + q.Encode()
}

// DB is an open engine database shared by sessions.
type DB struct {
	db     *sql.DB
	cfg    Config
	logger *log.Logger
	nextID atomic.Int64
}

// Open opens the engine database described by cfg.
func Open(cfg Config) (*DB, error) {
	db, err := sql.Open("duckdb", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open engine database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping engine database: %w", err)
	}
	return &DB{db: db, cfg: cfg, logger: log.Default()}, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*DB, error) {
	return Open(DefaultConfig())
}

// WithLogger sets the logger used by the database and its sessions.
func (d *DB) WithLogger(l *log.Logger) *DB {
	d.logger = l
	return d
}

// Session pins one engine connection. The search path and open
// transaction are per connection, so a warehouse session must keep using
// the same Conn.
func (d *DB) Session(ctx context.Context) (*Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire engine connection: %w", err)
	}
	id := d.nextID.Add(1)
	conn := &Conn{conn: c, id: id, logger: d.logger}
	if _, err := c.ExecContext(ctx, "SET TimeZone = 'UTC'"); err != nil {
		c.Close()
		return nil, classify(err)
	}
	d.logger.Engine().Debug("session opened", "conn", id)
	return conn, nil
}

// Close closes the database. Open sessions must be closed first.
func (d *DB) Close() error {
	return d.db.Close()
}

// Conn is one pinned engine connection. It is not safe for concurrent use.
type Conn struct {
	conn   *sql.Conn
	id     int64
	logger *log.Logger
}

// ID identifies the connection in logs.
func (c *Conn) ID() int64 { return c.id }

// Exec runs a statement and returns the number of affected rows, or -1
// when the engine does not report one.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	c.logger.Engine().Debug("exec", "conn", c.id, "sql", query)
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// ExecContext lets the connection serve as a catalog writer.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.logger.Engine().Debug("exec", "conn", c.id, "sql", query)
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// Query runs a statement and reads its whole result.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	c.logger.Engine().Debug("query", "conn", c.id, "sql", query)
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	rs, err := scanResultSet(rows)
	if err != nil {
		return nil, classify(err)
	}
	return rs, nil
}

// Describe reports the output columns of query without running it.
func (c *Conn) Describe(ctx context.Context, query string, args ...any) ([]describe.Row, error) {
	rs, err := c.Query(ctx, "DESCRIBE "+query, args...)
	if err != nil {
		return nil, err
	}
	return DescribeRows(rs)
}

// DescribeRows reads the name, type and nullability columns of a DESCRIBE
// result.
func DescribeRows(rs *ResultSet) ([]describe.Row, error) {
	out := make([]describe.Row, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		if len(r) < 3 {
			return nil, errors.Newf(errors.ErrCodeInternal, "unexpected DESCRIBE row width %d", len(r)).
				WithOp("engine.DescribeRows").Err()
		}
		out = append(out, describe.Row{
			ColumnName: toString(r[0]),
			ColumnType: toString(r[1]),
			Null:       toString(r[2]),
		})
	}
	return out, nil
}

// Exists reports whether a catalog, or a schema within it when schema is
// not empty, is attached.
func (c *Conn) Exists(ctx context.Context, catalog, schema string) (bool, error) {
	query := "SELECT count(*) FROM information_schema.schemata WHERE catalog_name = ?"
	args := []any{catalog}
	if schema != "" {
		query += " AND schema_name = ?"
		args = append(args, schema)
	}
	var n int64
	if err := c.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// Close returns the connection to the pool.
func (c *Conn) Close() error {
	c.logger.Engine().Debug("session closed", "conn", c.id)
	return c.conn.Close()
}
