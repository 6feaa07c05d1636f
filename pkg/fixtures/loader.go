// Package fixtures seeds sessions from directories of warehouse SQL scripts.
//
// Every *.sql file in a directory is one script. Files run in lexical
// order unless a header directive says otherwise (see package directives):
//
//	fixtures/
//	├── 00_databases.sql
//	├── 10_customers.sql      -- @fakesnow:database=crm
//	└── 20_scratch.sql        -- @fakesnow:skip
//
// Files with an order directive run before files without one.
package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/directives"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/log"
)

// File is one fixture script.
type File struct {
	Path       string
	Name       string
	Source     string
	Directives directives.Set
}

// Skip reports whether the file asked not to be loaded.
func (f *File) Skip() bool { return f.Directives.GetBool(directives.Skip) }

func (f *File) order() (int, bool) {
	if !f.Directives.Has(directives.Order) {
		return 0, false
	}
	return f.Directives.GetInt(directives.Order, 0), true
}

// LoadError records a file that failed.
type LoadError struct {
	Path  string
	Error error
}

// Result summarises one directory load.
type Result struct {
	Applied    []string
	Skipped    []string
	Errors     []LoadError
	Statements int
}

// Loader reads and applies fixture files.
type Loader struct {
	logger *log.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{logger: logger}
}

// ReadFile reads one script and its header.
func (l *Loader) ReadFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfig, "failed to read fixture file").
			WithOp("Loader.ReadFile").
			WithField("path", path).
			Err()
	}
	set, err := directives.Parse(string(source))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeConfig, "invalid fixture header in %s", filepath.Base(path)).
			WithOp("Loader.ReadFile").
			WithField("path", path).
			Err()
	}
	return &File{
		Path:       path,
		Name:       filepath.Base(path),
		Source:     string(source),
		Directives: set,
	}, nil
}

// Scan lists the scripts of dir in load order, skipped files included.
// Unreadable files end the scan.
func (l *Loader) Scan(dir string) ([]*File, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfig, "fixture directory not found").
			WithOp("Loader.Scan").
			WithField("path", dir).
			Err()
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeConfig, "not a directory: %s", dir).
			WithOp("Loader.Scan").
			Err()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfig, "failed to read fixture directory").
			WithOp("Loader.Scan").
			WithField("path", dir).
			Err()
	}

	var files []*File
	for _, entry := range entries {
		if entry.IsDir() || !isScript(entry.Name()) {
			continue
		}
		f, err := l.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	Sort(files)
	return files, nil
}

// Sort orders files for loading: explicit order ascending, then the rest,
// each group by name.
func Sort(files []*File) {
	sort.SliceStable(files, func(i, j int) bool {
		oi, hi := files[i].order()
		oj, hj := files[j].order()
		if hi != hj {
			return hi
		}
		if hi && oi != oj {
			return oi < oj
		}
		return files[i].Name < files[j].Name
	})
}

func isScript(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".sql")
}

// Apply runs one file on conn. Database and schema directives switch the
// session first, so they stay in effect after the file.
func (l *Loader) Apply(ctx context.Context, conn *fakesnow.Conn, f *File) (int, error) {
	var prelude []string
	if db, ok := f.Directives.Get(directives.Database); ok && db != "" {
		prelude = append(prelude, "USE DATABASE "+db)
	}
	if schema, ok := f.Directives.Get(directives.Schema); ok && schema != "" {
		prelude = append(prelude, "USE SCHEMA "+schema)
	}
	for _, stmt := range prelude {
		if _, err := conn.ExecuteString(ctx, stmt); err != nil {
			return 0, err
		}
	}

	cursors, err := conn.ExecuteString(ctx, f.Source)
	if err != nil {
		return len(cursors), err
	}
	l.logger.System().Debug("fixture applied",
		"path", f.Path,
		"statements", len(cursors),
		"session", conn.ID(),
	)
	return len(cursors), nil
}

// LoadDirectory applies every script of dir in order. A failing file is
// recorded and the load goes on with the next one.
func (l *Loader) LoadDirectory(ctx context.Context, conn *fakesnow.Conn, dir string) (*Result, error) {
	files, err := l.Scan(dir)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, f := range files {
		if f.Skip() {
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}
		n, err := l.Apply(ctx, conn, f)
		result.Statements += n
		if err != nil {
			l.logger.System().Warn("fixture failed",
				"path", f.Path,
				"error", err.Error(),
			)
			result.Errors = append(result.Errors, LoadError{Path: f.Path, Error: err})
			continue
		}
		result.Applied = append(result.Applied, f.Name)
	}

	l.logger.System().Info("fixtures loaded",
		"dir", dir,
		"applied", len(result.Applied),
		"skipped", len(result.Skipped),
		"failed", len(result.Errors),
	)
	return result, nil
}
