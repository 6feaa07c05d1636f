// Package directives reads fixture file headers.
//
// A fixture script may start with directive comments that steer how it is
// loaded. They look like ordinary SQL comments, so the script still runs
// unchanged in the warehouse:
//
//	-- @fakesnow:database=analytics
//	-- @fakesnow:schema=raw
//	-- @fakesnow:order=10
//	CREATE TABLE events (...);
//
// Syntax:
//   - `-- @fakesnow:<key>` is a flag (presence means true)
//   - `-- @fakesnow:<key>=<value>` sets a value
//   - Only the header counts: directives end at the first line that is
//     neither blank nor a comment
package directives

import (
	"strconv"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/errors"
)

// Prefix marks a directive comment.
const Prefix = "-- @fakesnow:"

// Directive keys.
const (
	Database = "database"
	Schema   = "schema"
	Skip     = "skip"
	Order    = "order"
)

// Known lists the accepted keys with a short description.
var Known = map[string]string{
	Database: "string: USE DATABASE before the script runs",
	Schema:   "string: USE SCHEMA before the script runs",
	Skip:     "bool: do not load the file",
	Order:    "int: load position; lower runs first, files without one run last",
}

// Directive is one parsed header line.
type Directive struct {
	Key   string
	Value string // empty for flags
	Line  int    // 1-indexed
}

// Set holds the directives of one file.
type Set map[string]string

// Has reports whether key is present.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Get returns the value for key and whether it was found.
func (s Set) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// GetString returns the value for key, or def if absent.
func (s Set) GetString(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// GetInt returns the integer value for key, or def if absent or not a number.
func (s Set) GetInt(key string, def int) int {
	if v, ok := s[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// GetBool reports a flag. A bare key is true; explicit values accept
// true, 1, yes and on.
func (s Set) GetBool(key string) bool {
	v, ok := s[key]
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// Scan returns the header directives of source in line order.
func Scan(source string) []Directive {
	var out []Directive
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, Prefix):
			if d, ok := parseLine(trimmed, i+1); ok {
				out = append(out, d)
			}
		case trimmed == "", strings.HasPrefix(trimmed, "--"):
			// other comments and blank lines do not end the header
		default:
			return out
		}
	}
	return out
}

func parseLine(line string, lineNum int) (Directive, bool) {
	content := strings.TrimSpace(strings.TrimPrefix(line, Prefix))
	if content == "" {
		return Directive{}, false
	}
	if idx := strings.Index(content, "="); idx > 0 {
		return Directive{
			Key:   strings.ToLower(strings.TrimSpace(content[:idx])),
			Value: strings.TrimSpace(content[idx+1:]),
			Line:  lineNum,
		}, true
	}
	return Directive{Key: strings.ToLower(content), Line: lineNum}, true
}

// Parse reads the header of source and validates it. A later line
// overrides an earlier one with the same key.
func Parse(source string) (Set, error) {
	set := make(Set)
	for _, d := range Scan(source) {
		if _, ok := Known[d.Key]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown directive %q on line %d", d.Key, d.Line).
				WithField("directive", d.Key).
				Err()
		}
		if d.Key == Order {
			if _, err := strconv.Atoi(d.Value); err != nil {
				return nil, errors.Newf(errors.ErrCodeInvalidParameter, "directive order needs an integer, got %q on line %d", d.Value, d.Line).
					WithField("directive", d.Key).
					Err()
			}
		}
		set[d.Key] = d.Value
	}
	return set, nil
}
