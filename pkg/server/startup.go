package server

import (
	"strings"

	"github.com/ha1tch/fakesnow/pkg/catalog"
)

// StartupConfig controls how client startup parameters pick the initial
// database and schema of a session.
type StartupConfig struct {
	// ClientDatabase lets the client's database parameter choose the
	// session's database. It may name a schema too: "db.schema".
	ClientDatabase bool `json:"client_database"`

	// SchemaParam names a startup parameter that chooses the schema,
	// e.g. "search_path". Empty disables it.
	SchemaParam string `json:"schema_param"`
}

// Target is a session's initial database and schema.
type Target struct {
	Database string
	Schema   string
}

// Resolve picks the session target from startup properties, falling back
// to def. Property names match case-insensitively.
func (c StartupConfig) Resolve(props map[string]string, def Target) (Target, error) {
	t := def
	if c.ClientDatabase {
		if v := lookup(props, "database"); v != "" {
			db, schema, _ := strings.Cut(v, ".")
			if err := catalog.ValidateName(db); err != nil {
				return Target{}, err
			}
			t.Database = db
			if schema != "" {
				if err := catalog.ValidateName(schema); err != nil {
					return Target{}, err
				}
				t.Schema = schema
			}
		}
	}
	if c.SchemaParam != "" {
		if v := lookup(props, c.SchemaParam); v != "" {
			// search_path style lists: the first entry wins
			first, _, _ := strings.Cut(v, ",")
			first = strings.Trim(strings.TrimSpace(first), `"`)
			if err := catalog.ValidateName(first); err != nil {
				return Target{}, err
			}
			t.Schema = first
		}
	}
	return t, nil
}

func lookup(props map[string]string, name string) string {
	for k, v := range props {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
