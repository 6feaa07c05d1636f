package fakesnow

import (
	"github.com/ha1tch/fakesnow/pkg/duckgen"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/session"
	"github.com/ha1tch/fakesnow/pkg/sfparser/parser"
	"github.com/ha1tch/fakesnow/pkg/transform"
)

// Translation is the engine SQL of one warehouse statement.
type Translation struct {
	Command string
	SQL     string
}

// Translate rewrites every statement of script without an engine. The
// database and schema in opts are taken as existing. USE statements move
// the session for the statements after them; nothing else is recorded.
func Translate(script string, opts Options) ([]Translation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	stmts, err := parser.ParseAll(script)
	if err != nil {
		return nil, err
	}

	sess := session.New(opts.Database, opts.Schema)
	sess.MarkDatabaseSet()
	sess.MarkSchemaSet()
	pipeline := transform.Default().WithLogger(logger)

	out := make([]Translation, 0, len(stmts))
	for _, stmt := range stmts {
		res, err := pipeline.Run(stmt, sess)
		if err != nil {
			return out, err
		}
		sql, err := duckgen.Generate(res.Statement)
		if err != nil {
			return out, err
		}
		out = append(out, Translation{Command: res.Command, SQL: sql})
		applyUse(sess, &res.Annotations)
	}
	return out, nil
}
