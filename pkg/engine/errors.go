package engine

import (
	stderrors "errors"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/ha1tch/fakesnow/pkg/errors"
)

// Kind classifies engine failures.
type Kind int

const (
	KindOther Kind = iota
	KindBinder
	KindCatalog
	KindParser
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindBinder:
		return "Binder"
	case KindCatalog:
		return "Catalog"
	case KindParser:
		return "Parser"
	case KindConstraint:
		return "Constraint"
	default:
		return "Other"
	}
}

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.err }

// Engine messages start with the exception class, e.g. "Binder Error: ...".
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"Binder Error", KindBinder},
	{"Catalog Error", KindCatalog},
	{"Parser Error", KindParser},
	{"Constraint Error", KindConstraint},
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *Error
	if stderrors.As(err, &ee) {
		return err
	}

	kind := KindOther
	msg := err.Error()
	var de *duckdb.Error
	if stderrors.As(err, &de) {
		msg = de.Msg
		switch de.Type {
		case duckdb.ErrorTypeBinder:
			kind = KindBinder
		case duckdb.ErrorTypeCatalog:
			kind = KindCatalog
		case duckdb.ErrorTypeParser, duckdb.ErrorTypeSyntax:
			kind = KindParser
		case duckdb.ErrorTypeConstraint:
			kind = KindConstraint
		}
	}
	if kind == KindOther {
		for _, p := range prefixes {
			if strings.HasPrefix(msg, p.prefix) {
				kind = p.kind
				break
			}
		}
	}
	return &Error{Kind: kind, Msg: msg, err: err}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Translate converts an engine failure into the warehouse error a client
// would see. Binder failures report a missing object in an expression and
// catalog failures a missing table; both keep only the first line of the
// engine message. Anything else becomes a generic statement error with the
// engine error as its cause. Errors not from the engine pass through.
func Translate(err error) error {
	var ee *Error
	if !stderrors.As(err, &ee) {
		return err
	}
	msg := firstLine(ee.Msg)
	switch ee.Kind {
	case KindBinder:
		return errors.New(errors.ErrCodeBinder, msg).WithCause(ee).Err()
	case KindCatalog:
		return errors.New(errors.ErrCodeObjectNotFound, msg).WithCause(ee).Err()
	case KindParser:
		return errors.New(errors.ErrCodeSyntax, msg).WithCause(ee).Err()
	case KindConstraint:
		return errors.New(errors.ErrCodeConstraint, msg).WithCause(ee).Err()
	}
	return errors.Wrap(ee, errors.ErrCodeStatement, msg).Err()
}
