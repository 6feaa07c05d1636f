// Package errors provides the warehouse-style error values returned by fakesnow.
//
// Every error carries:
//   - a warehouse error number (Code)
//   - a five character SQLSTATE
//   - a client-facing Kind mirroring the DB-API exception classes
//   - optional context fields and a wrapped cause
//
// Error() renders the message the way warehouse drivers print it:
//
//	090105 (22000): Cannot perform SELECT. ...
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code is a warehouse error number.
type Code int

// Error numbers surfaced to clients.
const (
	ErrCodeSyntax           Code = 1003
	ErrCodeObjectNotFound   Code = 2003
	ErrCodeBinder           Code = 2043
	ErrCodeNoDatabase       Code = 90105
	ErrCodeNoSchema         Code = 90106
	ErrCodeStatement        Code = 100000
	ErrCodeConstraint       Code = 100072
	ErrCodeNotImplemented   Code = 100038
	ErrCodeInvalidParameter Code = 2010
	ErrCodeConfig           Code = 390100
	ErrCodeConnection       Code = 250001
	ErrCodeInternal         Code = 999999
)

// Standard SQLSTATE values paired with the codes above.
const (
	SQLStateSyntax         = "42000"
	SQLStateNotFound       = "42S02"
	SQLStateBinder         = "02000"
	SQLStateNoCurrentCtx   = "22000"
	SQLStateConstraint     = "23000"
	SQLStateNotImplemented = "0A000"
	SQLStateGeneral        = "XX000"
	SQLStateConnection     = "08001"
)

// String returns the zero padded form used in messages.
func (c Code) String() string {
	return fmt.Sprintf("%06d", int(c))
}

// DefaultSQLState returns the SQLSTATE normally reported with the code.
func (c Code) DefaultSQLState() string {
	switch c {
	case ErrCodeSyntax:
		return SQLStateSyntax
	case ErrCodeObjectNotFound:
		return SQLStateNotFound
	case ErrCodeBinder:
		return SQLStateBinder
	case ErrCodeNoDatabase, ErrCodeNoSchema:
		return SQLStateNoCurrentCtx
	case ErrCodeConstraint:
		return SQLStateConstraint
	case ErrCodeNotImplemented:
		return SQLStateNotImplemented
	case ErrCodeConnection:
		return SQLStateConnection
	default:
		return SQLStateGeneral
	}
}

// Kind mirrors the exception class a warehouse driver would raise.
type Kind int

const (
	KindProgramming Kind = iota
	KindNotSupported
	KindDatabase
	KindIntegrity
	KindInterface
	KindOperational
)

func (k Kind) String() string {
	switch k {
	case KindProgramming:
		return "ProgrammingError"
	case KindNotSupported:
		return "NotSupportedError"
	case KindDatabase:
		return "DatabaseError"
	case KindIntegrity:
		return "IntegrityError"
	case KindInterface:
		return "InterfaceError"
	case KindOperational:
		return "OperationalError"
	default:
		return "Error"
	}
}

// DefaultKind returns the exception class normally raised for the code.
func (c Code) DefaultKind() Kind {
	switch c {
	case ErrCodeNotImplemented:
		return KindNotSupported
	case ErrCodeConstraint:
		return KindIntegrity
	case ErrCodeConfig, ErrCodeConnection:
		return KindOperational
	case ErrCodeInternal:
		return KindDatabase
	default:
		return KindProgramming
	}
}

// Error is a warehouse error with optional context and cause.
type Error struct {
	Code     Code
	SQLState string
	Kind     Kind
	Message  string

	Fields map[string]interface{}
	Cause  error

	Stack  []Frame
	OpName string
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface. The cause is not included; the
// message already carries whatever the client is meant to see.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Code, e.SQLState, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Format implements fmt.Formatter. %+v adds kind, context, cause and stack.
func (e *Error) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('+') {
			fmt.Fprintf(f, "%s: %s\n", e.Kind, e.Error())
			if e.OpName != "" {
				fmt.Fprintf(f, "  Operation: %s\n", e.OpName)
			}
			if len(e.Fields) > 0 {
				keys := make([]string, 0, len(e.Fields))
				for k := range e.Fields {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Fprintf(f, "  Context:\n")
				for _, k := range keys {
					fmt.Fprintf(f, "    %s: %v\n", k, e.Fields[k])
				}
			}
			if e.Cause != nil {
				fmt.Fprintf(f, "  Caused by: %v\n", e.Cause)
			}
			for _, frame := range e.Stack {
				fmt.Fprintf(f, "    %s\n      %s:%d\n", frame.Function, frame.File, frame.Line)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(f, e.Error())
	case 'q':
		fmt.Fprintf(f, "%q", e.Error())
	}
}

// Builder constructs errors fluently.
type Builder struct {
	code     Code
	sqlState string
	kind     Kind
	message  string
	cause    error
	fields   map[string]interface{}
	op       string
	stack    bool
}

// New starts building an error with the code's default SQLSTATE and kind.
func New(code Code, message string) *Builder {
	return &Builder{
		code:     code,
		sqlState: code.DefaultSQLState(),
		kind:     code.DefaultKind(),
		message:  message,
	}
}

// Newf starts building an error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Builder {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps cause with a code and message.
func Wrap(cause error, code Code, message string) *Builder {
	return New(code, message).WithCause(cause)
}

// Wrapf wraps cause with a formatted message.
func Wrapf(cause error, code Code, format string, args ...interface{}) *Builder {
	return New(code, fmt.Sprintf(format, args...)).WithCause(cause)
}

// WithSQLState overrides the SQLSTATE.
func (b *Builder) WithSQLState(state string) *Builder {
	b.sqlState = state
	return b
}

// WithKind overrides the exception class.
func (b *Builder) WithKind(k Kind) *Builder {
	b.kind = k
	return b
}

// WithCause adds a cause to the error.
func (b *Builder) WithCause(err error) *Builder {
	b.cause = err
	return b
}

// WithField adds a context field.
func (b *Builder) WithField(key string, value interface{}) *Builder {
	if b.fields == nil {
		b.fields = make(map[string]interface{})
	}
	b.fields[key] = value
	return b
}

// WithOp sets the operation name.
func (b *Builder) WithOp(op string) *Builder {
	b.op = op
	return b
}

// WithStack captures a stack trace.
func (b *Builder) WithStack() *Builder {
	b.stack = true
	return b
}

// Build creates the Error.
func (b *Builder) Build() *Error {
	e := &Error{
		Code:     b.code,
		SQLState: b.sqlState,
		Kind:     b.kind,
		Message:  b.message,
		Cause:    b.cause,
		Fields:   b.fields,
		OpName:   b.op,
	}
	if b.stack {
		e.Stack = captureStack(2)
	}
	return e
}

// Err is a shorthand for Build() that returns the error interface.
func (b *Builder) Err() error {
	return b.Build()
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	it := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := it.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			frames = append(frames, Frame{Function: frame.Function, File: frame.File, Line: frame.Line})
		}
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// Helpers for the errors raised outside engine translation.

// NoCurrentDatabase is raised when an unqualified object is used before USE DATABASE.
func NoCurrentDatabase(command string) *Builder {
	return Newf(ErrCodeNoDatabase,
		"Cannot perform %s. This session does not have a current database. Call 'USE DATABASE', or use a qualified name.",
		command).WithField("command", command)
}

// NoCurrentSchema is raised when an unqualified object is used before USE SCHEMA.
func NoCurrentSchema(command string) *Builder {
	return Newf(ErrCodeNoSchema,
		"Cannot perform %s. This session does not have a current schema. Call 'USE SCHEMA', or use a qualified name.",
		command).WithField("command", command)
}

// Syntax reports a statement the parser could not understand.
func Syntax(line, col int, detail string) *Builder {
	return Newf(ErrCodeSyntax, "SQL compilation error:\nsyntax error line %d at position %d %s", line, col, detail).
		WithField("line", line).
		WithField("position", col)
}

// NotImplemented reports a feature fakesnow does not emulate.
func NotImplemented(feature string) *Builder {
	return Newf(ErrCodeNotImplemented, "%s is not implemented", feature).
		WithField("feature", feature)
}

// InvalidInput reports a bad argument from the caller.
func InvalidInput(field, reason string) *Builder {
	return Newf(ErrCodeInvalidParameter, "invalid %s: %s", field, reason).
		WithField("field", field)
}

// Internal creates an error for unexpected conditions.
func Internal(msg string) *Builder {
	return New(ErrCodeInternal, msg).WithStack()
}

// Extraction helpers

// GetCode extracts the error code from an error, or returns ErrCodeInternal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetSQLState extracts the SQLSTATE, or the general state for foreign errors.
func GetSQLState(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.SQLState
	}
	return SQLStateGeneral
}

// GetKind extracts the exception class.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDatabase
}

// GetFields extracts context fields from an error.
func GetFields(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// Standard library compatibility

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines multiple errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
