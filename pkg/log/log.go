// Package log provides categorised, levelled logging for fakesnow.
//
// Categories:
//   - System: process lifecycle and configuration
//   - Pipeline: parsing, rewrite passes and emitted SQL
//   - Engine: statements sent to DuckDB
//   - Catalog: extension store writes
//   - Protocol: wire front end connections
//
// Each category has its own level and output.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents a logging severity level.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ParseLevel parses a level string.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR", "ERR":
		return LevelError, nil
	case "OFF", "NONE":
		return LevelOff, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Category identifies the logging category.
type Category string

const (
	CategorySystem   Category = "system"
	CategoryPipeline Category = "pipeline"
	CategoryEngine   Category = "engine"
	CategoryCatalog  Category = "catalog"
	CategoryProtocol Category = "protocol"
)

var allCategories = []Category{
	CategorySystem,
	CategoryPipeline,
	CategoryEngine,
	CategoryCatalog,
	CategoryProtocol,
}

// Format specifies the output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %s", s)
	}
}

// Entry is a single log record.
type Entry struct {
	Time      time.Time              `json:"time"`
	Level     Level                  `json:"level"`
	Category  Category               `json:"category"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// Logger writes entries per category.
type Logger struct {
	mu      sync.Mutex
	levels  map[Category]Level
	outputs map[Category]io.Writer
	format  Format
	now     func() time.Time
}

// Config holds logger configuration.
type Config struct {
	DefaultLevel   Level
	CategoryLevels map[Category]Level
	Output         io.Writer // os.Stderr if nil
	Format         Format
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		DefaultLevel: LevelInfo,
		Output:       os.Stderr,
		Format:       FormatText,
	}
}

// New creates a logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	l := &Logger{
		levels:  make(map[Category]Level, len(allCategories)),
		outputs: make(map[Category]io.Writer, len(allCategories)),
		format:  cfg.Format,
		now:     time.Now,
	}
	for _, cat := range allCategories {
		l.levels[cat] = cfg.DefaultLevel
		l.outputs[cat] = cfg.Output
	}
	for cat, level := range cfg.CategoryLevels {
		l.levels[cat] = level
	}
	return l
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(Config{DefaultLevel: LevelOff, Output: io.Discard})
}

// SetLevel sets the log level for a category.
func (l *Logger) SetLevel(cat Category, level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels[cat] = level
}

// SetOutput sets the output writer for a category.
func (l *Logger) SetOutput(cat Category, w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs[cat] = w
}

// Enabled reports whether level is logged for cat.
func (l *Logger) Enabled(cat Category, level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.levels[cat] && level != LevelOff
}

func (l *Logger) System() *CategoryLogger   { return &CategoryLogger{logger: l, category: CategorySystem} }
func (l *Logger) Pipeline() *CategoryLogger { return &CategoryLogger{logger: l, category: CategoryPipeline} }
func (l *Logger) Engine() *CategoryLogger   { return &CategoryLogger{logger: l, category: CategoryEngine} }
func (l *Logger) Catalog() *CategoryLogger  { return &CategoryLogger{logger: l, category: CategoryCatalog} }
func (l *Logger) Protocol() *CategoryLogger { return &CategoryLogger{logger: l, category: CategoryProtocol} }

func (l *Logger) log(level Level, cat Category, msg string, err error, fields []interface{}) {
	if !l.Enabled(cat, level) {
		return
	}

	entry := &Entry{
		Time:     l.now(),
		Level:    level,
		Category: cat,
		Message:  msg,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			if key == "session" {
				entry.SessionID = fmt.Sprint(fields[i+1])
				continue
			}
			entry.Fields[key] = fields[i+1]
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.outputs[cat]
	switch l.format {
	case FormatJSON:
		data, _ := json.Marshal(entry)
		w.Write(append(data, '\n'))
	default:
		io.WriteString(w, formatText(entry))
	}
}

func formatText(entry *Entry) string {
	var buf strings.Builder

	buf.WriteString(entry.Time.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&buf, " %-5s [%s] ", entry.Level, entry.Category)
	if entry.SessionID != "" {
		fmt.Fprintf(&buf, "(%s) ", entry.SessionID)
	}
	buf.WriteString(entry.Message)
	if entry.Error != "" {
		fmt.Fprintf(&buf, " error=%q", entry.Error)
	}

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
	}
	buf.WriteByte('\n')
	return buf.String()
}

// CategoryLogger is a logger bound to a category.
type CategoryLogger struct {
	logger   *Logger
	category Category
}

func (cl *CategoryLogger) Debug(msg string, fields ...interface{}) {
	cl.logger.log(LevelDebug, cl.category, msg, nil, fields)
}

func (cl *CategoryLogger) Info(msg string, fields ...interface{}) {
	cl.logger.log(LevelInfo, cl.category, msg, nil, fields)
}

func (cl *CategoryLogger) Warn(msg string, fields ...interface{}) {
	cl.logger.log(LevelWarn, cl.category, msg, nil, fields)
}

func (cl *CategoryLogger) Error(msg string, err error, fields ...interface{}) {
	cl.logger.log(LevelError, cl.category, msg, err, fields)
}

// WithFields returns a FieldLogger with preset fields.
func (cl *CategoryLogger) WithFields(fields ...interface{}) *FieldLogger {
	return &FieldLogger{cl: cl, fields: fields}
}

// FieldLogger is a category logger with preset fields.
type FieldLogger struct {
	cl     *CategoryLogger
	fields []interface{}
}

func (fl *FieldLogger) merge(extra []interface{}) []interface{} {
	out := make([]interface{}, 0, len(fl.fields)+len(extra))
	return append(append(out, fl.fields...), extra...)
}

func (fl *FieldLogger) Debug(msg string, extra ...interface{}) {
	fl.cl.logger.log(LevelDebug, fl.cl.category, msg, nil, fl.merge(extra))
}

func (fl *FieldLogger) Info(msg string, extra ...interface{}) {
	fl.cl.logger.log(LevelInfo, fl.cl.category, msg, nil, fl.merge(extra))
}

func (fl *FieldLogger) Warn(msg string, extra ...interface{}) {
	fl.cl.logger.log(LevelWarn, fl.cl.category, msg, nil, fl.merge(extra))
}

func (fl *FieldLogger) Error(msg string, err error, extra ...interface{}) {
	fl.cl.logger.log(LevelError, fl.cl.category, msg, err, fl.merge(extra))
}

type contextKey int

const (
	contextKeySessionID contextKey = iota
	contextKeyLogger
)

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

// SessionIDFromContext retrieves the session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeySessionID).(string); ok {
		return id
	}
	return ""
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// FromContext retrieves the logger from context, or the default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKeyLogger).(*Logger); ok {
		return l
	}
	return Default()
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process-wide logger.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(DefaultConfig())
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
