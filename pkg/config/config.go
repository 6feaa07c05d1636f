// Package config resolves fakesnow settings from defaults, a JSON file,
// FAKESNOW_* environment variables and command-line overrides, in that
// order.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ha1tch/fakesnow/pkg/catalog"
	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/protocol"
	"github.com/ha1tch/fakesnow/pkg/server"
)

const (
	defaultDatabase    = "FAKESNOW"
	defaultSchema      = "PUBLIC"
	defaultHost        = "127.0.0.1"
	defaultPort        = 5432
	defaultMaxConns    = 100
	defaultDebounce    = 200 * time.Millisecond
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
	defaultHistoryName = ".fakesnow_history"

	// EnvPrefix starts every environment variable the loader reads.
	EnvPrefix = "FAKESNOW_"
)

// Config holds every setting the command line tools use.
type Config struct {
	Engine EngineConfig `json:"engine"`

	Database       string `json:"database"`
	Schema         string `json:"schema"`
	CreateDatabase *bool  `json:"create_database"`
	CreateSchema   *bool  `json:"create_schema"`

	Listen   ListenConfig   `json:"listen"`
	Fixtures FixturesConfig `json:"fixtures"`
	Log      LogConfig      `json:"log"`
	Shell    ShellConfig    `json:"shell"`
}

// EngineConfig selects the embedded database.
type EngineConfig struct {
	Path        string `json:"path"`
	Threads     int    `json:"threads"`
	MemoryLimit string `json:"memory_limit"`
}

// ListenConfig configures the wire listener of the serve command.
type ListenConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MaxConnections int    `json:"max_connections"`

	// HTTPPort serves the JSON query API on the same host. Zero leaves it
	// off.
	HTTPPort int `json:"http_port"`

	TLS      bool   `json:"tls"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`

	// ClientDatabase lets the startup database parameter pick the
	// session's database and schema.
	ClientDatabase bool `json:"client_database"`
	LogQueries     bool `json:"log_queries"`
}

// FixturesConfig points at a directory of SQL fixtures.
type FixturesConfig struct {
	Dir      string   `json:"dir"`
	Watch    bool     `json:"watch"`
	Debounce Duration `json:"debounce"`
}

// LogConfig holds the log level and format names.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ShellConfig holds REPL settings.
type ShellConfig struct {
	HistoryFile string `json:"history_file"`
	MaxHistory  int    `json:"max_history"`
}

// Duration reads either a Go duration string ("250ms") or a number of
// milliseconds from JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Overrides are values given on the command line. Zero values leave the
// setting alone.
type Overrides struct {
	DBPath      string
	Database    string
	Schema      string
	NoCreate    bool
	Host        string
	Port        int
	HTTPPort    int
	TLS         bool
	FixturesDir string
	Watch       bool
	LogLevel    string
	LogFormat   string
	HistoryFile string
}

// Load resolves the configuration. An empty path skips the file; a named
// file that cannot be read is an error.
func Load(path string, o Overrides) (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyOverrides(o)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}
	p := path
	if !filepath.IsAbs(p) {
		if wd, err := os.Getwd(); err == nil {
			p = filepath.Join(wd, p)
		}
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeConfig, "reading config file %s: %v", path, err).Err()
	}
	if err := json.Unmarshal(b, c); err != nil {
		return errors.Wrapf(err, errors.ErrCodeConfig, "parsing config file %s: %v", path, err).Err()
	}
	return nil
}

// ApplyEnv copies FAKESNOW_* variables over the current values. Values
// that do not parse are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	env := func(name string) string { return strings.TrimSpace(getenv(EnvPrefix + name)) }

	if v := env("DB_PATH"); v != "" {
		c.Engine.Path = v
	}
	if v := env("THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Threads = n
		}
	}
	if v := env("MEMORY_LIMIT"); v != "" {
		c.Engine.MemoryLimit = v
	}
	if v := env("DATABASE"); v != "" {
		c.Database = v
	}
	if v := env("SCHEMA"); v != "" {
		c.Schema = v
	}
	if v := env("CREATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CreateDatabase = &b
			c.CreateSchema = &b
		}
	}
	if v := env("HOST"); v != "" {
		c.Listen.Host = v
	}
	if v := env("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Listen.Port = n
		}
	}
	if v := env("HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Listen.HTTPPort = n
		}
	}
	if v := env("TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Listen.TLS = b
		}
	}
	if v := env("FIXTURES"); v != "" {
		c.Fixtures.Dir = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := env("HISTORY_FILE"); v != "" {
		c.Shell.HistoryFile = v
	}
}

// ApplyOverrides copies the non-zero command-line values.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DBPath != "" {
		c.Engine.Path = o.DBPath
	}
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.Schema != "" {
		c.Schema = o.Schema
	}
	if o.NoCreate {
		f := false
		c.CreateDatabase = &f
		c.CreateSchema = &f
	}
	if o.Host != "" {
		c.Listen.Host = o.Host
	}
	if o.Port != 0 {
		c.Listen.Port = o.Port
	}
	if o.HTTPPort != 0 {
		c.Listen.HTTPPort = o.HTTPPort
	}
	if o.TLS {
		c.Listen.TLS = true
	}
	if o.FixturesDir != "" {
		c.Fixtures.Dir = o.FixturesDir
	}
	if o.Watch {
		c.Fixtures.Watch = true
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
	if o.HistoryFile != "" {
		c.Shell.HistoryFile = o.HistoryFile
	}
}

// ApplyDefaults fills every unset value.
func (c *Config) ApplyDefaults() {
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.Schema == "" {
		c.Schema = defaultSchema
	}
	if c.CreateDatabase == nil {
		t := true
		c.CreateDatabase = &t
	}
	if c.CreateSchema == nil {
		t := true
		c.CreateSchema = &t
	}
	if c.Listen.Host == "" {
		c.Listen.Host = defaultHost
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = defaultPort
	}
	if c.Listen.MaxConnections <= 0 {
		c.Listen.MaxConnections = defaultMaxConns
	}
	if c.Fixtures.Debounce <= 0 {
		c.Fixtures.Debounce = Duration(defaultDebounce)
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Shell.MaxHistory <= 0 {
		c.Shell.MaxHistory = 500
	}
	if c.Shell.HistoryFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Shell.HistoryFile = filepath.Join(home, defaultHistoryName)
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	if err := catalog.ValidateName(c.Database); err != nil {
		problems = append(problems, "database: invalid name "+strconv.Quote(c.Database))
	}
	if err := catalog.ValidateName(c.Schema); err != nil {
		problems = append(problems, "schema: invalid name "+strconv.Quote(c.Schema))
	}
	if c.Engine.Threads < 0 {
		problems = append(problems, "engine.threads: must not be negative")
	}
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		problems = append(problems, "listen.port: out of range")
	}
	if c.Listen.HTTPPort < 0 || c.Listen.HTTPPort > 65535 {
		problems = append(problems, "listen.http_port: out of range")
	}
	if (c.Listen.CertFile == "") != (c.Listen.KeyFile == "") {
		problems = append(problems, "listen: cert_file and key_file go together")
	}
	if c.Fixtures.Watch && c.Fixtures.Dir == "" {
		problems = append(problems, "fixtures.watch: needs fixtures.dir")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	if _, err := log.ParseFormat(c.Log.Format); err != nil {
		problems = append(problems, "log.format: "+err.Error())
	}
	if len(problems) > 0 {
		return errors.Newf(errors.ErrCodeConfig, "invalid configuration: %s", strings.Join(problems, "; ")).Err()
	}
	return nil
}

// EngineConfig returns the engine settings.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Path:        c.Engine.Path,
		Threads:     c.Engine.Threads,
		MemoryLimit: c.Engine.MemoryLimit,
	}
}

// SessionOptions returns the options new sessions connect with.
func (c *Config) SessionOptions(logger *log.Logger) fakesnow.Options {
	return fakesnow.Options{
		Database:       c.Database,
		Schema:         c.Schema,
		CreateDatabase: c.CreateDatabase == nil || *c.CreateDatabase,
		CreateSchema:   c.CreateSchema == nil || *c.CreateSchema,
		Logger:         logger,
	}
}

// ServerConfig returns the serve command's server settings.
func (c *Config) ServerConfig(logger *log.Logger) server.Config {
	lc := protocol.DefaultListenerConfig(protocol.ProtocolPostgres)
	lc.Host = c.Listen.Host
	lc.Port = c.Listen.Port
	lc.MaxConnections = c.Listen.MaxConnections
	lc.TLSEnabled = c.Listen.TLS || c.Listen.CertFile != ""
	lc.TLSCertFile = c.Listen.CertFile
	lc.TLSKeyFile = c.Listen.KeyFile

	listeners := []protocol.ListenerConfig{lc}
	if c.Listen.HTTPPort > 0 {
		hc := lc
		hc.Name = string(protocol.ProtocolHTTP)
		hc.Protocol = protocol.ProtocolHTTP
		hc.Port = c.Listen.HTTPPort
		listeners = append(listeners, hc)
	}

	return server.Config{
		Listeners:  listeners,
		Session:    c.SessionOptions(logger),
		Startup:    server.StartupConfig{ClientDatabase: c.Listen.ClientDatabase},
		LogQueries: c.Listen.LogQueries,
		Logger:     logger,
	}
}

// LogConfig returns the logger settings. Validate has already checked the
// names.
func (c *Config) LogConfig() log.Config {
	cfg := log.DefaultConfig()
	cfg.DefaultLevel, _ = log.ParseLevel(c.Log.Level)
	cfg.Format, _ = log.ParseFormat(c.Log.Format)
	return cfg
}

// Logger builds a logger from the log settings.
func (c *Config) Logger() *log.Logger {
	return log.New(c.LogConfig())
}
