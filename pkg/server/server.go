// Package server runs the wire front end: it accepts client connections
// and gives each one its own warehouse session on a shared engine.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/protocol"
	httpapi "github.com/ha1tch/fakesnow/pkg/protocol/http"
	"github.com/ha1tch/fakesnow/pkg/protocol/postgres"
)

// Server accepts clients and runs their SQL.
type Server struct {
	mu sync.RWMutex

	config Config
	logger *log.Logger
	db     *engine.DB

	listeners map[string]protocol.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sessionsServed atomic.Int64

	state     State
	startTime time.Time
}

// State represents the server's current state.
type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds server configuration.
type Config struct {
	Listeners []protocol.ListenerConfig

	// Session holds the options every client session starts with.
	Session fakesnow.Options

	Startup StartupConfig

	// LogQueries logs every request at info instead of debug.
	LogQueries bool

	Logger *log.Logger
}

// DefaultConfig listens on the loopback PostgreSQL port and creates the
// session's database and schema on demand.
func DefaultConfig() Config {
	return Config{
		Listeners: []protocol.ListenerConfig{protocol.DefaultListenerConfig(protocol.ProtocolPostgres)},
		Session:   fakesnow.DefaultOptions(),
	}
}

// New creates a server that runs sessions on db.
func New(cfg Config, db *engine.DB) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:    cfg,
		logger:    logger,
		db:        db,
		listeners: make(map[string]protocol.Listener),
		ctx:       ctx,
		cancel:    cancel,
		state:     StateNew,
	}
}

// Start starts every configured listener.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != StateNew {
		s.mu.Unlock()
		return errors.Newf(errors.ErrCodeInternal, "server cannot start from state %s", s.state).
			WithOp("Server.Start").
			Err()
	}
	s.state = StateStarting
	s.mu.Unlock()

	s.logger.System().Info("server starting")

	for _, lcfg := range s.config.Listeners {
		if err := s.startListener(lcfg); err != nil {
			s.Stop()
			return errors.Wrap(err, errors.ErrCodeConnection, "failed to start listener: "+err.Error()).
				WithOp("Server.Start").
				WithField("protocol", lcfg.Protocol).
				WithField("port", lcfg.Port).
				Err()
		}
	}

	s.mu.Lock()
	s.state = StateRunning
	s.startTime = time.Now()
	s.mu.Unlock()

	s.logger.System().Info("server started", "listeners", len(s.listeners))
	return nil
}

// Stop closes the listeners and waits for client sessions to end.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning && s.state != StateStarting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	listeners := make(map[string]protocol.Listener, len(s.listeners))
	for name, l := range s.listeners {
		listeners[name] = l
	}
	s.mu.Unlock()

	s.logger.System().Info("server stopping")
	s.cancel()

	// Listeners close concurrently; the HTTP one waits for running requests.
	var g errgroup.Group
	for name, listener := range listeners {
		g.Go(func() error {
			if err := listener.Close(); err != nil {
				s.logger.System().Error("failed to close listener", err,
					"listener", name,
					"protocol", listener.Protocol(),
				)
				return err
			}
			return nil
		})
	}
	closeErr := g.Wait()
	s.wg.Wait()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.System().Info("server stopped", "sessions_served", s.sessionsServed.Load())
	return closeErr
}

// State returns the current server state.
func (s *Server) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateRunning {
		return 0
	}
	return time.Since(s.startTime)
}

// Addr returns the address of the named listener, or nil.
func (s *Server) Addr(name string) net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.listeners[name]; ok {
		return l.Addr()
	}
	return nil
}

// Stats holds server statistics.
type Stats struct {
	State          string
	Uptime         time.Duration
	SessionsServed int64
	Listeners      []ListenerStats
}

// ListenerStats holds statistics for a single listener.
type ListenerStats struct {
	Name        string
	Protocol    string
	Address     string
	Connections int
}

// Stats returns server statistics.
func (s *Server) Stats() Stats {
	stats := Stats{
		State:          s.State().String(),
		Uptime:         s.Uptime(),
		SessionsServed: s.sessionsServed.Load(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, listener := range s.listeners {
		ls := ListenerStats{
			Name:        name,
			Protocol:    string(listener.Protocol()),
			Connections: listener.ConnectionCount(),
		}
		if addr := listener.Addr(); addr != nil {
			ls.Address = addr.String()
		}
		stats.Listeners = append(stats.Listeners, ls)
	}
	return stats
}

func newListener(cfg protocol.ListenerConfig, logger *log.Logger) (protocol.Listener, error) {
	switch cfg.Protocol {
	case protocol.ProtocolPostgres, "":
		return postgres.NewListener(cfg, logger)
	case protocol.ProtocolHTTP:
		return httpapi.NewListener(cfg, logger)
	default:
		return nil, errors.Newf(errors.ErrCodeConfig, "unsupported protocol: %s", cfg.Protocol).Err()
	}
}

func (s *Server) startListener(cfg protocol.ListenerConfig) error {
	listener, err := newListener(cfg, s.logger)
	if err != nil {
		return err
	}
	if err := listener.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	s.listeners[cfg.Name] = listener
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(listener)
	}()

	s.logger.Protocol().Info("listener started",
		"protocol", listener.Protocol(),
		"address", listener.Addr().String(),
		"tls", cfg.TLSEnabled,
	)
	return nil
}

func (s *Server) acceptLoop(listener protocol.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			if err != io.EOF {
				s.logger.Protocol().Warn("accept failed",
					"protocol", listener.Protocol(),
					"error", err.Error(),
				)
			}
			continue
		}

		s.logger.Protocol().Info("connection accepted",
			"protocol", listener.Protocol(),
			"remote_addr", conn.RemoteAddr().String(),
		)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection opens the client's session and serves it until the
// client leaves.
func (s *Server) handleConnection(conn protocol.Connection) {
	defer conn.Close()

	opts := s.config.Session
	opts.Logger = s.logger
	target, err := s.config.Startup.Resolve(conn.Properties(), Target{Database: opts.Database, Schema: opts.Schema})
	if err != nil {
		conn.SendResult(protocol.Result{Error: err})
		return
	}
	opts.Database, opts.Schema = target.Database, target.Schema

	session, err := fakesnow.Connect(s.ctx, s.db, opts)
	if err != nil {
		s.logger.Protocol().Error("session setup failed", err,
			"remote_addr", conn.RemoteAddr().String(),
		)
		conn.SendResult(protocol.Result{Error: err})
		return
	}
	defer session.Close()
	s.sessionsServed.Add(1)

	NewConnectionHandler(conn, session, s.logger, s.config.LogQueries).Serve(s.ctx)
}

// Logger returns the server's logger.
func (s *Server) Logger() *log.Logger {
	return s.logger
}
