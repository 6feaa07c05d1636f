// Package postgres serves warehouse SQL over the PostgreSQL wire protocol
// (v3).
//
// Any PostgreSQL client (psql, drivers, BI tools) can connect and send
// warehouse SQL through the simple query protocol. Results come back in
// text format. Extended query messages are answered with an error.
//
// Protocol encoding and decoding use jackc/pgx's pgproto3.
package postgres

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/protocol"
	"github.com/ha1tch/fakesnow/pkg/version"
)

// SQLSTATE codes sent by the front end itself.
const (
	sqlStateTooManyConnections = "53300"
	sqlStateFeatureNotSupported = "0A000"
)

// Listener implements protocol.Listener for the PostgreSQL wire protocol.
type Listener struct {
	mu sync.Mutex

	cfg      protocol.ListenerConfig
	logger   *log.Logger
	listener net.Listener
	tlsCfg   *tls.Config

	connections map[*Conn]struct{}
	connCount   int64

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewListener creates a PostgreSQL protocol listener.
func NewListener(cfg protocol.ListenerConfig, logger *log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.Default()
	}
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		cfg:         cfg,
		logger:      logger,
		tlsCfg:      tlsCfg,
		connections: make(map[*Conn]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Protocol returns the protocol type.
func (l *Listener) Protocol() protocol.ProtocolType {
	return protocol.ProtocolPostgres
}

// Listen starts listening on the configured address.
func (l *Listener) Listen() error {
	addr := l.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	l.listener = ln
	return nil
}

// Accept waits for the next connection and completes the startup
// handshake. Connections over the configured limit are refused with an
// error message.
func (l *Listener) Accept() (protocol.Connection, error) {
	if l.listener == nil {
		return nil, fmt.Errorf("listener not started")
	}

	netConn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}

	conn := newConn(netConn, l.cfg, l.tlsCfg)
	if err := conn.handshake(l.ctx); err != nil {
		netConn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	l.mu.Lock()
	if l.cfg.MaxConnections > 0 && len(l.connections) >= l.cfg.MaxConnections {
		l.mu.Unlock()
		conn.refuse(sqlStateTooManyConnections, "sorry, too many clients already")
		return nil, fmt.Errorf("connection limit %d reached", l.cfg.MaxConnections)
	}
	l.connections[conn] = struct{}{}
	atomic.AddInt64(&l.connCount, 1)
	l.mu.Unlock()

	conn.onClose = l.removeConnection
	if err := conn.ready(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Close stops the listener and closes every open connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.cancel()
	conns := make([]*Conn, 0, len(l.connections))
	for conn := range l.connections {
		conns = append(conns, conn)
	}
	l.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	if l.listener != nil {
		return l.listener.Close()
	}
	return nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// ConnectionCount returns the number of open connections.
func (l *Listener) ConnectionCount() int {
	return int(atomic.LoadInt64(&l.connCount))
}

func (l *Listener) removeConnection(conn *Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.connections[conn]; ok {
		delete(l.connections, conn)
		atomic.AddInt64(&l.connCount, -1)
	}
}

// Conn implements protocol.Connection for PostgreSQL.
type Conn struct {
	mu sync.Mutex

	netConn net.Conn
	cfg     protocol.ListenerConfig
	tlsCfg  *tls.Config
	backend *pgproto3.Backend

	params map[string]string

	onClose func(*Conn)
	closed  bool
}

func newConn(netConn net.Conn, cfg protocol.ListenerConfig, tlsCfg *tls.Config) *Conn {
	return &Conn{
		netConn: netConn,
		cfg:     cfg,
		tlsCfg:  tlsCfg,
		backend: pgproto3.NewBackend(netConn, netConn),
		params:  make(map[string]string),
	}
}

// handshake reads the startup message, upgrading to TLS first when the
// client asks and TLS is configured.
func (c *Conn) handshake(ctx context.Context) error {
	if c.cfg.ReadTimeout > 0 {
		c.netConn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		defer c.netConn.SetReadDeadline(time.Time{})
	}

	startupMsg, err := c.backend.ReceiveStartupMessage()
	if err != nil {
		return fmt.Errorf("receiving startup message: %w", err)
	}

	switch msg := startupMsg.(type) {
	case *pgproto3.StartupMessage:
		for k, v := range msg.Parameters {
			c.params[k] = v
		}
		return nil

	case *pgproto3.SSLRequest:
		if c.tlsCfg == nil {
			if _, err := c.netConn.Write([]byte{'N'}); err != nil {
				return err
			}
			return c.handshake(ctx)
		}
		if _, err := c.netConn.Write([]byte{'S'}); err != nil {
			return err
		}
		tlsConn := tls.Server(c.netConn, c.tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return fmt.Errorf("TLS handshake: %w", err)
		}
		c.netConn = tlsConn
		c.backend = pgproto3.NewBackend(tlsConn, tlsConn)
		return c.handshake(ctx)

	case *pgproto3.GSSEncRequest:
		if _, err := c.netConn.Write([]byte{'N'}); err != nil {
			return err
		}
		return c.handshake(ctx)

	case *pgproto3.CancelRequest:
		return fmt.Errorf("cancel request not supported")

	default:
		return fmt.Errorf("unexpected startup message type: %T", msg)
	}
}

// ready accepts the client without authentication and announces the
// server parameters.
func (c *Conn) ready() error {
	buf := (&pgproto3.AuthenticationOk{}).Encode(nil)
	buf = (&pgproto3.ParameterStatus{Name: "server_version", Value: "15.0.0 (fakesnow " + version.Version + ")"}).Encode(buf)
	buf = (&pgproto3.ParameterStatus{Name: "server_encoding", Value: "UTF8"}).Encode(buf)
	buf = (&pgproto3.ParameterStatus{Name: "client_encoding", Value: "UTF8"}).Encode(buf)
	buf = (&pgproto3.ParameterStatus{Name: "DateStyle", Value: "ISO, MDY"}).Encode(buf)
	buf = (&pgproto3.ParameterStatus{Name: "TimeZone", Value: "UTC"}).Encode(buf)
	buf = (&pgproto3.ParameterStatus{Name: "standard_conforming_strings", Value: "on"}).Encode(buf)
	buf = (&pgproto3.BackendKeyData{ProcessID: uint32(time.Now().UnixNano() & 0xFFFFFFFF), SecretKey: 0}).Encode(buf)
	buf = (&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(buf)
	_, err := c.netConn.Write(buf)
	return err
}

func (c *Conn) refuse(sqlState, message string) {
	buf := (&pgproto3.ErrorResponse{Severity: "FATAL", Code: sqlState, Message: message}).Encode(nil)
	c.netConn.Write(buf)
	c.netConn.Close()
}

// ReadRequest reads the next simple query. Extended query messages are
// answered here: the first one of a batch gets an error and the batch is
// discarded up to its Sync. Only the connection's handler may call it.
func (c *Conn) ReadRequest() (protocol.Request, error) {
	failed := false
	for {
		if c.isClosed() {
			return protocol.Request{}, io.EOF
		}
		if c.cfg.ReadTimeout > 0 {
			c.netConn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		msg, err := c.backend.Receive()
		if err != nil {
			return protocol.Request{}, err
		}

		switch m := msg.(type) {
		case *pgproto3.Query:
			return protocol.Request{Type: protocol.RequestQuery, SQL: m.String}, nil

		case *pgproto3.Terminate:
			return protocol.Request{}, io.EOF

		case *pgproto3.Sync:
			buf := (&pgproto3.ReadyForQuery{TxStatus: 'I'}).Encode(nil)
			if _, err := c.netConn.Write(buf); err != nil {
				return protocol.Request{}, err
			}
			failed = false

		case *pgproto3.Parse, *pgproto3.Bind, *pgproto3.Describe, *pgproto3.Execute, *pgproto3.Close, *pgproto3.Flush:
			if failed {
				continue
			}
			failed = true
			buf := (&pgproto3.ErrorResponse{
				Severity: "ERROR",
				Code:     sqlStateFeatureNotSupported,
				Message:  "extended query protocol is not supported; use simple queries",
			}).Encode(nil)
			if _, err := c.netConn.Write(buf); err != nil {
				return protocol.Request{}, err
			}

		default:
			return protocol.Request{}, fmt.Errorf("unsupported message type: %T", msg)
		}
	}
}

// SendResult writes the answer to one simple query and ends it with
// ReadyForQuery.
func (c *Conn) SendResult(result protocol.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return io.EOF
	}
	buf := encodeResult(nil, result)
	_, err := c.netConn.Write(buf)
	return err
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose(c)
	}
	return c.netConn.Close()
}

// RemoteAddr returns the remote address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Properties returns the client's startup parameters.
func (c *Conn) Properties() map[string]string {
	props := make(map[string]string, len(c.params))
	for k, v := range c.params {
		props[k] = v
	}
	return props
}
