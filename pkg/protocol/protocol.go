// Package protocol defines the contract between wire front ends and the
// server.
//
// A front end (the PostgreSQL wire protocol or the JSON HTTP API)
// implements Listener and Connection. The server reads warehouse SQL from a Connection, runs it
// in the client's session and hands back one Result per request.
package protocol

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/ha1tch/fakesnow/pkg/tlsutil"
)

// ProtocolType identifies a wire protocol.
type ProtocolType string

const (
	ProtocolPostgres ProtocolType = "postgres" // PostgreSQL wire protocol
	ProtocolHTTP     ProtocolType = "http"     // JSON over HTTP
)

func (p ProtocolType) String() string {
	return string(p)
}

// DefaultPort returns the default port for a protocol.
func (p ProtocolType) DefaultPort() int {
	switch p {
	case ProtocolPostgres:
		return 5432
	case ProtocolHTTP:
		return 8080
	default:
		return 0
	}
}

// Listener accepts client connections for a specific protocol.
type Listener interface {
	Protocol() ProtocolType

	// Listen starts listening on the configured address.
	Listen() error

	// Accept waits for the next connection and completes its handshake.
	Accept() (Connection, error)

	Close() error
	Addr() net.Addr
	ConnectionCount() int
}

// Connection is one client connection.
type Connection interface {
	// ReadRequest reads the next request from the client.
	ReadRequest() (Request, error)

	// SendResult sends the answer to the last request.
	SendResult(result Result) error

	Close() error
	RemoteAddr() net.Addr

	// Properties returns the client's startup parameters.
	Properties() map[string]string
}

// ListenerConfig configures a protocol listener.
type ListenerConfig struct {
	Name     string
	Protocol ProtocolType

	Host string
	Port int

	// TLS is offered to clients that ask for it. Without a certificate
	// file a self-signed localhost certificate is generated at startup.
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string

	MaxConnections int
	ReadTimeout    time.Duration
}

// DefaultListenerConfig returns a loopback listener on the protocol's port.
func DefaultListenerConfig(proto ProtocolType) ListenerConfig {
	return ListenerConfig{
		Name:           string(proto),
		Protocol:       proto,
		Host:           "127.0.0.1",
		Port:           proto.DefaultPort(),
		MaxConnections: 100,
	}
}

// Address returns the full listen address.
func (c ListenerConfig) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// TLSConfig returns the server TLS configuration, or nil when TLS is off.
func (c ListenerConfig) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	if c.TLSCertFile == "" {
		return tlsutil.SelfSigned(c.Host)
	}
	cert, err := tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// RequestType identifies the type of client request.
type RequestType int

const (
	RequestUnknown RequestType = iota
	RequestQuery               // one or more statements as text
)

func (r RequestType) String() string {
	switch r {
	case RequestQuery:
		return "QUERY"
	default:
		return "UNKNOWN"
	}
}

// Request is one client request.
type Request struct {
	Type RequestType
	SQL  string
}

// StatementResult is the outcome of one statement of a request.
type StatementResult struct {
	// Command is the warehouse command name, e.g. "SELECT" or "CREATE TABLE".
	Command string

	// Columns is nil for statements without a result table.
	Columns []ColumnInfo
	Rows    [][]interface{}

	// RowsAffected is set for DML; -1 otherwise.
	RowsAffected int64
}

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string
	Type string // engine type name, e.g. DECIMAL(10,2)
}

// Result answers one request: the statements that ran, then the error
// that stopped the request, if any. A request without statements and
// without an error is empty.
type Result struct {
	Statements []StatementResult
	Error      error

	// InTransaction reports the session's transaction state after the request.
	InTransaction bool
}
