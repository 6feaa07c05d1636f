// Package http serves warehouse SQL as a small JSON API.
//
// A client posts {"sql": "...", "database": "...", "schema": "..."} to
// /v1/query and gets back every statement's result in one JSON document,
// gzip-compressed when the client accepts it.
// Each request runs in a fresh session, so USE and open transactions do
// not carry over between requests.
//
//	curl -s localhost:8080/v1/query -d '{"sql": "select 1 as one"}'
package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/ha1tch/fakesnow/pkg/errors"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/protocol"
	"github.com/ha1tch/fakesnow/pkg/version"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 8 << 20

// Listener implements protocol.Listener. Every HTTP request becomes a
// pseudo-connection carrying exactly one protocol request.
type Listener struct {
	mu sync.Mutex

	cfg        protocol.ListenerConfig
	logger     *log.Logger
	httpServer *http.Server
	listener   net.Listener
	tlsCfg     *tls.Config

	reqChan   chan *httpRequest
	connCount int64

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// httpRequest hands a decoded request to Accept and carries the result
// back to the waiting handler.
type httpRequest struct {
	body       QueryRequest
	remoteAddr string
	respChan   chan protocol.Result
	done       chan struct{}
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	SQL      string `json:"sql"`
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
}

// NewListener creates an HTTP listener.
func NewListener(cfg protocol.ListenerConfig, logger *log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.Default()
	}
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())

	l := &Listener{
		cfg:     cfg,
		logger:  logger,
		tlsCfg:  tlsCfg,
		reqChan: make(chan *httpRequest),
		ctx:     ctx,
		cancel:  cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleRoot)
	mux.HandleFunc("/health", l.handleHealth)
	mux.HandleFunc("/v1/query", l.handleQuery)

	l.httpServer = &http.Server{
		Handler:           gzhttp.GzipHandler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
	}
	return l, nil
}

func (l *Listener) Protocol() protocol.ProtocolType {
	return protocol.ProtocolHTTP
}

// Listen binds the address and starts serving in the background.
func (l *Listener) Listen() error {
	addr := l.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if l.tlsCfg != nil {
		ln = tls.NewListener(ln, l.tlsCfg)
	}

	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()

	go func() {
		if err := l.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.logger.Protocol().Error("http server failed", err, "address", addr)
		}
	}()
	return nil
}

// Accept returns the next request as a connection. It returns io.EOF once
// the listener is closed.
func (l *Listener) Accept() (protocol.Connection, error) {
	select {
	case <-l.ctx.Done():
		return nil, io.EOF
	case req := <-l.reqChan:
		return &httpConn{req: req}, nil
	}
}

// Close stops accepting requests and waits briefly for running ones.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.httpServer.Shutdown(ctx)
}

func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// ConnectionCount returns the number of requests being served.
func (l *Listener) ConnectionCount() int {
	return int(atomic.LoadInt64(&l.connCount))
}

func (l *Listener) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		l.handleHealth(w, r)
		return
	}
	http.NotFound(w, r)
}

func (l *Listener) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"server":  "fakesnow",
		"version": version.Version,
	})
}

func (l *Listener) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body QueryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.Newf(errors.ErrCodeInvalidParameter, "invalid request body: %v", err).Err())
		return
	}
	if strings.TrimSpace(body.SQL) == "" {
		writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidParameter, "request has no sql").Err())
		return
	}

	if limit := l.cfg.MaxConnections; limit > 0 && l.ConnectionCount() >= limit {
		writeError(w, http.StatusServiceUnavailable, errors.New(errors.ErrCodeConnection, "too many connections").Err())
		return
	}
	atomic.AddInt64(&l.connCount, 1)
	defer atomic.AddInt64(&l.connCount, -1)

	req := &httpRequest{
		body:       body,
		remoteAddr: clientAddr(r),
		respChan:   make(chan protocol.Result, 1),
		done:       make(chan struct{}),
	}
	defer close(req.done)

	select {
	case l.reqChan <- req:
	case <-l.ctx.Done():
		writeError(w, http.StatusServiceUnavailable, errors.New(errors.ErrCodeConnection, "server is shutting down").Err())
		return
	case <-r.Context().Done():
		return
	}

	select {
	case result := <-req.respChan:
		writeResult(w, result)
	case <-l.ctx.Done():
		writeError(w, http.StatusServiceUnavailable, errors.New(errors.ErrCodeConnection, "server is shutting down").Err())
	case <-r.Context().Done():
		l.logger.Protocol().Debug("client went away", "remote_addr", req.remoteAddr)
	}
}

// clientAddr prefers the first X-Forwarded-For entry.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

// httpConn implements protocol.Connection for a single request.
type httpConn struct {
	mu     sync.Mutex
	req    *httpRequest
	closed bool
	gotReq bool
}

// ReadRequest returns the request once, then io.EOF.
func (c *httpConn) ReadRequest() (protocol.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gotReq {
		return protocol.Request{}, io.EOF
	}
	c.gotReq = true
	return protocol.Request{Type: protocol.RequestQuery, SQL: c.req.body.SQL}, nil
}

// SendResult hands the result to the waiting handler. It fails with io.EOF
// when the handler has already given up.
func (c *httpConn) SendResult(result protocol.Result) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return io.EOF
	}
	select {
	case c.req.respChan <- result:
		return nil
	case <-c.req.done:
		return io.EOF
	}
}

func (c *httpConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *httpConn) RemoteAddr() net.Addr {
	return httpAddr(c.req.remoteAddr)
}

// Properties exposes the body's database and schema under the same
// "database" name the PostgreSQL startup message uses.
func (c *httpConn) Properties() map[string]string {
	props := make(map[string]string)
	db, schema := c.req.body.Database, c.req.body.Schema
	switch {
	case db != "" && schema != "":
		props["database"] = db + "." + schema
	case db != "":
		props["database"] = db
	}
	return props
}

type httpAddr string

func (a httpAddr) Network() string { return "http" }
func (a httpAddr) String() string  { return string(a) }
