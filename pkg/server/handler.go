package server

import (
	"context"
	"time"

	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/log"
	"github.com/ha1tch/fakesnow/pkg/protocol"
)

// ConnectionHandler serves one client connection on its own session.
type ConnectionHandler struct {
	conn       protocol.Connection
	session    *fakesnow.Conn
	logger     *log.Logger
	logQueries bool
}

// NewConnectionHandler creates a handler for conn running statements on
// session.
func NewConnectionHandler(conn protocol.Connection, session *fakesnow.Conn, logger *log.Logger, logQueries bool) *ConnectionHandler {
	logger.Protocol().Debug("connection handler created",
		"session", session.ID(),
		"remote_addr", conn.RemoteAddr().String(),
	)
	return &ConnectionHandler{
		conn:       conn,
		session:    session,
		logger:     logger,
		logQueries: logQueries,
	}
}

// Serve handles requests until the client disconnects or ctx ends.
func (h *ConnectionHandler) Serve(ctx context.Context) {
	ctx = log.WithSessionID(ctx, h.session.ID())
	reqLog := h.logger.Protocol().WithFields("session", h.session.ID())

	sess := h.session.Session()
	h.logger.Protocol().Info("session started",
		"session", h.session.ID(),
		"database", sess.CurrentDatabase(),
		"schema", sess.CurrentSchema(),
	)

	requests := 0
	for {
		select {
		case <-ctx.Done():
			reqLog.Debug("session context cancelled", "requests_handled", requests)
			return
		default:
		}

		req, err := h.conn.ReadRequest()
		if err != nil {
			reqLog.Debug("session ended",
				"requests_handled", requests,
				"reason", err.Error(),
			)
			return
		}
		requests++

		start := time.Now()
		result := h.processRequest(ctx, req)
		elapsed := time.Since(start)

		if result.Error != nil {
			reqLog.Warn("request failed",
				"sql", req.SQL,
				"error", result.Error.Error(),
				"duration_ms", elapsed.Milliseconds(),
			)
		} else if h.logQueries {
			reqLog.Info("request completed",
				"sql", req.SQL,
				"statements", len(result.Statements),
				"duration_ms", elapsed.Milliseconds(),
			)
		} else {
			reqLog.Debug("request completed",
				"statements", len(result.Statements),
				"duration_ms", elapsed.Milliseconds(),
			)
		}

		if err := h.conn.SendResult(result); err != nil {
			h.logger.Protocol().Error("failed to send result", err, "session", h.session.ID())
			return
		}
	}
}

// processRequest runs every statement of a request in order. A failing
// statement ends the request; the statements before it keep their
// results.
func (h *ConnectionHandler) processRequest(ctx context.Context, req protocol.Request) protocol.Result {
	cursors, err := h.session.ExecuteString(ctx, req.SQL)
	result := protocol.Result{Error: err}
	for _, cur := range cursors {
		result.Statements = append(result.Statements, statementResult(cur))
	}
	result.InTransaction = h.session.InTransaction()
	return result
}

func statementResult(cur *fakesnow.Cursor) protocol.StatementResult {
	st := protocol.StatementResult{
		Command:      cur.Command(),
		RowsAffected: -1,
	}
	switch st.Command {
	case "INSERT", "UPDATE", "DELETE":
		st.RowsAffected = cur.RowCount()
		return st
	}

	// DDL answered by the engine has no result table; status rows
	// produced in place of a statement do.
	rs := cur.Result()
	if rs == nil || len(rs.Columns) == 0 || (!cur.IsQuery() && len(rs.Rows) == 0) {
		return st
	}
	st.Columns = make([]protocol.ColumnInfo, len(rs.Columns))
	for i, col := range rs.Columns {
		st.Columns[i] = protocol.ColumnInfo{Name: col.Name, Type: col.TypeName}
	}
	st.Rows = cur.FetchAll()
	return st
}
