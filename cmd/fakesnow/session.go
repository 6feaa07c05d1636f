package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/fakesnow"
)

// openSession opens the configured engine and connects one session to it.
// The returned func closes both.
func (a *app) openSession(ctx context.Context) (*engine.DB, *fakesnow.Conn, func(), error) {
	db, err := engine.Open(a.cfg.EngineConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	db.WithLogger(a.logger)
	conn, err := fakesnow.Connect(ctx, db, a.cfg.SessionOptions(a.logger))
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	closer := func() {
		conn.Close()
		db.Close()
	}
	return db, conn, closer, nil
}

// runScript runs script on conn and prints each statement's result. It
// stops at the first failing statement.
func runScript(ctx context.Context, conn *fakesnow.Conn, script string, p *printer) error {
	start := time.Now()
	cursors, err := conn.ExecuteString(ctx, script)
	elapsed := time.Since(start)
	for i, cur := range cursors {
		// Timing covers the whole script and is shown once.
		var took time.Duration
		if i == len(cursors)-1 {
			took = elapsed
		}
		if perr := p.result(cur, took); perr != nil {
			return fmt.Errorf("printing result: %w", perr)
		}
	}
	return err
}
