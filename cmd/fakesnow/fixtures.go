package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/fixtures"
)

// loadFixtures applies every fixture in dir on conn and then moves the
// session back to where it started. Failed files are reported together.
func (a *app) loadFixtures(ctx context.Context, conn *fakesnow.Conn, dir string) error {
	sess := conn.Session()
	database, schema := sess.CurrentDatabase(), sess.CurrentSchema()

	res, err := fixtures.NewLoader(a.logger).LoadDirectory(ctx, conn, dir)
	if err != nil {
		return err
	}

	if database != "" && (sess.CurrentDatabase() != database || sess.CurrentSchema() != schema) {
		use := "USE DATABASE " + database
		if schema != "" {
			use = "USE SCHEMA " + database + "." + schema
		}
		if _, err := conn.ExecuteString(ctx, use); err != nil {
			return fmt.Errorf("restoring session after fixtures: %w", err)
		}
	}

	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = fmt.Sprintf("%s: %v", e.Path, e.Error)
		}
		return fmt.Errorf("%d fixture(s) failed: %s", len(res.Errors), strings.Join(msgs, "; "))
	}
	return nil
}
