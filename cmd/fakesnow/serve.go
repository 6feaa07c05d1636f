package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ha1tch/fakesnow/pkg/engine"
	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/fixtures"
	"github.com/ha1tch/fakesnow/pkg/server"
	"github.com/ha1tch/fakesnow/pkg/version"
)

func newServeCmd(a *app) *cobra.Command {
	var noBanner bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sessions over the PostgreSQL wire protocol",
		Long: `serve listens for PostgreSQL clients. Every client connection gets its own
session on one shared engine database, and sends warehouse SQL with the
simple query protocol. --http-port also serves a JSON API at /v1/query,
one fresh session per request. With --fixtures the directory's SQL files are loaded
before the listener starts; --watch applies them again when they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				select {
				case sig := <-sigCh:
					a.logger.System().Info("shutdown signal received", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()
			return a.serve(ctx, noBanner)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.overrides.Host, "host", "", "listen address (default: 127.0.0.1)")
	f.IntVarP(&a.overrides.Port, "port", "p", 0, "listen port (default: 5432)")
	f.IntVar(&a.overrides.HTTPPort, "http-port", 0, "also serve the JSON query API on this port")
	f.BoolVar(&a.overrides.TLS, "tls", false, "offer TLS with a generated self-signed certificate")
	f.StringVar(&a.overrides.FixturesDir, "fixtures", "", "directory of SQL fixtures to load at startup")
	f.BoolVarP(&a.overrides.Watch, "watch", "w", false, "apply changed fixture files while serving")
	f.BoolVar(&noBanner, "no-banner", false, "do not print the startup summary")
	return cmd
}

// serve runs the server until ctx ends.
func (a *app) serve(ctx context.Context, noBanner bool) error {
	cfg := a.cfg
	db, err := engine.Open(cfg.EngineConfig())
	if err != nil {
		return err
	}
	defer db.Close()
	db.WithLogger(a.logger)

	var watcher *fixtures.Watcher
	if cfg.Fixtures.Dir != "" {
		conn, err := fakesnow.Connect(ctx, db, cfg.SessionOptions(a.logger))
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := a.loadFixtures(ctx, conn, cfg.Fixtures.Dir); err != nil {
			a.logger.System().Warn("fixtures incomplete", "error", err.Error())
		}
		if cfg.Fixtures.Watch {
			watcher, err = fixtures.NewWatcher(cfg.Fixtures.Dir, conn, a.logger,
				fixtures.WithDebounceDelay(time.Duration(cfg.Fixtures.Debounce)))
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()
		}
	}

	srv := server.New(cfg.ServerConfig(a.logger), db)
	if err := srv.Start(); err != nil {
		return err
	}

	if !noBanner {
		pterm.Fprintln(a.stdout, pterm.Bold.Sprint("fakesnow "+version.Version)+" is serving")
		for _, l := range srv.Stats().Listeners {
			fmt.Fprintf(a.stdout, "  Listening:  %s (%s)\n", l.Address, l.Protocol)
		}
		fmt.Fprintf(a.stdout, "  Session:    %s.%s\n", cfg.Database, cfg.Schema)
		if cfg.Engine.Path != "" {
			fmt.Fprintf(a.stdout, "  Database:   %s\n", cfg.Engine.Path)
		} else {
			fmt.Fprintln(a.stdout, "  Database:   in memory")
		}
		if cfg.Fixtures.Dir != "" {
			fmt.Fprintf(a.stdout, "  Fixtures:   %s (watch: %v)\n", cfg.Fixtures.Dir, watcher != nil)
		}
	}

	<-ctx.Done()
	fmt.Fprintln(a.stdout, "Shutting down...")
	uptime := srv.Uptime()
	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	fmt.Fprintf(a.stdout, "Server stopped after %s, %d session(s) served\n",
		uptime.Round(time.Second), srv.Stats().SessionsServed)
	return nil
}
