package main

import (
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ha1tch/fakesnow/pkg/config"
	"github.com/ha1tch/fakesnow/pkg/log"
)

// app is the state the subcommands share.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	overrides  config.Overrides
	format     string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "fakesnow",
		Short: "Run warehouse SQL on an embedded DuckDB engine",
		Long: `fakesnow accepts warehouse SQL, rewrites each statement for DuckDB and runs it
on an embedded database. Use it to inspect the rewritten SQL, run scripts,
explore data in a shell, or serve sessions to PostgreSQL clients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "JSON configuration file")
	pf.StringVar(&a.overrides.DBPath, "db-path", "", "engine database file (default: in memory)")
	pf.StringVarP(&a.overrides.Database, "database", "d", "", "initial database (default: FAKESNOW)")
	pf.StringVarP(&a.overrides.Schema, "schema", "s", "", "initial schema (default: PUBLIC)")
	pf.BoolVar(&a.overrides.NoCreate, "no-create", false, "do not create the initial database and schema")
	pf.StringVar(&a.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error, off")
	pf.StringVar(&a.overrides.LogFormat, "log-format", "", "log format: text, json")

	root.AddCommand(
		newTranslateCmd(a),
		newExecCmd(a),
		newShellCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup resolves the configuration and the logger once flags are parsed.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.overrides)
	if err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.LogConfig()
	lc.Output = a.stderr
	a.logger = log.New(lc)
	log.SetDefault(a.logger)

	if !useStyling(a.stdout) {
		pterm.DisableColor()
	}
	return nil
}

// useStyling reports whether colour and styling suit w: it must be a
// terminal, and NO_COLOR or TERM=dumb switch styling off.
func useStyling(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
