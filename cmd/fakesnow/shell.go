package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ha1tch/fakesnow/pkg/fakesnow"
	"github.com/ha1tch/fakesnow/pkg/version"
)

// Keywords offered by tab completion.
var shellKeywords = []string{
	"SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "IN", "LIKE", "ILIKE", "BETWEEN",
	"ORDER", "BY", "GROUP", "HAVING", "LIMIT", "QUALIFY", "JOIN", "LEFT", "INNER",
	"INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "MERGE", "TRUNCATE",
	"CREATE", "TABLE", "VIEW", "DATABASE", "SCHEMA", "DROP", "ALTER", "COMMENT",
	"USE", "DESCRIBE", "SHOW", "BEGIN", "COMMIT", "ROLLBACK",
	"VARIANT", "OBJECT", "ARRAY", "PARSE_JSON", "TO_DATE", "REGEXP_REPLACE",
	"INFORMATION_SCHEMA.TABLES", "INFORMATION_SCHEMA.COLUMNS",
}

// lineReader is the part of a readline instance the shell uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

func newShellCmd(a *app) *cobra.Command {
	var fixture string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive SQL shell",
		Long: `shell opens one session and reads statements interactively. A statement
runs once a line ends with a semicolon. Type \? for the shell commands.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(a.format) {
				return usageError{fmt.Errorf("unknown format %q (want one of %v)", a.format, formats)}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, conn, closeAll, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			if fixture != "" {
				if err := a.loadFixtures(ctx, conn, fixture); err != nil {
					pterm.Fprintln(a.stderr, pterm.Red(err.Error()))
				}
			}

			sh := &shell{
				conn:    conn,
				out:     a.stdout,
				errOut:  a.stderr,
				printer: &printer{w: a.stdout, format: a.format},
			}
			if !isTerminalReader(a.stdin) {
				sh.in = newScanReader(a.stdin)
				return sh.run(ctx)
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:            prompt(conn, false),
				HistoryFile:       a.cfg.Shell.HistoryFile,
				HistoryLimit:      a.cfg.Shell.MaxHistory,
				InterruptPrompt:   "^C",
				EOFPrompt:         `\q`,
				AutoComplete:      shellCompleter(),
				HistorySearchFold: true,
				Stdin:             readCloser(a.stdin),
				Stdout:            a.stdout,
				Stderr:            a.stderr,
			})
			if err != nil {
				return fmt.Errorf("starting line editor: %w", err)
			}
			sh.in = rl
			sh.printer.timing = true
			fmt.Fprintf(a.stdout, "%s. Type \\? for help.\n", version.Full())
			return sh.run(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.overrides.HistoryFile, "history", "", "history file (default: ~/.fakesnow_history)")
	f.StringVarP(&a.format, "format", "f", formatTable, "output format: table, csv, json")
	f.StringVar(&fixture, "fixtures", "", "load the SQL fixtures in this directory first")
	return cmd
}

func readCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

func shellCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(shellKeywords)+len(shellCommands))
	for _, kw := range shellKeywords {
		items = append(items, readline.PcItem(kw))
	}
	for _, c := range shellCommands {
		items = append(items, readline.PcItem(c.name))
	}
	return readline.NewPrefixCompleter(items...)
}

// prompt shows the session's database and schema.
func prompt(conn *fakesnow.Conn, continued bool) string {
	if continued {
		return "    -> "
	}
	sess := conn.Session()
	where := sess.CurrentDatabase()
	if where == "" {
		where = "(no database)"
	} else if s := sess.CurrentSchema(); s != "" {
		where += "." + s
	}
	return pterm.Green(where) + "> "
}

type shellCommand struct {
	name string
	help string
}

var shellCommands = []shellCommand{
	{`\?`, "show this help"},
	{`\q`, "quit"},
	{`\d`, "list tables in the current database"},
	{`\d NAME`, "describe a table"},
	{`\format`, "show or set the output format (table, csv, json)"},
	{`\timing`, "toggle statement timing"},
	{`\translate SQL`, "print the DuckDB SQL of a statement without running it"},
}

// shell is the read-eval-print loop of one session.
type shell struct {
	conn    *fakesnow.Conn
	in      lineReader
	out     io.Writer
	errOut  io.Writer
	printer *printer
}

func (sh *shell) run(ctx context.Context) error {
	defer sh.in.Close()

	var buf strings.Builder
	for {
		sh.in.SetPrompt(prompt(sh.conn, buf.Len() > 0))
		line, err := sh.in.Readline()
		if err == readline.ErrInterrupt {
			buf.Reset()
			continue
		}
		if err == io.EOF {
			if rest := strings.TrimSpace(buf.String()); rest != "" {
				sh.execute(ctx, rest)
			}
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, `\`) {
				if quit := sh.command(ctx, trimmed); quit {
					return nil
				}
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}
		script := buf.String()
		buf.Reset()
		sh.execute(ctx, script)
	}
}

func (sh *shell) execute(ctx context.Context, script string) {
	if err := runScript(ctx, sh.conn, script, sh.printer); err != nil {
		fmt.Fprintln(sh.errOut, pterm.Red(err.Error()))
	}
}

// command runs a backslash command and reports whether the shell should
// quit.
func (sh *shell) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(arg), ";"))

	switch name {
	case `\q`, `\quit`:
		return true
	case `\?`, `\h`, `\help`:
		sh.help()
	case `\d`:
		if arg == "" {
			sh.execute(ctx, "SELECT table_schema, table_name, table_type FROM information_schema.tables "+
				"WHERE table_schema <> 'INFORMATION_SCHEMA' ORDER BY table_schema, table_name;")
		} else {
			sh.execute(ctx, "DESCRIBE TABLE "+arg+";")
		}
	case `\format`:
		if arg == "" {
			fmt.Fprintf(sh.out, "Output format is %s.\n", sh.printer.format)
		} else if validFormat(arg) {
			sh.printer.format = arg
			fmt.Fprintf(sh.out, "Output format set to %s.\n", arg)
		} else {
			fmt.Fprintf(sh.errOut, "Unknown format %q (want one of %v).\n", arg, formats)
		}
	case `\timing`:
		sh.printer.timing = !sh.printer.timing
		if sh.printer.timing {
			fmt.Fprintln(sh.out, "Timing is on.")
		} else {
			fmt.Fprintln(sh.out, "Timing is off.")
		}
	case `\translate`:
		out, err := fakesnow.Translate(arg, sh.translateOptions())
		for _, t := range out {
			fmt.Fprintf(sh.out, "%s;\n", t.SQL)
		}
		if err != nil {
			fmt.Fprintln(sh.errOut, pterm.Red(err.Error()))
		}
	default:
		fmt.Fprintf(sh.errOut, "Unknown command %s. Type \\? for help.\n", name)
	}
	return false
}

// translateOptions starts an offline translation where the session is now.
func (sh *shell) translateOptions() fakesnow.Options {
	sess := sh.conn.Session()
	return fakesnow.Options{Database: sess.CurrentDatabase(), Schema: sess.CurrentSchema()}
}

func (sh *shell) help() {
	cmds := make([]shellCommand, len(shellCommands))
	copy(cmds, shellCommands)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })

	fmt.Fprintln(sh.out, "Shell commands:")
	for _, c := range cmds {
		fmt.Fprintf(sh.out, "  %-16s %s\n", c.name, c.help)
	}
	fmt.Fprintln(sh.out, "\nEnd a statement with ; to run it. Ctrl+C clears the current input.")
}

// scanReader reads lines from a non-terminal input without editing or
// history.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &scanReader{sc: sc}
}

func (r *scanReader) Readline() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) SetPrompt(string) {}
func (r *scanReader) Close() error     { return nil }

// isTerminalReader reports whether r is a terminal.
func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
