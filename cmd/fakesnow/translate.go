package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/fakesnow/pkg/fakesnow"
)

func newTranslateCmd(a *app) *cobra.Command {
	var withCommand bool
	cmd := &cobra.Command{
		Use:   "translate [SQL...]",
		Short: "Print the DuckDB SQL of each statement",
		Long: `translate rewrites each statement without running it and prints the DuckDB
SQL, one statement per line. The script comes from the arguments, or from
standard input when there are none. USE statements move the session for the
statements after them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := a.script(args)
			if err != nil {
				return err
			}
			out, err := fakesnow.Translate(script, a.cfg.SessionOptions(a.logger))
			for _, t := range out {
				if withCommand {
					fmt.Fprintf(a.stdout, "-- %s\n", t.Command)
				}
				fmt.Fprintf(a.stdout, "%s;\n", t.SQL)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&withCommand, "command", false, "print the command name above each statement")
	return cmd
}

// script joins args into one script, or reads standard input when there
// are no args.
func (a *app) script(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("reading standard input: %w", err)
	}
	return string(b), nil
}
