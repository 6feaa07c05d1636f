package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExecCmd(a *app) *cobra.Command {
	var (
		inline  []string
		timing  bool
		fixture string
	)
	cmd := &cobra.Command{
		Use:   "exec [FILE...]",
		Short: "Run scripts and print their results",
		Long: `exec runs each script on one session and prints every statement's result.
Scripts come from -e, then from the named files, or from standard input when
neither is given. Execution stops at the first failing statement.`,
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
					return err
				}
			}

			var scripts []string
			scripts = append(scripts, inline...)
			for _, path := range args {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				scripts = append(scripts, string(b))
			}
			if len(scripts) == 0 {
				s, err := a.script(nil)
				if err != nil {
					return err
				}
				scripts = append(scripts, s)
			}

			p := &printer{w: a.stdout, format: a.format, timing: timing}
			for _, s := range scripts {
				if err := runScript(ctx, conn, s, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&inline, "execute", "e", nil, "script to run (repeatable)")
	f.StringVarP(&a.format, "format", "f", formatTable, "output format: table, csv, json")
	f.BoolVar(&timing, "timing", false, "show how long each script took")
	f.StringVar(&fixture, "fixtures", "", "load the SQL fixtures in this directory first")
	return cmd
}
