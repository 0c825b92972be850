package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = ""
)

func newHistoryCommand(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.load(nil)
			if err != nil {
				return err
			}
			defer res.Close()
			if res.history == nil {
				return fmt.Errorf("build history disabled; set history.enabled to true")
			}
			runs, err := res.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			c.ui.Runs(runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func newVersionCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the blog version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			c.ui.printf("blog %s\n", resolveVersion())
		},
	}
}

func resolveVersion() string {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if commit != "" {
		v += " (" + commit + ")"
	}
	return v
}
