package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	sitecmd "github.com/goliatone/go-blog/internal/commands/site"
	"github.com/goliatone/go-blog/internal/generator"
)

type buildFlags struct {
	force      bool
	dryRun     bool
	drafts     bool
	assetsOnly bool
	routes     []string
	post       string
}

func newBuildCommand(c *cli) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render posts, listings, feeds and assets into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.load(nil)
			if err != nil {
				return err
			}
			defer res.Close()

			if strings.TrimSpace(flags.post) != "" {
				if res.handlers.buildPost == nil {
					return fmt.Errorf("build post handler not configured")
				}
				route := strings.TrimSpace(flags.post)
				if err := res.handlers.buildPost.Execute(cmd.Context(), sitecmd.BuildPostCommand{Route: route}); err != nil {
					return err
				}
				c.ui.Success("built %s", c.ui.path.Render(route))
				return nil
			}

			if res.handlers.build == nil {
				return fmt.Errorf("build handler not configured")
			}
			var (
				result    *generator.BuildResult
				operation = "build"
			)
			msg := sitecmd.BuildSiteCommand{
				Routes:        flags.routes,
				Force:         flags.force,
				DryRun:        flags.dryRun,
				IncludeDrafts: flags.drafts,
				AssetsOnly:    flags.assetsOnly,
				Trigger:       "cli",
				ResultCallback: func(env sitecmd.ResultEnvelope) {
					result = env.Result
					if op, ok := env.Metadata["operation"].(string); ok && op != "" {
						operation = op
					}
				},
			}
			if err := res.handlers.build.Execute(cmd.Context(), msg); err != nil {
				if result != nil {
					c.ui.BuildSummary(operation, result)
				}
				return err
			}
			c.ui.BuildSummary(operation, result)
			if res.outputDir != "" && !flags.dryRun {
				c.ui.printf("%s %s\n", c.ui.muted.Render("output"), c.ui.path.Render(res.outputDir))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&flags.force, "force", "f", false, "Rebuild pages even when unchanged")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Render without writing output")
	f.BoolVar(&flags.drafts, "drafts", false, "Include drafts and future-dated posts")
	f.BoolVar(&flags.assetsOnly, "assets-only", false, "Copy theme and static assets only")
	f.StringSliceVar(&flags.routes, "route", nil, "Limit the build to these post routes (repeatable)")
	f.StringVar(&flags.post, "post", "", "Build a single post route")
	cmd.MarkFlagsMutuallyExclusive("post", "route")
	cmd.MarkFlagsMutuallyExclusive("post", "assets-only")
	return cmd
}

func newCleanCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every generated file from the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.load(nil)
			if err != nil {
				return err
			}
			defer res.Close()
			if res.handlers.clean == nil {
				return fmt.Errorf("clean handler not configured")
			}
			if err := res.handlers.clean.Execute(cmd.Context(), sitecmd.CleanSiteCommand{}); err != nil {
				return err
			}
			target := res.outputDir
			if target == "" {
				target = "output directory"
			}
			c.ui.Success("cleaned %s", c.ui.path.Render(target))
			return nil
		},
	}
}
