package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog/internal/preview"
	"github.com/goliatone/go-blog/internal/scaffold"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const dateFlagLayout = "2006-01-02"

func newNewCommand(c *cli) *cobra.Command {
	var (
		desc       string
		tags       []string
		draft      bool
		route      string
		date       string
		datePrefix bool
	)
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a markdown post with front-matter in the content directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.load(nil)
			if err != nil {
				return err
			}
			defer res.Close()

			opts := scaffold.PostOptions{
				Dir:         res.contentDir,
				Title:       strings.Join(args, " "),
				Description: desc,
				Tags:        tags,
				Draft:       draft,
				Path:        route,
				DatePrefix:  datePrefix,
			}
			if date != "" {
				parsed, err := time.ParseInLocation(dateFlagLayout, date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
				opts.Date = parsed
			}
			result, err := scaffold.NewPost(opts)
			if err != nil {
				return err
			}
			c.ui.Success("created %s", c.ui.path.Render(result.File))
			c.ui.printf("%s %s\n", c.ui.muted.Render("route"), result.Path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&desc, "desc", "d", "", "Post description")
	f.StringSliceVarP(&tags, "tag", "t", nil, "Post tag (repeatable)")
	f.BoolVar(&draft, "draft", false, "Mark the post as a draft")
	f.StringVar(&route, "path", "", "Route of the post (defaults to the title slug)")
	f.StringVar(&date, "date", "", "Publication date as YYYY-MM-DD (defaults to today)")
	f.BoolVar(&datePrefix, "date-prefix", false, "Prefix the file name with the date")
	return cmd
}

func newPreviewCommand(c *cli) *cobra.Command {
	var (
		style string
		width int
	)
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a post in the terminal",
		Long:  "preview renders a markdown post, relative to the content directory, with its title, date, path and reading time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.load(map[string]any{"history.enabled": false})
			if err != nil {
				return err
			}
			defer res.Close()
			if res.markdown == nil {
				return fmt.Errorf("markdown service not configured")
			}

			doc, err := res.markdown.Load(cmd.Context(), args[0], interfaces.LoadOptions{})
			if err != nil {
				return err
			}
			previewer, err := preview.New(preview.Options{Style: style, Width: width})
			if err != nil {
				return err
			}
			out, err := previewer.Render(doc)
			if err != nil {
				return err
			}
			c.ui.printf("%s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "auto", "Glamour style (auto, dark, light, notty, ascii, dracula, pink)")
	cmd.Flags().IntVar(&width, "width", preview.DefaultWidth, "Word wrap width")
	return cmd
}
