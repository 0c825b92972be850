// Command blog builds, serves and scaffolds a markdown blog.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-blog/cmd/blog/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "blog:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dir       string
	config    string
	logLevel  string
	logFormat string
	provider  string
	set       []string
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags
	ui     *ui
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, ui: newUI(stdout)}

	root := &cobra.Command{
		Use:           "blog",
		Short:         "Build and serve a markdown blog",
		Long:          "blog renders markdown posts with front-matter into a static site and serves it with live reload.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.flags.dir, "dir", ".", "Site root directory")
	flags.StringVarP(&c.flags.config, "config", "c", "", "Config file (defaults to blog.yaml in the site root)")
	flags.StringVar(&c.flags.logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	flags.StringVar(&c.flags.logFormat, "log-format", "", "Log format override for the gologger provider (json, console, pretty)")
	flags.StringVar(&c.flags.provider, "log-provider", "", "Logging provider override (console, gologger)")
	flags.StringArrayVar(&c.flags.set, "set", nil, "Config override as key=value, e.g. --set generator.workers=4")

	root.AddCommand(
		newBuildCommand(c),
		newServeCommand(c),
		newCleanCommand(c),
		newNewCommand(c),
		newPreviewCommand(c),
		newHistoryCommand(c),
		newVersionCommand(c),
	)
	return root
}

// options turns the global flags into bootstrap options.
func (c *cli) options(overrides map[string]any) (bootstrap.Options, error) {
	merged := map[string]any{}
	for _, pair := range c.flags.set {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return bootstrap.Options{}, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}
		merged[key] = strings.TrimSpace(value)
	}
	if c.flags.logLevel != "" {
		merged["logging.level"] = c.flags.logLevel
	}
	if c.flags.logFormat != "" {
		merged["logging.format"] = c.flags.logFormat
	}
	if c.flags.provider != "" {
		merged["logging.provider"] = c.flags.provider
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return bootstrap.Options{
		Dir:        c.flags.dir,
		ConfigFile: c.flags.config,
		Overrides:  merged,
		LogWriter:  c.stderr,
	}, nil
}

// load builds the resources for one command.
func (c *cli) load(overrides map[string]any) (*appResources, error) {
	opts, err := c.options(overrides)
	if err != nil {
		return nil, err
	}
	res, err := appBuilder(opts)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("blog not configured")
	}
	return res, nil
}
