// Package bootstrap wires configuration into the services the blog CLI runs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-blog/internal/commands"
	sitecmd "github.com/goliatone/go-blog/internal/commands/site"
	"github.com/goliatone/go-blog/internal/config"
	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/history"
	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/logging/console"
	"github.com/goliatone/go-blog/internal/logging/gologger"
	"github.com/goliatone/go-blog/internal/markdown"
	"github.com/goliatone/go-blog/internal/metrics"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/storage"
	"github.com/goliatone/go-blog/internal/templates"
	"github.com/goliatone/go-blog/internal/theme"
	"github.com/goliatone/go-blog/internal/validation"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// Options captures the inputs of a CLI invocation.
type Options struct {
	// Dir is the site root. Relative paths in the config resolve against it.
	Dir        string
	ConfigFile string
	Overrides  map[string]any
	// LogWriter receives console log output. Defaults to stderr.
	LogWriter io.Writer
	// LoggerProvider replaces the provider selected by the config.
	LoggerProvider interfaces.LoggerProvider
	// SkipHistory leaves History nil even when the config enables it.
	SkipHistory bool
}

// Handlers groups the site command handlers.
type Handlers struct {
	Build     command.Commander[sitecmd.BuildSiteCommand]
	BuildPost command.Commander[sitecmd.BuildPostCommand]
	Clean     command.Commander[sitecmd.CleanSiteCommand]
}

// App is the wired blog.
type App struct {
	Config      config.Config
	ConfigFile  string
	Dir         string
	OutputDir   string
	ContentDir  string
	StaticDir   string
	TemplateDir string

	Provider  interfaces.LoggerProvider
	Logger    interfaces.Logger
	Markdown  *markdown.Service
	Posts     *posts.Repository
	Renderer  *templates.Renderer
	Metrics   *metrics.PrometheusRecorder
	Generator generator.Service
	History   history.Repository
	Handlers  Handlers

	db *bun.DB
}

// Build loads configuration and constructs every service.
func Build(opts Options) (*App, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: resolve %s: %w", dir, err)
	}

	loaded, err := config.Load(config.Options{
		File:      opts.ConfigFile,
		Dir:       absDir,
		Overrides: opts.Overrides,
	})
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config

	provider := opts.LoggerProvider
	if provider == nil {
		provider, err = NewLoggerProvider(cfg.Logging, opts.LogWriter)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config:      cfg,
		ConfigFile:  loaded.File,
		Dir:         absDir,
		OutputDir:   resolve(absDir, cfg.Generator.OutputDir),
		ContentDir:  resolve(absDir, cfg.Content.Dir),
		StaticDir:   resolve(absDir, cfg.Content.StaticDir),
		TemplateDir: resolve(absDir, cfg.Templates.Dir),
		Provider:    provider,
		Logger:      logging.ModuleLogger(provider, ""),
	}
	if loaded.File != "" {
		app.Logger.Debug("bootstrap.config.loaded", "file", loaded.File)
	}

	parseOpts := ParseOptions(cfg.Markdown)
	app.Markdown, err = markdown.NewService(markdown.Config{
		BasePath:      app.ContentDir,
		Pattern:       cfg.Content.Pattern,
		Recursive:     cfg.Content.Recursive,
		IncludeHidden: cfg.Content.IncludeHidden,
		Parser:        parseOpts,
	}, markdown.NewGoldmarkParser(parseOpts), markdown.WithLogger(logging.MarkdownLogger(provider)))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: markdown service: %w", err)
	}

	repoOpts := []posts.RepositoryOption{
		posts.WithRepositoryLogger(logging.MarkdownLogger(provider)),
	}
	if schema := strings.TrimSpace(cfg.Content.SchemaFile); schema != "" {
		validator, err := validation.LoadFrontMatterValidator(resolve(absDir, schema))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: front-matter schema: %w", err)
		}
		repoOpts = append(repoOpts, posts.WithValidator(validator))
	}
	app.Posts = posts.NewRepository(app.Markdown, ".", repoOpts...)

	app.Renderer, err = templates.New(templates.Options{
		Theme:       theme.Templates(),
		OverrideDir: app.TemplateDir,
		BaseURL:     cfg.Site.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: templates: %w", err)
	}

	app.Metrics = metrics.NewPrometheusRecorder(nil)
	app.Generator = generator.NewService(GeneratorConfig(cfg), generator.Dependencies{
		Posts:    app.Posts,
		Renderer: app.Renderer,
		Storage:  storage.NewFilesystem(app.OutputDir),
		Assets:   AssetSources(app.StaticDir),
		Site:     SiteView(cfg.Site),
		Logger:   logging.GeneratorLogger(provider),
		Metrics:  app.Metrics,
	})

	if cfg.History.Enabled && !opts.SkipHistory {
		if err := app.openHistory(context.Background()); err != nil {
			return nil, err
		}
	}

	deps := sitecmd.Dependencies{
		Service: app.Generator,
		History: app.History,
		Logger:  commands.CommandLogger(provider, "site"),
	}
	app.Handlers = Handlers{
		Build:     sitecmd.NewBuildSiteHandler(deps, commands.WithTimeout[sitecmd.BuildSiteCommand](0)),
		BuildPost: sitecmd.NewBuildPostHandler(deps),
		Clean:     sitecmd.NewCleanSiteHandler(deps),
	}
	return app, nil
}

func (a *App) openHistory(ctx context.Context) error {
	dsn := a.Config.History.DSN
	if err := ensureDSNDir(a.Dir, dsn); err != nil {
		return err
	}
	db, err := history.OpenSQLite(resolveDSN(a.Dir, dsn))
	if err != nil {
		return fmt.Errorf("bootstrap: open history: %w", err)
	}
	repo := history.NewBunRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("bootstrap: migrate history: %w", err)
	}
	if keep := a.Config.History.Keep; keep > 0 {
		if _, err := repo.Prune(ctx, keep); err != nil {
			a.Logger.Warn("bootstrap.history.prune_failed", "error", err)
		}
	}
	a.db = db
	a.History = repo
	return nil
}

// Close releases the history database.
func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// NewLoggerProvider selects the console or go-logger provider.
func NewLoggerProvider(cfg config.LoggingConfig, w io.Writer) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		return gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
	case "", "console":
		if w == nil {
			w = os.Stderr
		}
		level, _ := console.ParseLevel(cfg.Level)
		return console.NewProvider(console.Options{Writer: w, MinLevel: &level}), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrLoggingProviderUnknown, cfg.Provider)
	}
}

// ParseOptions maps the markdown section onto parser options.
func ParseOptions(cfg config.MarkdownConfig) interfaces.ParseOptions {
	highlight := cfg.Highlight
	return interfaces.ParseOptions{
		Extensions:     append([]string(nil), cfg.Extensions...),
		Sanitize:       cfg.Sanitize,
		HardWraps:      cfg.HardWraps,
		SafeMode:       cfg.SafeMode,
		Highlight:      &highlight,
		HighlightStyle: cfg.HighlightStyle,
	}
}

// GeneratorConfig maps the generator section. The output directory is the
// storage root so the generator writes relative paths.
func GeneratorConfig(cfg config.Config) generator.Config {
	out := generator.DefaultConfig()
	out.OutputDir = ""
	out.BaseURL = cfg.Site.BaseURL
	out.Incremental = cfg.Generator.Incremental
	out.CopyAssets = cfg.Generator.CopyAssets
	out.GenerateSitemap = cfg.Generator.GenerateSitemap
	out.GenerateRobots = cfg.Generator.GenerateRobots
	out.GenerateFeeds = cfg.Generator.GenerateFeeds
	out.IncludeDrafts = cfg.Generator.IncludeDrafts
	out.Workers = cfg.Generator.Workers
	out.IndexLimit = cfg.Generator.IndexLimit
	out.FeedLimit = cfg.Generator.FeedLimit
	out.ListRoute = cfg.Generator.ListRoute
	if style := strings.TrimSpace(cfg.Markdown.HighlightStyle); style != "" {
		out.HighlightStyle = style
	}
	if !cfg.Markdown.Highlight {
		out.HighlightStyle = ""
	}
	return out
}

// SiteView maps the site section onto the template view.
func SiteView(cfg config.SiteConfig) templates.Site {
	nav := make([]templates.NavLink, 0, len(cfg.Nav))
	for _, link := range cfg.Nav {
		nav = append(nav, templates.NavLink{Label: link.Label, URL: link.URL})
	}
	return templates.Site{
		Language:    cfg.Language,
		Title:       cfg.Title,
		Description: cfg.Description,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		ThemeColor:  cfg.ThemeColor,
		Keywords:    append([]string(nil), cfg.Keywords...),
		Author:      cfg.Author,
		AuthorURL:   cfg.AuthorURL,
		Favicon:     cfg.Favicon,
		AnalyticsID: cfg.AnalyticsID,
		Nav:         nav,
		Stylesheets: append([]string(nil), cfg.Stylesheets...),
		Scripts:     append([]string(nil), cfg.Scripts...),
	}
}

// AssetSources returns the embedded theme assets plus the site static dir
// when it exists.
func AssetSources(staticDir string) []generator.AssetSource {
	sources := []generator.AssetSource{
		{Name: "theme", FS: theme.Assets(), Prefix: "assets"},
	}
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		sources = append(sources, generator.AssetSource{Name: "static", FS: os.DirFS(staticDir)})
	}
	return sources
}

func resolve(root, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

// sqliteFile extracts the database path from a "file:" DSN. Memory
// databases report false.
func sqliteFile(dsn string) (string, bool) {
	trimmed := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" || trimmed == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return "", false
	}
	return trimmed, true
}

func resolveDSN(root, dsn string) string {
	file, ok := sqliteFile(dsn)
	if !ok || filepath.IsAbs(file) {
		return dsn
	}
	abs := filepath.Join(root, file)
	if strings.HasPrefix(dsn, "file:") {
		return strings.Replace(dsn, "file:"+file, "file:"+abs, 1)
	}
	return strings.Replace(dsn, file, abs, 1)
}

func ensureDSNDir(root, dsn string) error {
	file, ok := sqliteFile(dsn)
	if !ok {
		return nil
	}
	dir := filepath.Dir(resolve(root, file))
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("bootstrap: create history dir %s: %w", dir, err)
	}
	return nil
}
