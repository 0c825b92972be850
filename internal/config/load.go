package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BLOG_SITE_TITLE.
const EnvPrefix = "BLOG"

// DefaultConfigName is the file stem searched for when no file is given.
const DefaultConfigName = "blog"

// Options controls where Load looks for configuration.
type Options struct {
	// File is an explicit config path. When set it must exist.
	File string
	// Dir is searched for blog.yaml, blog.toml or blog.json when File is empty.
	Dir string
	// EnvFiles are loaded with godotenv before reading the environment.
	// Missing files are ignored. Defaults to .env and .env.local in Dir.
	EnvFiles []string
	// Overrides are applied last, typically from CLI flags.
	Overrides map[string]any
}

// Result carries the loaded configuration and the file it came from, if any.
type Result struct {
	Config   Config
	File     string
	EnvFiles []string
}

// Load merges defaults, the config file, .env files, BLOG_ environment
// variables and overrides, in that order of increasing precedence.
func Load(opts Options) (Result, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	loadedEnv, err := loadEnvFiles(envFiles(dir, opts.EnvFiles))
	if err != nil {
		return Result{}, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName(DefaultConfigName)
	}

	file := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return Result{}, fmt.Errorf("blog config: read config: %w", err)
		}
	} else {
		file = v.ConfigFileUsed()
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Result{}, fmt.Errorf("blog config: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	return Result{Config: cfg, File: file, EnvFiles: loadedEnv}, nil
}

func envFiles(dir string, explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	return []string{filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local")}
}

// loadEnvFiles never overrides variables already present in the process.
func loadEnvFiles(paths []string) ([]string, error) {
	var loaded []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("blog config: stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("blog config: load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// setDefaults registers every key so AutomaticEnv can override it and
// Unmarshal sees the full tree.
func setDefaults(v *viper.Viper, cfg Config) {
	nav := make([]map[string]any, 0, len(cfg.Site.Nav))
	for _, link := range cfg.Site.Nav {
		nav = append(nav, map[string]any{"label": link.Label, "url": link.URL})
	}

	defaults := map[string]any{
		"site.title":        cfg.Site.Title,
		"site.description":  cfg.Site.Description,
		"site.base_url":     cfg.Site.BaseURL,
		"site.language":     cfg.Site.Language,
		"site.author":       cfg.Site.Author,
		"site.author_url":   cfg.Site.AuthorURL,
		"site.keywords":     cfg.Site.Keywords,
		"site.theme_color":  cfg.Site.ThemeColor,
		"site.favicon":      cfg.Site.Favicon,
		"site.analytics_id": cfg.Site.AnalyticsID,
		"site.nav":          nav,
		"site.stylesheets":  cfg.Site.Stylesheets,
		"site.scripts":      cfg.Site.Scripts,

		"content.dir":            cfg.Content.Dir,
		"content.pattern":        cfg.Content.Pattern,
		"content.recursive":      cfg.Content.Recursive,
		"content.include_hidden": cfg.Content.IncludeHidden,
		"content.schema_file":    cfg.Content.SchemaFile,
		"content.static_dir":     cfg.Content.StaticDir,

		"markdown.extensions":      cfg.Markdown.Extensions,
		"markdown.sanitize":        cfg.Markdown.Sanitize,
		"markdown.hard_wraps":      cfg.Markdown.HardWraps,
		"markdown.safe_mode":       cfg.Markdown.SafeMode,
		"markdown.highlight":       cfg.Markdown.Highlight,
		"markdown.highlight_style": cfg.Markdown.HighlightStyle,

		"templates.dir": cfg.Templates.Dir,

		"generator.output_dir":       cfg.Generator.OutputDir,
		"generator.incremental":      cfg.Generator.Incremental,
		"generator.copy_assets":      cfg.Generator.CopyAssets,
		"generator.generate_sitemap": cfg.Generator.GenerateSitemap,
		"generator.generate_robots":  cfg.Generator.GenerateRobots,
		"generator.generate_feeds":   cfg.Generator.GenerateFeeds,
		"generator.include_drafts":   cfg.Generator.IncludeDrafts,
		"generator.workers":          cfg.Generator.Workers,
		"generator.index_limit":      cfg.Generator.IndexLimit,
		"generator.feed_limit":       cfg.Generator.FeedLimit,
		"generator.list_route":       cfg.Generator.ListRoute,

		"server.host":             cfg.Server.Host,
		"server.port":             cfg.Server.Port,
		"server.live_reload":      cfg.Server.LiveReload,
		"server.watch":            cfg.Server.Watch,
		"server.debounce":         cfg.Server.Debounce,
		"server.rebuild_interval": cfg.Server.RebuildInterval,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,

		"logging.provider":   cfg.Logging.Provider,
		"logging.level":      cfg.Logging.Level,
		"logging.format":     cfg.Logging.Format,
		"logging.add_source": cfg.Logging.AddSource,
		"logging.focus":      cfg.Logging.Focus,

		"history.enabled": cfg.History.Enabled,
		"history.dsn":     cfg.History.DSN,
		"history.keep":    cfg.History.Keep,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
