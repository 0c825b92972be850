// Package config declares the blog configuration tree, its defaults and the
// checks applied before any service is built from it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrContentDirRequired is returned when no content directory is configured.
	ErrContentDirRequired = errors.New("blog config: content directory is required")
	// ErrOutputDirRequired is returned when the generator has nowhere to write.
	ErrOutputDirRequired = errors.New("blog config: generator output directory is required")
	// ErrBaseURLInvalid is returned when site.base_url is not an absolute http(s) URL.
	ErrBaseURLInvalid = errors.New("blog config: site base url must be an absolute http(s) url")
	// ErrLoggingProviderUnknown is returned for providers other than console and gologger.
	ErrLoggingProviderUnknown = errors.New("blog config: logging provider is invalid")
	// ErrLoggingLevelInvalid is returned for unsupported log levels.
	ErrLoggingLevelInvalid = errors.New("blog config: logging level is invalid")
	// ErrLoggingFormatInvalid is returned for unsupported gologger formats.
	ErrLoggingFormatInvalid = errors.New("blog config: logging format is invalid")
	// ErrHistoryDSNRequired is returned when history is enabled without a database.
	ErrHistoryDSNRequired = errors.New("blog config: history dsn is required when history is enabled")
)

// Config aggregates every section the CLI reads from blog.yaml.
type Config struct {
	Site      SiteConfig      `mapstructure:"site"`
	Content   ContentConfig   `mapstructure:"content"`
	Markdown  MarkdownConfig  `mapstructure:"markdown"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	History   HistoryConfig   `mapstructure:"history"`
}

// NavLink is a header navigation entry.
type NavLink struct {
	Label string `mapstructure:"label"`
	URL   string `mapstructure:"url"`
}

// SiteConfig holds the metadata rendered into every page head.
type SiteConfig struct {
	Title       string    `mapstructure:"title"`
	Description string    `mapstructure:"description"`
	BaseURL     string    `mapstructure:"base_url"`
	Language    string    `mapstructure:"language"`
	Author      string    `mapstructure:"author"`
	AuthorURL   string    `mapstructure:"author_url"`
	Keywords    []string  `mapstructure:"keywords"`
	ThemeColor  string    `mapstructure:"theme_color"`
	Favicon     string    `mapstructure:"favicon"`
	AnalyticsID string    `mapstructure:"analytics_id"`
	Nav         []NavLink `mapstructure:"nav"`
	Stylesheets []string  `mapstructure:"stylesheets"`
	Scripts     []string  `mapstructure:"scripts"`
}

// ContentConfig describes where posts live.
type ContentConfig struct {
	Dir           string `mapstructure:"dir"`
	Pattern       string `mapstructure:"pattern"`
	Recursive     bool   `mapstructure:"recursive"`
	IncludeHidden bool   `mapstructure:"include_hidden"`
	SchemaFile    string `mapstructure:"schema_file"`
	StaticDir     string `mapstructure:"static_dir"`
}

// MarkdownConfig mirrors interfaces.ParseOptions.
type MarkdownConfig struct {
	Extensions     []string `mapstructure:"extensions"`
	Sanitize       bool     `mapstructure:"sanitize"`
	HardWraps      bool     `mapstructure:"hard_wraps"`
	SafeMode       bool     `mapstructure:"safe_mode"`
	Highlight      bool     `mapstructure:"highlight"`
	HighlightStyle string   `mapstructure:"highlight_style"`
}

// TemplatesConfig points at an optional directory overriding the embedded theme.
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

// GeneratorConfig captures behaviour for the static site generator.
type GeneratorConfig struct {
	OutputDir       string `mapstructure:"output_dir"`
	Incremental     bool   `mapstructure:"incremental"`
	CopyAssets      bool   `mapstructure:"copy_assets"`
	GenerateSitemap bool   `mapstructure:"generate_sitemap"`
	GenerateRobots  bool   `mapstructure:"generate_robots"`
	GenerateFeeds   bool   `mapstructure:"generate_feeds"`
	IncludeDrafts   bool   `mapstructure:"include_drafts"`
	Workers         int    `mapstructure:"workers"`
	IndexLimit      int    `mapstructure:"index_limit"`
	FeedLimit       int    `mapstructure:"feed_limit"`
	ListRoute       string `mapstructure:"list_route"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	LiveReload      bool          `mapstructure:"live_reload"`
	Watch           bool          `mapstructure:"watch"`
	Debounce        time.Duration `mapstructure:"debounce"`
	RebuildInterval time.Duration `mapstructure:"rebuild_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the host:port pair the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

// HistoryConfig controls the sqlite build history.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
	Keep    int    `mapstructure:"keep"`
}

// DefaultConfig returns the settings used when blog.yaml is absent.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Title:       "My Blog",
			Description: "Notes on software and other things.",
			BaseURL:     "http://localhost:8000",
			Language:    "en",
			ThemeColor:  "#663399",
			Favicon:     "/assets/favicon.svg",
			Nav: []NavLink{
				{Label: "Main", URL: "/"},
				{Label: "About", URL: "/about/"},
				{Label: "Projects", URL: "/projects/"},
				{Label: "Blog", URL: "/blog/"},
			},
		},
		Content: ContentConfig{
			Dir:       "content",
			Pattern:   "*.md",
			Recursive: true,
			StaticDir: "static",
		},
		Markdown: MarkdownConfig{
			Extensions:     []string{"gfm", "linkify", "tasklist", "footnote", "definition"},
			Highlight:      true,
			HighlightStyle: "github",
		},
		Generator: GeneratorConfig{
			OutputDir:       "public",
			Incremental:     true,
			CopyAssets:      true,
			GenerateSitemap: true,
			GenerateRobots:  true,
			GenerateFeeds:   true,
			IndexLimit:      10,
			FeedLimit:       20,
			ListRoute:       "/blog/",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			LiveReload:      true,
			Watch:           true,
			Debounce:        200 * time.Millisecond,
			RebuildInterval: time.Hour,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		History: HistoryConfig{
			Enabled: true,
			DSN:     "file:.blog/history.db?cache=shared&_fk=1",
			Keep:    50,
		},
	}
}

// Validate performs field checks with ozzo-validation and then the
// cross-section consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Content.Dir) == "" {
		return ErrContentDirRequired
	}
	if strings.TrimSpace(cfg.Generator.OutputDir) == "" {
		return ErrOutputDirRequired
	}
	if !isAbsoluteHTTPURL(cfg.Site.BaseURL) {
		return fmt.Errorf("%w: %q", ErrBaseURLInvalid, cfg.Site.BaseURL)
	}

	err := validation.Errors{
		"site":      cfg.Site.validate(),
		"generator": cfg.Generator.validate(),
		"server":    cfg.Server.validate(),
		"history":   validation.ValidateStruct(&cfg.History, validation.Field(&cfg.History.Keep, validation.Min(0))),
	}.Filter()
	if err != nil {
		return err
	}

	provider := normalize(cfg.Logging.Provider)
	if provider != "" && !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.DSN) == "" {
		return ErrHistoryDSNRequired
	}
	return nil
}

func (s SiteConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.Language, validation.Required, validation.Length(2, 10)),
		validation.Field(&s.Nav, validation.Each(validation.By(validateNavLink))),
	)
}

func validateNavLink(value any) error {
	link, ok := value.(NavLink)
	if !ok {
		return validation.NewError("nav_link_invalid", "must be a navigation link")
	}
	return validation.ValidateStruct(&link,
		validation.Field(&link.Label, validation.Required),
		validation.Field(&link.URL, validation.Required),
	)
}

func (g GeneratorConfig) validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Workers, validation.Min(0)),
		validation.Field(&g.IndexLimit, validation.Min(0)),
		validation.Field(&g.FeedLimit, validation.Min(0)),
		validation.Field(&g.ListRoute, validation.Required, validation.By(func(value any) error {
			if route, _ := value.(string); !strings.HasPrefix(route, "/") {
				return validation.NewError("route_invalid", "must start with /")
			}
			return nil
		})),
	)
}

func (s ServerConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&s.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&s.RebuildInterval, validation.Min(time.Duration(0))),
		validation.Field(&s.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func isAbsoluteHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
