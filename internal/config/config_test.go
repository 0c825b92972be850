package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-blog/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := config.DefaultConfig().Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestConfigValidate_RequiresOutputDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Generator.OutputDir = " "

	if err := cfg.Validate(); !errors.Is(err, config.ErrOutputDirRequired) {
		t.Fatalf("expected ErrOutputDirRequired, got %v", err)
	}
}

func TestConfigValidate_RequiresContentDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Content.Dir = ""

	if err := cfg.Validate(); !errors.Is(err, config.ErrContentDirRequired) {
		t.Fatalf("expected ErrContentDirRequired, got %v", err)
	}
}

func TestConfigValidate_RejectsRelativeBaseURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = "example.org"

	if err := cfg.Validate(); !errors.Is(err, config.ErrBaseURLInvalid) {
		t.Fatalf("expected ErrBaseURLInvalid, got %v", err)
	}
}

func TestConfigValidate_RejectsUnknownLoggingProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Provider = "syslog"

	if err := cfg.Validate(); !errors.Is(err, config.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}

func TestConfigValidate_RejectsInvalidLoggingFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "xml"

	if err := cfg.Validate(); !errors.Is(err, config.ErrLoggingFormatInvalid) {
		t.Fatalf("expected ErrLoggingFormatInvalid, got %v", err)
	}
}

func TestConfigValidate_RejectsInvalidLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "loud"

	if err := cfg.Validate(); !errors.Is(err, config.ErrLoggingLevelInvalid) {
		t.Fatalf("expected ErrLoggingLevelInvalid, got %v", err)
	}
}

func TestConfigValidate_HistoryRequiresDSN(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.History.DSN = ""

	if err := cfg.Validate(); !errors.Is(err, config.ErrHistoryDSNRequired) {
		t.Fatalf("expected ErrHistoryDSNRequired, got %v", err)
	}

	cfg.History.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled history should not require dsn: %v", err)
	}
}

func TestConfigValidate_FieldRules(t *testing.T) {
	cases := map[string]func(*config.Config){
		"empty title":       func(c *config.Config) { c.Site.Title = "" },
		"negative workers":  func(c *config.Config) { c.Generator.Workers = -1 },
		"relative list":     func(c *config.Config) { c.Generator.ListRoute = "blog/" },
		"port out of range": func(c *config.Config) { c.Server.Port = 70000 },
		"nav without url":   func(c *config.Config) { c.Site.Nav = []config.NavLink{{Label: "Home"}} },
		"negative keep":     func(c *config.Config) { c.History.Keep = -5 },
		"negative debounce": func(c *config.Config) { c.Server.Debounce = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	result, err := config.Load(config.Options{Dir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if result.File != "" {
		t.Fatalf("expected no config file, got %q", result.File)
	}
	if result.Config.Generator.OutputDir != "public" {
		t.Fatalf("expected default output dir, got %q", result.Config.Generator.OutputDir)
	}
	if len(result.Config.Site.Nav) != 4 {
		t.Fatalf("expected default nav links, got %+v", result.Config.Site.Nav)
	}
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog.yaml"), `
site:
  title: Field Notes
  base_url: https://notes.example.org
  author: Sam
  nav:
    - label: Home
      url: /
generator:
  output_dir: out
  workers: 3
server:
  debounce: 500ms
`)
	writeFile(t, filepath.Join(dir, ".env"), "BLOG_SITE_AUTHOR=Robin\nBLOG_SERVER_PORT=9090\n")
	t.Setenv("BLOG_GENERATOR_OUTPUT_DIR", "dist")
	t.Cleanup(func() {
		os.Unsetenv("BLOG_SITE_AUTHOR")
		os.Unsetenv("BLOG_SERVER_PORT")
	})

	result, err := config.Load(config.Options{
		Dir:       dir,
		Overrides: map[string]any{"generator.workers": 8},
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cfg := result.Config
	if result.File == "" {
		t.Fatal("expected config file to be reported")
	}
	if len(result.EnvFiles) != 1 {
		t.Fatalf("expected one env file loaded, got %v", result.EnvFiles)
	}
	if cfg.Site.Title != "Field Notes" {
		t.Fatalf("expected title from file, got %q", cfg.Site.Title)
	}
	if cfg.Site.Author != "Robin" {
		t.Fatalf("expected author from .env, got %q", cfg.Site.Author)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port from .env, got %d", cfg.Server.Port)
	}
	if cfg.Generator.OutputDir != "dist" {
		t.Fatalf("expected env to override file, got %q", cfg.Generator.OutputDir)
	}
	if cfg.Generator.Workers != 8 {
		t.Fatalf("expected override workers 8, got %d", cfg.Generator.Workers)
	}
	if cfg.Server.Debounce != 500*time.Millisecond {
		t.Fatalf("expected debounce 500ms, got %s", cfg.Server.Debounce)
	}
	if len(cfg.Site.Nav) != 1 || cfg.Site.Nav[0].Label != "Home" {
		t.Fatalf("expected nav from file, got %+v", cfg.Site.Nav)
	}
	if cfg.Content.Dir != "content" {
		t.Fatalf("expected default content dir, got %q", cfg.Content.Dir)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(config.Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog.toml"), "[site]\nbase_url = \"not a url\"\n")

	_, err := config.Load(config.Options{Dir: dir})
	if !errors.Is(err, config.ErrBaseURLInvalid) {
		t.Fatalf("expected ErrBaseURLInvalid, got %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := cfg.Server.Addr(); got != "127.0.0.1:8000" {
		t.Fatalf("unexpected addr %q", got)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
