package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/logging/console"
)

func plain() *bool {
	off := false
	return &off
}

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)

	minLevel := console.LevelDebug
	provider := console.NewProvider(console.Options{
		Writer:     &buf,
		TimeFunc:   func() time.Time { return now },
		TimeLayout: time.RFC3339,
		MinLevel:   &minLevel,
		Color:      plain(),
	})

	logger := logging.ModuleLogger(provider, "blog.generator")
	ctx := logging.ContextWithFields(context.Background(), map[string]any{
		"trigger": "watch",
	})
	logger = logger.WithContext(ctx)

	logger.Info("generator.page.rendered",
		"route", "/hello-world",
		"published", time.Date(2019, 5, 4, 0, 0, 0, 0, time.UTC),
		"took", 1500*time.Millisecond,
	)

	got := strings.TrimSpace(buf.String())
	want := "2024-03-14T15:09:26Z INF generator generator.page.rendered published=2019-05-04T00:00:00Z route=/hello-world took=1.5s trigger=watch"
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf, Color: plain()})

	logger := provider.GetLogger("blog.test")
	logger.Debug("ignored.debug", "foo", "bar")
	logger.Info("included.info", "foo", "bar")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "INF test included.info foo=bar") {
		t.Fatalf("expected info log to be written, got %s", lines[0])
	}
}

func TestConsoleLogger_QuotesAndPositionalArgs(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf, Color: plain()})

	provider.GetLogger("blog").Error("build.failed", "error", errors.New("boom went the build"), 42, "orphan", "dangling")

	out := buf.String()
	for _, want := range []string{`error="boom went the build"`, "arg1=orphan", "arg2=dangling", "ERR blog build.failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestConsoleLogger_WithFieldsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf, Color: plain()})

	base := provider.GetLogger("blog.server")
	scoped := logging.WithFields(base, map[string]any{"request_id": "abc"})
	scoped.Info("request")
	base.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "request_id=abc") || strings.Contains(lines[1], "request_id") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestConsoleLogger_ForcedColor(t *testing.T) {
	var buf bytes.Buffer
	on := true
	provider := console.NewProvider(console.Options{Writer: &buf, Color: &on})

	provider.GetLogger("blog").Warn("careful")
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]console.Level{
		"trace":   console.LevelTrace,
		"DEBUG":   console.LevelDebug,
		"":        console.LevelInfo,
		"warning": console.LevelWarn,
		"error":   console.LevelError,
		"fatal":   console.LevelFatal,
	}
	for input, want := range cases {
		got, ok := console.ParseLevel(input)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", input, got, ok)
		}
	}
	if _, ok := console.ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
	if console.LevelWarn.Short() != "WRN" || console.LevelWarn.String() != "WARN" {
		t.Fatalf("unexpected level labels")
	}
}
