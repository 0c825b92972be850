// Package gologger adapts github.com/goliatone/go-logger to the blog logging
// contract. It backs the "gologger" logging provider.
package gologger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/logging/console"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// Config mirrors the logging section of the blog config. Focus limits output
// to the named module loggers, e.g. "blog.generator".
type Config struct {
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// Formats lists the output formats accepted by NewProvider.
var Formats = []string{"json", "console", "pretty"}

var formatOptions = map[string]func() glog.Option{
	"json":    glog.WithLoggerTypeJSON,
	"console": glog.WithLoggerTypeConsole,
	"pretty":  glog.WithLoggerTypePretty,
}

var levelNames = map[console.Level]string{
	console.LevelTrace: glog.Trace,
	console.LevelDebug: glog.Debug,
	console.LevelInfo:  glog.Info,
	console.LevelWarn:  glog.Warn,
	console.LevelError: glog.Error,
	console.LevelFatal: glog.Fatal,
}

// Provider hands out go-logger children named after blog modules.
type Provider struct {
	root *glog.BaseLogger
}

// NewProvider builds the go-logger root. An empty format means json.
func NewProvider(cfg Config) (*Provider, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "json"
	}
	withFormat, ok := formatOptions[format]
	if !ok {
		return nil, fmt.Errorf("logging: unsupported go-logger format %q", cfg.Format)
	}

	options := []glog.Option{withFormat()}
	if level := normalizeLevel(cfg.Level); level != "" {
		options = append(options, glog.WithLevel(level))
	}
	if cfg.AddSource {
		options = append(options, glog.WithAddSource(true))
	}

	root := glog.NewLogger(options...)
	if focus := compact(cfg.Focus); len(focus) > 0 {
		root.Focus(focus...)
	}
	return &Provider{root: root}, nil
}

// GetLogger returns the child logger for name, or the root for "".
func (p *Provider) GetLogger(name string) interfaces.Logger {
	if p == nil || p.root == nil {
		return logging.NoOp()
	}
	if name = strings.TrimSpace(name); name != "" {
		return wrap(p.root.GetLogger(name))
	}
	return wrap(p.root)
}

func wrap(inner glog.Logger) interfaces.Logger {
	if inner == nil {
		return logging.NoOp()
	}
	return &adapter{inner: inner}
}

type adapter struct {
	inner glog.Logger
}

func (l *adapter) Trace(msg string, args ...any) { l.inner.Trace(msg, args...) }
func (l *adapter) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *adapter) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *adapter) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *adapter) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
func (l *adapter) Fatal(msg string, args ...any) { l.inner.Fatal(msg, args...) }

// WithFields prefers go-logger's native fields and falls back to With with
// key/value pairs in key order.
func (l *adapter) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	switch inner := l.inner.(type) {
	case glog.FieldsLogger:
		return wrap(inner.WithFields(maps.Clone(fields)))
	case interface{ With(...any) *glog.BaseLogger }:
		pairs := make([]any, 0, len(fields)*2)
		for _, key := range slices.Sorted(maps.Keys(fields)) {
			pairs = append(pairs, key, fields[key])
		}
		return wrap(inner.With(pairs...))
	default:
		return l
	}
}

// WithContext binds ctx and copies the fields set with
// logging.ContextWithFields onto the child.
func (l *adapter) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return l
	}
	child := &adapter{inner: l.inner.WithContext(ctx)}
	if fields := logging.ContextFields(ctx); len(fields) > 0 {
		return child.WithFields(fields)
	}
	return child
}

func normalizeLevel(level string) string {
	if strings.TrimSpace(level) == "" {
		return ""
	}
	parsed, ok := console.ParseLevel(level)
	if !ok {
		return ""
	}
	return levelNames[parsed]
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
