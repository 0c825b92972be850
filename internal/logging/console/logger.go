// Package console writes human readable log lines for the blog CLI:
// time, level, scope, event and sorted key=value fields.
package console

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// DefaultTimeLayout is used when Options.TimeLayout is empty.
const DefaultTimeLayout = time.TimeOnly

// Options configures the console provider.
type Options struct {
	// Writer defaults to stderr.
	Writer   io.Writer
	TimeFunc func() time.Time
	// MinLevel defaults to LevelInfo.
	MinLevel   *Level
	TimeLayout string
	// Color forces colors on or off. Nil detects from Writer.
	Color *bool
}

type provider struct {
	mu       sync.Mutex
	out      io.Writer
	now      func() time.Time
	layout   string
	minLevel Level
	styles   styles
}

type styles struct {
	time   lipgloss.Style
	scope  lipgloss.Style
	key    lipgloss.Style
	levels map[Level]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	muted := lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#868E96"}
	return styles{
		time:  r.NewStyle().Foreground(muted),
		scope: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5A189A", Dark: "#C77DFF"}),
		key:   r.NewStyle().Foreground(muted),
		levels: map[Level]lipgloss.Style{
			LevelTrace: r.NewStyle().Foreground(muted),
			LevelDebug: r.NewStyle().Foreground(lipgloss.Color("4")),
			LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
			LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			LevelFatal: r.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")).Bold(true),
		},
	}
}

// NewProvider returns a provider whose loggers share one writer.
func NewProvider(opts Options) interfaces.LoggerProvider {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	p := &provider{
		out:      out,
		now:      opts.TimeFunc,
		layout:   opts.TimeLayout,
		minLevel: LevelInfo,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.layout == "" {
		p.layout = DefaultTimeLayout
	}
	if opts.MinLevel != nil {
		p.minLevel = *opts.MinLevel
	}

	renderer := lipgloss.NewRenderer(out)
	if opts.Color != nil {
		if *opts.Color {
			renderer.SetColorProfile(termenv.ANSI256)
		} else {
			renderer.SetColorProfile(termenv.Ascii)
		}
	}
	p.styles = newStyles(renderer)
	return p
}

// GetLogger returns a logger printing name as its scope, without the
// leading "blog." prefix.
func (p *provider) GetLogger(name string) interfaces.Logger {
	return &logger{p: p, name: name}
}

type logger struct {
	p      *provider
	name   string
	fields map[string]any
	ctx    context.Context
}

var (
	_ interfaces.Logger       = (*logger)(nil)
	_ interfaces.FieldsLogger = (*logger)(nil)
)

func (l *logger) Trace(msg string, args ...any) { l.write(LevelTrace, msg, args) }
func (l *logger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }
func (l *logger) Info(msg string, args ...any)  { l.write(LevelInfo, msg, args) }
func (l *logger) Warn(msg string, args ...any)  { l.write(LevelWarn, msg, args) }
func (l *logger) Error(msg string, args ...any) { l.write(LevelError, msg, args) }
func (l *logger) Fatal(msg string, args ...any) { l.write(LevelFatal, msg, args) }

func (l *logger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	next := *l
	next.fields = collectFields(l.fields, fields, nil)
	return &next
}

func (l *logger) WithContext(ctx context.Context) interfaces.Logger {
	next := *l
	next.ctx = ctx
	return &next
}

func (l *logger) write(level Level, msg string, args []any) {
	if l.p == nil || level < l.p.minLevel {
		return
	}
	fields := collectFields(l.fields, logging.ContextFields(l.ctx), args)
	if module, ok := fields["module"].(string); ok && module == l.name {
		delete(fields, "module")
	}

	st := l.p.styles
	var b strings.Builder
	b.WriteString(st.time.Render(l.p.now().Format(l.p.layout)))
	b.WriteByte(' ')
	b.WriteString(st.levels[level].Render(level.Short()))
	if scope := strings.TrimPrefix(l.name, "blog."); scope != "" {
		b.WriteByte(' ')
		b.WriteString(st.scope.Render(scope))
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	writeFields(&b, fields, func(s string) string { return st.key.Render(s) })
	b.WriteByte('\n')

	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	_, _ = io.WriteString(l.p.out, b.String())
}
