// Package templates renders blog pages with html/template. Templates come
// from the embedded default theme, and files in an optional site directory
// override theme files with the same relative path.
package templates

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/readtime"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const (
	layoutFile    = "layout.html"
	layoutName    = "layout"
	partialsDir   = "partials"
	pagesDir      = "pages"
	assetsURLBase = "/assets/"
)

var ErrTemplateNotFound = errors.New("templates: template not found")

// Options configures a Renderer.
type Options struct {
	// Theme is the base template tree. It must contain layout.html.
	Theme fs.FS
	// OverrideDir optionally points at a directory whose files replace
	// theme files with the same relative path.
	OverrideDir string
	// BaseURL is used by absURL, for example "https://example.org".
	BaseURL string
	// Funcs extends the default function map.
	Funcs template.FuncMap
	// Now is used by the year function. Defaults to time.Now.
	Now func() time.Time
}

// Renderer implements interfaces.PageRenderer. Each page template is
// parsed on top of its own clone of the layout and partials so pages can all
// define the "content" block.
type Renderer struct {
	source  fs.FS
	funcs   template.FuncMap
	extra   []string
	baseURL string
	now     func() time.Time

	mu          sync.RWMutex
	pages       map[string]*template.Template
	fingerprint string
}

var _ interfaces.PageRenderer = (*Renderer)(nil)

// New parses every template under opts.Theme (and overrides).
func New(opts Options) (*Renderer, error) {
	if opts.Theme == nil {
		return nil, errors.New("templates: theme filesystem is required")
	}
	source := opts.Theme
	if dir := strings.TrimSpace(opts.OverrideDir); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("inspect template directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("template path %q is not a directory", dir)
		}
		source = newLayeredFS(os.DirFS(dir), opts.Theme)
	}

	r := &Renderer{
		source:  source,
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		now:     opts.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}

	funcs := r.funcMap()
	for name, fn := range opts.Funcs {
		funcs[name] = fn
		r.extra = append(r.extra, funcSignature(name, fn))
	}
	sort.Strings(r.extra)
	r.funcs = funcs

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads and re-parses every template from the source tree. On
// failure the previously parsed templates stay in use.
func (r *Renderer) Reload() error {
	base, err := parseBase(r.source, r.funcs)
	if err != nil {
		return err
	}
	pageFiles, err := fs.Glob(r.source, pagesDir+"/*.html")
	if err != nil {
		return err
	}
	if len(pageFiles) == 0 {
		return fmt.Errorf("templates: no page templates found in %s/", pagesDir)
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(r.source, file)
		if err != nil {
			return err
		}
		if _, err := clone.New(file).Parse(string(data)); err != nil {
			return fmt.Errorf("templates: parse %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), path.Ext(file))] = clone
	}
	fingerprint, err := sourceFingerprint(r.source, r.baseURL, r.extra)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.pages = pages
	r.fingerprint = fingerprint
	r.mu.Unlock()
	return nil
}

// Fingerprint is a digest of every template file, the base URL and any extra
// template funcs. It changes whenever a render could produce different output
// for the same data.
func (r *Renderer) Fingerprint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fingerprint
}

func sourceFingerprint(source fs.FS, baseURL string, extra []string) (string, error) {
	h := sha256.New()
	io.WriteString(h, baseURL)
	for _, sig := range extra {
		io.WriteString(h, "|"+sig)
	}
	err := fs.WalkDir(source, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".html" {
			return err
		}
		data, err := fs.ReadFile(source, p)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		fmt.Fprintf(h, "|%s:%x", p, sum)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("templates: fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// funcSignature names a host-supplied func together with its code pointer.
func funcSignature(name string, fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("%s=%T", name, fn)
	}
	return fmt.Sprintf("%s=%x", name, v.Pointer())
}

func parseBase(source fs.FS, funcs template.FuncMap) (*template.Template, error) {
	data, err := fs.ReadFile(source, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", layoutFile, err)
	}
	base, err := template.New(layoutFile).Funcs(funcs).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", layoutFile, err)
	}

	partials, err := fs.Glob(source, partialsDir+"/*.html")
	if err != nil {
		return nil, err
	}
	for _, file := range partials {
		content, err := fs.ReadFile(source, file)
		if err != nil {
			return nil, err
		}
		if _, err := base.New(file).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", file, err)
		}
	}
	return base, nil
}

// Pages lists the names of the available page templates.
func (r *Renderer) Pages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[name]
	return ok
}

// Render executes the layout with the named page template.
func (r *Renderer) Render(name string, data any, out ...io.Writer) (string, error) {
	r.mu.RLock()
	tpl, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	return execute(out, func(w io.Writer) error {
		return tpl.ExecuteTemplate(w, layoutName, data)
	})
}

// RenderString executes an inline template with the renderer's functions.
func (r *Renderer) RenderString(content string, data any, out ...io.Writer) (string, error) {
	tpl, err := template.New("inline").Funcs(r.funcs).Parse(content)
	if err != nil {
		return "", err
	}
	return execute(out, func(w io.Writer) error {
		return tpl.Execute(w, data)
	})
}

func execute(out []io.Writer, fn func(io.Writer) error) (string, error) {
	var writer io.Writer
	var buffer *bytes.Buffer
	if len(out) > 0 && out[0] != nil {
		writer = out[0]
	} else {
		buffer = &bytes.Buffer{}
		writer = buffer
	}
	if err := fn(writer); err != nil {
		return "", err
	}
	if buffer != nil {
		return buffer.String(), nil
	}
	return "", nil
}

func (r *Renderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"safeHTML":    toHTML,
		"formatDate":  formatDate,
		"readingTime": readingTime,
		"absURL":      r.absURL,
		"tagURL":      tagURL,
		"asset":       assetURL,
		"join":        strings.Join,
		"year": func() int {
			return r.now().Year()
		},
	}
}

func (r *Renderer) absURL(route string) string {
	if strings.HasPrefix(route, "http://") || strings.HasPrefix(route, "https://") {
		return route
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return r.baseURL + route
}

func toHTML(value any) template.HTML {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case template.HTML:
		return v
	case string:
		return template.HTML(v)
	case []byte:
		return template.HTML(v)
	default:
		return template.HTML(fmt.Sprint(v))
	}
}

func formatDate(t time.Time, layout ...string) string {
	if t.IsZero() {
		return ""
	}
	if len(layout) > 0 && layout[0] != "" {
		return t.Format(layout[0])
	}
	return t.Format(posts.DisplayDateLayout)
}

func readingTime(value any) string {
	switch v := value.(type) {
	case template.HTML:
		return readtime.FromHTML(string(v))
	case string:
		return readtime.FromHTML(v)
	case []byte:
		return readtime.FromHTML(string(v))
	default:
		return readtime.FromHTML(fmt.Sprint(v))
	}
}

func tagURL(name string) string {
	return posts.Tag{Slug: posts.TagSlug(name)}.Route()
}

func assetURL(name string) string {
	return assetsURLBase + strings.TrimPrefix(name, "/")
}
