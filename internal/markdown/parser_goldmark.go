package markdown

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

// GoldmarkParser renders markdown with goldmark. Engines are built once per
// distinct option set and shared between build workers.
type GoldmarkParser struct {
	defaults interfaces.ParseOptions
	policy   *bluemonday.Policy
	engines  sync.Map
}

// NewGoldmarkParser returns a parser whose Parse uses defaults. Without
// explicit extensions it enables GFM, linkify, task lists and footnotes.
func NewGoldmarkParser(defaults interfaces.ParseOptions) *GoldmarkParser {
	return &GoldmarkParser{
		defaults: defaults,
		policy:   sanitizePolicy(),
	}
}

// Parse renders markdown with the parser defaults.
func (p *GoldmarkParser) Parse(markdown []byte) ([]byte, error) {
	return p.ParseWithOptions(markdown, p.defaults)
}

// ParseWithOptions renders markdown with opts. Safe mode and Sanitize drop raw
// HTML and scrub the result with bluemonday.
func (p *GoldmarkParser) ParseWithOptions(markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.engine(opts).Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown parse: %w", err)
	}
	if restricted(opts) {
		return p.policy.SanitizeBytes(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

func (p *GoldmarkParser) engine(opts interfaces.ParseOptions) goldmark.Markdown {
	key := engineKey(opts)
	if cached, ok := p.engines.Load(key); ok {
		return cached.(goldmark.Markdown)
	}
	engine, _ := p.engines.LoadOrStore(key, newEngine(opts))
	return engine.(goldmark.Markdown)
}

func engineKey(opts interfaces.ParseOptions) string {
	return fmt.Sprintf("%s|%t|%t|%t|%s",
		strings.Join(extensionNames(opts.Extensions), ","),
		opts.HardWraps,
		restricted(opts),
		highlightEnabled(opts),
		opts.HighlightStyle,
	)
}

func newEngine(opts interfaces.ParseOptions) goldmark.Markdown {
	var rendererOpts []renderer.Option
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}
	if !restricted(opts) {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	if highlightEnabled(opts) {
		rendererOpts = append(rendererOpts, renderer.WithNodeRenderers(
			util.Prioritized(newCodeHighlighter(opts.HighlightStyle), 200),
		))
	}

	return goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
		goldmark.WithExtensions(collectExtensions(opts.Extensions)...),
	)
}

func restricted(opts interfaces.ParseOptions) bool {
	return opts.SafeMode || opts.Sanitize
}

func highlightEnabled(opts interfaces.ParseOptions) bool {
	return opts.Highlight == nil || *opts.Highlight
}

var defaultExtensions = []string{"gfm", "linkify", "tasklist", "footnote"}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// extensionNames normalises names, dropping blanks, duplicates and unknown
// entries. An empty list selects the defaults.
func extensionNames(names []string) []string {
	if len(names) == 0 {
		return defaultExtensions
	}
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, known := extensionRegistry[key]; !known || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func collectExtensions(names []string) []goldmark.Extender {
	keys := extensionNames(names)
	exts := make([]goldmark.Extender, len(keys))
	for i, key := range keys {
		exts[i] = extensionRegistry[key]
	}
	return exts
}

func sanitizePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(classPattern).OnElements("pre", "code", "span", "div")
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup")
	return policy
}
