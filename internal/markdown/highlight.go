package markdown

import (
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// LanguageClassPrefix prefixes the language name on highlighted code blocks.
const LanguageClassPrefix = "language-"

// DefaultHighlightStyle is used when no chroma style is configured.
const DefaultHighlightStyle = "github"

var classPattern = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)

// codeHighlighter renders fenced code blocks through chroma using CSS classes
// rather than inline styles, so a single generated stylesheet themes every page.
type codeHighlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newCodeHighlighter(styleName string) *codeHighlighter {
	return &codeHighlighter{
		style:     resolveStyle(styleName),
		formatter: newFormatter(),
	}
}

func newFormatter() *chromahtml.Formatter {
	return chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.PreventSurroundingPre(true),
	)
}

func resolveStyle(name string) *chroma.Style {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultHighlightStyle
	}
	style := styles.Get(name)
	if style == nil {
		return styles.Fallback
	}
	return style
}

func (h *codeHighlighter) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, h.renderFencedCode)
}

func (h *codeHighlighter) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := node.(*ast.FencedCodeBlock)

	lang := normalizeLanguage(string(block.Language(source)))

	var code bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(source))
	}

	class := LanguageClassPrefix + lang
	_, _ = w.WriteString(`<pre class="` + class + ` chroma"><code class="` + class + `">`)
	var highlighted bytes.Buffer
	if err := h.highlight(&highlighted, lang, code.String()); err != nil {
		_, _ = w.WriteString(html.EscapeString(code.String()))
	} else {
		_, _ = w.Write(highlighted.Bytes())
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

func (h *codeHighlighter) highlight(w io.Writer, lang, code string) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}
	return h.formatter.Format(w, h.style, iterator)
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || !classPattern.MatchString(lang) || strings.Contains(lang, " ") {
		return "text"
	}
	return lang
}

// WriteHighlightCSS writes the stylesheet that matches the classes emitted for
// highlighted code blocks.
func WriteHighlightCSS(w io.Writer, styleName string) error {
	return newFormatter().WriteCSS(w, resolveStyle(styleName))
}
