// Package preview renders a post for the terminal with glamour.
package preview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// DefaultWidth is the word wrap column used when Options.Width is unset.
const DefaultWidth = 80

// ErrNilDocument is returned when Render receives no document.
var ErrNilDocument = errors.New("preview: document is nil")

// Options configures the terminal renderer.
type Options struct {
	// Style is a glamour standard style: "auto", "dark", "light", "notty",
	// "ascii", "dracula" or "pink". Empty means auto.
	Style string
	Width int
}

// Previewer turns markdown documents into styled terminal output.
type Previewer struct {
	renderer *glamour.TermRenderer
}

// New builds a glamour renderer for opts.
func New(opts Options) (*Previewer, error) {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	style := strings.ToLower(strings.TrimSpace(opts.Style))

	rendererOpts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		rendererOpts = append(rendererOpts, glamour.WithAutoStyle())
	} else {
		rendererOpts = append(rendererOpts, glamour.WithStandardStyle(style))
	}

	renderer, err := glamour.NewTermRenderer(rendererOpts...)
	if err != nil {
		return nil, fmt.Errorf("preview: create renderer: %w", err)
	}
	return &Previewer{renderer: renderer}, nil
}

// Render prints a header with title, date, path and reading time followed by
// the markdown body.
func (p *Previewer) Render(doc *interfaces.Document) (string, error) {
	if doc == nil {
		return "", ErrNilDocument
	}
	post, err := posts.FromDocument(doc)
	if err != nil {
		return "", err
	}
	return p.renderer.Render(Compose(post, doc.Body))
}

// Compose builds the markdown fed to glamour.
func Compose(post *posts.Post, body []byte) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(post.Title)
	b.WriteString("\n\n")

	meta := []string{}
	if date := post.FormattedDate(); date != "" {
		meta = append(meta, date)
	}
	meta = append(meta, "`"+post.Path+"`", post.ReadingTime)
	if post.Draft {
		meta = append(meta, "**draft**")
	}
	b.WriteString("*")
	b.WriteString(strings.Join(meta, " · "))
	b.WriteString("*\n\n")

	if len(post.Tags) > 0 {
		b.WriteString("Tags: ")
		b.WriteString(strings.Join(post.Tags, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("---\n\n")
	b.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		b.WriteByte('\n')
	}
	return b.String()
}
