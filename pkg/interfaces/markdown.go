package interfaces

import (
	"context"
	"time"
)

// MarkdownParser converts raw Markdown bytes into HTML.
type MarkdownParser interface {
	// Parse converts Markdown into HTML using the parser's default settings.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions converts Markdown into HTML using the supplied overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises Markdown parsing for one call or for a service.
type ParseOptions struct {
	Extensions []string
	Sanitize   bool
	HardWraps  bool
	SafeMode   bool
	// Highlight enables server side syntax highlighting for fenced code.
	Highlight *bool
	// HighlightStyle names the chroma style used for highlighting.
	HighlightStyle string
}

// Merge layers override onto o. Boolean switches can only be turned on;
// Extensions and HighlightStyle replace the base when set.
func (o ParseOptions) Merge(override ParseOptions) ParseOptions {
	out := o
	if len(override.Extensions) > 0 {
		out.Extensions = append([]string(nil), override.Extensions...)
	}
	out.Sanitize = out.Sanitize || override.Sanitize
	out.HardWraps = out.HardWraps || override.HardWraps
	out.SafeMode = out.SafeMode || override.SafeMode
	if override.Highlight != nil {
		on := *override.Highlight
		out.Highlight = &on
	}
	if override.HighlightStyle != "" {
		out.HighlightStyle = override.HighlightStyle
	}
	return out
}

// MarkdownService exposes the file workflows used by the site builder: load
// posts from disk and convert them into HTML.
type MarkdownService interface {
	Load(ctx context.Context, path string, opts LoadOptions) (*Document, error)
	LoadDirectory(ctx context.Context, dir string, opts LoadOptions) ([]*Document, error)
	Render(ctx context.Context, markdown []byte, opts ParseOptions) ([]byte, error)
	RenderDocument(ctx context.Context, doc *Document, opts ParseOptions) ([]byte, error)
}

// Document represents a Markdown file with parsed metadata and content.
// Templates consume the BodyHTML and FrontMatter pair.
type Document struct {
	FilePath     string
	FrontMatter  FrontMatter
	Body         []byte
	BodyHTML     []byte
	LastModified time.Time
	// Checksum stores a SHA-256 digest of the original file content so
	// incremental builds can detect changes.
	Checksum []byte
}

// FrontMatter models the metadata block at the top of every post. Date is
// decoded by the markdown package, which accepts several layouts.
type FrontMatter struct {
	Title       string         `yaml:"title" json:"title"`
	Date        time.Time      `yaml:"-" json:"date"`
	Path        string         `yaml:"path" json:"path"`
	Description string         `yaml:"desc" json:"desc"`
	Slug        string         `yaml:"slug" json:"slug"`
	Template    string         `yaml:"template" json:"template"`
	Tags        []string       `yaml:"tags" json:"tags"`
	Author      string         `yaml:"author" json:"author"`
	Draft       bool           `yaml:"draft" json:"draft"`
	Custom      map[string]any `yaml:"-" json:"custom"`
	Raw         map[string]any `yaml:"-" json:"raw"`
}

// LoadOptions fine-tunes how documents are discovered and parsed from disk.
type LoadOptions struct {
	Recursive *bool
	Pattern   string
	Parser    ParseOptions
}
