package generator

import (
	"time"

	"github.com/goliatone/go-blog/internal/templates"
)

// RenderedPage captures the rendered HTML output for a page.
type RenderedPage struct {
	Route        string
	Kind         string
	Output       string
	Template     string
	HTML         string
	Hash         string
	SourcePath   string
	LastModified time.Time
	Duration     time.Duration
	Checksum     string
}

// RenderDiagnostic records rendering timing and errors for individual pages.
type RenderDiagnostic struct {
	Route    string
	Template string
	Duration time.Duration
	Skipped  bool
	Err      error
}

type renderOutcome struct {
	page       RenderedPage
	diagnostic RenderDiagnostic
	err        error
	skipped    bool
}

// pageJob is a single page to render: its route, template and view data,
// plus the dependency hash used for incremental builds.
type pageJob struct {
	Route        string
	Template     string
	View         templates.View
	Hash         string
	SourcePath   string
	LastModified time.Time
	InSitemap    bool
}
