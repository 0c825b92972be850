// Package generator exposes the static site generation API for go-blog hosts.
// Use NewService with Config and Dependencies to build post pages, listings,
// feeds and assets, or to rebuild a single post.
package generator

import internal "github.com/goliatone/go-blog/internal/generator"

type (
	Service          = internal.Service
	Config           = internal.Config
	BuildOptions     = internal.BuildOptions
	BuildResult      = internal.BuildResult
	RenderedPage     = internal.RenderedPage
	RenderDiagnostic = internal.RenderDiagnostic
	Dependencies     = internal.Dependencies
	PostSource       = internal.PostSource
	AssetSource      = internal.AssetSource
)

var ErrServiceDisabled = internal.ErrServiceDisabled

// DefaultConfig returns the generator defaults.
func DefaultConfig() Config {
	return internal.DefaultConfig()
}

// NewService wires a static site generator with the supplied configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	return internal.NewService(cfg, deps)
}

// NewDisabledService returns a Service that fails all operations with ErrServiceDisabled.
func NewDisabledService() Service {
	return internal.NewDisabledService()
}
