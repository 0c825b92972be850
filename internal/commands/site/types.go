// Package sitecmd exposes the site build operations as go-command messages
// and handlers so the CLI, the watcher and the scheduler share one code path.
package sitecmd

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-blog/internal/generator"
)

const (
	buildSiteMessageType = "blog.site.build"
	buildPostMessageType = "blog.site.build_post"
	cleanSiteMessageType = "blog.site.clean"
)

var routePattern = regexp.MustCompile(`^/[^\s?#]*$`)

// ResultCallback receives build results produced by generator operations. The callback is optional
// and is invoked synchronously from the handler when a BuildResult is available.
type ResultCallback func(ResultEnvelope)

// ResultEnvelope captures the outcome of a site command execution.
type ResultEnvelope struct {
	Result   *generator.BuildResult
	Metadata map[string]any
}

// BuildSiteCommand executes a generator build.
type BuildSiteCommand struct {
	Routes         []string       `json:"routes,omitempty"`
	Force          bool           `json:"force,omitempty"`
	DryRun         bool           `json:"dry_run,omitempty"`
	IncludeDrafts  bool           `json:"include_drafts,omitempty"`
	AssetsOnly     bool           `json:"assets_only,omitempty"`
	Trigger        string         `json:"trigger,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate ensures every route is an absolute path.
func (m BuildSiteCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Routes, validation.Each(
			validation.Required.ErrorObject(validation.NewError("blog.site.build.route_empty", "routes must not contain empty values")),
			validation.Match(routePattern).ErrorObject(validation.NewError("blog.site.build.route_invalid", "routes must start with / and contain no spaces")),
		)),
		validation.Field(&m.AssetsOnly, validation.When(len(m.Routes) > 0,
			validation.In(false).ErrorObject(validation.NewError("blog.site.build.assets_with_routes", "assets_only cannot be combined with routes")),
		)),
	)
}

// BuildPostCommand renders a single post identified by its route.
type BuildPostCommand struct {
	Route string `json:"route"`
}

// Type implements command.Message.
func (BuildPostCommand) Type() string { return buildPostMessageType }

// Validate ensures the route is present and absolute.
func (m BuildPostCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Route,
			validation.Required,
			validation.Match(routePattern).ErrorObject(validation.NewError("blog.site.build_post.route_invalid", "route must start with / and contain no spaces")),
		),
	)
}

// CleanSiteCommand clears generator artifacts from the configured storage backend.
type CleanSiteCommand struct{}

// Type implements command.Message.
func (CleanSiteCommand) Type() string { return cleanSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (CleanSiteCommand) Validate() error { return nil }
