package main

import (
	"context"

	"github.com/goliatone/go-blog/cmd/blog/internal/bootstrap"
	sitecmd "github.com/goliatone/go-blog/internal/commands/site"
	"github.com/goliatone/go-blog/internal/config"
	"github.com/goliatone/go-blog/internal/history"
	"github.com/goliatone/go-blog/internal/metrics"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

type buildHandler interface {
	Execute(ctx context.Context, msg sitecmd.BuildSiteCommand) error
}

type buildPostHandler interface {
	Execute(ctx context.Context, msg sitecmd.BuildPostCommand) error
}

type cleanHandler interface {
	Execute(ctx context.Context, msg sitecmd.CleanSiteCommand) error
}

type handlerSet struct {
	build     buildHandler
	buildPost buildPostHandler
	clean     cleanHandler
}

type documentLoader interface {
	Load(ctx context.Context, path string, opts interfaces.LoadOptions) (*interfaces.Document, error)
}

type templateReloader interface {
	Reload() error
}

type postLoader interface {
	Load(ctx context.Context) (*posts.Collection, error)
}

// appResources is what the commands need from the wired blog. Tests replace
// appBuilder with stubs.
type appResources struct {
	config      config.Config
	dir         string
	contentDir  string
	outputDir   string
	templateDir string
	staticDir   string

	handlers  handlerSet
	provider  interfaces.LoggerProvider
	logger    interfaces.Logger
	markdown  documentLoader
	posts     postLoader
	templates templateReloader
	history   history.Repository
	metrics   *metrics.PrometheusRecorder
	close     func() error
}

func (r *appResources) Close() error {
	if r == nil || r.close == nil {
		return nil
	}
	return r.close()
}

var appBuilder = buildResources

func buildResources(opts bootstrap.Options) (*appResources, error) {
	app, err := bootstrap.Build(opts)
	if err != nil {
		return nil, err
	}
	res := &appResources{
		config:      app.Config,
		dir:         app.Dir,
		contentDir:  app.ContentDir,
		outputDir:   app.OutputDir,
		templateDir: app.TemplateDir,
		staticDir:   app.StaticDir,
		handlers: handlerSet{
			build:     app.Handlers.Build,
			buildPost: app.Handlers.BuildPost,
			clean:     app.Handlers.Clean,
		},
		provider: app.Provider,
		logger:   app.Logger,
		markdown: app.Markdown,
		posts:    app.Posts,
		history:  app.History,
		metrics:  app.Metrics,
		close:    app.Close,
	}
	if app.Renderer != nil {
		res.templates = app.Renderer
	}
	return res, nil
}
