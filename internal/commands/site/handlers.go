package sitecmd

import (
	"context"
	"time"

	"github.com/goliatone/go-blog/internal/commands"
	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/history"
	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// Dependencies bundles the collaborators shared by the site handlers.
type Dependencies struct {
	Service generator.Service
	History history.Repository
	Logger  interfaces.Logger
	Now     func() time.Time
}

func (d Dependencies) logger() interfaces.Logger {
	if d.Logger == nil {
		return logging.NoOp()
	}
	return d.Logger
}

func (d Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// BuildSiteHandler orchestrates generator builds using the shared command handler foundation.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler constructs a handler wired to the provided generator service.
func NewBuildSiteHandler(deps Dependencies, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := deps.logger()

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if deps.Service == nil {
			return generator.ErrServiceDisabled
		}

		if msg.AssetsOnly {
			if err := deps.Service.BuildAssets(ctx); err != nil {
				return err
			}
			invokeCallback(msg.ResultCallback, ResultEnvelope{
				Metadata: map[string]any{
					"operation": "build_assets",
				},
			})
			return nil
		}

		started := deps.now()
		options := generator.BuildOptions{
			Force:         msg.Force,
			DryRun:        msg.DryRun,
			IncludeDrafts: msg.IncludeDrafts,
		}
		if len(msg.Routes) > 0 {
			options.Routes = append([]string(nil), msg.Routes...)
		}

		result, err := deps.Service.Build(ctx, options)
		invokeCallback(msg.ResultCallback, ResultEnvelope{
			Result: result,
			Metadata: map[string]any{
				"operation": "build",
				"trigger":   triggerOrDefault(msg.Trigger),
			},
		})
		recordRun(ctx, deps, baseLogger, runFrom(buildSiteMessageType, started, deps.now(), msg.DryRun, result, err))
		return err
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand]("site.build"),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{
				"trigger": triggerOrDefault(msg.Trigger),
			}
			if len(msg.Routes) > 0 {
				fields["routes"] = len(msg.Routes)
			}
			if msg.Force {
				fields["force"] = true
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.IncludeDrafts {
				fields["include_drafts"] = true
			}
			if msg.AssetsOnly {
				fields["assets_only"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// BuildPostHandler renders a single post route.
type BuildPostHandler struct {
	inner *commands.Handler[BuildPostCommand]
}

// NewBuildPostHandler constructs a handler rebuilding one post.
func NewBuildPostHandler(deps Dependencies, opts ...commands.HandlerOption[BuildPostCommand]) *BuildPostHandler {
	baseLogger := deps.logger()

	exec := func(ctx context.Context, msg BuildPostCommand) error {
		if deps.Service == nil {
			return generator.ErrServiceDisabled
		}
		started := deps.now()
		err := deps.Service.BuildPost(ctx, msg.Route)
		run := history.Run{
			Command:   buildPostMessageType,
			StartedAt: started,
			Duration:  deps.now().Sub(started),
		}
		if err == nil {
			run.PagesBuilt = 1
		} else {
			run.Error = err.Error()
		}
		recordRun(ctx, deps, baseLogger, run)
		return err
	}

	handlerOpts := []commands.HandlerOption[BuildPostCommand]{
		commands.WithLogger[BuildPostCommand](baseLogger),
		commands.WithOperation[BuildPostCommand]("site.build_post"),
		commands.WithMessageFields(func(msg BuildPostCommand) map[string]any {
			return map[string]any{"route": msg.Route}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildPostCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildPostHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildPostCommand].
func (h *BuildPostHandler) Execute(ctx context.Context, msg BuildPostCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CleanSiteHandler removes generated artifacts.
type CleanSiteHandler struct {
	inner *commands.Handler[CleanSiteCommand]
}

// NewCleanSiteHandler constructs a handler that clears generator output.
func NewCleanSiteHandler(deps Dependencies, opts ...commands.HandlerOption[CleanSiteCommand]) *CleanSiteHandler {
	baseLogger := deps.logger()

	exec := func(ctx context.Context, _ CleanSiteCommand) error {
		if deps.Service == nil {
			return generator.ErrServiceDisabled
		}
		return deps.Service.Clean(ctx)
	}

	handlerOpts := []commands.HandlerOption[CleanSiteCommand]{
		commands.WithLogger[CleanSiteCommand](baseLogger),
		commands.WithOperation[CleanSiteCommand]("site.clean"),
		commands.WithTelemetry(commands.DefaultTelemetry[CleanSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CleanSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CleanSiteCommand].
func (h *CleanSiteHandler) Execute(ctx context.Context, msg CleanSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

func runFrom(cmd string, started, finished time.Time, dryRun bool, result *generator.BuildResult, err error) history.Run {
	run := history.Run{
		Command:   cmd,
		StartedAt: started,
		Duration:  finished.Sub(started),
		DryRun:    dryRun,
	}
	if result != nil {
		run.Posts = result.Posts
		run.PagesBuilt = result.PagesBuilt
		run.PagesSkipped = result.PagesSkipped
		run.AssetsBuilt = result.AssetsBuilt
		run.AssetsSkipped = result.AssetsSkipped
		run.FeedsWritten = result.FeedsWritten
		if result.Duration > 0 {
			run.Duration = result.Duration
		}
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// recordRun stores the run when a history repository is configured. History
// failures are logged and never fail the build.
func recordRun(ctx context.Context, deps Dependencies, logger interfaces.Logger, run history.Run) {
	if deps.History == nil {
		return
	}
	if _, err := deps.History.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("site.history.record_failed", "command", run.Command, "error", err)
	}
}

func triggerOrDefault(trigger string) string {
	if trigger == "" {
		return "manual"
	}
	return trigger
}

func invokeCallback(cb ResultCallback, envelope ResultEnvelope) {
	if cb == nil {
		return
	}
	cb(envelope)
}
