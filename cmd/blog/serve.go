package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	sitecmd "github.com/goliatone/go-blog/internal/commands/site"
	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/metrics"
	"github.com/goliatone/go-blog/internal/scheduler"
	"github.com/goliatone/go-blog/internal/server"
	"github.com/goliatone/go-blog/internal/watcher"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const (
	triggerServe = "serve"
	triggerWatch = "watch"
)

type serveFlags struct {
	host         string
	port         int
	noLiveReload bool
	noWatch      bool
	drafts       bool
}

func newServeCommand(c *cli) *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the site, serve it and rebuild on changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := map[string]any{}
			if cmd.Flags().Changed("host") {
				overrides["server.host"] = flags.host
			}
			if cmd.Flags().Changed("port") {
				overrides["server.port"] = flags.port
			}
			if flags.noLiveReload {
				overrides["server.live_reload"] = false
			}
			if flags.noWatch {
				overrides["server.watch"] = false
			}
			res, err := c.load(overrides)
			if err != nil {
				return err
			}
			defer res.Close()
			return serve(cmd.Context(), c, res, flags.drafts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.host, "host", "", "Listen host (defaults to server.host)")
	f.IntVarP(&flags.port, "port", "p", 0, "Listen port (defaults to server.port)")
	f.BoolVar(&flags.noLiveReload, "no-livereload", false, "Disable browser live reload")
	f.BoolVar(&flags.noWatch, "no-watch", false, "Disable rebuilding on file changes")
	f.BoolVar(&flags.drafts, "drafts", false, "Include drafts and future-dated posts")
	return cmd
}

func serve(ctx context.Context, c *cli, res *appResources, drafts bool) error {
	if res.handlers.build == nil || res.outputDir == "" {
		return fmt.Errorf("serve not configured")
	}
	cfg := res.config.Server
	logger := logging.ServerLogger(res.provider)
	recorder := res.recorder()

	hub := server.NewHub(logger, recorder)
	session := &devSession{
		res:    res,
		hub:    hub,
		logger: logger,
		drafts: drafts,
	}

	sched, err := scheduler.New(session.scheduled, scheduler.WithLogger(logging.SchedulerLogger(res.provider)))
	if err != nil {
		return err
	}
	session.sched = sched
	if err := sched.EveryInterval(cfg.RebuildInterval); err != nil {
		return err
	}

	if err := session.rebuild(ctx, triggerServe); err != nil {
		c.ui.Warn("initial build failed: %v", err)
	}
	session.plan(ctx)

	var metricsHandler http.Handler
	if res.metrics != nil {
		metricsHandler = res.metrics.Handler()
	}
	srv, err := server.New(server.Options{
		Addr:            cfg.Addr(),
		Root:            res.outputDir,
		LiveReload:      cfg.LiveReload,
		Metrics:         metricsHandler,
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Status:          session.status,
	}, hub)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if cfg.Watch {
		w, err := newSiteWatcher(res, cfg.Debounce)
		if err != nil {
			return err
		}
		w.OnChange(session.changed)
		g.Go(func() error {
			err := w.Run(gctx)
			if errors.Is(err, watcher.ErrNoPaths) {
				logger.Warn("serve.watch.disabled", "reason", "no directories to watch")
				return nil
			}
			return err
		})
	}

	sched.Start(gctx)
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("serve.scheduler.stop_failed", "error", err)
		}
	}()

	c.ui.Success("serving %s on %s", c.ui.path.Render(res.outputDir), "http://"+cfg.Addr())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newSiteWatcher(res *appResources, debounce time.Duration) (*watcher.Watcher, error) {
	w, err := watcher.New(
		watcher.WithDebounce(debounce),
		watcher.WithLogger(logging.WatcherLogger(res.provider)),
		watcher.WithFilter(watcher.NoHiddenFilter),
		watcher.WithFilter(watcher.SiteFilter),
		watcher.WithFilter(watcher.ExcludeDirFilter(res.outputDir)),
	)
	if err != nil {
		return nil, err
	}
	for _, root := range []string{res.contentDir, res.templateDir, res.staticDir} {
		if root == "" {
			continue
		}
		if err := w.AddRecursive(root); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// devSession serialises rebuilds triggered by the watcher and the
// scheduler and keeps the last outcome for /healthz.
type devSession struct {
	res    *appResources
	hub    *server.Hub
	sched  *scheduler.Scheduler
	logger interfaces.Logger
	drafts bool

	buildMu sync.Mutex

	stateMu   sync.Mutex
	builds    int
	lastBuild time.Time
	lastErr   error
	last      *generator.BuildResult
}

func (s *devSession) rebuild(ctx context.Context, trigger string) error {
	return s.rebuildWith(ctx, trigger, false)
}

// rebuildWith runs a site build. force bypasses the incremental manifest.
func (s *devSession) rebuildWith(ctx context.Context, trigger string, force bool) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	s.res.recorder().IncRebuildTrigger(trigger)
	var result *generator.BuildResult
	err := s.res.handlers.build.Execute(ctx, sitecmd.BuildSiteCommand{
		IncludeDrafts: s.drafts,
		Force:         force,
		Trigger:       trigger,
		ResultCallback: func(env sitecmd.ResultEnvelope) {
			result = env.Result
		},
	})

	s.record(err, result)
	if err != nil {
		s.logger.Error("serve.rebuild.failed", "trigger", trigger, "error", err)
		return err
	}
	if result != nil {
		s.logger.Info("serve.rebuild.success",
			"trigger", trigger,
			"pages_built", result.PagesBuilt,
			"pages_skipped", result.PagesSkipped,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}
	if s.hub != nil {
		s.hub.Reload()
	}
	return nil
}

func (s *devSession) record(err error, result *generator.BuildResult) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.builds++
	s.lastBuild = time.Now()
	s.lastErr = err
	s.last = result
}

// changed handles a debounced batch of file events. Template edits re-parse
// the templates and force a full rebuild.
func (s *devSession) changed(ctx context.Context, events []watcher.Event) error {
	content, layout := false, false
	for _, event := range events {
		s.logger.Debug("serve.change", "type", event.Type.String(), "path", event.Path)
		if watcher.IsContent(event.Path) {
			content = true
		}
		if within(s.res.templateDir, event.Path) {
			layout = true
		}
	}
	if layout && s.res.templates != nil {
		if err := s.res.templates.Reload(); err != nil {
			s.logger.Error("serve.templates.reload_failed", "error", err)
			s.record(err, nil)
			return err
		}
		s.logger.Info("serve.templates.reloaded", "dir", s.res.templateDir)
	}
	if err := s.rebuildWith(ctx, triggerWatch, layout); err != nil {
		return err
	}
	if content {
		s.plan(ctx)
	}
	return nil
}

// scheduled runs for the interval rebuild and for post publication. The
// publication plan is refreshed outside the running job.
func (s *devSession) scheduled(ctx context.Context, reason string) error {
	if err := s.rebuild(ctx, reason); err != nil {
		return err
	}
	go s.plan(ctx)
	return nil
}

// plan schedules a rebuild at the date of every future post.
func (s *devSession) plan(ctx context.Context) {
	if s.sched == nil || s.res.posts == nil || s.drafts {
		return
	}
	collection, err := s.res.posts.Load(ctx)
	if err != nil {
		s.logger.Warn("serve.publish.plan_failed", "error", err)
		return
	}
	scheduled, err := s.sched.PlanPublications(collection)
	if err != nil {
		s.logger.Warn("serve.publish.plan_failed", "error", err)
	}
	if scheduled > 0 {
		s.logger.Info("serve.publish.planned", "posts", scheduled)
	}
}

func (s *devSession) status() map[string]any {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	out := map[string]any{
		"builds": s.builds,
	}
	if !s.lastBuild.IsZero() {
		out["last_build"] = s.lastBuild.UTC().Format(time.RFC3339)
	}
	if s.lastErr != nil {
		out["last_error"] = s.lastErr.Error()
	}
	if s.last != nil {
		out["pages_built"] = s.last.PagesBuilt
		out["posts"] = s.last.Posts
	}
	if s.sched != nil {
		out["scheduled_jobs"] = len(s.sched.Jobs())
	}
	return out
}

// within reports whether path lives under dir.
func within(dir, path string) bool {
	if dir == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// recorder returns the metrics recorder or a no-op when metrics are not wired.
func (r *appResources) recorder() metrics.Recorder {
	if r == nil || r.metrics == nil {
		return metrics.NoopRecorder{}
	}
	return r.metrics
}
