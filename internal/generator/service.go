// Package generator renders the blog into static files: one page per post at
// its front-matter path, listing and tag archives, feeds, a sitemap and the
// theme assets.
package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/metrics"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/storage"
	"github.com/goliatone/go-blog/internal/templates"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

var (
	// ErrServiceDisabled indicates the generator feature is disabled.
	ErrServiceDisabled  = errors.New("generator: service disabled")
	errRendererRequired = errors.New("generator: template renderer is required")
	errSourceRequired   = errors.New("generator: post source is required")
	errTemplateRequired = errors.New("generator: template is required for rendering")
)

// Service describes the static site generator contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	BuildPost(ctx context.Context, route string) error
	BuildAssets(ctx context.Context) error
	BuildSitemap(ctx context.Context) error
	Clean(ctx context.Context) error
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir       string
	BaseURL         string
	Incremental     bool
	CopyAssets      bool
	GenerateSitemap bool
	GenerateRobots  bool
	GenerateFeeds   bool
	IncludeDrafts   bool
	Workers         int
	IndexLimit      int
	FeedLimit       int
	ListRoute       string
	PostTemplate    string
	HighlightStyle  string
}

// DefaultConfig returns the generator defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Incremental:     true,
		CopyAssets:      true,
		GenerateSitemap: true,
		GenerateRobots:  true,
		GenerateFeeds:   true,
		IndexLimit:      10,
		FeedLimit:       20,
		ListRoute:       "/blog/",
		PostTemplate:    templates.KindPost,
		HighlightStyle:  "github",
	}
}

// BuildOptions narrows the scope of a generator run.
type BuildOptions struct {
	// Routes limits the run to the given post routes. Listing pages, feeds
	// and assets are skipped when set.
	Routes        []string
	DryRun        bool
	Force         bool
	IncludeDrafts bool
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	PagesBuilt    int
	PagesSkipped  int
	AssetsBuilt   int
	AssetsSkipped int
	FeedsWritten  int
	Posts         int
	Duration      time.Duration
	Rendered      []RenderedPage
	Diagnostics   []RenderDiagnostic
	Errors        []error
	DryRun        bool
}

// PostSource loads the post collection. *posts.Repository satisfies it.
type PostSource interface {
	Load(ctx context.Context) (*posts.Collection, error)
}

// Dependencies lists the services required by the generator.
type Dependencies struct {
	Posts    PostSource
	Renderer interfaces.PageRenderer
	Storage  interfaces.StorageProvider
	Assets   []AssetSource
	Site     templates.Site
	Logger   interfaces.Logger
	Metrics  metrics.Recorder
}

// NewService wires a generator implementation with the provided configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	if strings.TrimSpace(cfg.ListRoute) == "" {
		cfg.ListRoute = "/blog/"
	}
	if strings.TrimSpace(cfg.PostTemplate) == "" {
		cfg.PostTemplate = templates.KindPost
	}
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	deps.Metrics = metrics.OrNoop(deps.Metrics)
	return &service{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
	}
}

// NewDisabledService returns a Service that fails all operations with ErrServiceDisabled.
func NewDisabledService() Service {
	return disabledService{}
}

type service struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

type disabledService struct{}

func (s *service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deps.Renderer == nil {
		return nil, errRendererRequired
	}

	start := time.Now()
	logger := logging.WithFields(logging.FromContext(ctx, s.deps.Logger), map[string]any{
		"dry_run": opts.DryRun,
		"force":   opts.Force,
	})
	logger.Info("generator.build.start", "routes", len(opts.Routes))

	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		s.deps.Metrics.IncBuildOutcome(outcomeFor(ctx, err))
		logger.Error("generator.build.load_failed", "error", err)
		return nil, err
	}

	result, err := s.run(ctx, buildCtx, opts)
	result.Duration = time.Since(start)
	s.deps.Metrics.ObserveBuildDuration(result.Duration)

	switch {
	case err != nil:
		s.deps.Metrics.IncBuildOutcome(outcomeFor(ctx, err))
		logger.Error("generator.build.failed", "error", err, "duration", result.Duration)
	case opts.DryRun:
		s.deps.Metrics.IncBuildOutcome(metrics.OutcomeDryRun)
		logger.Info("generator.build.dry_run", "pages", result.PagesBuilt, "duration", result.Duration)
	default:
		s.deps.Metrics.IncBuildOutcome(metrics.OutcomeSuccess)
		logger.Info("generator.build.success",
			"pages_built", result.PagesBuilt,
			"pages_skipped", result.PagesSkipped,
			"assets_built", result.AssetsBuilt,
			"feeds", result.FeedsWritten,
			"duration", result.Duration,
		)
	}
	return result, err
}

func (s *service) run(ctx context.Context, buildCtx *BuildContext, opts BuildOptions) (*BuildResult, error) {
	result := &BuildResult{
		DryRun:      opts.DryRun,
		Posts:       buildCtx.Posts.Len(),
		Diagnostics: make([]RenderDiagnostic, 0, len(buildCtx.Pages)),
	}

	var (
		mu          sync.Mutex
		rendered    = make([]RenderedPage, 0, len(buildCtx.Pages))
		errorsSlice []error
		baseDir     = s.baseDir()
		incremental = s.cfg.Incremental && !opts.Force
	)

	manifest, manifestErr := s.loadManifest(ctx)
	if manifestErr != nil {
		errorsSlice = append(errorsSlice, manifestErr)
	}
	if manifest == nil {
		manifest = newBuildManifest()
	}

	collect := func(outcome renderOutcome) {
		mu.Lock()
		defer mu.Unlock()
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		if outcome.diagnostic.Duration > 0 {
			s.deps.Metrics.ObserveRenderDuration(outcome.diagnostic.Template, outcome.diagnostic.Duration)
		}
		if outcome.err != nil {
			s.deps.Metrics.IncArtifact(string(categoryPage), metrics.ArtifactFailed)
			errorsSlice = append(errorsSlice, outcome.err)
			return
		}
		if outcome.skipped {
			s.deps.Metrics.IncArtifact(string(categoryPage), metrics.ArtifactSkipped)
			result.PagesSkipped++
			return
		}
		result.PagesBuilt++
		rendered = append(rendered, outcome.page)
	}

	skip := func(job *pageJob) bool {
		if !incremental {
			return false
		}
		return manifest.shouldSkipPage(job.Route, job.Hash, joinOutputPath(baseDir, buildOutputPath(job.Route)))
	}

	if err := s.renderAll(ctx, buildCtx, skip, collect); err != nil {
		errorsSlice = append(errorsSlice, err)
		result.Rendered = rendered
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}

	if opts.DryRun {
		result.Rendered = rendered
		if len(errorsSlice) > 0 {
			result.Errors = append(result.Errors, errorsSlice...)
			return result, errors.Join(errorsSlice...)
		}
		return result, nil
	}

	writer := newArtifactWriter(s.deps.Storage)
	if err := s.persistPages(ctx, writer, rendered); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	partial := len(opts.Routes) > 0
	if !partial {
		if s.cfg.CopyAssets {
			summary, err := s.copyAssets(ctx, writer, manifest, incremental)
			if err != nil {
				errorsSlice = append(errorsSlice, err)
			}
			result.AssetsBuilt += summary.Built
			result.AssetsSkipped += summary.Skipped
		}

		if s.cfg.GenerateFeeds {
			written, err := s.writeFeeds(ctx, writer, buildCtx)
			if err != nil {
				errorsSlice = append(errorsSlice, err)
			}
			result.FeedsWritten = written
		}

		if s.cfg.GenerateSitemap {
			if err := s.writeSitemap(ctx, writer, buildCtx); err != nil {
				errorsSlice = append(errorsSlice, err)
			}
		}

		if s.cfg.GenerateRobots {
			if err := s.writeRobots(ctx, writer); err != nil {
				errorsSlice = append(errorsSlice, err)
			}
		}
	}

	if len(errorsSlice) == 0 {
		manifest.GeneratedAt = buildCtx.GeneratedAt
		for _, page := range rendered {
			manifest.setPage(manifestPage{
				Route:        page.Route,
				Output:       page.Output,
				Template:     page.Template,
				Hash:         page.Hash,
				Checksum:     page.Checksum,
				LastModified: page.LastModified,
				RenderedAt:   buildCtx.GeneratedAt,
			})
		}
		if !partial {
			manifest.prunePages(buildCtx.routes())
		}
		if err := s.persistManifest(ctx, writer, manifest); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	result.Rendered = rendered
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}
	return result, nil
}

// renderAll renders every page job on a bounded worker pool.
func (s *service) renderAll(
	ctx context.Context,
	buildCtx *BuildContext,
	skip func(*pageJob) bool,
	collect func(renderOutcome),
) error {
	workers := s.effectiveWorkerCount(len(buildCtx.Pages))
	jobs := make(chan *pageJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if skip(job) {
					collect(renderOutcome{
						diagnostic: RenderDiagnostic{Route: job.Route, Template: job.Template, Skipped: true},
						skipped:    true,
					})
					continue
				}
				collect(s.renderPage(ctx, job))
			}
		}()
	}

	for _, job := range buildCtx.Pages {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- job:
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}

func (s *service) renderPage(ctx context.Context, job *pageJob) renderOutcome {
	outcome := renderOutcome{
		diagnostic: RenderDiagnostic{
			Route:    job.Route,
			Template: job.Template,
		},
	}
	if err := ctx.Err(); err != nil {
		outcome.err = err
		outcome.diagnostic.Err = err
		return outcome
	}
	if strings.TrimSpace(job.Template) == "" {
		err := fmt.Errorf("generator: page %s: %w", job.Route, errTemplateRequired)
		outcome.err = err
		outcome.diagnostic.Err = err
		return outcome
	}

	start := time.Now()
	html, err := s.deps.Renderer.Render(job.Template, job.View)
	duration := time.Since(start)
	outcome.diagnostic.Duration = duration
	if err != nil {
		wrapped := fmt.Errorf("generator: render template %q for %s: %w", job.Template, job.Route, err)
		if job.SourcePath != "" {
			wrapped = fmt.Errorf("generator: render template %q for %s (%s): %w", job.Template, job.Route, job.SourcePath, err)
		}
		outcome.err = wrapped
		outcome.diagnostic.Err = wrapped
		return outcome
	}

	outcome.page = RenderedPage{
		Route:        job.Route,
		Kind:         job.View.Page.Kind,
		Template:     job.Template,
		HTML:         html,
		Hash:         job.Hash,
		SourcePath:   job.SourcePath,
		LastModified: job.LastModified,
		Duration:     duration,
	}
	return outcome
}

func (s *service) persistPages(ctx context.Context, writer artifactWriter, pages []RenderedPage) error {
	if len(pages) == 0 {
		return nil
	}
	baseDir := s.baseDir()
	dirCache := map[string]struct{}{}
	if baseDir != "" {
		dirCache[baseDir] = struct{}{}
		if err := writer.EnsureDir(ctx, baseDir); err != nil {
			return err
		}
	}
	for i := range pages {
		fullPath := joinOutputPath(baseDir, buildOutputPath(pages[i].Route))
		if err := ensureDir(ctx, writer, dirCache, path.Dir(fullPath)); err != nil {
			return err
		}
		checksum := computeHashFromString(pages[i].HTML)
		pages[i].Output = fullPath
		pages[i].Checksum = checksum

		metadata := map[string]string{
			"route":    pages[i].Route,
			"template": pages[i].Template,
		}
		if pages[i].SourcePath != "" {
			metadata["source"] = pages[i].SourcePath
		}
		req := writeFileRequest{
			Path:        fullPath,
			Content:     strings.NewReader(pages[i].HTML),
			Size:        int64(len(pages[i].HTML)),
			Category:    categoryPage,
			ContentType: "text/html; charset=utf-8",
			Checksum:    checksum,
			Metadata:    metadata,
		}
		if err := writer.WriteFile(ctx, req); err != nil {
			s.deps.Metrics.IncArtifact(string(categoryPage), metrics.ArtifactFailed)
			return err
		}
		s.deps.Metrics.IncArtifact(string(categoryPage), metrics.ArtifactBuilt)
	}
	return nil
}

// BuildPost renders a single post page, for example after its source file
// changed.
func (s *service) BuildPost(ctx context.Context, route string) error {
	route = strings.TrimSpace(route)
	if route == "" {
		return fmt.Errorf("generator: %w", posts.ErrMissingRoute)
	}
	_, err := s.Build(ctx, BuildOptions{Routes: []string{route}, Force: true})
	return err
}

// BuildAssets copies theme and static assets and regenerates the syntax
// highlighting stylesheet.
func (s *service) BuildAssets(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	writer := newArtifactWriter(s.deps.Storage)
	manifest, err := s.loadManifest(ctx)
	if err != nil {
		return err
	}
	if _, err := s.copyAssets(ctx, writer, manifest, false); err != nil {
		return err
	}
	return s.persistManifest(ctx, writer, manifest)
}

// BuildSitemap regenerates sitemap.xml and robots.txt from the current posts.
func (s *service) BuildSitemap(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	buildCtx, err := s.loadContext(ctx, BuildOptions{})
	if err != nil {
		return err
	}
	writer := newArtifactWriter(s.deps.Storage)
	if err := s.writeSitemap(ctx, writer, buildCtx); err != nil {
		return err
	}
	if s.cfg.GenerateRobots {
		return s.writeRobots(ctx, writer)
	}
	return nil
}

// Clean removes every generated file below the output directory.
func (s *service) Clean(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.deps.Storage == nil {
		return nil
	}
	target := s.baseDir()
	if target == "" {
		target = "."
	}
	if _, err := s.deps.Storage.Exec(ctx, storage.OpRemove, target); err != nil {
		return fmt.Errorf("generator: clean %s: %w", target, err)
	}
	s.deps.Logger.Info("generator.clean.success", "target", target)
	return nil
}

func (s *service) baseDir() string {
	return strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
}

func (s *service) effectiveWorkerCount(jobs int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if jobs > 0 && workers > jobs {
		return jobs
	}
	return workers
}

func outcomeFor(ctx context.Context, err error) metrics.Outcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailed
}

func ensureDir(ctx context.Context, writer artifactWriter, cache map[string]struct{}, dir string) error {
	dir = strings.Trim(dir, " ")
	if dir == "" || dir == "." {
		return nil
	}
	if cache != nil {
		if _, ok := cache[dir]; ok {
			return nil
		}
		cache[dir] = struct{}{}
	}
	return writer.EnsureDir(ctx, dir)
}

func joinOutputPath(base string, rel string) string {
	if strings.TrimSpace(base) == "" {
		return strings.TrimLeft(rel, "/")
	}
	return path.Join(strings.Trim(base, "/"), rel)
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func computeHashFromString(content string) string {
	return computeHash([]byte(content))
}

func (disabledService) Build(context.Context, BuildOptions) (*BuildResult, error) {
	return nil, ErrServiceDisabled
}

func (disabledService) BuildPost(context.Context, string) error {
	return ErrServiceDisabled
}

func (disabledService) BuildAssets(context.Context) error {
	return ErrServiceDisabled
}

func (disabledService) BuildSitemap(context.Context) error {
	return ErrServiceDisabled
}

func (disabledService) Clean(context.Context) error {
	return ErrServiceDisabled
}
