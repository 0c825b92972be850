package generator

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-blog/internal/identity"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/storage"
	"github.com/goliatone/go-blog/internal/templates"
	"github.com/goliatone/go-blog/internal/theme"
)

type stubSource struct {
	mu    sync.Mutex
	posts []*posts.Post
	err   error
	calls int
}

func (s *stubSource) Load(context.Context) (*posts.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return posts.NewCollection(s.posts)
}

func fixedTime() time.Time {
	return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
}

func samplePosts() []*posts.Post {
	return []*posts.Post{
		{
			Title:       "Hello World",
			Date:        time.Date(2019, 5, 4, 0, 0, 0, 0, time.UTC),
			Path:        "/hello-world",
			Description: "first post",
			Tags:        []string{"go"},
			HTML:        template.HTML("<p>Hello there</p>"),
			ReadingTime: "1 min read",
			Checksum:    "aaa",
			SourcePath:  "hello.md",
		},
		{
			Title:       "Second Post",
			Date:        time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
			Path:        "/2020/second",
			Description: "second & last",
			Tags:        []string{"go", "writing"},
			HTML:        template.HTML("<p>Again</p>"),
			ReadingTime: "1 min read",
			Checksum:    "bbb",
			SourcePath:  "second.md",
		},
		{
			Title:    "Draft",
			Date:     time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
			Path:     "/draft",
			Draft:    true,
			HTML:     template.HTML("<p>wip</p>"),
			Checksum: "ccc",
		},
		{
			Title:    "Future",
			Date:     time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
			Path:     "/future",
			HTML:     template.HTML("<p>later</p>"),
			Checksum: "ddd",
		},
	}
}

type fixture struct {
	svc     *service
	source  *stubSource
	storage *storage.Memory
}

func newFixture(t *testing.T, mutate func(*Config)) fixture {
	t.Helper()
	renderer, err := templates.New(templates.Options{Theme: theme.Templates(), BaseURL: "https://blog.example.org", Now: fixedTime})
	if err != nil {
		t.Fatalf("templates.New: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BaseURL = "https://blog.example.org"
	cfg.Workers = 2
	if mutate != nil {
		mutate(&cfg)
	}
	source := &stubSource{posts: samplePosts()}
	mem := storage.NewMemory()
	svc := NewService(cfg, Dependencies{
		Posts:    source,
		Renderer: renderer,
		Storage:  mem,
		Assets: []AssetSource{
			{Name: "theme", FS: theme.Assets(), Prefix: "assets"},
			{Name: "static", FS: fstest.MapFS{
				"CNAME":           {Data: []byte("blog.example.org")},
				".hidden":         {Data: []byte("x")},
				"images/logo.png": {Data: []byte("png")},
			}},
		},
		Site: templates.Site{Title: "My Blog", Language: "en", Author: "Jane"},
	}).(*service)
	svc.now = fixedTime
	return fixture{svc: svc, source: source, storage: mem}
}

func mustFile(t *testing.T, mem *storage.Memory, key string) string {
	t.Helper()
	data, ok := mem.File(key)
	if !ok {
		t.Fatalf("expected file %s; have %v", key, mem.Paths())
	}
	return string(data)
}

func TestBuildWritesPostsListingsAndExtras(t *testing.T) {
	fx := newFixture(t, nil)

	result, err := fx.svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// 2 posts, index, list, 2 tags, 404
	if result.PagesBuilt != 7 {
		t.Fatalf("expected 7 pages, got %d", result.PagesBuilt)
	}
	if result.Posts != 2 {
		t.Fatalf("expected 2 published posts, got %d", result.Posts)
	}
	if result.FeedsWritten != 2 {
		t.Fatalf("expected 2 feeds, got %d", result.FeedsWritten)
	}

	post := mustFile(t, fx.storage, "hello-world/index.html")
	if !strings.Contains(post, `data-slug="/hello-world"`) {
		t.Fatalf("post page missing slug context: %s", post)
	}
	if !strings.Contains(post, "<p>Hello there</p>") {
		t.Fatalf("post page missing body")
	}
	if !strings.Contains(post, `href="/2020/second"`) {
		t.Fatalf("post page missing newer link")
	}

	mustFile(t, fx.storage, "2020/second/index.html")
	mustFile(t, fx.storage, "tags/go/index.html")
	mustFile(t, fx.storage, "tags/writing/index.html")
	mustFile(t, fx.storage, "404.html")

	list := mustFile(t, fx.storage, "blog/index.html")
	if !strings.Contains(list, "My Blog Posts") || !strings.Contains(list, "Read More") {
		t.Fatalf("list page missing listing content")
	}
	if strings.Contains(list, "/draft") || strings.Contains(list, "/future") {
		t.Fatalf("unpublished posts leaked into listing")
	}

	index := mustFile(t, fx.storage, "index.html")
	if strings.Index(index, "Second Post") > strings.Index(index, "Hello World") {
		t.Fatalf("index should list newest first")
	}

	mustFile(t, fx.storage, "assets/js/copy-code.js")
	mustFile(t, fx.storage, "assets/css/site.css")
	if css := mustFile(t, fx.storage, syntaxStylesheet); !strings.Contains(css, ".chroma") {
		t.Fatalf("syntax stylesheet missing chroma rules")
	}
	mustFile(t, fx.storage, "CNAME")
	mustFile(t, fx.storage, "images/logo.png")
	if _, ok := fx.storage.File(".hidden"); ok {
		t.Fatalf("hidden static files must not be copied")
	}

	sitemap := mustFile(t, fx.storage, "sitemap.xml")
	if !strings.Contains(sitemap, "<loc>https://blog.example.org/hello-world</loc>") {
		t.Fatalf("sitemap missing post: %s", sitemap)
	}
	if strings.Contains(sitemap, "404.html") {
		t.Fatalf("sitemap must skip the 404 page")
	}
	robots := mustFile(t, fx.storage, "robots.txt")
	if !strings.Contains(robots, "Sitemap: https://blog.example.org/sitemap.xml") {
		t.Fatalf("robots missing sitemap: %s", robots)
	}

	rss := mustFile(t, fx.storage, "feed.xml")
	if !strings.Contains(rss, "<title>Second Post</title>") || !strings.Contains(rss, "second &amp; last") {
		t.Fatalf("rss missing item: %s", rss)
	}
	atom := mustFile(t, fx.storage, "atom.xml")
	if !strings.Contains(atom, `<link href="https://blog.example.org/hello-world" />`) {
		t.Fatalf("atom missing entry link: %s", atom)
	}
	mustFile(t, fx.storage, manifestFileName)
}

func TestBuildIncrementalSkipsUnchangedPages(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := fx.svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if second.PagesBuilt != 0 || second.PagesSkipped != 7 {
		t.Fatalf("expected all pages skipped, got built=%d skipped=%d", second.PagesBuilt, second.PagesSkipped)
	}
	if second.AssetsBuilt != 0 || second.AssetsSkipped == 0 {
		t.Fatalf("expected assets skipped, got built=%d skipped=%d", second.AssetsBuilt, second.AssetsSkipped)
	}

	fx.source.posts[0].Checksum = "changed"
	third, err := fx.svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	// the edited post, its neighbour, the listings and the go tag page
	if third.PagesBuilt == 0 || third.PagesBuilt == 7 {
		t.Fatalf("expected partial rebuild, got %d", third.PagesBuilt)
	}

	forced, err := fx.svc.Build(ctx, BuildOptions{Force: true})
	if err != nil {
		t.Fatalf("forced build: %v", err)
	}
	if forced.PagesBuilt != 7 {
		t.Fatalf("expected forced rebuild of every page, got %d", forced.PagesBuilt)
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	fx := newFixture(t, nil)

	result, err := fx.svc.Build(context.Background(), BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !result.DryRun || len(result.Rendered) != 7 {
		t.Fatalf("expected 7 rendered pages in dry run, got %d", len(result.Rendered))
	}
	if paths := fx.storage.Paths(); len(paths) != 0 {
		t.Fatalf("dry run wrote files: %v", paths)
	}
}

func TestBuildIncludesDraftsWhenAsked(t *testing.T) {
	fx := newFixture(t, nil)

	result, err := fx.svc.Build(context.Background(), BuildOptions{IncludeDrafts: true, DryRun: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Posts != 4 {
		t.Fatalf("expected drafts and future posts included, got %d", result.Posts)
	}
}

func TestBuildReturnsSourceErrorUnchanged(t *testing.T) {
	fx := newFixture(t, nil)
	boom := errors.New("query failed")
	fx.source.err = boom

	_, err := fx.svc.Build(context.Background(), BuildOptions{})
	if err != boom {
		t.Fatalf("expected upstream error unchanged, got %v", err)
	}
}

func TestBuildReportsTemplateErrors(t *testing.T) {
	fx := newFixture(t, nil)
	fx.source.posts[0].Template = "missing"

	result, err := fx.svc.Build(context.Background(), BuildOptions{})
	if err == nil {
		t.Fatalf("expected error for unknown template")
	}
	if !errors.Is(err, templates.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if len(result.Errors) == 0 {
		t.Fatalf("expected errors recorded on result")
	}
	if _, ok := fx.storage.File(manifestFileName); ok {
		t.Fatalf("manifest must not be written after a failed build")
	}
}

func TestBuildHonoursCanceledContext(t *testing.T) {
	fx := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fx.svc.Build(ctx, BuildOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildRequiresRenderer(t *testing.T) {
	svc := NewService(DefaultConfig(), Dependencies{Posts: &stubSource{}})
	if _, err := svc.Build(context.Background(), BuildOptions{}); !errors.Is(err, errRendererRequired) {
		t.Fatalf("expected renderer error, got %v", err)
	}
}

func TestBuildPostRendersSingleRoute(t *testing.T) {
	fx := newFixture(t, nil)

	if err := fx.svc.BuildPost(context.Background(), "/hello-world"); err != nil {
		t.Fatalf("build post: %v", err)
	}
	mustFile(t, fx.storage, "hello-world/index.html")
	if _, ok := fx.storage.File("index.html"); ok {
		t.Fatalf("single post build must not render listings")
	}

	if err := fx.svc.BuildPost(context.Background(), "/missing"); !errors.Is(err, posts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := fx.svc.BuildPost(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty route")
	}
}

func TestBuildAssetsAndSitemap(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	if err := fx.svc.BuildAssets(ctx); err != nil {
		t.Fatalf("build assets: %v", err)
	}
	mustFile(t, fx.storage, "assets/js/theme-toggle.js")
	mustFile(t, fx.storage, syntaxStylesheet)

	if err := fx.svc.BuildSitemap(ctx); err != nil {
		t.Fatalf("build sitemap: %v", err)
	}
	mustFile(t, fx.storage, "sitemap.xml")
	mustFile(t, fx.storage, "robots.txt")
}

func TestCleanRemovesOutput(t *testing.T) {
	fx := newFixture(t, func(cfg *Config) { cfg.OutputDir = "public" })
	ctx := context.Background()

	if _, err := fx.svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("build: %v", err)
	}
	mustFile(t, fx.storage, "public/index.html")
	if err := fx.svc.Clean(ctx); err != nil {
		t.Fatalf("clean: %v", err)
	}
	for _, p := range fx.storage.Paths() {
		if strings.HasPrefix(p, "public/") {
			t.Fatalf("clean left %s", p)
		}
	}
}

func TestDisabledService(t *testing.T) {
	svc := NewDisabledService()
	ctx := context.Background()
	if _, err := svc.Build(ctx, BuildOptions{}); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	if err := svc.BuildPost(ctx, "/x"); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	if err := svc.Clean(ctx); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestBuildFallsBackFromUnknownPostTemplate(t *testing.T) {
	fx := newFixture(t, nil)
	fx.source.posts[0].Template = "gallery"

	result, err := fx.svc.Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	page := mustFile(t, fx.storage, "hello-world/index.html")
	if !strings.Contains(page, "Hello there") {
		t.Fatalf("expected post body rendered with the default template")
	}
}

func TestBuildRebuildsPagesAfterSiteChange(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}
	fx.svc.deps.Site.Title = "Renamed Blog"
	result, err := fx.svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if result.PagesBuilt != 7 || result.PagesSkipped != 0 {
		t.Fatalf("expected every page rebuilt, got built=%d skipped=%d", result.PagesBuilt, result.PagesSkipped)
	}
	if page := mustFile(t, fx.storage, "hello-world/index.html"); !strings.Contains(page, "Renamed Blog") {
		t.Fatalf("expected new site title in page: %s", page)
	}
}

func TestBuildRebuildsPagesAfterTemplateChange(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}

	renderer, err := templates.New(templates.Options{
		Theme:   theme.Templates(),
		BaseURL: "https://blog.example.org",
		Now:     fixedTime,
		Funcs: template.FuncMap{
			"readingTime": func(any) string { return "quick read" },
		},
	})
	if err != nil {
		t.Fatalf("templates.New: %v", err)
	}
	fx.svc.deps.Renderer = renderer

	result, err := fx.svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if result.PagesSkipped != 0 {
		t.Fatalf("expected no skipped pages after template change, got %d", result.PagesSkipped)
	}
	if page := mustFile(t, fx.storage, "hello-world/index.html"); !strings.Contains(page, "quick read") {
		t.Fatalf("expected page rendered with new templates: %s", page)
	}
}

func TestBuildRebuildsPostWhenRenderedHTMLChanges(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("first build: %v", err)
	}
	fx.source.posts[0].HTML = template.HTML("<p>Hello <mark>again</mark></p>")
	result, err := fx.svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if result.PagesBuilt == 0 {
		t.Fatal("expected pages showing the post to rebuild")
	}
	if page := mustFile(t, fx.storage, "hello-world/index.html"); !strings.Contains(page, "<mark>again</mark>") {
		t.Fatalf("expected re-rendered body: %s", page)
	}
}

func TestBuildRejectsPostOnGeneratedRoute(t *testing.T) {
	for _, route := range []string{"/blog", "/", "/tags/go", "/404.html"} {
		fx := newFixture(t, nil)
		fx.source.posts = append(fx.source.posts, &posts.Post{
			Title:      "Clash",
			Date:       time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
			Path:       route,
			Tags:       []string{"go"},
			HTML:       template.HTML("<p>clash body</p>"),
			Checksum:   "eee",
			SourcePath: "clash.md",
		})

		_, err := fx.svc.Build(context.Background(), BuildOptions{})
		if !errors.Is(err, posts.ErrDuplicatePath) {
			t.Fatalf("route %s: expected ErrDuplicatePath, got %v", route, err)
		}
		if !strings.Contains(err.Error(), "clash.md") {
			t.Fatalf("route %s: expected source file in error, got %v", route, err)
		}
		if len(fx.storage.Paths()) != 0 {
			t.Fatalf("route %s: expected nothing written, got %v", route, fx.storage.Paths())
		}
	}
}

func TestBuildTagPageCarriesTagID(t *testing.T) {
	fx := newFixture(t, nil)
	if _, err := fx.svc.Build(context.Background(), BuildOptions{}); err != nil {
		t.Fatalf("build: %v", err)
	}
	page := mustFile(t, fx.storage, "tags/go/index.html")
	want := `data-tag-id="` + identity.TagUUID("go").String() + `"`
	if !strings.Contains(page, want) {
		t.Fatalf("expected %s in tag page: %s", want, page)
	}
}
