package generator

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/templates"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const (
	indexRoute    = "/"
	notFoundRoute = "/404.html"
	indexHeading  = "Latest Posts"
	listHeading   = "My Blog Posts"
)

// BuildContext holds everything a run renders, resolved up front so workers
// only execute templates.
type BuildContext struct {
	GeneratedAt time.Time
	Site        templates.Site
	Posts       *posts.Collection
	Pages       []*pageJob
}

func (b *BuildContext) routes() map[string]struct{} {
	out := make(map[string]struct{}, len(b.Pages))
	for _, page := range b.Pages {
		out[page.Route] = struct{}{}
	}
	return out
}

func (s *service) loadContext(ctx context.Context, opts BuildOptions) (*BuildContext, error) {
	if s.deps.Posts == nil {
		return nil, errSourceRequired
	}
	collection, err := s.deps.Posts.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	published := collection.Published(now, s.cfg.IncludeDrafts || opts.IncludeDrafts)
	site := s.deps.Site
	if site.BaseURL == "" {
		site.BaseURL = strings.TrimRight(s.cfg.BaseURL, "/")
	}

	if err := s.checkReservedRoutes(published); err != nil {
		return nil, err
	}

	buildCtx := &BuildContext{
		GeneratedAt: now,
		Site:        site,
		Posts:       published,
	}

	if len(opts.Routes) > 0 {
		for _, route := range opts.Routes {
			post := findPost(published, route)
			if post == nil {
				return nil, fmt.Errorf("generator: %w: %s", posts.ErrNotFound, route)
			}
			buildCtx.Pages = append(buildCtx.Pages, s.postJob(site, published, post))
		}
	} else {
		for _, post := range published.All() {
			buildCtx.Pages = append(buildCtx.Pages, s.postJob(site, published, post))
		}
		buildCtx.Pages = append(buildCtx.Pages, s.listingJobs(site, published)...)
	}

	ambient := s.ambientHash(site)
	for _, page := range buildCtx.Pages {
		page.Hash = computeHashFromString(page.Hash + "|" + ambient)
	}
	return buildCtx, nil
}

// checkReservedRoutes rejects posts whose output file would be overwritten by
// a generated page (index, list, tag or 404).
func (s *service) checkReservedRoutes(collection *posts.Collection) error {
	reserved := map[string]string{
		buildOutputPath(indexRoute):      indexRoute,
		buildOutputPath(s.cfg.ListRoute): s.cfg.ListRoute,
		buildOutputPath(notFoundRoute):   notFoundRoute,
	}
	for _, tag := range collection.Tags() {
		reserved[buildOutputPath(tag.Route())] = tag.Route()
	}
	for _, post := range collection.All() {
		if route, ok := reserved[buildOutputPath(post.Path)]; ok {
			return fmt.Errorf("generator: %w: %s collides with generated page %s (%s)",
				posts.ErrDuplicatePath, post.Path, route, post.SourcePath)
		}
	}
	return nil
}

// templateFingerprinter is implemented by renderers that can digest their
// template sources.
type templateFingerprinter interface {
	Fingerprint() string
}

// ambientHash covers the inputs shared by every page: the site view, the
// listing settings and the templates themselves.
func (s *service) ambientHash(site templates.Site) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%#v", site)
	fmt.Fprintf(&builder, "|%d|%s|%s", s.cfg.IndexLimit, s.cfg.ListRoute, s.cfg.PostTemplate)
	builder.WriteString("|")
	builder.WriteString(rendererFingerprint(s.deps.Renderer))
	return computeHashFromString(builder.String())
}

// rendererFingerprint falls back to the renderer identity when it cannot
// describe its sources.
func rendererFingerprint(renderer interfaces.PageRenderer) string {
	if fp, ok := renderer.(templateFingerprinter); ok {
		return fp.Fingerprint()
	}
	value := reflect.ValueOf(renderer)
	if value.Kind() == reflect.Pointer {
		return fmt.Sprintf("%T@%x", renderer, value.Pointer())
	}
	return fmt.Sprintf("%T", renderer)
}

func findPost(collection *posts.Collection, route string) *posts.Post {
	post, err := collection.ByPath(route)
	if err != nil {
		return nil
	}
	return post
}

func (s *service) postJob(site templates.Site, collection *posts.Collection, post *posts.Post) *pageJob {
	newer, older := collection.Neighbours(post.Path)
	tmpl := strings.TrimSpace(post.Template)
	if tmpl != "" && !s.deps.Renderer.Has(tmpl) {
		s.deps.Logger.Warn("generator.template.unknown", "template", tmpl, "path", post.Path, "fallback", s.cfg.PostTemplate)
		tmpl = ""
	}
	if tmpl == "" {
		tmpl = s.cfg.PostTemplate
	}
	view := templates.View{
		Site: site,
		Page: templates.Page{
			Kind:        templates.KindPost,
			Title:       post.Title,
			Description: post.Description,
			Route:       post.Path,
			Slug:        post.Path,
			Heading:     post.Title,
		},
		Post:  post,
		Newer: newer,
		Older: older,
	}
	return &pageJob{
		Route:        post.Path,
		Template:     tmpl,
		View:         view,
		Hash:         hashPosts(tmpl, post.Path, []*posts.Post{post, newer, older}),
		SourcePath:   post.SourcePath,
		LastModified: lastModified(post),
		InSitemap:    true,
	}
}

func (s *service) listingJobs(site templates.Site, collection *posts.Collection) []*pageJob {
	all := collection.All()
	recent := collection.Recent(s.cfg.IndexLimit)
	tags := collection.Tags()
	updated := collection.Updated()

	jobs := []*pageJob{
		{
			Route:    indexRoute,
			Template: templates.KindIndex,
			View: templates.View{
				Site:  site,
				Page:  listingPage(site, templates.KindIndex, indexRoute, site.Title, indexHeading),
				Posts: recent,
				Tags:  tags,
			},
			Hash:         hashPosts(templates.KindIndex, indexRoute, recent) + hashTags(tags),
			LastModified: updated,
			InSitemap:    true,
		},
		{
			Route:    s.cfg.ListRoute,
			Template: templates.KindList,
			View: templates.View{
				Site:  site,
				Page:  listingPage(site, templates.KindList, s.cfg.ListRoute, "Blog", listHeading),
				Posts: all,
			},
			Hash:         hashPosts(templates.KindList, s.cfg.ListRoute, all),
			LastModified: updated,
			InSitemap:    true,
		},
	}

	for i := range tags {
		tag := tags[i]
		route := tag.Route()
		jobs = append(jobs, &pageJob{
			Route:    route,
			Template: templates.KindTag,
			View: templates.View{
				Site:  site,
				Page:  listingPage(site, templates.KindTag, route, tag.Name, tag.Name),
				Posts: tag.Posts,
				Tag:   &tag,
			},
			Hash:         hashPosts(templates.KindTag, route, tag.Posts),
			LastModified: newest(tag.Posts),
			InSitemap:    true,
		})
	}

	jobs = append(jobs, &pageJob{
		Route:    notFoundRoute,
		Template: templates.KindNotFound,
		View: templates.View{
			Site: site,
			Page: listingPage(site, templates.KindNotFound, notFoundRoute, "Page not found", "Page not found"),
		},
		Hash: hashPosts(templates.KindNotFound, notFoundRoute, nil),
	})
	return jobs
}

func listingPage(site templates.Site, kind, route, title, heading string) templates.Page {
	return templates.Page{
		Kind:        kind,
		Title:       title,
		Description: site.Description,
		Route:       route,
		Slug:        route,
		Heading:     heading,
	}
}

// hashPosts fingerprints a page from its template, route and the posts it
// shows, including their rendered HTML.
func hashPosts(tmpl, route string, items []*posts.Post) string {
	var builder strings.Builder
	builder.WriteString(tmpl)
	builder.WriteString("|")
	builder.WriteString(route)
	for _, post := range items {
		if post == nil {
			builder.WriteString("|-")
			continue
		}
		builder.WriteString("|")
		builder.WriteString(post.Path)
		builder.WriteString(":")
		builder.WriteString(post.Checksum)
		builder.WriteString(":")
		builder.WriteString(post.Title)
		builder.WriteString(":")
		builder.WriteString(computeHashFromString(string(post.HTML)))
	}
	return computeHashFromString(builder.String())
}

func hashTags(tags []posts.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, fmt.Sprintf("%s=%d", tag.Slug, len(tag.Posts)))
	}
	sort.Strings(names)
	return computeHashFromString(strings.Join(names, ","))[:12]
}

func lastModified(post *posts.Post) time.Time {
	if post == nil {
		return time.Time{}
	}
	if !post.LastModified.IsZero() {
		return post.LastModified
	}
	return post.Date
}

func newest(items []*posts.Post) time.Time {
	var latest time.Time
	for _, post := range items {
		if ts := lastModified(post); ts.After(latest) {
			latest = ts
		}
	}
	return latest
}
