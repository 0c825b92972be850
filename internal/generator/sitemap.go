package generator

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-blog/internal/metrics"
)

type sitemapEntry struct {
	Location string
	LastMod  time.Time
}

func buildSitemap(baseURL string, pages []*pageJob, fallback time.Time) string {
	base := baseURLWithFallback(baseURL)

	entries := make([]sitemapEntry, 0, len(pages))
	seen := map[string]struct{}{}
	for _, page := range pages {
		if page == nil || !page.InSitemap {
			continue
		}
		location := absoluteURL(base, page.Route)
		if _, ok := seen[location]; ok {
			continue
		}
		seen[location] = struct{}{}
		lastMod := page.LastModified
		if lastMod.IsZero() {
			lastMod = fallback
		}
		entries = append(entries, sitemapEntry{
			Location: location,
			LastMod:  lastMod,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Location < entries[j].Location
	})

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, entry := range entries {
		builder.WriteString("  <url>\n")
		builder.WriteString(fmt.Sprintf("    <loc>%s</loc>\n", escapeXML(entry.Location)))
		if !entry.LastMod.IsZero() {
			builder.WriteString(fmt.Sprintf("    <lastmod>%s</lastmod>\n", entry.LastMod.UTC().Format(time.RFC3339)))
		}
		builder.WriteString("  </url>\n")
	}
	builder.WriteString(`</urlset>` + "\n")
	return builder.String()
}

func buildRobots(baseURL string, includeSitemap bool) string {
	var builder strings.Builder
	builder.WriteString("User-agent: *\n")
	builder.WriteString("Allow: /\n")
	if includeSitemap {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("Sitemap: %s/sitemap.xml\n", baseURLWithFallback(baseURL)))
	}
	return builder.String()
}

func (s *service) writeSitemap(ctx context.Context, writer artifactWriter, buildCtx *BuildContext) error {
	content := buildSitemap(s.cfg.BaseURL, buildCtx.Pages, buildCtx.GeneratedAt)
	return s.writeText(ctx, writer, "sitemap.xml", content, categorySitemap, "application/xml", map[string]string{
		"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

func (s *service) writeRobots(ctx context.Context, writer artifactWriter) error {
	content := buildRobots(s.cfg.BaseURL, s.cfg.GenerateSitemap)
	return s.writeText(ctx, writer, "robots.txt", content, categoryRobots, "text/plain; charset=utf-8", map[string]string{
		"generated_at": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *service) writeText(
	ctx context.Context,
	writer artifactWriter,
	rel string,
	content string,
	category writeCategory,
	contentType string,
	metadata map[string]string,
) error {
	fullPath := joinOutputPath(s.baseDir(), rel)
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(fullPath)); err != nil {
		return err
	}
	err := writer.WriteFile(ctx, writeFileRequest{
		Path:        fullPath,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    category,
		ContentType: contentType,
		Checksum:    computeHashFromString(content),
		Metadata:    metadata,
	})
	if err != nil {
		s.deps.Metrics.IncArtifact(string(category), metrics.ArtifactFailed)
		return err
	}
	s.deps.Metrics.IncArtifact(string(category), metrics.ArtifactBuilt)
	return nil
}
