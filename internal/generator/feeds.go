package generator

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-blog/internal/identity"
	"github.com/goliatone/go-blog/internal/posts"
)

const (
	defaultFeedItems = 20
	rssFeedPath      = "feed.xml"
	atomFeedPath     = "atom.xml"
)

type feedItem struct {
	Title       string
	Summary     string
	Link        string
	GUID        string
	Author      string
	Categories  []string
	PublishedAt time.Time
	UpdatedAt   time.Time
}

type feedDocument struct {
	Title       string
	Description string
	Language    string
	Author      string
	Updated     time.Time
	Items       []feedItem
}

func (s *service) buildFeedDocument(buildCtx *BuildContext) feedDocument {
	site := buildCtx.Site
	doc := feedDocument{
		Title:       siteTitle(site.Title, s.cfg.BaseURL),
		Description: strings.TrimSpace(site.Description),
		Language:    strings.TrimSpace(site.Language),
		Author:      strings.TrimSpace(site.Author),
		Updated:     buildCtx.Posts.Updated(),
	}
	if doc.Description == "" {
		doc.Description = "Latest posts"
	}
	if doc.Updated.IsZero() {
		doc.Updated = buildCtx.GeneratedAt
	}

	limit := s.cfg.FeedLimit
	if limit <= 0 {
		limit = defaultFeedItems
	}
	for _, post := range buildCtx.Posts.Recent(limit) {
		doc.Items = append(doc.Items, feedItemForPost(s.cfg.BaseURL, post, buildCtx.GeneratedAt))
	}
	return doc
}

func feedItemForPost(baseURL string, post *posts.Post, fallback time.Time) feedItem {
	published := firstNonZeroTime(post.Date, post.LastModified, fallback)
	updated := firstNonZeroTime(post.LastModified, published)
	if updated.Before(published) {
		updated = published
	}
	title := strings.TrimSpace(post.Title)
	if title == "" {
		title = post.Path
	}
	return feedItem{
		Title:       title,
		Summary:     normalizeWhitespace(post.Description),
		Link:        absoluteURL(baseURL, post.Path),
		GUID:        identity.FeedEntryID(post.Path),
		Author:      strings.TrimSpace(post.Author),
		Categories:  append([]string(nil), post.Tags...),
		PublishedAt: published,
		UpdatedAt:   updated,
	}
}

func (s *service) writeFeeds(ctx context.Context, writer artifactWriter, buildCtx *BuildContext) (int, error) {
	doc := s.buildFeedDocument(buildCtx)
	metadata := func(kind string) map[string]string {
		return map[string]string{
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
			"feed_type":    kind,
			"items":        fmt.Sprint(len(doc.Items)),
		}
	}

	total := 0
	rss := buildRSSFeed(s.cfg.BaseURL, doc)
	if err := s.writeText(ctx, writer, rssFeedPath, rss, categoryFeed, "application/rss+xml", metadata("rss")); err != nil {
		return total, err
	}
	total++

	atom := buildAtomFeed(s.cfg.BaseURL, doc)
	if err := s.writeText(ctx, writer, atomFeedPath, atom, categoryFeed, "application/atom+xml", metadata("atom")); err != nil {
		return total, err
	}
	total++
	return total, nil
}

func buildRSSFeed(baseURL string, doc feedDocument) string {
	baseLink := baseURLWithFallback(baseURL)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">` + "\n")
	builder.WriteString("  <channel>\n")
	builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(doc.Title)))
	builder.WriteString(fmt.Sprintf("    <link>%s</link>\n", escapeXML(baseLink)))
	builder.WriteString(fmt.Sprintf("    <description>%s</description>\n", escapeXML(doc.Description)))
	if doc.Language != "" {
		builder.WriteString(fmt.Sprintf("    <language>%s</language>\n", escapeXML(doc.Language)))
	}
	builder.WriteString(fmt.Sprintf(`    <atom:link href="%s/%s" rel="self" type="application/rss+xml" />`+"\n", escapeXMLAttr(baseLink), rssFeedPath))
	builder.WriteString(fmt.Sprintf("    <lastBuildDate>%s</lastBuildDate>\n", doc.Updated.UTC().Format(time.RFC1123Z)))
	for _, item := range doc.Items {
		builder.WriteString("    <item>\n")
		builder.WriteString(fmt.Sprintf("      <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf("      <link>%s</link>\n", escapeXML(item.Link)))
		builder.WriteString(fmt.Sprintf(`      <guid isPermaLink="false">%s</guid>`+"\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("      <pubDate>%s</pubDate>\n", item.PublishedAt.UTC().Format(time.RFC1123Z)))
		for _, category := range item.Categories {
			builder.WriteString(fmt.Sprintf("      <category>%s</category>\n", escapeXML(category)))
		}
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("      <description>%s</description>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("    </item>\n")
	}
	builder.WriteString("  </channel>\n")
	builder.WriteString(`</rss>` + "\n")
	return builder.String()
}

func buildAtomFeed(baseURL string, doc feedDocument) string {
	baseLink := baseURLWithFallback(baseURL)
	feedID := baseLink + "/" + atomFeedPath

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	if doc.Language != "" {
		builder.WriteString(fmt.Sprintf(`<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="%s">`+"\n", escapeXMLAttr(doc.Language)))
	} else {
		builder.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">` + "\n")
	}
	builder.WriteString(fmt.Sprintf("  <id>%s</id>\n", escapeXML(feedID)))
	builder.WriteString(fmt.Sprintf("  <title>%s</title>\n", escapeXML(doc.Title)))
	builder.WriteString(fmt.Sprintf("  <subtitle>%s</subtitle>\n", escapeXML(doc.Description)))
	builder.WriteString(fmt.Sprintf("  <updated>%s</updated>\n", doc.Updated.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf(`  <link rel="alternate" href="%s" />`+"\n", escapeXMLAttr(baseLink)))
	builder.WriteString(fmt.Sprintf(`  <link rel="self" href="%s" />`+"\n", escapeXMLAttr(feedID)))
	if doc.Author != "" {
		builder.WriteString(fmt.Sprintf("  <author><name>%s</name></author>\n", escapeXML(doc.Author)))
	}
	for _, item := range doc.Items {
		builder.WriteString("  <entry>\n")
		builder.WriteString(fmt.Sprintf("    <id>%s</id>\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf(`    <link href="%s" />`+"\n", escapeXMLAttr(item.Link)))
		builder.WriteString(fmt.Sprintf("    <updated>%s</updated>\n", item.UpdatedAt.UTC().Format(time.RFC3339)))
		builder.WriteString(fmt.Sprintf("    <published>%s</published>\n", item.PublishedAt.UTC().Format(time.RFC3339)))
		if item.Author != "" {
			builder.WriteString(fmt.Sprintf("    <author><name>%s</name></author>\n", escapeXML(item.Author)))
		}
		for _, category := range item.Categories {
			builder.WriteString(fmt.Sprintf(`    <category term="%s" />`+"\n", escapeXMLAttr(category)))
		}
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("    <summary>%s</summary>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("  </entry>\n")
	}
	builder.WriteString(`</feed>` + "\n")
	return builder.String()
}

func siteTitle(title, baseURL string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		return base
	}
	return "Blog"
}

func baseURLWithFallback(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return "http://localhost"
	}
	return trimmed
}

func absoluteURL(base, route string) string {
	targetBase := baseURLWithFallback(base)
	normalized := strings.TrimSpace(route)
	if normalized == "" {
		return targetBase + "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return targetBase + normalized
}

func firstNonZeroTime(instants ...time.Time) time.Time {
	for _, ts := range instants {
		if !ts.IsZero() {
			return ts
		}
	}
	return time.Time{}
}

func normalizeWhitespace(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	return strings.Join(strings.Fields(input), " ")
}

func escapeXML(value string) string {
	return html.EscapeString(stripInvalidXML(value))
}

func escapeXMLAttr(value string) string {
	return html.EscapeString(stripInvalidXML(value))
}

// stripInvalidXML drops runes outside the XML 1.0 Char production,
// including bytes that do not decode as UTF-8.
func stripInvalidXML(value string) string {
	clean := true
	for i, r := range value {
		if !isXMLChar(r) || (r == utf8.RuneError && !validRuneAt(value, i)) {
			clean = false
			break
		}
	}
	if clean {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i, r := range value {
		if r == utf8.RuneError && !validRuneAt(value, i) {
			continue
		}
		if isXMLChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validRuneAt(value string, i int) bool {
	_, size := utf8.DecodeRuneInString(value[i:])
	return size > 1
}

func isXMLChar(r rune) bool {
	switch {
	case r == 0x9, r == 0xA, r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
