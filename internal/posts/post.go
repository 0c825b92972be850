// Package posts turns rendered markdown documents into blog posts and keeps
// them ordered for listing pages, feeds and tag archives.
package posts

import (
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-blog/internal/identity"
	"github.com/goliatone/go-blog/internal/readtime"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// DisplayDateLayout renders post dates the way listing and post pages show
// them, for example "May 04, 2019".
const DisplayDateLayout = "January 02, 2006"

// ExcerptLength caps the rune length of generated descriptions.
const ExcerptLength = 160

var (
	ErrNilDocument   = errors.New("posts: document is nil")
	ErrMissingRoute  = errors.New("posts: unable to derive a route")
	ErrDuplicatePath = errors.New("posts: duplicate path")
	ErrNotFound      = errors.New("posts: not found")
)

// Post is a published unit of the blog: front-matter plus rendered body and
// the values derived from them.
type Post struct {
	ID           uuid.UUID
	Title        string
	Date         time.Time
	Path         string
	Description  string
	Tags         []string
	Author       string
	Draft        bool
	Template     string
	HTML         template.HTML
	Excerpt      string
	ReadingTime  string
	WordCount    int
	SourcePath   string
	Checksum     string
	LastModified time.Time
	FrontMatter  map[string]any
	Custom       map[string]any
}

// FormattedDate returns the post date in DisplayDateLayout.
func (p *Post) FormattedDate() string {
	if p == nil || p.Date.IsZero() {
		return ""
	}
	return p.Date.Format(DisplayDateLayout)
}

// Published reports whether the post should appear on the live site at now.
func (p *Post) Published(now time.Time) bool {
	if p == nil || p.Draft {
		return false
	}
	return p.Date.IsZero() || !p.Date.After(now)
}

// Slug returns the route without surrounding slashes. Templates receive it
// as the page context slug value.
func (p *Post) Slug() string {
	if p == nil {
		return ""
	}
	return strings.Trim(p.Path, "/")
}

// FromDocument builds a Post from a rendered document.
func FromDocument(doc *interfaces.Document) (*Post, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	fm := doc.FrontMatter

	route, err := DeriveRoute(fm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.FilePath, err)
	}

	body := string(doc.BodyHTML)
	stats := readtime.Estimate(body)
	excerpt := Excerpt(body, ExcerptLength)

	description := strings.TrimSpace(fm.Description)
	if description == "" {
		description = excerpt
	}

	post := &Post{
		ID:           identity.PostUUID(route),
		Title:        fm.Title,
		Date:         fm.Date,
		Path:         route,
		Description:  description,
		Tags:         append([]string(nil), fm.Tags...),
		Author:       fm.Author,
		Draft:        fm.Draft,
		Template:     fm.Template,
		HTML:         template.HTML(body),
		Excerpt:      excerpt,
		ReadingTime:  stats.Label,
		WordCount:    stats.Words,
		SourcePath:   doc.FilePath,
		LastModified: doc.LastModified,
		FrontMatter:  fm.Raw,
		Custom:       fm.Custom,
	}
	if len(doc.Checksum) > 0 {
		post.Checksum = hex.EncodeToString(doc.Checksum)
	}
	return post, nil
}

// DeriveRoute picks the post route: the explicit path wins, then the slug,
// then a slug of the title.
func DeriveRoute(fm interfaces.FrontMatter) (string, error) {
	if p := strings.TrimSpace(fm.Path); p != "" {
		return NormalizeRoute(p), nil
	}
	candidate := strings.TrimSpace(fm.Slug)
	if candidate == "" {
		candidate = strings.TrimSpace(fm.Title)
	}
	if candidate == "" {
		return "", ErrMissingRoute
	}
	normalized, err := slug.Normalize(candidate)
	if err != nil || normalized == "" {
		return "", ErrMissingRoute
	}
	return NormalizeRoute(normalized), nil
}

// NormalizeRoute cleans a route so it always starts with a slash and never
// ends with one (the root route stays "/").
func NormalizeRoute(route string) string {
	route = strings.TrimSpace(strings.ReplaceAll(route, "\\", "/"))
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	cleaned := path.Clean(route)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}
