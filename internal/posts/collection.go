package posts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-blog/internal/identity"
)

// Tag groups the posts that share a tag.
type Tag struct {
	ID    uuid.UUID
	Name  string
	Slug  string
	Posts []*Post
}

// Route returns the archive route of the tag.
func (t Tag) Route() string {
	return "/tags/" + t.Slug + "/"
}

// Collection holds posts ordered newest first. Ties are broken by path so
// output is stable across builds.
type Collection struct {
	posts  []*Post
	byPath map[string]*Post
}

// NewCollection sorts posts and indexes them by path. Two posts claiming the
// same path are rejected.
func NewCollection(items []*Post) (*Collection, error) {
	sorted := make([]*Post, 0, len(items))
	byPath := make(map[string]*Post, len(items))
	for _, post := range items {
		if post == nil {
			continue
		}
		if existing, ok := byPath[post.Path]; ok {
			return nil, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicatePath, post.Path, existing.SourcePath, post.SourcePath)
		}
		byPath[post.Path] = post
		sorted = append(sorted, post)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].Path < sorted[j].Path
	})

	return &Collection{posts: sorted, byPath: byPath}, nil
}

// All returns posts newest first.
func (c *Collection) All() []*Post {
	if c == nil {
		return nil
	}
	return append([]*Post(nil), c.posts...)
}

// Len reports the number of posts.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.posts)
}

// ByPath looks a post up by its route.
func (c *Collection) ByPath(route string) (*Post, error) {
	if c != nil {
		if post, ok := c.byPath[NormalizeRoute(route)]; ok {
			return post, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, route)
}

// Published returns a new collection without drafts and without posts dated
// after now. includeDrafts keeps both.
func (c *Collection) Published(now time.Time, includeDrafts bool) *Collection {
	if c == nil {
		return &Collection{byPath: map[string]*Post{}}
	}
	if includeDrafts {
		return c
	}
	out := &Collection{byPath: map[string]*Post{}}
	for _, post := range c.posts {
		if !post.Published(now) {
			continue
		}
		out.posts = append(out.posts, post)
		out.byPath[post.Path] = post
	}
	return out
}

// Recent returns up to limit of the newest posts. A non-positive limit
// returns every post.
func (c *Collection) Recent(limit int) []*Post {
	all := c.All()
	if limit <= 0 || limit >= len(all) {
		return all
	}
	return all[:limit]
}

// Neighbours returns the newer and older posts around route.
func (c *Collection) Neighbours(route string) (newer, older *Post) {
	if c == nil {
		return nil, nil
	}
	route = NormalizeRoute(route)
	for i, post := range c.posts {
		if post.Path != route {
			continue
		}
		if i > 0 {
			newer = c.posts[i-1]
		}
		if i+1 < len(c.posts) {
			older = c.posts[i+1]
		}
		return newer, older
	}
	return nil, nil
}

// Updated returns the latest date across the collection.
func (c *Collection) Updated() time.Time {
	var latest time.Time
	if c == nil {
		return latest
	}
	for _, post := range c.posts {
		if post.Date.After(latest) {
			latest = post.Date
		}
	}
	return latest
}

// Tags groups posts by tag, ordered by tag slug. Tags that differ only in case
// share one group, named after the first spelling seen in title case.
func (c *Collection) Tags() []Tag {
	if c == nil {
		return nil
	}
	caser := cases.Title(language.English)
	index := map[string]*Tag{}
	for _, post := range c.posts {
		for _, name := range post.Tags {
			tagSlug := TagSlug(name)
			if tagSlug == "" {
				continue
			}
			tag, ok := index[tagSlug]
			if !ok {
				tag = &Tag{
					ID:   identity.TagUUID(tagSlug),
					Name: caser.String(strings.TrimSpace(name)),
					Slug: tagSlug,
				}
				index[tagSlug] = tag
			}
			tag.Posts = append(tag.Posts, post)
		}
	}

	tags := make([]Tag, 0, len(index))
	for _, tag := range index {
		tags = append(tags, *tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Slug < tags[j].Slug
	})
	return tags
}

// TagSlug normalises a tag name for use in a route.
func TagSlug(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	normalized, err := slug.Normalize(name)
	if err != nil {
		return ""
	}
	return normalized
}
