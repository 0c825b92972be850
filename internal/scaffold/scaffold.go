// Package scaffold creates new post files with front-matter filled in.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	slug "github.com/goliatone/go-slug"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

var (
	// ErrTitleRequired is returned when no title is supplied.
	ErrTitleRequired = errors.New("scaffold: title is required")
	// ErrExists is returned instead of overwriting an existing post.
	ErrExists = errors.New("scaffold: post already exists")
)

// PostOptions describes the post to create.
type PostOptions struct {
	Dir         string
	Title       string
	Description string
	Tags        []string
	Draft       bool
	// Path overrides the route derived from the title.
	Path string
	// DatePrefix prepends the date to the file name, e.g. 2024-01-15-hello.md.
	DatePrefix bool
	Date       time.Time
	Body       string
}

// Result reports where the post was written.
type Result struct {
	File string
	Path string
	Slug string
}

type frontMatter struct {
	Title string   `yaml:"title"`
	Date  string   `yaml:"date"`
	Path  string   `yaml:"path"`
	Desc  string   `yaml:"desc"`
	Tags  []string `yaml:"tags,omitempty"`
	Draft bool     `yaml:"draft,omitempty"`
}

// NewPost writes a markdown file with front-matter for opts. It never
// overwrites an existing file.
func NewPost(opts PostOptions) (Result, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return Result{}, ErrTitleRequired
	}
	postSlug, err := slug.Normalize(title)
	if err != nil {
		return Result{}, fmt.Errorf("scaffold: slug %q: %w", title, err)
	}
	if postSlug == "" {
		return Result{}, fmt.Errorf("scaffold: title %q produces an empty slug", title)
	}

	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	route := strings.TrimSpace(opts.Path)
	if route == "" {
		route = "/" + postSlug
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}

	name := postSlug + ".md"
	if opts.DatePrefix {
		name = date.Format(dateLayout) + "-" + name
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	file := filepath.Join(dir, name)

	contents, err := Render(frontMatter{
		Title: title,
		Date:  date.Format(dateLayout),
		Path:  route,
		Desc:  strings.TrimSpace(opts.Description),
		Tags:  cleanTags(opts.Tags),
		Draft: opts.Draft,
	}, opts.Body)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("scaffold: create %s: %w", dir, err)
	}
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrExists, file)
		}
		return Result{}, fmt.Errorf("scaffold: create %s: %w", file, err)
	}
	if _, err := f.Write(contents); err != nil {
		f.Close()
		return Result{}, fmt.Errorf("scaffold: write %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("scaffold: close %s: %w", file, err)
	}
	return Result{File: file, Path: route, Slug: postSlug}, nil
}

// Render produces the file contents: a YAML front-matter block and body.
func Render(fm any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("scaffold: encode front-matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("scaffold: encode front-matter: %w", err)
	}
	buf.WriteString("---\n\n")
	if strings.TrimSpace(body) == "" {
		body = "Write your post here.\n"
	}
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
