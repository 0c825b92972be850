package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

// ErrInvalidDate reports a front-matter date that matches none of the
// accepted layouts.
var ErrInvalidDate = errors.New("markdown: invalid front-matter date")

// DateLayouts lists the layouts accepted for the date key, tried in order.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 02, 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseFrontMatter extracts metadata and Markdown body content from the
// provided source bytes. It returns the structured frontmatter, the Markdown
// body without delimiters, and any error encountered.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	var meta frontMatterEnvelope

	reader := bytes.NewReader(source)
	body, err := frontmatter.Parse(reader, &meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	fm, err := envelopeToFrontMatter(meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, err
	}
	return fm, body, nil
}

// BuildDocument assembles an interfaces.Document from the supplied file path,
// raw content, and modification time. BodyHTML is left empty so callers can
// render lazily.
func BuildDocument(path string, source []byte, modified time.Time) (*interfaces.Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &interfaces.Document{
		FilePath:     path,
		FrontMatter:  fm,
		Body:         body,
		LastModified: modified,
	}, nil
}

// ParseDate parses a front-matter date value. Strings are matched against
// DateLayouts; time values are returned as is.
func ParseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return *v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, nil
		}
		for _, layout := range DateLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, v)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, value)
	}
}

type frontMatterEnvelope struct {
	Title       string         `yaml:"title" toml:"title" json:"title"`
	Date        any            `yaml:"date" toml:"date" json:"date"`
	Path        string         `yaml:"path" toml:"path" json:"path"`
	Desc        string         `yaml:"desc" toml:"desc" json:"desc"`
	Description string         `yaml:"description" toml:"description" json:"description"`
	Slug        string         `yaml:"slug" toml:"slug" json:"slug"`
	Template    string         `yaml:"template" toml:"template" json:"template"`
	Tags        []string       `yaml:"tags" toml:"tags" json:"tags"`
	Author      string         `yaml:"author" toml:"author" json:"author"`
	Draft       bool           `yaml:"draft" toml:"draft" json:"draft"`
	Custom      map[string]any `yaml:",inline" toml:"-" json:"-"`
}

func envelopeToFrontMatter(env frontMatterEnvelope) (interfaces.FrontMatter, error) {
	date, err := ParseDate(env.Date)
	if err != nil {
		return interfaces.FrontMatter{}, err
	}

	description := env.Desc
	if strings.TrimSpace(description) == "" {
		description = env.Description
	}

	custom := normalizeMap(env.Custom)

	raw := make(map[string]any, len(custom)+8)
	for key, value := range custom {
		raw[key] = value
	}
	if env.Title != "" {
		raw["title"] = env.Title
	}
	if !date.IsZero() {
		raw["date"] = date.Format(time.RFC3339)
	} else if s, ok := env.Date.(string); ok && s != "" {
		raw["date"] = s
	}
	if env.Path != "" {
		raw["path"] = env.Path
	}
	if description != "" {
		raw["desc"] = description
	}
	if env.Slug != "" {
		raw["slug"] = env.Slug
	}
	if env.Template != "" {
		raw["template"] = env.Template
	}
	if len(env.Tags) > 0 {
		tags := make([]any, 0, len(env.Tags))
		for _, tag := range env.Tags {
			tags = append(tags, tag)
		}
		raw["tags"] = tags
	}
	if env.Author != "" {
		raw["author"] = env.Author
	}
	raw["draft"] = env.Draft

	return interfaces.FrontMatter{
		Title:       strings.TrimSpace(env.Title),
		Date:        date,
		Path:        strings.TrimSpace(env.Path),
		Description: strings.TrimSpace(description),
		Slug:        strings.TrimSpace(env.Slug),
		Template:    strings.TrimSpace(env.Template),
		Tags:        cleanTags(env.Tags),
		Author:      env.Author,
		Draft:       env.Draft,
		Custom:      custom,
		Raw:         raw,
	}, nil
}

func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
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
	return out
}

// normalizeMap converts nested YAML maps to map[string]any so the values can
// be encoded as JSON and validated against a schema.
func normalizeMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}
