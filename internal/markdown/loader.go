package markdown

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

const defaultPattern = "*.md"

// LoaderConfig configures how posts are discovered under BasePath.
type LoaderConfig struct {
	BasePath string
	// Pattern is a glob matched against the file name, or against the
	// relative path when it contains a slash. Defaults to "*.md".
	Pattern   string
	Recursive bool
	// IncludeHidden keeps "_" and "." prefixed entries.
	IncludeHidden bool
}

// Loader reads post sources from an fs.FS.
type Loader struct {
	fs  fs.FS
	cfg LoaderConfig
}

// DocumentResult pairs a parsed document with its raw source.
type DocumentResult struct {
	Document *interfaces.Document
	Source   []byte
}

// LoadParams override the loader configuration for one call.
type LoadParams struct {
	Pattern   string
	Recursive *bool
}

// NewLoader returns a loader over filesystem.
func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	if strings.TrimSpace(cfg.Pattern) == "" {
		cfg.Pattern = defaultPattern
	}
	cfg.BasePath = filepath.Clean(cfg.BasePath)
	return &Loader{fs: filesystem, cfg: cfg}
}

// LoadFile reads and parses one document. Absolute paths must live under BasePath.
func (l *Loader) LoadFile(ctx context.Context, name string) (*DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := l.relative(name)
	if err != nil {
		return nil, err
	}
	return l.read(rel)
}

// LoadDirectory parses every matching document under dir, ordered by path.
func (l *Loader) LoadDirectory(ctx context.Context, dir string, params LoadParams) ([]*DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := l.relative(dir)
	if err != nil {
		return nil, err
	}

	recursive := l.cfg.Recursive
	if params.Recursive != nil {
		recursive = *params.Recursive
	}
	pattern := l.cfg.Pattern
	if strings.TrimSpace(params.Pattern) != "" {
		pattern = params.Pattern
	}

	var files []string
	err = fs.WalkDir(l.fs, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			if !recursive || l.skip(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if l.skip(d.Name()) || !matchPattern(pattern, p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	results := make([]*DocumentResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := l.read(file)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (l *Loader) read(rel string) (*DocumentResult, error) {
	data, err := fs.ReadFile(l.fs, rel)
	if err != nil {
		return nil, fmt.Errorf("markdown loader read %s: %w", rel, err)
	}
	info, err := fs.Stat(l.fs, rel)
	if err != nil {
		return nil, fmt.Errorf("markdown loader stat %s: %w", rel, err)
	}
	doc, err := BuildDocument(rel, data, info.ModTime())
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	doc.Checksum = sum[:]
	return &DocumentResult{Document: doc, Source: data}, nil
}

func (l *Loader) skip(name string) bool {
	if l.cfg.IncludeHidden {
		return false
	}
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

// relative maps name onto the loader filesystem, which is rooted at BasePath.
func (l *Loader) relative(name string) (string, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) {
		if l.cfg.BasePath == "" || l.cfg.BasePath == "." {
			return "", fmt.Errorf("markdown loader: absolute path %s provided without base path", name)
		}
		rel, err := filepath.Rel(l.cfg.BasePath, clean)
		if err != nil {
			return "", fmt.Errorf("markdown loader: make relative %s: %w", name, err)
		}
		clean = rel
	}
	return filepath.ToSlash(clean), nil
}

func matchPattern(pattern, rel string) bool {
	pattern = strings.ReplaceAll(filepath.ToSlash(pattern), "**/", "")
	target := path.Base(rel)
	if strings.Contains(pattern, "/") {
		target = rel
	}
	ok, err := path.Match(pattern, target)
	return err == nil && ok
}
