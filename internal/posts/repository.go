package posts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/validation"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// Repository loads every post from a markdown source directory.
type Repository struct {
	markdown  interfaces.MarkdownService
	dir       string
	opts      interfaces.LoadOptions
	validator *validation.FrontMatterValidator
	logger    interfaces.Logger
}

// RepositoryOption customises the repository.
type RepositoryOption func(*Repository)

// WithValidator enables front-matter schema validation.
func WithValidator(v *validation.FrontMatterValidator) RepositoryOption {
	return func(r *Repository) {
		r.validator = v
	}
}

// WithLoadOptions overrides the options passed to LoadDirectory.
func WithLoadOptions(opts interfaces.LoadOptions) RepositoryOption {
	return func(r *Repository) {
		r.opts = opts
	}
}

// WithRepositoryLogger sets the repository logger.
func WithRepositoryLogger(logger interfaces.Logger) RepositoryOption {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRepository constructs a repository reading dir through markdown.
func NewRepository(markdown interfaces.MarkdownService, dir string, opts ...RepositoryOption) *Repository {
	repo := &Repository{
		markdown: markdown,
		dir:      dir,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// Load reads, validates and orders every post. Errors raised by the markdown
// source are returned unchanged; validation failures are joined so one run
// reports every broken post.
func (r *Repository) Load(ctx context.Context) (*Collection, error) {
	if r == nil || r.markdown == nil {
		return nil, errors.New("posts: repository has no markdown source")
	}
	docs, err := r.markdown.LoadDirectory(ctx, r.dir, r.opts)
	if err != nil {
		return nil, err
	}

	items := make([]*Post, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		post, err := r.build(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, post)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	collection, err := NewCollection(items)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("posts.loaded", "dir", r.dir, "count", collection.Len())
	return collection, nil
}

// Get loads a single post file relative to the source directory.
func (r *Repository) Get(ctx context.Context, file string) (*Post, error) {
	if r == nil || r.markdown == nil {
		return nil, errors.New("posts: repository has no markdown source")
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(r.dir, file)
	}
	doc, err := r.markdown.Load(ctx, file, r.opts)
	if err != nil {
		return nil, err
	}
	return r.build(doc)
}

func (r *Repository) build(doc *interfaces.Document) (*Post, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if err := r.validator.Validate(doc.FilePath, doc.FrontMatter.Raw); err != nil {
		return nil, err
	}
	post, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", doc.FilePath, err)
	}
	return post, nil
}
