package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// ErrNilDocument is returned when RenderDocument receives no document.
var ErrNilDocument = errors.New("markdown service: document is nil")

// Config controls how the Markdown service discovers and parses files.
type Config struct {
	BasePath      string
	Pattern       string
	Recursive     bool
	IncludeHidden bool
	Parser        interfaces.ParseOptions
}

// Service implements interfaces.MarkdownService for filesystem-backed posts.
type Service struct {
	cfg    Config
	parser interfaces.MarkdownParser
	loader *Loader
	logger interfaces.Logger
}

// ServiceOption customises the markdown service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for discovery diagnostics.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFS replaces the OS filesystem rooted at BasePath. Tests use it with
// fstest.MapFS.
func WithFS(filesystem fs.FS) ServiceOption {
	return func(s *Service) {
		if filesystem != nil {
			s.loader.fs = filesystem
		}
	}
}

// NewService constructs a Markdown service using an underlying loader. When parser
// is nil, a Goldmark parser with the provided default options is created.
func NewService(cfg Config, parser interfaces.MarkdownParser, opts ...ServiceOption) (*Service, error) {
	if parser == nil {
		parser = NewGoldmarkParser(cfg.Parser)
	}

	svc := &Service{
		cfg:    cfg,
		parser: parser,
		loader: NewLoader(nil, LoaderConfig{
			BasePath:      cfg.BasePath,
			Pattern:       cfg.Pattern,
			Recursive:     cfg.Recursive,
			IncludeHidden: cfg.IncludeHidden,
		}),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}

	if svc.loader.fs == nil {
		filesystem, err := prepareFilesystem(cfg.BasePath)
		if err != nil {
			return nil, err
		}
		svc.loader.fs = filesystem
	}

	return svc, nil
}

// Load reads one document relative to the base path and renders its body.
func (s *Service) Load(ctx context.Context, path string, opts interfaces.LoadOptions) (*interfaces.Document, error) {
	result, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.renderBody(ctx, result.Document, opts.Parser); err != nil {
		return nil, err
	}
	return result.Document, nil
}

// LoadDirectory reads and renders every document under dir.
func (s *Service) LoadDirectory(ctx context.Context, dir string, opts interfaces.LoadOptions) ([]*interfaces.Document, error) {
	results, err := s.loader.LoadDirectory(ctx, dir, LoadParams{
		Pattern:   opts.Pattern,
		Recursive: opts.Recursive,
	})
	if err != nil {
		return nil, err
	}

	docs := make([]*interfaces.Document, len(results))
	for i, result := range results {
		if err := s.renderBody(ctx, result.Document, opts.Parser); err != nil {
			return nil, err
		}
		docs[i] = result.Document
	}
	s.logger.Debug("markdown.directory.loaded", "dir", dir, "documents", len(docs))
	return docs, nil
}

// Render converts markdown to HTML. opts are layered over the service defaults.
func (s *Service) Render(ctx context.Context, markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.parser.ParseWithOptions(markdown, s.cfg.Parser.Merge(opts))
}

// RenderDocument renders doc.Body and stores the result on doc.BodyHTML.
func (s *Service) RenderDocument(ctx context.Context, doc *interfaces.Document, opts interfaces.ParseOptions) ([]byte, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	html, err := s.Render(ctx, doc.Body, opts)
	if err != nil {
		return nil, err
	}
	doc.BodyHTML = html
	return html, nil
}

func (s *Service) renderBody(ctx context.Context, doc *interfaces.Document, opts interfaces.ParseOptions) error {
	if _, err := s.RenderDocument(ctx, doc, opts); err != nil {
		return fmt.Errorf("markdown render document %s: %w", doc.FilePath, err)
	}
	return nil
}

func prepareFilesystem(basePath string) (fs.FS, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = "."
	}
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("markdown service: stat base path %s: %w", basePath, err)
	}
	return os.DirFS(basePath), nil
}

var _ interfaces.MarkdownService = (*Service)(nil)
