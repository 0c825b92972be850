package generator

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/goliatone/go-blog/internal/storage"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// writeCategory tags an output file for metrics and manifest bookkeeping.
type writeCategory string

const (
	categoryPage     writeCategory = "page"
	categoryAsset    writeCategory = "asset"
	categoryFeed     writeCategory = "feed"
	categorySitemap  writeCategory = "sitemap"
	categoryRobots   writeCategory = "robots"
	categoryManifest writeCategory = "manifest"
)

var (
	errWriteNoContent = errors.New("generator: write requires content reader")
	errWriteNoPath    = errors.New("generator: write requires path")
)

type writeFileRequest struct {
	Path        string
	Content     io.Reader
	Size        int64
	Category    writeCategory
	ContentType string
	Checksum    string
	Metadata    map[string]string
}

func (r writeFileRequest) check() error {
	switch {
	case r.Content == nil:
		return errWriteNoContent
	case strings.TrimSpace(r.Path) == "":
		return errWriteNoPath
	}
	return nil
}

// execArgs lays the request out in the positional order the storage ops expect.
func (r writeFileRequest) execArgs() []any {
	meta := r.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return []any{r.Path, r.Content, r.Size, string(r.Category), r.ContentType, r.Checksum, meta}
}

// artifactWriter is the narrow view of storage the build pipeline writes through.
type artifactWriter interface {
	EnsureDir(ctx context.Context, dir string) error
	WriteFile(ctx context.Context, req writeFileRequest) error
}

func newArtifactWriter(provider interfaces.StorageProvider) artifactWriter {
	if provider == nil {
		return noopWriter{}
	}
	return providerWriter{provider: provider}
}

type providerWriter struct {
	provider interfaces.StorageProvider
}

func (w providerWriter) EnsureDir(ctx context.Context, dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" || path.Clean(dir) == "." {
		return nil
	}
	_, err := w.provider.Exec(ctx, storage.OpEnsureDir, dir)
	return err
}

func (w providerWriter) WriteFile(ctx context.Context, req writeFileRequest) error {
	if err := req.check(); err != nil {
		return err
	}
	_, err := w.provider.Exec(ctx, storage.OpWrite, req.execArgs()...)
	return err
}

// noopWriter discards output when no storage is configured.
type noopWriter struct{}

func (noopWriter) EnsureDir(context.Context, string) error           { return nil }
func (noopWriter) WriteFile(context.Context, writeFileRequest) error { return nil }
