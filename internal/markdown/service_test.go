package markdown

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

func TestServiceLoad(t *testing.T) {
	svc := newTestService(t, true)

	doc, err := svc.Load(context.Background(), "about-blog.md", interfaces.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if doc.FrontMatter.Path != "/about-this-blog" {
		t.Fatalf("unexpected path %q", doc.FrontMatter.Path)
	}
	if len(doc.BodyHTML) == 0 {
		t.Fatalf("expected BodyHTML to be populated")
	}
	if len(doc.Checksum) != 32 {
		t.Fatalf("expected sha256 checksum, got %d bytes", len(doc.Checksum))
	}
}

func TestServiceLoadDirectorySkipsDraftsAndOtherFiles(t *testing.T) {
	svc := newTestService(t, true)

	docs, err := svc.LoadDirectory(context.Background(), ".", interfaces.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].FilePath != "2019/code.md" || docs[1].FilePath != "about-blog.md" {
		t.Fatalf("unexpected order: %s, %s", docs[0].FilePath, docs[1].FilePath)
	}
	for _, doc := range docs {
		if filepath.Ext(doc.FilePath) != ".md" {
			t.Fatalf("expected markdown file, got %s", doc.FilePath)
		}
		if strings.Contains(doc.FilePath, "_drafts") {
			t.Fatalf("expected _drafts to be skipped, got %s", doc.FilePath)
		}
	}
	if !strings.Contains(string(docs[0].BodyHTML), "language-go") {
		t.Fatalf("expected highlighted code in %s", docs[0].FilePath)
	}
}

func TestServiceLoadDirectory_NonRecursiveOverride(t *testing.T) {
	svc := newTestService(t, true)

	no := false
	docs, err := svc.LoadDirectory(context.Background(), ".", interfaces.LoadOptions{
		Recursive: &no,
	})
	if err != nil {
		t.Fatalf("LoadDirectory override: %v", err)
	}

	if len(docs) != 1 || docs[0].FilePath != "about-blog.md" {
		t.Fatalf("expected only about-blog.md, got %d docs", len(docs))
	}
}

func TestServiceLoadDirectoryIncludeHidden(t *testing.T) {
	svc, err := NewService(Config{
		BasePath:      filepath.Join("testdata", "site"),
		Recursive:     true,
		IncludeHidden: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	docs, err := svc.LoadDirectory(context.Background(), ".", interfaces.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected drafts directory to be included, got %d docs", len(docs))
	}
}

func TestServiceWithMapFS(t *testing.T) {
	fsys := fstest.MapFS{
		"post.md": &fstest.MapFile{
			Data:    []byte("---\ntitle: Mapped\ndate: \"2021-01-02\"\npath: /mapped\n---\nBody *text*"),
			ModTime: time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	svc, err := NewService(Config{Recursive: true}, nil, WithFS(fsys))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	docs, err := svc.LoadDirectory(context.Background(), ".", interfaces.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if len(docs) != 1 || !strings.Contains(string(docs[0].BodyHTML), "<em>text</em>") {
		t.Fatalf("unexpected docs %#v", docs)
	}
}

func TestServiceRenderHonoursCancellation(t *testing.T) {
	svc := newTestService(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Render(ctx, []byte("# hi"), interfaces.ParseOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestServiceRenderDocumentNil(t *testing.T) {
	svc := newTestService(t, true)
	if _, err := svc.RenderDocument(context.Background(), nil, interfaces.ParseOptions{}); !errors.Is(err, ErrNilDocument) {
		t.Fatalf("expected ErrNilDocument, got %v", err)
	}
}

func TestNewServiceMissingBasePath(t *testing.T) {
	if _, err := NewService(Config{BasePath: filepath.Join("testdata", "missing")}, nil); err == nil {
		t.Fatalf("expected error for missing base path")
	}
}

func newTestService(tb testing.TB, recursive bool) *Service {
	tb.Helper()

	svc, err := NewService(Config{
		BasePath:  filepath.Join("testdata", "site"),
		Pattern:   "*.md",
		Recursive: recursive,
	}, nil)
	if err != nil {
		tb.Fatalf("NewService: %v", err)
	}
	return svc
}
