package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgstorage "github.com/goliatone/go-blog/pkg/storage"
)

func readAll(t *testing.T, p pkgstorage.Provider, key string) ([]byte, bool) {
	t.Helper()
	rows, err := p.Query(context.Background(), OpRead, key)
	require.NoError(t, err)
	if rows == nil {
		return nil, false
	}
	defer rows.Close()
	require.True(t, rows.Next())
	var data []byte
	require.NoError(t, rows.Scan(&data))
	return data, true
}

func TestProvidersRoundTrip(t *testing.T) {
	providers := map[string]pkgstorage.Provider{
		"filesystem": NewFilesystem(t.TempDir()),
		"memory":     NewMemory(),
	}
	for name, p := range providers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := p.Exec(ctx, OpEnsureDir, "blog/hello")
			require.NoError(t, err)

			res, err := p.Exec(ctx, OpWrite, "blog/hello/index.html", strings.NewReader("<h1>hi</h1>"))
			require.NoError(t, err)
			n, _ := res.RowsAffected()
			assert.EqualValues(t, 11, n)

			data, ok := readAll(t, p, "/blog/hello/index.html")
			require.True(t, ok)
			assert.Equal(t, "<h1>hi</h1>", string(data))

			_, ok = readAll(t, p, "missing.html")
			assert.False(t, ok)

			_, err = p.Exec(ctx, OpRemove, "blog")
			require.NoError(t, err)
			_, ok = readAll(t, p, "blog/hello/index.html")
			assert.False(t, ok)
		})
	}
}

func TestProvidersRejectEscapingPaths(t *testing.T) {
	for _, p := range []pkgstorage.Provider{NewFilesystem(t.TempDir()), NewMemory()} {
		_, err := p.Exec(context.Background(), OpWrite, "../outside.html", bytes.NewReader(nil))
		assert.True(t, errors.Is(err, ErrPathEscapes), "got %v", err)
	}
}

func TestProvidersValidateArguments(t *testing.T) {
	for _, p := range []pkgstorage.Provider{NewFilesystem(t.TempDir()), NewMemory()} {
		_, err := p.Exec(context.Background(), OpWrite, "a.html")
		assert.ErrorIs(t, err, ErrMissingContent)
		_, err = p.Exec(context.Background(), OpWrite)
		assert.ErrorIs(t, err, ErrMissingPath)
		_, err = p.Exec(context.Background(), "generator.unknown", "a")
		assert.Error(t, err)
	}
}

func TestFilesystemClearKeepsRoot(t *testing.T) {
	root := t.TempDir()
	fs := NewFilesystem(root)
	ctx := context.Background()

	_, err := fs.Exec(ctx, OpWrite, "index.html", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = fs.Exec(ctx, OpWrite, "a/b.html", strings.NewReader("y"))
	require.NoError(t, err)

	_, err = fs.Exec(ctx, OpRemove, ".")
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilesystemWriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	fs := NewFilesystem(root)

	_, err := fs.Exec(context.Background(), OpWrite, "feed.xml", strings.NewReader("<rss/>"))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(root, ".blog-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.True(t, fs.Capabilities().AtomicWrites)
}

func TestMemoryTransactionAndHelpers(t *testing.T) {
	mem := NewMemory()
	err := mem.Transaction(context.Background(), func(tx pkgstorage.Transaction) error {
		_, err := tx.Exec(context.Background(), OpWrite, "b.html", strings.NewReader("b"))
		if err != nil {
			return err
		}
		_, err = tx.Exec(context.Background(), OpWrite, "a.html", strings.NewReader("a"))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.html", "b.html"}, mem.Paths())
	data, ok := mem.File("/a.html")
	require.True(t, ok)
	assert.Equal(t, "a", string(data))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Exec(ctx, OpWrite, "a", strings.NewReader("a"))
	assert.ErrorIs(t, err, context.Canceled)
}
