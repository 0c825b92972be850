package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goliatone/go-blog/pkg/storage"
)

// Filesystem stores artifacts below a root directory. Writes go to a
// temporary file that is renamed into place so a served page is never half
// written.
type Filesystem struct {
	root string
}

var (
	_ storage.Provider           = (*Filesystem)(nil)
	_ storage.CapabilityReporter = (*Filesystem)(nil)
)

// NewFilesystem returns a provider rooted at root. The directory is created on
// first write.
func NewFilesystem(root string) *Filesystem {
	if root == "" {
		root = "."
	}
	return &Filesystem{root: filepath.Clean(root)}
}

// Root returns the directory artifacts are written to.
func (s *Filesystem) Root() string {
	return s.root
}

func (s *Filesystem) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		AtomicWrites: true,
		Metadata:     map[string]any{"root": s.root},
	}
}

func (s *Filesystem) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if query != OpRead {
		return nil, fmt.Errorf("storage: unsupported query %q", query)
	}
	if len(args) == 0 {
		return nil, ErrMissingPath
	}
	key, err := cleanKey(args[0])
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.abs(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &byteRows{data: data}, nil
}

func (s *Filesystem) Exec(ctx context.Context, query string, args ...any) (storage.Result, error) {
	if err := ctx.Err(); err != nil {
		return emptyResult{}, err
	}
	if len(args) == 0 {
		return emptyResult{}, ErrMissingPath
	}
	key, err := cleanKey(args[0])
	if err != nil {
		return emptyResult{}, err
	}

	switch query {
	case OpEnsureDir:
		return emptyResult{}, os.MkdirAll(s.abs(key), 0o755)
	case OpWrite:
		if len(args) < 2 {
			return emptyResult{}, ErrMissingContent
		}
		reader, ok := args[1].(io.Reader)
		if !ok || reader == nil {
			return emptyResult{}, ErrMissingContent
		}
		n, err := s.write(key, reader)
		return emptyResult{affected: n}, err
	case OpRemove:
		target := s.abs(key)
		if key == "." {
			return emptyResult{}, s.clear()
		}
		err := os.RemoveAll(target)
		if errors.Is(err, os.ErrNotExist) {
			return emptyResult{}, nil
		}
		return emptyResult{}, err
	default:
		return emptyResult{}, fmt.Errorf("storage: unsupported exec %q", query)
	}
}

func (s *Filesystem) Transaction(_ context.Context, fn func(tx storage.Transaction) error) error {
	if fn == nil {
		return nil
	}
	return fn(&providerTx{provider: s})
}

func (s *Filesystem) write(key string, reader io.Reader) (int64, error) {
	full := s.abs(key)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".blog-*")
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(tmp, reader)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return 0, errors.Join(copyErr, closeErr)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

// clear removes the contents of the root but keeps the directory so a dev
// server watching it keeps its handle.
func (s *Filesystem) clear() error {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *Filesystem) abs(key string) string {
	if key == "." {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(key))
}
