package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-blog/pkg/storage"
)

// Memory keeps artifacts in a map keyed by relative path. It is safe for
// concurrent use by build workers.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

var _ storage.Provider = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (m *Memory) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
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
	m.mu.RLock()
	data, ok := m.files[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &byteRows{data: append([]byte(nil), data...)}, nil
}

func (m *Memory) Exec(ctx context.Context, query string, args ...any) (storage.Result, error) {
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
		m.mu.Lock()
		m.dirs[key] = struct{}{}
		m.mu.Unlock()
		return emptyResult{}, nil
	case OpWrite:
		if len(args) < 2 {
			return emptyResult{}, ErrMissingContent
		}
		reader, ok := args[1].(io.Reader)
		if !ok || reader == nil {
			return emptyResult{}, ErrMissingContent
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return emptyResult{}, err
		}
		m.mu.Lock()
		m.files[key] = data
		m.mu.Unlock()
		return emptyResult{affected: int64(len(data))}, nil
	case OpRemove:
		m.mu.Lock()
		defer m.mu.Unlock()
		var removed int64
		for name := range m.files {
			if key == "." || name == key || strings.HasPrefix(name, key+"/") {
				delete(m.files, name)
				removed++
			}
		}
		for name := range m.dirs {
			if key == "." || name == key || strings.HasPrefix(name, key+"/") {
				delete(m.dirs, name)
			}
		}
		return emptyResult{affected: removed}, nil
	default:
		return emptyResult{}, fmt.Errorf("storage: unsupported exec %q", query)
	}
}

func (m *Memory) Transaction(_ context.Context, fn func(tx storage.Transaction) error) error {
	if fn == nil {
		return nil
	}
	return fn(&providerTx{provider: m})
}

// File returns a copy of the artifact stored at key.
func (m *Memory) File(key string) ([]byte, bool) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[cleaned]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Paths lists stored artifact keys in lexical order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
