// Package storage provides the artifact stores the site generator writes
// into: a directory on disk for real builds and an in-memory tree for tests
// and dry runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-blog/pkg/storage"
)

// Operation names understood by the providers in this package.
const (
	OpEnsureDir = "generator.ensure_dir"
	OpWrite     = "generator.write"
	OpRead      = "generator.read"
	OpRemove    = "generator.remove"
)

var (
	ErrMissingPath    = errors.New("storage: operation requires a path")
	ErrMissingContent = errors.New("storage: write expects io.Reader content")
	ErrPathEscapes    = errors.New("storage: path escapes the storage root")
	ErrNestedTx       = errors.New("storage: nested transactions not supported")
)

// cleanKey turns an operation argument into a slash separated relative key.
// Keys that climb above the root are rejected.
func cleanKey(arg any) (string, error) {
	raw, _ := arg.(string)
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	if raw == "" {
		return "", ErrMissingPath
	}
	cleaned := strings.TrimPrefix(path.Clean(raw), "/")
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, raw)
	}
	if cleaned == "" {
		return ".", nil
	}
	return cleaned, nil
}

type emptyResult struct {
	affected int64
}

func (r emptyResult) RowsAffected() (int64, error) { return r.affected, nil }
func (emptyResult) LastInsertId() (int64, error)   { return 0, nil }

type byteRows struct {
	data []byte
	read bool
}

func (r *byteRows) Next() bool {
	if r.read {
		return false
	}
	r.read = true
	return true
}

func (r *byteRows) Scan(dest ...any) error {
	if len(dest) == 0 {
		return fmt.Errorf("scan requires destination")
	}
	bytesDest, ok := dest[0].(*[]byte)
	if !ok {
		return fmt.Errorf("unsupported scan destination %T", dest[0])
	}
	*bytesDest = append((*bytesDest)[:0], r.data...)
	return nil
}

func (r *byteRows) Close() error {
	return nil
}

// providerTx runs operations directly against the wrapped provider; the
// stores here have no rollback.
type providerTx struct {
	provider storage.Provider
}

func (tx *providerTx) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	return tx.provider.Query(ctx, query, args...)
}

func (tx *providerTx) Exec(ctx context.Context, query string, args ...any) (storage.Result, error) {
	return tx.provider.Exec(ctx, query, args...)
}

func (tx *providerTx) Transaction(context.Context, func(storage.Transaction) error) error {
	return ErrNestedTx
}

func (tx *providerTx) Commit() error   { return nil }
func (tx *providerTx) Rollback() error { return nil }
