package templates

import (
	"errors"
	"io/fs"
	"sort"
)

// layeredFS resolves each name against its layers in order, so earlier
// layers shadow later ones. Directory listings merge every layer.
type layeredFS struct {
	layers []fs.FS
}

func newLayeredFS(layers ...fs.FS) fs.FS {
	return layeredFS{layers: layers}
}

func (l layeredFS) Open(name string) (fs.File, error) {
	var firstErr error
	for _, layer := range l.layers {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if firstErr == nil || !errors.Is(err, fs.ErrNotExist) {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fs.ErrNotExist
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: unwrapPathErr(firstErr)}
}

func (l layeredFS) ReadDir(name string) ([]fs.DirEntry, error) {
	seen := map[string]fs.DirEntry{}
	found := false
	for _, layer := range l.layers {
		entries, err := fs.ReadDir(layer, name)
		if err != nil {
			continue
		}
		found = true
		for _, entry := range entries {
			if _, ok := seen[entry.Name()]; !ok {
				seen[entry.Name()] = entry
			}
		}
	}
	if !found {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]fs.DirEntry, 0, len(seen))
	for _, entry := range seen {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func unwrapPathErr(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
