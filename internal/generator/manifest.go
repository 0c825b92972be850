package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-blog/internal/storage"
)

const (
	manifestFileName    = ".generator-manifest.json"
	manifestFileVersion = 1
)

// buildManifest stores metadata about the last successful build to support incremental runs.
type buildManifest struct {
	Version     int                      `json:"version"`
	GeneratedAt time.Time                `json:"generated_at"`
	Pages       map[string]manifestPage  `json:"pages"`
	Assets      map[string]manifestAsset `json:"assets"`
}

type manifestPage struct {
	Route        string    `json:"route"`
	Output       string    `json:"output"`
	Template     string    `json:"template"`
	Hash         string    `json:"hash"`
	Checksum     string    `json:"checksum"`
	LastModified time.Time `json:"last_modified"`
	RenderedAt   time.Time `json:"rendered_at"`
}

type manifestAsset struct {
	Key      string    `json:"key"`
	Source   string    `json:"source"`
	Output   string    `json:"output"`
	Checksum string    `json:"checksum"`
	Size     int64     `json:"size"`
	CopiedAt time.Time `json:"copied_at"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version: manifestFileVersion,
		Pages:   map[string]manifestPage{},
		Assets:  map[string]manifestAsset{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return newBuildManifest(), nil
	}
	var ordered orderedManifest
	if err := json.Unmarshal(data, &ordered); err != nil {
		return nil, fmt.Errorf("generator: parse manifest: %w", err)
	}
	manifest := newBuildManifest()
	manifest.GeneratedAt = ordered.GeneratedAt
	if ordered.Version != 0 {
		manifest.Version = ordered.Version
	}
	for _, entry := range ordered.Pages {
		manifest.setPage(entry)
	}
	for _, entry := range ordered.Assets {
		manifest.setAsset(entry)
	}
	return manifest, nil
}

// orderedManifest is the on-disk form, with entries sorted for stable output.
type orderedManifest struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Pages       []manifestPage  `json:"pages"`
	Assets      []manifestAsset `json:"assets"`
}

func (m *buildManifest) marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	ordered := orderedManifest{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
		Pages:       make([]manifestPage, 0, len(m.Pages)),
		Assets:      make([]manifestAsset, 0, len(m.Assets)),
	}
	if ordered.Version == 0 {
		ordered.Version = manifestFileVersion
	}
	for _, entry := range m.Pages {
		ordered.Pages = append(ordered.Pages, entry)
	}
	sort.Slice(ordered.Pages, func(i, j int) bool {
		return ordered.Pages[i].Route < ordered.Pages[j].Route
	})
	for _, entry := range m.Assets {
		ordered.Assets = append(ordered.Assets, entry)
	}
	sort.Slice(ordered.Assets, func(i, j int) bool {
		return ordered.Assets[i].Key < ordered.Assets[j].Key
	})
	return json.MarshalIndent(ordered, "", "  ")
}

func pageKey(route string) string {
	return strings.ToLower(strings.TrimSpace(route))
}

func assetKey(source, asset string) string {
	return strings.TrimSpace(source) + "::" + strings.TrimSpace(asset)
}

func (m *buildManifest) lookupPage(route string) (manifestPage, bool) {
	if m == nil || len(m.Pages) == 0 {
		return manifestPage{}, false
	}
	entry, ok := m.Pages[pageKey(route)]
	return entry, ok
}

func (m *buildManifest) setPage(entry manifestPage) {
	if m == nil {
		return
	}
	if m.Pages == nil {
		m.Pages = map[string]manifestPage{}
	}
	m.Pages[pageKey(entry.Route)] = entry
}

func (m *buildManifest) shouldSkipPage(route, hash, output string) bool {
	entry, ok := m.lookupPage(route)
	if !ok {
		return false
	}
	if entry.Hash != hash {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

func (m *buildManifest) lookupAsset(key string) (manifestAsset, bool) {
	if m == nil || len(m.Assets) == 0 {
		return manifestAsset{}, false
	}
	entry, ok := m.Assets[key]
	return entry, ok
}

func (m *buildManifest) setAsset(entry manifestAsset) {
	if m == nil || strings.TrimSpace(entry.Key) == "" {
		return
	}
	if m.Assets == nil {
		m.Assets = map[string]manifestAsset{}
	}
	m.Assets[entry.Key] = entry
}

func (m *buildManifest) shouldSkipAsset(key, checksum, output string) bool {
	entry, ok := m.lookupAsset(key)
	if !ok {
		return false
	}
	if entry.Checksum != checksum {
		return false
	}
	return strings.TrimSpace(entry.Output) == strings.TrimSpace(output)
}

// prunePages drops entries for routes that no longer exist.
func (m *buildManifest) prunePages(routes map[string]struct{}) {
	if m == nil || len(m.Pages) == 0 {
		return
	}
	keep := make(map[string]struct{}, len(routes))
	for route := range routes {
		keep[pageKey(route)] = struct{}{}
	}
	for key := range m.Pages {
		if _, ok := keep[key]; !ok {
			delete(m.Pages, key)
		}
	}
}

func (s *service) manifestTargetPath() string {
	return joinOutputPath(s.baseDir(), manifestFileName)
}

func (s *service) loadManifest(ctx context.Context) (*buildManifest, error) {
	if s.deps.Storage == nil {
		return newBuildManifest(), nil
	}
	rows, err := s.deps.Storage.Query(ctx, storage.OpRead, s.manifestTargetPath())
	if err != nil {
		return nil, fmt.Errorf("generator: read manifest: %w", err)
	}
	if rows == nil {
		return newBuildManifest(), nil
	}
	defer rows.Close()
	if !rows.Next() {
		return newBuildManifest(), nil
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, fmt.Errorf("generator: scan manifest: %w", err)
	}
	return parseManifest(data)
}

func (s *service) persistManifest(ctx context.Context, writer artifactWriter, manifest *buildManifest) error {
	if manifest == nil {
		return nil
	}
	data, err := manifest.marshal()
	if err != nil {
		return err
	}
	target := s.manifestTargetPath()
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(target)); err != nil {
		return err
	}
	metadata := map[string]string{
		"version": strconv.Itoa(manifest.Version),
	}
	if !manifest.GeneratedAt.IsZero() {
		metadata["generated_at"] = manifest.GeneratedAt.UTC().Format(time.RFC3339)
	}
	return writer.WriteFile(ctx, writeFileRequest{
		Path:        target,
		Content:     bytes.NewReader(data),
		Size:        int64(len(data)),
		Category:    categoryManifest,
		ContentType: "application/json",
		Checksum:    computeHash(data),
		Metadata:    metadata,
	})
}
