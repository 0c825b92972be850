package generator

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-blog/internal/markdown"
	"github.com/goliatone/go-blog/internal/metrics"
)

const syntaxStylesheet = "assets/css/syntax.css"

// AssetSource is a tree of static files copied into the output under Prefix.
// The embedded theme assets use the "assets" prefix; a site static directory
// uses an empty prefix so its files land at the output root.
type AssetSource struct {
	Name   string
	FS     fs.FS
	Prefix string
}

type assetCopySummary struct {
	Built   int
	Skipped int
}

func (s *service) copyAssets(
	ctx context.Context,
	writer artifactWriter,
	manifest *buildManifest,
	incremental bool,
) (assetCopySummary, error) {
	summary := assetCopySummary{}
	baseDir := s.baseDir()
	dirCache := map[string]struct{}{}
	if baseDir != "" {
		dirCache[baseDir] = struct{}{}
		if err := writer.EnsureDir(ctx, baseDir); err != nil {
			return summary, err
		}
	}

	write := func(key, source, rel string, data []byte) error {
		fullPath := joinOutputPath(baseDir, rel)
		checksum := computeHash(data)
		if incremental && manifest.shouldSkipAsset(key, checksum, fullPath) {
			summary.Skipped++
			s.deps.Metrics.IncArtifact(string(categoryAsset), metrics.ArtifactSkipped)
			return nil
		}
		if err := ensureDir(ctx, writer, dirCache, path.Dir(fullPath)); err != nil {
			return err
		}
		err := writer.WriteFile(ctx, writeFileRequest{
			Path:        fullPath,
			Content:     bytes.NewReader(data),
			Size:        int64(len(data)),
			Category:    categoryAsset,
			ContentType: detectAssetContentType(rel),
			Checksum:    checksum,
			Metadata: map[string]string{
				"source": source,
			},
		})
		if err != nil {
			s.deps.Metrics.IncArtifact(string(categoryAsset), metrics.ArtifactFailed)
			return err
		}
		summary.Built++
		s.deps.Metrics.IncArtifact(string(categoryAsset), metrics.ArtifactBuilt)
		manifest.setAsset(manifestAsset{
			Key:      key,
			Source:   source,
			Output:   fullPath,
			Checksum: checksum,
			Size:     int64(len(data)),
			CopiedAt: s.now(),
		})
		return nil
	}

	for _, source := range s.deps.Assets {
		if source.FS == nil {
			continue
		}
		name := source.Name
		if name == "" {
			name = source.Prefix
		}
		err := fs.WalkDir(source.FS, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if p != "." && isHidden(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if isHidden(d.Name()) {
				return nil
			}
			data, err := fs.ReadFile(source.FS, p)
			if err != nil {
				return err
			}
			rel := path.Join(source.Prefix, p)
			return write(assetKey(name, p), name, rel, data)
		})
		if err != nil {
			return summary, fmt.Errorf("generator: copy assets from %s: %w", name, err)
		}
	}

	css, err := s.syntaxCSS()
	if err != nil {
		return summary, err
	}
	if err := write(assetKey("highlight", s.cfg.HighlightStyle), "highlight", syntaxStylesheet, css); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *service) syntaxCSS() ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.WriteHighlightCSS(&buf, s.cfg.HighlightStyle); err != nil {
		return nil, fmt.Errorf("generator: syntax stylesheet: %w", err)
	}
	return buf.Bytes(), nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func detectAssetContentType(asset string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(asset), "."))
	switch ext {
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "ico":
		return "image/x-icon"
	case "txt":
		return "text/plain; charset=utf-8"
	case "xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
