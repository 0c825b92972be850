package watcher

import (
	"path/filepath"
	"strings"
)

// NoHiddenFilter rejects dotfiles and editor swap files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}

// ExcludeDirFilter rejects paths inside dir. It keeps the generator from
// reacting to its own output when that lives under a watched tree.
func ExcludeDirFilter(dir string) Filter {
	clean := filepath.Clean(dir)
	return func(path string) bool {
		rel, err := filepath.Rel(clean, filepath.Clean(path))
		if err != nil {
			return true
		}
		return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
	}
}

// ExtensionFilter accepts files with one of the given extensions.
func ExtensionFilter(exts ...string) Filter {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return func(path string) bool {
		_, ok := allowed[strings.ToLower(filepath.Ext(path))]
		return ok
	}
}

var (
	siteFilter = ExtensionFilter(".md", ".markdown", ".html", ".tmpl", ".css", ".js", ".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".json", ".yaml", ".yml", ".toml", ".txt")
	isContent  = ExtensionFilter(".md", ".markdown")
)

// SiteFilter accepts the files a blog rebuild depends on: markdown,
// templates and static assets.
func SiteFilter(path string) bool {
	return siteFilter(path)
}

// IsContent reports whether a changed path is a markdown post.
func IsContent(path string) bool {
	return isContent(path)
}
