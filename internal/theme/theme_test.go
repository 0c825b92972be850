package theme

import (
	"io/fs"
	"strings"
	"testing"
)

func TestTemplatesContainLayoutAndPages(t *testing.T) {
	tpl := Templates()
	for _, name := range []string{"layout.html", "partials/head.html", "pages/post.html", "pages/index.html", "pages/list.html", "pages/tag.html", "pages/404.html"} {
		if _, err := fs.Stat(tpl, name); err != nil {
			t.Fatalf("expected %s in templates: %v", name, err)
		}
	}
}

func TestAssetsContainClientScripts(t *testing.T) {
	assets := Assets()
	for _, name := range []string{"js/theme-toggle.js", "js/reading-progress.js", "js/copy-code.js", "css/site.css", "favicon.svg"} {
		if _, err := fs.Stat(assets, name); err != nil {
			t.Fatalf("expected %s in assets: %v", name, err)
		}
	}
}

func TestCopyCodeTargetsLanguageBlocks(t *testing.T) {
	data, err := fs.ReadFile(Assets(), "js/copy-code.js")
	if err != nil {
		t.Fatalf("read copy-code.js: %v", err)
	}
	script := string(data)
	for _, want := range []string{"pre[class*='language-']", "Copied!", "2000"} {
		if !strings.Contains(script, want) {
			t.Fatalf("expected copy-code.js to contain %q", want)
		}
	}
}
