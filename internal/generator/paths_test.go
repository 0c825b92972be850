package generator

import "testing"

func TestBuildOutputPath(t *testing.T) {
	cases := map[string]string{
		"":                "index.html",
		"/":               "index.html",
		"/hello-world":    "hello-world/index.html",
		"/a/b/":           "a/b/index.html",
		"/404.html":       "404.html",
		"/../escape":      "escape/index.html",
		"  /trimmed  ":    "trimmed/index.html",
		"/tags/go/":       "tags/go/index.html",
		"/docs/PAGE.HTML": "docs/PAGE.HTML",
	}
	for route, want := range cases {
		if got := buildOutputPath(route); got != want {
			t.Fatalf("buildOutputPath(%q) = %q, want %q", route, got, want)
		}
	}
}

func TestManifestRoundTripKeepsEntries(t *testing.T) {
	m := newBuildManifest()
	m.setPage(manifestPage{Route: "/Hello", Output: "hello/index.html", Hash: "h1"})
	m.setAsset(manifestAsset{Key: assetKey("theme", "css/site.css"), Output: "assets/css/site.css", Checksum: "c1"})

	data, err := m.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := parseManifest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.shouldSkipPage("/hello", "h1", "hello/index.html") {
		t.Fatalf("expected page lookup to be case insensitive")
	}
	if parsed.shouldSkipPage("/hello", "h2", "hello/index.html") {
		t.Fatalf("changed hash must not skip")
	}
	if !parsed.shouldSkipAsset(assetKey("theme", "css/site.css"), "c1", "assets/css/site.css") {
		t.Fatalf("expected asset to be skipped")
	}

	parsed.prunePages(map[string]struct{}{"/other": {}})
	if _, ok := parsed.lookupPage("/hello"); ok {
		t.Fatalf("prune should remove stale routes")
	}
}

func TestParseManifestRejectsGarbage(t *testing.T) {
	if _, err := parseManifest([]byte("{")); err == nil {
		t.Fatalf("expected parse error")
	}
	m, err := parseManifest(nil)
	if err != nil || m == nil {
		t.Fatalf("empty manifest should parse, got %v", err)
	}
}
