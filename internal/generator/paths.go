package generator

import (
	"path"
	"strings"
)

// buildOutputPath maps a route to the file that serves it: "/" becomes
// index.html, "/a/b" becomes a/b/index.html and routes naming an .html file
// are written as is.
func buildOutputPath(route string) string {
	route = strings.TrimSpace(route)
	clean := strings.Trim(route, " \t\r\n/")
	if clean == "" {
		return "index.html"
	}
	clean = strings.TrimPrefix(path.Clean("/"+clean), "/")
	if strings.EqualFold(path.Ext(clean), ".html") {
		return clean
	}
	return path.Join(clean, "index.html")
}
