// Package theme embeds the default blog theme: page templates plus the
// stylesheet and scripts every page loads.
package theme

import (
	"embed"
	"io/fs"
)

//go:embed templates assets
var files embed.FS

// Templates returns the template tree (layout.html, partials/, pages/).
func Templates() fs.FS {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Assets returns the static asset tree copied to /assets in the output.
func Assets() fs.FS {
	sub, err := fs.Sub(files, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}
