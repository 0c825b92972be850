package interfaces

import "io"

// PageRenderer renders the named page templates of a theme, such as "post",
// "index" or "404". The rendered page is returned and, when writers are
// passed, also written to them.
type PageRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	// Has reports whether the theme defines the named page.
	Has(name string) bool
}
