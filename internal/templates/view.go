package templates

import "github.com/goliatone/go-blog/internal/posts"

// Page kinds understood by the default theme.
const (
	KindPost     = "post"
	KindIndex    = "index"
	KindList     = "list"
	KindTag      = "tag"
	KindNotFound = "404"
)

// NavLink is a header navigation entry.
type NavLink struct {
	Label string `json:"label" mapstructure:"label"`
	URL   string `json:"url" mapstructure:"url"`
}

// Site carries values shared by every page.
type Site struct {
	Language    string
	Title       string
	Description string
	BaseURL     string
	ThemeColor  string
	Keywords    []string
	Author      string
	AuthorURL   string
	Favicon     string
	AnalyticsID string
	Nav         []NavLink
	Stylesheets []string
	Scripts     []string
}

// Page describes the page being rendered.
type Page struct {
	Kind        string
	Title       string
	Description string
	Route       string
	Slug        string
	Heading     string
}

// View is the data passed to every page template.
type View struct {
	Site  Site
	Page  Page
	Post  *posts.Post
	Posts []*posts.Post
	Tags  []posts.Tag
	Tag   *posts.Tag
	Newer *posts.Post
	Older *posts.Post
}
