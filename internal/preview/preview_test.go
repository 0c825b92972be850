package preview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

func sampleDocument() *interfaces.Document {
	return &interfaces.Document{
		FilePath: "posts/hello.md",
		FrontMatter: interfaces.FrontMatter{
			Title: "Hello World",
			Date:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Path:  "/hello-world",
			Tags:  []string{"go", "blog"},
		},
		Body:     []byte("Some **bold** words.\n\n```go\nfmt.Println(\"hi\")\n```\n"),
		BodyHTML: []byte("<p>Some <strong>bold</strong> words.</p>"),
	}
}

func TestCompose(t *testing.T) {
	doc := sampleDocument()
	p, err := New(Options{Style: "notty"})
	require.NoError(t, err)
	require.NotNil(t, p)

	out, err := p.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello World")
	assert.Contains(t, out, "January 15, 2024")
	assert.Contains(t, out, "/hello-world")
	assert.Contains(t, out, "1 min read")
	assert.Contains(t, out, "go, blog")
	assert.Contains(t, out, "fmt.Println")
}

func TestComposeMarksDrafts(t *testing.T) {
	doc := sampleDocument()
	doc.FrontMatter.Draft = true
	p, err := New(Options{Style: "ascii", Width: 40})
	require.NoError(t, err)

	out, err := p.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, out, "draft")
}

func TestRenderNilDocument(t *testing.T) {
	p, err := New(Options{Style: "notty"})
	require.NoError(t, err)
	_, err = p.Render(nil)
	require.ErrorIs(t, err, ErrNilDocument)
}

func TestRenderRequiresTitle(t *testing.T) {
	p, err := New(Options{Style: "notty"})
	require.NoError(t, err)
	doc := sampleDocument()
	doc.FrontMatter.Title = ""
	doc.FrontMatter.Path = ""
	_, err = p.Render(doc)
	require.Error(t, err)
}
