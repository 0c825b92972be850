// Package markdown loads blog posts from disk, splits their front-matter from
// the body, and renders the body into HTML with goldmark. Fenced code blocks
// are highlighted with chroma and carry language-* classes so the client side
// copy button can find them.
package markdown
