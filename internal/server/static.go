package server

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
)

const notFoundPage = "404.html"

// siteHandler serves the generated output with the same route to file
// mapping the generator uses: /a/b resolves to a/b/index.html.
type siteHandler struct {
	fsys       fs.FS
	liveReload bool
}

func newSiteHandler(root string, liveReload bool) *siteHandler {
	return newSiteHandlerFS(os.DirFS(root), liveReload)
}

func newSiteHandlerFS(fsys fs.FS, liveReload bool) *siteHandler {
	return &siteHandler{fsys: fsys, liveReload: liveReload}
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, redirect, ok := h.resolve(r.URL.Path)
	if redirect != "" {
		target := redirect
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}
	if !ok {
		h.serveNotFound(w, r)
		return
	}
	h.serveFile(w, r, name, http.StatusOK)
}

// resolve maps a URL path to a file in fsys. Directories without a trailing
// slash redirect so relative links in the page keep working.
func (h *siteHandler) resolve(urlPath string) (name, redirect string, ok bool) {
	clean := path.Clean("/" + urlPath)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" {
		rel = "."
	}
	if !fs.ValidPath(rel) {
		return "", "", false
	}

	info, err := fs.Stat(h.fsys, rel)
	if err == nil && !info.IsDir() {
		return rel, "", true
	}
	if err == nil && info.IsDir() {
		index := path.Join(rel, "index.html")
		if _, err := fs.Stat(h.fsys, index); err != nil {
			return "", "", false
		}
		if !strings.HasSuffix(urlPath, "/") {
			return "", clean + "/", false
		}
		return index, "", true
	}
	if path.Ext(rel) == "" {
		index := path.Join(rel, "index.html")
		if _, err := fs.Stat(h.fsys, index); err == nil {
			return "", clean + "/", false
		}
	}
	return "", "", false
}

func (h *siteHandler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	if _, err := fs.Stat(h.fsys, notFoundPage); err == nil {
		h.serveFile(w, r, notFoundPage, http.StatusNotFound)
		return
	}
	http.NotFound(w, r)
}

func (h *siteHandler) serveFile(w http.ResponseWriter, r *http.Request, name string, status int) {
	f, err := h.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	if isHTML(name) {
		body, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if h.liveReload {
			body = injectLiveReload(body)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if status != http.StatusOK {
			w.WriteHeader(status)
			if r.Method != http.MethodHead {
				w.Write(body)
			}
			return
		}
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(body))
		return
	}

	if ctype := mime.TypeByExtension(path.Ext(name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.ModTime(), rs)
		return
	}
	body, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(body))
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}
