package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// Renderer manages template parsing and rendering with isolated template sets.
// Every page is parsed into its own clone of a layout so pages can define the
// same block names without clashing.
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// layoutSet describes one family of pages sharing a layout.
type layoutSet struct {
	base   string // name of the template the layout defines
	layout string // layout file
	dir    string // page directory
	prefix string // key prefix for pages in dir
}

var layoutSets = []layoutSet{
	{base: "base", layout: "layout.html", dir: ".", prefix: ""},
	{base: "base", layout: "layout.html", dir: "storefront", prefix: "storefront/"},
	{base: "admin_base", layout: "admin/layout.html", dir: "admin", prefix: "admin/"},
}

// NewRenderer parses every page under fsys. Shared partials live in
// partials/ and are available to all pages.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	partials, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, set := range layoutSets {
		files := append([]string{set.layout}, partials...)
		baseTmpl, err := template.New(set.base).Funcs(TemplateFuncs()).ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layout %s: %w", set.layout, err)
		}

		pages, err := fs.Glob(fsys, path.Join(set.dir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s templates: %w", set.dir, err)
		}

		for _, page := range pages {
			if page == set.layout || path.Base(page) == "layout.html" {
				continue
			}

			pageTmpl, err := baseTmpl.Clone()
			if err != nil {
				return nil, fmt.Errorf("failed to clone template for %s: %w", page, err)
			}
			pageTmpl, err = pageTmpl.ParseFS(fsys, page)
			if err != nil {
				return nil, fmt.Errorf("failed to parse page %s: %w", page, err)
			}

			name := strings.TrimSuffix(path.Base(page), path.Ext(page))
			templates[set.prefix+name] = pageTmpl
		}
	}

	return &Renderer{
		templates: templates,
		logger:    logger,
	}, nil
}

// Has reports whether a page is known.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Execute returns the template set for a page.
func (r *Renderer) Execute(name string) (*template.Template, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return tmpl, nil
}

// Render executes a page's layout into w.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := r.Execute(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, baseName(name), data)
}

// RenderHTTP renders a full page with status 200.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	r.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a full page with the given status. Output is buffered
// so a failing template never leaves half a page on the wire.
func (r *Renderer) RenderStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error("render error", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Fragment renders one named block of a page, for htmx swaps.
func (r *Renderer) Fragment(w http.ResponseWriter, name, block string, data interface{}) {
	tmpl, err := r.Execute(name)
	if err != nil {
		r.logger.Error("template error", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("render error", slog.String("template", name), slog.String("block", block), slog.String("error", err.Error()))
		http.Error(w, "Failed to render fragment", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func baseName(page string) string {
	if strings.HasPrefix(page, "admin/") {
		return "admin_base"
	}
	return "base"
}
