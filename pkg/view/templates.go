package view

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sync"
)

// Templates renders html/template files from a filesystem.
// View "about/index" maps to "about/index.html". Parsed templates are cached.
type Templates struct {
	fs    fs.FS
	funcs template.FuncMap
	cache map[string]*template.Template
	ext   string
	// layout is parsed together with every view; it is expected to call
	// {{template "content" .}}.
	layout string
	mu     sync.RWMutex
}

// TemplatesOption configures Templates.
type TemplatesOption func(*Templates)

// WithLayout wraps every view in a layout file. The view must define a
// "content" template that the layout invokes.
func WithLayout(name string) TemplatesOption {
	return func(t *Templates) {
		t.layout = name
	}
}

// WithFuncs adds template functions.
func WithFuncs(funcs template.FuncMap) TemplatesOption {
	return func(t *Templates) {
		for k, v := range funcs {
			t.funcs[k] = v
		}
	}
}

// WithExtension sets the file extension of views. Default: ".html".
func WithExtension(ext string) TemplatesOption {
	return func(t *Templates) {
		if ext != "" {
			t.ext = ext
		}
	}
}

// NewTemplates creates a template renderer over fsys.
//
// Example:
//
//	//go:embed views
//	var views embed.FS
//
//	sub, _ := fs.Sub(views, "views")
//	r := view.NewTemplates(sub, view.WithLayout("layout.html"))
func NewTemplates(fsys fs.FS, opts ...TemplatesOption) *Templates {
	t := &Templates{
		fs:    fsys,
		funcs: template.FuncMap{},
		cache: make(map[string]*template.Template),
		ext:   ".html",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render executes the named view.
// Missing map keys render as zero values instead of failing.
func (t *Templates) Render(_ context.Context, w io.Writer, name string, data any) error {
	tmpl, err := t.get(name)
	if err != nil {
		return err
	}

	entry := path.Base(t.file(name))
	if t.layout != "" {
		entry = path.Base(t.layout)
	}
	if err := tmpl.ExecuteTemplate(w, entry, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	return nil
}

func (t *Templates) file(name string) string {
	return path.Clean(name) + t.ext
}

// get returns a cached template or parses and caches it.
func (t *Templates) get(name string) (*template.Template, error) {
	t.mu.RLock()
	if cached, ok := t.cache[name]; ok {
		t.mu.RUnlock()
		return cached, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if cached, ok := t.cache[name]; ok {
		return cached, nil
	}

	file := t.file(name)
	if _, err := fs.Stat(t.fs, file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrViewNotFound, name, err)
	}

	files := []string{file}
	if t.layout != "" {
		files = append([]string{t.layout}, files...)
	}

	tmpl, err := template.New(path.Base(files[0])).
		Option("missingkey=zero").
		Funcs(t.funcs).
		ParseFS(t.fs, files...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	t.cache[name] = tmpl
	return tmpl, nil
}

var _ Renderer = (*Templates)(nil)
