package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sync"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders markdown pages with optional YAML frontmatter.
// View "docs/intro" maps to "docs/intro.md". The page body is first executed
// as a text template with the view data, converted to HTML, then sanitized.
type Markdown struct {
	fs     fs.FS
	md     goldmark.Markdown
	policy *bluemonday.Policy
	layout *template.Template
	cache  map[string]*cachedPage
	mu     sync.RWMutex
}

type cachedPage struct {
	metadata map[string]any
	tmpl     *texttemplate.Template
}

// MarkdownOption configures Markdown.
type MarkdownOption func(*Markdown)

// WithPolicy replaces the sanitizing policy. Default: bluemonday.UGCPolicy().
func WithPolicy(p *bluemonday.Policy) MarkdownOption {
	return func(m *Markdown) {
		if p != nil {
			m.policy = p
		}
	}
}

// WithPageLayout wraps every page in an html/template layout.
// The layout receives .Content (the page HTML), .Metadata and .Data.
func WithPageLayout(layout *template.Template) MarkdownOption {
	return func(m *Markdown) {
		m.layout = layout
	}
}

// NewMarkdown creates a markdown renderer over fsys.
func NewMarkdown(fsys fs.FS, opts ...MarkdownOption) *Markdown {
	m := &Markdown{
		fs:     fsys,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
		cache:  make(map[string]*cachedPage),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Render converts the named page to sanitized HTML.
func (m *Markdown) Render(_ context.Context, w io.Writer, name string, data any) error {
	cached, err := m.get(name)
	if err != nil {
		return err
	}

	var source bytes.Buffer
	if err := cached.tmpl.Execute(&source, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	var converted bytes.Buffer
	if err := m.md.Convert(source.Bytes(), &converted); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	content := m.policy.SanitizeBytes(converted.Bytes())

	if m.layout == nil {
		_, err := w.Write(content)
		return err
	}

	layoutData := map[string]any{
		"Content":  template.HTML(content),
		"Metadata": cached.metadata,
		"Data":     data,
	}
	if err := m.layout.Execute(w, layoutData); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	return nil
}

// get returns a cached page or parses and caches it.
func (m *Markdown) get(name string) (*cachedPage, error) {
	m.mu.RLock()
	if cached, ok := m.cache[name]; ok {
		m.mu.RUnlock()
		return cached, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cached, ok := m.cache[name]; ok {
		return cached, nil
	}

	content, err := fs.ReadFile(m.fs, path.Clean(name)+".md")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrViewNotFound, name, err)
	}

	p, err := parsePage(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	tmpl, err := texttemplate.New(name).Option("missingkey=zero").Parse(p.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	cached := &cachedPage{metadata: p.Metadata, tmpl: tmpl}
	m.cache[name] = cached
	return cached, nil
}

var _ Renderer = (*Markdown)(nil)
