package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/subframe/pkg/view"
)

// Response is an immutable outgoing HTTP response.
// Transform methods return a new Response and never modify the receiver.
type Response struct {
	fields []headerField
	body   []byte
	status int
}

// NewResponse creates a Response with a string body.
// A zero status means 200.
func NewResponse(body string, status int, headers map[string]string) *Response {
	return NewResponseBytes([]byte(body), status, headers)
}

// NewResponseBytes creates a Response with a byte body.
func NewResponseBytes(body []byte, status int, headers map[string]string) *Response {
	if status == 0 {
		status = http.StatusOK
	}
	r := &Response{status: status, body: slices.Clone(body)}
	for name, value := range canonicalHeaders(headers) {
		r.fields = append(r.fields, headerField{name: name, value: value})
	}
	slices.SortFunc(r.fields, func(a, b headerField) int { return strings.Compare(a.name, b.name) })
	return r
}

// FromView renders a template through the view collaborator and wraps the output.
// Render failures are returned as *ViewError and are never swallowed.
func FromView(ctx context.Context, renderer view.Renderer, name string, data any, status int) (*Response, error) {
	if renderer == nil {
		return nil, ErrNoRenderer
	}
	var buf bytes.Buffer
	if err := renderer.Render(ctx, &buf, name, data); err != nil {
		return nil, &ViewError{View: name, Err: err}
	}
	return NewResponseBytes(buf.Bytes(), status, map[string]string{"Content-Type": view.ContentTypeHTML}), nil
}

// FromComponent renders a templ component as the response body.
func FromComponent(ctx context.Context, c templ.Component, status int) (*Response, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return nil, &ViewError{View: fmt.Sprintf("%T", c), Err: err}
	}
	return NewResponseBytes(buf.Bytes(), status, map[string]string{"Content-Type": view.ContentTypeHTML}), nil
}

// FromData encodes v as JSON with Content-Type application/json.
func FromData(v any, status int) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return NewResponseBytes(body, status, map[string]string{"Content-Type": "application/json; charset=utf-8"}), nil
}

// FromRedirection creates an empty response with a Location header.
// A zero status means 302.
func FromRedirection(url string, status int) *Response {
	if status == 0 {
		status = http.StatusFound
	}
	return NewResponse("", status, map[string]string{"Location": url})
}

// ViewError reports a failed view render.
type ViewError struct {
	Err  error
	View string
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("render %s: %v", e.View, e.Err)
}

func (e *ViewError) Unwrap() []error {
	return []error{ErrViewRender, e.Err}
}

// StatusCode returns the status of the response.
func (r *Response) StatusCode() int { return r.status }

// Body returns a copy of the body.
func (r *Response) Body() []byte { return slices.Clone(r.body) }

// BodyLen returns the body size in bytes without copying it.
func (r *Response) BodyLen() int { return len(r.body) }

// BodyString returns the body as a string.
func (r *Response) BodyString() string { return string(r.body) }

// Header returns the first value of a header, or "" when absent.
// Lookup is case-insensitive.
func (r *Response) Header(name string) string {
	name = CanonicalHeaderName(name)
	for _, f := range r.fields {
		if f.name == name {
			return f.value
		}
	}
	return ""
}

// HasHeader reports whether the header is present.
func (r *Response) HasHeader(name string) bool {
	name = CanonicalHeaderName(name)
	return slices.ContainsFunc(r.fields, func(f headerField) bool { return f.name == name })
}

// HeaderValues returns every value of a repeated header in order.
func (r *Response) HeaderValues(name string) []string {
	name = CanonicalHeaderName(name)
	var out []string
	for _, f := range r.fields {
		if f.name == name {
			out = append(out, f.value)
		}
	}
	return out
}

// Headers returns the headers as a map. Repeated names keep their first value.
func (r *Response) Headers() map[string]string {
	out := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		if _, ok := out[f.name]; !ok {
			out[f.name] = f.value
		}
	}
	return out
}

// WithHeader returns a copy with every field named name replaced by a single value.
func (r *Response) WithHeader(name, value string) *Response {
	cp := r.WithoutHeader(name)
	cp.fields = append(cp.fields, headerField{name: CanonicalHeaderName(name), value: value})
	return cp
}

// AddHeader returns a copy with an extra field appended, keeping existing ones.
func (r *Response) AddHeader(name, value string) *Response {
	cp := r.clone()
	cp.fields = append(cp.fields, headerField{name: CanonicalHeaderName(name), value: value})
	return cp
}

// WithoutHeader returns a copy with every field named name removed.
func (r *Response) WithoutHeader(name string) *Response {
	name = CanonicalHeaderName(name)
	cp := r.clone()
	cp.fields = slices.DeleteFunc(cp.fields, func(f headerField) bool { return f.name == name })
	return cp
}

// WithStatus returns a copy with a different status code.
func (r *Response) WithStatus(status int) *Response {
	cp := r.clone()
	cp.status = status
	return cp
}

// WithBody returns a copy with a different body.
func (r *Response) WithBody(body []byte) *Response {
	cp := r.clone()
	cp.body = slices.Clone(body)
	return cp
}

func (r *Response) clone() *Response {
	return &Response{
		fields: slices.Clone(r.fields),
		body:   r.body,
		status: r.status,
	}
}

// Send writes every header field (repeated names included), the status and
// the body to w, then flushes when the writer supports it.
// Send is terminal; nothing else should be written to w afterwards.
func (r *Response) Send(w http.ResponseWriter) error {
	h := w.Header()
	for _, f := range r.fields {
		h.Add(f.name, f.value)
	}
	w.WriteHeader(r.status)

	if len(r.body) > 0 && bodyAllowed(r.status) {
		if _, err := w.Write(r.body); err != nil {
			return err
		}
	}

	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// bodyAllowed reports whether the status permits a response body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// result marks *Response as a dispatch Result.
func (*Response) result() {}
