package internal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"sync"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/subframe/pkg/view"
)

// Result is the outcome of a route action.
// The concrete forms are *Response, NotHandled, Text, Data and Done.
type Result interface {
	result()
}

type notHandled struct{}

func (notHandled) result() {}

type textResult string

func (textResult) result() {}

type dataResult struct{ v any }

func (dataResult) result() {}

type doneResult struct{}

func (doneResult) result() {}

// NotHandled declines the request: dispatch continues with the next route
// as if this one had not matched.
func NotHandled() Result { return notHandled{} }

// Text answers with an HTML body at the call status.
func Text(s string) Result { return textResult(s) }

// Data answers with v encoded as JSON at the call status.
func Data(v any) Result { return dataResult{v: v} }

// Done answers with whatever the action wrote to Call.Writer, at the call status.
func Done() Result { return doneResult{} }

// ActionFunc is the signature of route actions.
type ActionFunc func(c *Call) (Result, error)

// Call carries everything an action needs for one invocation.
type Call struct {
	ctx      context.Context
	req      *Request
	renderer view.Renderer
	out      *bytes.Buffer
	args     []string
	status   int
}

// Context returns the request context.
func (c *Call) Context() context.Context { return c.ctx }

// Request returns the request being dispatched.
func (c *Call) Request() *Request { return c.req }

// Args returns the positional arguments captured for this action.
func (c *Call) Args() []string { return slices.Clone(c.args) }

// Arg returns the i-th positional argument, or "" when absent.
func (c *Call) Arg(i int) string {
	if i < 0 || i >= len(c.args) {
		return ""
	}
	return c.args[i]
}

// SetStatus sets the status used for Text, Data, Done and view results.
func (c *Call) SetStatus(code int) { c.status = code }

// Status returns the current status, 200 unless changed.
func (c *Call) Status() int { return c.status }

// Writer returns the scoped output buffer. Its contents become the body of a Done result.
func (c *Call) Writer() io.Writer { return c.out }

// View renders a named view at the current status.
func (c *Call) View(name string, data any) (Result, error) {
	resp, err := FromView(c.ctx, c.renderer, name, data, c.status)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Component renders a templ component at the current status.
func (c *Call) Component(comp templ.Component) (Result, error) {
	resp, err := FromComponent(c.ctx, comp, c.status)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Redirect answers with a redirection. A zero status means 302.
func (c *Call) Redirect(url string, status int) Result {
	return FromRedirection(url, status)
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// invoke runs an action inside a scoped output buffer and normalizes the result.
// It reports handled=false when the action returned NotHandled.
func invoke(ctx context.Context, req *Request, renderer view.Renderer, args []string, fn ActionFunc) (*Response, bool, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	c := &Call{
		ctx:      ctx,
		req:      req,
		renderer: renderer,
		out:      buf,
		args:     args,
		status:   http.StatusOK,
	}
	res, err := fn(c)
	if err != nil {
		return nil, false, err
	}
	return normalize(c, res)
}

// normalize turns an action Result into a Response.
func normalize(c *Call, res Result) (*Response, bool, error) {
	switch r := res.(type) {
	case notHandled:
		return nil, false, nil
	case *Response:
		if r != nil {
			return r, true, nil
		}
	case textResult:
		return NewResponse(string(r), c.status, map[string]string{"Content-Type": view.ContentTypeHTML}), true, nil
	case dataResult:
		resp, err := FromData(r.v, c.status)
		if err != nil {
			return nil, false, err
		}
		return resp, true, nil
	}

	// Done, or nil: whatever the action printed.
	if c.out.Len() == 0 {
		return NewResponse("", c.status, nil), true, nil
	}
	return NewResponseBytes(c.out.Bytes(), c.status, map[string]string{"Content-Type": view.ContentTypeHTML}), true, nil
}
