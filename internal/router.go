package internal

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/dmitrymomot/subframe/pkg/view"
)

type routeKind int

const (
	routeExplicit routeKind = iota
	routeView
	routeNamespace
)

// route is one registered route. Only the fields of its kind are set.
type route struct {
	data    any
	pattern *regexp.Regexp
	action  ActionFunc
	ns      *Namespace
	method  string
	uri     string
	view    string
	kind    routeKind
}

// Router dispatches a request to the first matching route in registration order.
// Routes are appended during setup and only read while serving.
type Router struct {
	renderer view.Renderer
	routes   []route
}

// NewRouter creates an empty router. The renderer serves view routes and
// Call.View; it may be nil when neither is used.
func NewRouter(renderer view.Renderer) *Router {
	return &Router{renderer: renderer}
}

// AddRoute registers an explicit route. The pattern is a regular expression
// matched against the whole normalized URI; its capture groups become the
// action's positional arguments. An invalid pattern panics at setup.
//
// Example:
//
//	r.AddRoute("GET", `/posts/(\d+)`, func(c *subframe.Call) (subframe.Result, error) {
//	    return subframe.Text("post " + c.Arg(0)), nil
//	})
func (r *Router) AddRoute(method, pattern string, fn ActionFunc) {
	r.routes = append(r.routes, route{
		kind:    routeExplicit,
		method:  strings.ToUpper(method),
		pattern: regexp.MustCompile("^(?:" + pattern + ")$"),
		action:  fn,
	})
}

// AddView registers a GET-only route presenting a view with fixed data.
func (r *Router) AddView(uri, viewName string, data any) {
	r.routes = append(r.routes, route{
		kind: routeView,
		uri:  strings.Trim(uri, "/"),
		view: viewName,
		data: data,
	})
}

// AddNamespace registers a convention-based namespace scan.
func (r *Router) AddNamespace(ns *Namespace) {
	r.routes = append(r.routes, route{kind: routeNamespace, ns: ns})
}

// Handle tries every route in order and returns the first produced Response.
// When nothing matches it returns a nil Response and a nil error.
// Errors from actions and views propagate unchanged.
func (r *Router) Handle(ctx context.Context, req *Request) (*Response, error) {
	for _, rt := range r.routes {
		var (
			resp *Response
			err  error
		)
		switch rt.kind {
		case routeExplicit:
			resp, err = r.captureRoute(ctx, req, rt)
		case routeView:
			resp, err = r.captureView(ctx, req, rt)
		case routeNamespace:
			resp, err = r.captureNamespace(ctx, req, rt)
		}
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}

// Process makes the router the innermost link of a Chain.
// It never calls next and reports ErrRouteNotFound when no route matched.
func (r *Router) Process(ctx context.Context, req *Request, _ Handler) (*Response, error) {
	resp, err := r.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrRouteNotFound
	}
	return resp, nil
}

func (r *Router) captureRoute(ctx context.Context, req *Request, rt route) (*Response, error) {
	if rt.method != req.Method() {
		return nil, nil
	}
	m := rt.pattern.FindStringSubmatch(req.URI())
	if m == nil {
		return nil, nil
	}
	resp, _, err := invoke(ctx, req, r.renderer, m[1:], rt.action)
	return resp, err
}

func (r *Router) captureView(ctx context.Context, req *Request, rt route) (*Response, error) {
	if req.Method() != http.MethodGet || rt.uri != strings.Trim(req.URI(), "/") {
		return nil, nil
	}
	return FromView(ctx, r.renderer, rt.view, rt.data, http.StatusOK)
}

func (r *Router) captureNamespace(ctx context.Context, req *Request, rt route) (*Response, error) {
	found, ok := rt.ns.FindRoute(req)
	if !ok {
		return nil, nil
	}
	resp, _, err := invoke(ctx, req, r.renderer, found.Args, found.action)
	return resp, err
}
