package middlewares

import (
	"context"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/view"
)

// ErrorsConfig configures the error boundary.
type ErrorsConfig struct {
	Renderer view.Renderer // Renders the error view (optional)
	View     string        // Error view name, receives an ErrorPage
}

// ErrorsOption configures ErrorsConfig.
type ErrorsOption func(*ErrorsConfig)

// WithErrorView renders error responses with the named view.
// The view receives a subframe.ErrorPage.
func WithErrorView(renderer view.Renderer, name string) ErrorsOption {
	return func(cfg *ErrorsConfig) {
		cfg.Renderer = renderer
		cfg.View = name
	}
}

// Errors returns the error boundary middleware. It is meant to be the
// outermost link, just inside RequestID and Logger.
//
// Every error returned further down the chain becomes a Response:
// errors carrying a 4xx status echo their message to the client;
// anything else becomes a generic 500 (or its own 5xx) and is logged with
// the request method, URI, remote address and, for panics, the stack.
// A nil Response without an error is treated as ErrRouteNotFound.
func Errors(opts ...ErrorsOption) internal.Middleware {
	cfg := &ErrorsConfig{}

	for _, opt := range opts {
		opt(cfg)
	}

	responder := internal.ErrorResponder{
		Renderer:  cfg.Renderer,
		View:      cfg.View,
		RequestID: GetRequestID,
	}

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (*internal.Response, error) {
		resp, err := next.Handle(ctx, req)
		if err == nil && resp != nil {
			return resp, nil
		}
		if err == nil {
			err = internal.ErrRouteNotFound
		}
		return responder.Respond(ctx, req, err), nil
	})
}
