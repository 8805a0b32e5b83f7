package internal

import "context"

// Handler produces a Response for a Request.
// A nil Response with a nil error means the request was not handled.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware intercepts a request on its way to the router.
// It may inspect the request, call next zero or one time,
// and post-process the returned Response.
//
// Example:
//
//	type poweredBy struct{}
//
//	func (poweredBy) Process(ctx context.Context, req *subframe.Request, next subframe.Handler) (*subframe.Response, error) {
//	    resp, err := next.Handle(ctx, req)
//	    if err != nil || resp == nil {
//	        return resp, err
//	    }
//	    return resp.WithHeader("X-Powered-By", "subframe"), nil
//	}
type Middleware interface {
	Process(ctx context.Context, req *Request, next Handler) (*Response, error)
}

// MiddlewareFunc is the plain-function form of a middleware link.
//
// Example:
//
//	auth := subframe.MiddlewareFunc(func(ctx context.Context, req *subframe.Request, next subframe.Handler) (*subframe.Response, error) {
//	    if req.Cookie("session") == "" {
//	        return subframe.FromRedirection("/login", 0), nil
//	    }
//	    return next.Handle(ctx, req)
//	})
type MiddlewareFunc func(ctx context.Context, req *Request, next Handler) (*Response, error)

// Process calls f(ctx, req, next).
func (f MiddlewareFunc) Process(ctx context.Context, req *Request, next Handler) (*Response, error) {
	return f(ctx, req, next)
}

// ErrorHandler converts an error that escaped the chain into a Response.
// Returning nil hands the error to the built-in error page.
type ErrorHandler func(ctx context.Context, req *Request, err error) *Response
