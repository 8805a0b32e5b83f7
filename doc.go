// Package subframe is a small web framework built around an explicit request
// pipeline: immutable requests and responses, a chain of middlewares, and a
// router that dispatches by pattern, by view name or by naming convention.
//
// # Quick Start
//
//	app := subframe.New(
//	    subframe.WithLogger("website", middlewares.RequestIDExtractor()),
//	    subframe.WithMiddleware(
//	        middlewares.Errors(),
//	        middlewares.RequestID(),
//	        middlewares.Logger(),
//	    ),
//	    subframe.WithViews(view.NewTemplates(views)),
//	)
//
//	app.Get(`/posts/(\d+)`, func(c *subframe.Call) (subframe.Result, error) {
//	    return c.View("posts/show", subframe.ArgValue[int64](c, 0))
//	})
//	app.View("/about", "pages/about", nil)
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pipeline
//
// Every request becomes a [Request], passes through the middlewares in the
// order they were registered and reaches the [Router] last. A middleware may
// answer on its own, call the rest of the chain, or change the [Response] on
// its way back. Responses and requests are never modified in place: every
// With* method returns a copy.
//
//	logTime := subframe.MiddlewareFunc(func(ctx context.Context, req *subframe.Request, next subframe.Handler) (*subframe.Response, error) {
//	    start := time.Now()
//	    resp, err := next.Handle(ctx, req)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return resp.WithHeader("X-Elapsed", time.Since(start).String()), nil
//	})
//
// # Routing
//
// Explicit routes match the method and an anchored regular expression; the
// capture groups become the action arguments. View routes render a named
// view for GET requests. A [Namespace] maps URIs onto registered action
// classes without listing every route:
//
//	site := subframe.NewNamespace("Site").
//	    Register("Home", subframe.Actions{"getIndex": subframe.Fixed(0, home)}).
//	    Register("Blog", subframe.Actions{"get": subframe.Optional(0, 1, blog)})
//	app.Namespace(site)
//
// An action returning [NotHandled] passes the request on to the next route.
// When nothing matches, the router answers [ErrRouteNotFound].
//
// # Caching
//
// The middlewares.Cache middleware stores rendered pages in any pkg/cache
// backend (file, memory, Redis or SQLite) and answers conditional GET
// requests with 304 Not Modified.
//
// # Errors
//
// Errors escaping the chain are turned into responses: client errors echo
// their message, server errors are logged and hidden. Install
// middlewares.Errors as the outermost link to get the same mapping inside
// the chain, so that other middlewares observe the final response.
package subframe
