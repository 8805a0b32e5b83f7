// Package internal provides the core types and implementation for the Subframe framework.
//
// This package is internal and should not be used directly. Import "github.com/dmitrymomot/subframe"
// instead, which re-exports the public API.
//
// # Core Types
//
// The package defines the fundamental types of the request pipeline:
//
//   - Request: Immutable snapshot of an incoming request (headers, query, body, cookies, files, server variables)
//   - Response: Immutable status, ordered header fields and body; every modifier returns a copy
//   - Handler: Produces a Response for a Request
//   - Middleware: One link of the chain; receives the request and the rest of the chain
//   - Chain: Ordered, reusable sequence of middleware links
//   - Router: Innermost link; dispatches to explicit, view and namespace routes
//   - Namespace: Convention-based registry of controller classes and actions
//   - Call: Per-dispatch state handed to actions (arguments, status, output buffer)
//   - Result: What an action returns (Text, Data, Done, NotHandled, or a *Response)
//   - App: Wires transport, chain and router together and runs the server
//
// # Pipeline
//
// A request flows through the middlewares in registration order and reaches
// the router last. Each middleware may short-circuit by returning without
// calling next, or post-process the Response on the way back:
//
//	app := internal.New(
//	    internal.WithMiddleware(timing, auth),
//	)
//	// timing(pre) -> auth(pre) -> router -> auth(post) -> timing(post)
//
// # Routing
//
// Routes are tried in registration order. The first one producing a Response
// wins; an action returning NotHandled lets the scan continue.
//
//	app.Get(`/posts/(\d+)`, func(c *internal.Call) (internal.Result, error) {
//	    return internal.Text("post " + c.Arg(0)), nil
//	})
//	app.View("/about", "pages/about", nil)
//	app.Namespace(internal.NewNamespace("Site").
//	    Register("Blog", internal.Actions{
//	        "getIndex": internal.Fixed(0, blogIndex),
//	        "getPost":  internal.Fixed(1, blogPost),
//	    }))
//
// "GET /blog/post/hello" resolves to Site\Blog::getPost("hello"). Class
// candidates are scanned deepest first; at each depth the Home class comes
// before the segment class. Action names are matched case-insensitively and
// their arity is checked against the number of remaining segments.
//
// # Error Handling
//
// Actions and middlewares return errors. Errors carrying a StatusCode() int
// method keep their status; everything else is a 500. When an error escapes
// the chain, App converts it with the ErrorResponder: client errors echo
// their message, server errors are logged and answered generically.
//
// # Server Runtime
//
// Start the server with Run(). Static files and health probes are served by
// chi ahead of the pipeline:
//
//	err := app.Run(":8080",
//	    internal.Background(scheduler.Start),
//	    internal.ShutdownHook(redis.Closer(client)),
//	)
//
// # Design Principles
//
//   - No magic: Explicit registries, no reflection, no service containers
//   - Immutable values: Requests and Responses are never mutated in place
//   - Constructor injection: All dependencies visible in main.go
//   - Errors are values: every failure travels as an error until the boundary
//
// See the subframe package documentation for the public API and usage examples.
package internal
