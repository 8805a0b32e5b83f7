// Package middlewares provides pipeline middlewares for Subframe applications.
//
// Every middleware is a subframe.Middleware: it receives the request and the
// rest of the chain, and returns a Response or an error.
//
// # Errors
//
// Errors is the exception boundary. It converts every error returned further
// down the chain into a Response: 4xx errors echo their message, anything
// else becomes a generic 500 logged with full detail server-side.
//
//	app := subframe.New(
//	    subframe.WithMiddleware(
//	        middlewares.Errors(middlewares.WithErrorView(views, "errors/page")),
//	    ),
//	)
//
// # Request ID and Logger
//
// RequestID assigns a unique ID to each request, reusing an upstream
// X-Request-ID when present. Use RequestIDExtractor() with WithLogger for an
// automatic request_id in all logs. Logger writes one access log record per request.
//
//	app := subframe.New(
//	    subframe.WithLogger("website", middlewares.RequestIDExtractor()),
//	    subframe.WithMiddleware(
//	        middlewares.RequestID(),
//	        middlewares.Logger(),
//	    ),
//	)
//
// # Recover and Timeout
//
// Recover catches panics and returns a PanicError. Timeout bounds the time
// spent downstream and returns a TimeoutError; the downstream goroutine keeps
// running, so long actions should watch ctx.Done().
//
// # CORS
//
// CORS answers preflight requests and adds CORS headers for allowed origins:
//
//	middlewares.CORS(
//	    middlewares.WithAllowOrigins("https://app.example.com"),
//	    middlewares.WithAllowCredentials(),
//	)
//
// # Cache
//
// Cache keeps rendered pages in any cache.Cache[CachedPage] and answers
// conditional GET requests with 304 using ETag and Last-Modified:
//
//	pages, _ := cache.NewFile[middlewares.CachedPage]("var/cache", nil)
//	middlewares.Cache(pages,
//	    middlewares.WithCacheTTL(10*time.Minute),
//	    middlewares.WithCacheExclude(`^/admin`),
//	)
//
// # Recommended Middleware Order
//
// Middlewares run in registration order, the first one outermost. The router
// is always the innermost link.
//
//	subframe.WithMiddleware(
//	    middlewares.RequestID(),            // assign ID for all subsequent logging
//	    middlewares.Logger(),               // access log sees the final status
//	    middlewares.Errors(),               // boundary: errors become responses
//	    middlewares.Recover(),              // panics become errors
//	    middlewares.CORS(),                 // preflight before caching
//	    middlewares.Cache(pages),           // serve and store pages
//	    middlewares.Timeout(5*time.Second), // bound dispatch time
//	)
package middlewares
