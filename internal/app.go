package internal

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/subframe/pkg/logger"
	"github.com/dmitrymomot/subframe/pkg/view"
)

// App wires the pipeline together: it turns transport requests into
// Requests, runs them through the middleware chain and the router, and
// sends the resulting Response.
//
// Configure the App with options and register routes before serving.
// Registration methods are not safe for concurrent use with serving.
type App struct {
	router       *Router
	chain        *Chain
	renderer     view.Renderer
	errorHandler ErrorHandler
	fallback     ErrorResponder
	probes       *probes
	logger       *slog.Logger
	basePath     string
	errorView    string
	middlewares  []Middleware
	sourceOpts   []SourceOption
	staticRoutes []staticRoute
	pathInfo     bool
}

// staticRoute represents a static file handler mount point.
type staticRoute struct {
	handler http.Handler
	pattern string
}

// New creates a new application with the given options.
//
// Example:
//
//	app := subframe.New(
//	    subframe.WithLogger("website", middlewares.RequestIDExtractor()),
//	    subframe.WithViews(view.NewTemplates(os.DirFS("views"))),
//	    subframe.WithMiddleware(middlewares.RequestID(), middlewares.Errors()),
//	)
//	app.Get(`/posts/(\d+)`, showPost)
//	app.Namespace(pages)
func New(opts ...Option) *App {
	a := &App{
		logger: logger.NewNope(), // Default: noop logger (before options)
	}

	for _, opt := range opts {
		opt(a)
	}

	a.router = NewRouter(a.renderer)
	a.fallback = ErrorResponder{Renderer: a.renderer, View: a.errorView}
	if a.errorHandler == nil {
		a.errorHandler = a.fallback.Respond
	}
	a.rebuild()

	return a
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Router returns the application router.
func (a *App) Router() *Router {
	return a.router
}

// Use appends middlewares to the chain. A middleware added later sits
// closer to the router; the router is always the innermost link.
func (a *App) Use(mw ...Middleware) {
	a.middlewares = append(a.middlewares, mw...)
	a.rebuild()
}

// Namespace registers a convention-based namespace.
func (a *App) Namespace(ns *Namespace) {
	a.router.AddNamespace(ns)
}

// Get registers an explicit GET route. See Router.AddRoute for the pattern syntax.
func (a *App) Get(pattern string, fn ActionFunc) {
	a.router.AddRoute(http.MethodGet, pattern, fn)
}

// Post registers an explicit POST route.
func (a *App) Post(pattern string, fn ActionFunc) {
	a.router.AddRoute(http.MethodPost, pattern, fn)
}

// Put registers an explicit PUT route.
func (a *App) Put(pattern string, fn ActionFunc) {
	a.router.AddRoute(http.MethodPut, pattern, fn)
}

// Patch registers an explicit PATCH route.
func (a *App) Patch(pattern string, fn ActionFunc) {
	a.router.AddRoute(http.MethodPatch, pattern, fn)
}

// Delete registers an explicit DELETE route.
func (a *App) Delete(pattern string, fn ActionFunc) {
	a.router.AddRoute(http.MethodDelete, pattern, fn)
}

// Options registers an explicit OPTIONS route.
func (a *App) Options(pattern string, fn ActionFunc) {
	a.router.AddRoute(http.MethodOptions, pattern, fn)
}

// View registers a GET route presenting a view with fixed data.
func (a *App) View(uri, name string, data any) {
	a.router.AddView(uri, name, data)
}

// Handle runs req through the middleware chain and the router.
func (a *App) Handle(ctx context.Context, req *Request) (*Response, error) {
	return a.chain.Handle(ctx, req)
}

// ServeHTTP implements http.Handler for the pipeline alone.
// Errors that escaped the chain are turned into a Response by the error handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithContext(r.Context(), a.logger)

	req := FromHTTP(r, a.sourceOpts...)
	if a.pathInfo {
		req = req.PathInfo()
	}
	if a.basePath != "" {
		req = req.RelativeTo(a.basePath)
	}

	resp, err := a.Handle(ctx, req)
	if err == nil && resp == nil {
		err = ErrRouteNotFound
	}
	if err != nil {
		if resp = a.errorHandler(ctx, req, err); resp == nil {
			resp = a.fallback.Respond(ctx, req, err)
		}
	}

	if err := resp.Send(w); err != nil {
		a.logger.WarnContext(ctx, "response send failed",
			slog.String("uri", req.URI()),
			slog.String("error", err.Error()),
		)
	}
}

// Handler returns the complete HTTP handler: static file mounts and health
// endpoints served by chi, and the pipeline for every other request.
func (a *App) Handler() http.Handler {
	mux := chi.NewRouter()

	for _, sr := range a.staticRoutes {
		mux.Mount(sr.pattern, sr.handler)
	}

	if a.probes != nil {
		a.probes.mount(mux, a.logger)
	}

	mux.Handle("/*", a)

	return mux
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	err := app.Run(":8080",
//	    subframe.Background(scheduler.Start),
//	    subframe.ShutdownHook(redis.Closer(client)),
//	)
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := runConfig{logger: a.logger}
	for _, opt := range opts {
		opt(&cfg)
	}
	return newServer(addr, a.Handler(), cfg).run()
}

// rebuild recreates the chain with the router as the innermost link.
func (a *App) rebuild() {
	if a.router == nil {
		return
	}
	links := append(slices.Clone(a.middlewares), Middleware(a.router))
	a.chain = NewChain(links...)
}
