package internal

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/subframe/pkg/logger"
	"github.com/dmitrymomot/subframe/pkg/view"
)

// Option configures the application.
type Option func(*App)

// WithMiddleware adds middlewares to the chain.
// They run in the order provided, the first one outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithViews sets the view renderer used by view routes, Call.View and the
// default error page.
//
// Example:
//
//	subframe.WithViews(view.Stack(
//	    view.NewTemplates(os.DirFS("views")),
//	    view.NewMarkdown(os.DirFS("content")),
//	))
func WithViews(r view.Renderer) Option {
	return func(a *App) {
		a.renderer = r
	}
}

// WithErrorView renders errors that escaped the chain with the named view.
// The view receives an ErrorPage. Ignored when WithErrorHandler is set.
func WithErrorView(name string) Option {
	return func(a *App) {
		a.errorView = name
	}
}

// WithStaticFiles mounts a static file handler at the given pattern, ahead of
// the pipeline. Directory listings are disabled.
//
// Example:
//
//	//go:embed public
//	var assets embed.FS
//
//	subframe.New(
//	    subframe.WithStaticFiles("/static/", assets, "public"),
//	)
func WithStaticFiles(pattern string, fsys fs.FS, subDir string) Option {
	return func(a *App) {
		subFS, err := fs.Sub(fsys, subDir)
		if err != nil {
			panic(err)
		}

		fileServer := http.StripPrefix(strings.TrimSuffix(pattern, "/"), http.FileServerFS(subFS))

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Block directory listings
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}

			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("X-Content-Type-Options", "nosniff")

			fileServer.ServeHTTP(w, r)
		})

		a.staticRoutes = append(a.staticRoutes, staticRoute{handler, pattern})
	}
}

// WithErrorHandler replaces the conversion of errors that escaped the chain.
// It is only reached when no Errors middleware handled the error.
//
// Example:
//
//	subframe.WithErrorHandler(func(ctx context.Context, req *subframe.Request, err error) *subframe.Response {
//	    return subframe.NewResponse("Something went wrong", subframe.StatusCode(err), nil)
//	})
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		a.errorHandler = h
	}
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	subframe.WithHealthChecks(
//	    subframe.WithReadinessCheck("redis", redis.Probe(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		a.probes = newProbes(opts...)
	}
}

// WithBasePath serves the application from a sub-directory.
// Request URIs are made relative to it before routing.
func WithBasePath(path string) Option {
	return func(a *App) {
		a.basePath = path
	}
}

// WithPathInfo routes on the CGI PATH_INFO variable instead of the request path.
// Use it behind a front controller that passes the routed path that way.
func WithPathInfo() Option {
	return func(a *App) {
		a.pathInfo = true
	}
}

// WithMaxBodyBytes limits the request body size parsed into form values and files.
// Defaults to 32MB.
func WithMaxBodyBytes(n int64) Option {
	return func(a *App) {
		a.sourceOpts = append(a.sourceOpts, WithBodyLimit(n))
	}
}

// WithMaxFileBytes flags uploaded files above n bytes with UploadErrSizeExceeded.
func WithMaxFileBytes(n int64) Option {
	return func(a *App) {
		a.sourceOpts = append(a.sourceOpts, WithFileLimit(n))
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id).
//
// Example:
//
//	subframe.New(
//	    subframe.WithLogger("website", middlewares.RequestIDExtractor()),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
// Use this when you need complete control over logging configuration.
//
// Example:
//
//	l, _ := logger.NewFromConfig(cfg.Log, os.Stderr, middlewares.RequestIDExtractor())
//	subframe.New(
//	    subframe.WithCustomLogger(l),
//	)
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}
