package subframe

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/health"
	"github.com/dmitrymomot/subframe/pkg/logger"
	"github.com/dmitrymomot/subframe/pkg/view"
)

// Type aliases - public API
type (
	// App wires the middleware chain, the router and the HTTP server together.
	App = internal.App

	// Request is an immutable snapshot of an incoming request.
	Request = internal.Request

	// Response is an immutable outgoing response.
	Response = internal.Response

	// Handler handles a request and produces a response.
	Handler = internal.Handler

	// HandlerFunc adapts a function to Handler.
	HandlerFunc = internal.HandlerFunc

	// Middleware is a link of the processing chain.
	Middleware = internal.Middleware

	// MiddlewareFunc adapts a function to Middleware.
	MiddlewareFunc = internal.MiddlewareFunc

	// Chain runs middlewares in order, each one deciding whether to call the next.
	Chain = internal.Chain

	// Router dispatches requests to explicit routes, view routes and namespaces.
	Router = internal.Router

	// Namespace resolves URIs to registered action classes by convention.
	Namespace = internal.Namespace

	// Actions maps action names of one class to their implementations.
	Actions = internal.Actions

	// Action is a namespace action with its accepted argument count.
	Action = internal.Action

	// ResolvedRoute is the outcome of a namespace lookup.
	ResolvedRoute = internal.ResolvedRoute

	// ActionFunc is the signature of route actions.
	ActionFunc = internal.ActionFunc

	// Call carries the request, route arguments and output of one action call.
	Call = internal.Call

	// Result is what an action returns: Text, Data, Done, NotHandled or a *Response.
	Result = internal.Result

	// ErrorHandler turns an error escaping the chain into a response.
	ErrorHandler = internal.ErrorHandler

	// ErrorResponder is the default error-to-response mapping.
	ErrorResponder = internal.ErrorResponder

	// ErrorPage is the data passed to error views and encoded in JSON error bodies.
	ErrorPage = internal.ErrorPage

	// HTTPError is an error carrying an HTTP status code.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// UploadedFile describes one uploaded file.
	UploadedFile = internal.UploadedFile

	// UploadErrorCode is the transport's per-file upload status.
	UploadErrorCode = internal.UploadErrorCode

	// UploadError reports an invalid upload with its status code.
	UploadError = internal.UploadError

	// ViewError wraps a failure of the view renderer.
	ViewError = internal.ViewError

	// RequestOption configures a literal Request.
	RequestOption = internal.RequestOption

	// SourceOption configures a Request built from an *http.Request.
	SourceOption = internal.SourceOption

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// Renderer renders named views.
	Renderer = view.Renderer

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// Scalar lists the types supported by the typed value helpers.
	Scalar = internal.Scalar
)

// Upload status codes.
const (
	UploadOK              = internal.UploadOK
	UploadErrSizeExceeded = internal.UploadErrSizeExceeded
	UploadErrFormSize     = internal.UploadErrFormSize
	UploadErrPartial      = internal.UploadErrPartial
	UploadErrNoFile       = internal.UploadErrNoFile
	UploadErrNoTempDir    = internal.UploadErrNoTempDir
	UploadErrCantWrite    = internal.UploadErrCantWrite
	UploadErrExtension    = internal.UploadErrExtension
)

// Errors
var (
	ErrEmptyMiddlewareStack = internal.ErrEmptyMiddlewareStack
	ErrRouteNotFound        = internal.ErrRouteNotFound
	ErrPayloadTooLarge      = internal.ErrPayloadTooLarge
	ErrNoRenderer           = internal.ErrNoRenderer
	ErrViewRender           = internal.ErrViewRender
	ErrSizeExceeded         = internal.ErrSizeExceeded
	ErrPartialUpload        = internal.ErrPartialUpload
	ErrNoTempDir            = internal.ErrNoTempDir
	ErrWriteError           = internal.ErrWriteError
	ErrExtensionBlocked     = internal.ErrExtensionBlocked
	ErrUploadFailed         = internal.ErrUploadFailed
)

// Constructors

// New creates an application. Routes and middlewares can be added afterwards;
// the chain is rebuilt on every change.
//
// Example:
//
//	app := subframe.New(
//	    subframe.WithMiddleware(middlewares.Errors(), middlewares.Logger()),
//	    subframe.WithViews(view.NewTemplates(views)),
//	)
//	app.Get(`/posts/(\d+)`, showPost)
//	app.Namespace(site)
//
//	err := app.Run(":8080")
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// NewRequest builds a request from literal parts.
func NewRequest(method, uri string, opts ...RequestOption) *Request {
	return internal.NewRequest(method, uri, opts...)
}

// FromHTTP builds a request from an *http.Request.
func FromHTTP(r *http.Request, opts ...SourceOption) *Request {
	return internal.FromHTTP(r, opts...)
}

// NewResponse builds a response. A zero status means 200.
func NewResponse(body string, status int, headers map[string]string) *Response {
	return internal.NewResponse(body, status, headers)
}

// NewResponseBytes builds a response from a byte body.
func NewResponseBytes(body []byte, status int, headers map[string]string) *Response {
	return internal.NewResponseBytes(body, status, headers)
}

// FromView renders a named view into an HTML response.
func FromView(ctx context.Context, r Renderer, name string, data any, status int) (*Response, error) {
	return internal.FromView(ctx, r, name, data, status)
}

// FromComponent renders a templ component into an HTML response.
func FromComponent(ctx context.Context, c templ.Component, status int) (*Response, error) {
	return internal.FromComponent(ctx, c, status)
}

// FromData encodes v as a JSON response.
func FromData(v any, status int) (*Response, error) {
	return internal.FromData(v, status)
}

// FromRedirection builds a redirect. A zero status means 302.
func FromRedirection(url string, status int) *Response {
	return internal.FromRedirection(url, status)
}

// NewChain builds a middleware chain. The first link is the outermost.
func NewChain(links ...Middleware) *Chain {
	return internal.NewChain(links...)
}

// NewRouter creates a router. The renderer serves view routes and may be nil.
func NewRouter(r Renderer) *Router {
	return internal.NewRouter(r)
}

// NewNamespace creates a namespace registry rooted at name.
func NewNamespace(name string) *Namespace {
	return internal.NewNamespace(name)
}

// Fixed declares an action taking exactly n arguments.
func Fixed(n int, fn ActionFunc) Action {
	return internal.Fixed(n, fn)
}

// Optional declares an action taking between required and total arguments.
func Optional(required, total int, fn ActionFunc) Action {
	return internal.Optional(required, total, fn)
}

// Variadic declares an action taking at least required arguments.
func Variadic(required int, fn ActionFunc) Action {
	return internal.Variadic(required, fn)
}

// Results

// NotHandled lets dispatch continue with the next route.
func NotHandled() Result { return internal.NotHandled() }

// Text answers with an HTML body.
func Text(s string) Result { return internal.Text(s) }

// Data answers with a JSON body.
func Data(v any) Result { return internal.Data(v) }

// Done answers with the output written to Call.Writer.
func Done() Result { return internal.Done() }

// HTTP errors

// NewHTTPError creates an error answered with the given status.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrMethodNotAllowed(message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrServiceUnavailable(message, opts...)
}

// WithDetail adds a detail line shown for client errors.
func WithDetail(detail string) HTTPErrorOption { return internal.WithDetail(detail) }

// WithRequestID attaches a request ID to the error.
func WithRequestID(id string) HTTPErrorOption { return internal.WithRequestID(id) }

// WithError sets the underlying cause.
func WithError(err error) HTTPErrorOption { return internal.WithError(err) }

// AsHTTPError extracts an *HTTPError from the error chain.
func AsHTTPError(err error) *HTTPError { return internal.AsHTTPError(err) }

// StatusCode maps any error to the HTTP status it should be answered with.
func StatusCode(err error) int { return internal.StatusCode(err) }

// CanonicalHeaderName returns the canonical form of a header name.
func CanonicalHeaderName(name string) string { return internal.CanonicalHeaderName(name) }

// Typed value helpers

// QueryValue returns a query parameter converted to T, or the zero value.
func QueryValue[T Scalar](req *Request, name string) T {
	return internal.QueryValue[T](req, name)
}

// QueryDefault returns a query parameter converted to T, or def.
func QueryDefault[T Scalar](req *Request, name string, def T) T {
	return internal.QueryDefault(req, name, def)
}

// PostValue returns a form field converted to T, or the zero value.
func PostValue[T Scalar](req *Request, name string) T {
	return internal.PostValue[T](req, name)
}

// ArgValue returns the i-th route argument converted to T, or the zero value.
func ArgValue[T Scalar](c *Call, i int) T {
	return internal.ArgValue[T](c, i)
}

// ArgDefault returns the i-th route argument converted to T, or def.
func ArgDefault[T Scalar](c *Call, i int, def T) T {
	return internal.ArgDefault(c, i, def)
}

// Request options

func WithQuery(q map[string]string) RequestOption                 { return internal.WithQuery(q) }
func WithPostBody(b map[string]string) RequestOption              { return internal.WithPostBody(b) }
func WithCookies(c map[string]string) RequestOption               { return internal.WithCookies(c) }
func WithUploadedFiles(f map[string][]UploadedFile) RequestOption { return internal.WithUploadedFiles(f) }
func WithServerParams(s map[string]string) RequestOption          { return internal.WithServerParams(s) }
func WithHeaders(h map[string]string) RequestOption               { return internal.WithHeaders(h) }
func WithRawBody(b []byte) RequestOption                          { return internal.WithRawBody(b) }

// WithBodyLimit caps the parsed request body. Larger bodies leave the
// request empty and surface ErrPayloadTooLarge.
func WithBodyLimit(n int64) SourceOption { return internal.WithBodyLimit(n) }

// WithFileLimit caps the size of each uploaded file.
func WithFileLimit(n int64) SourceOption { return internal.WithFileLimit(n) }

// WithMemoryLimit sets how much uploaded file data is kept in memory.
func WithMemoryLimit(n int64) SourceOption { return internal.WithMemoryLimit(n) }

// App options

// WithMiddleware adds middlewares. The first one registered is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithViews sets the renderer used by view routes, Call.View and error views.
func WithViews(r Renderer) Option {
	return internal.WithViews(r)
}

// WithErrorView renders errors escaping the chain with the named view.
func WithErrorView(name string) Option {
	return internal.WithErrorView(name)
}

// WithStaticFiles mounts a static file handler at the given pattern.
// Directory listings are disabled.
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
	return internal.WithStaticFiles(pattern, fsys, subDir)
}

// WithErrorHandler replaces the default error responder.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithHealthChecks enables liveness and readiness endpoints.
//
// Example:
//
//	subframe.WithHealthChecks(
//	    subframe.WithReadinessCheck("redis", redis.Probe(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithBasePath routes request URIs relative to the given path.
func WithBasePath(path string) Option {
	return internal.WithBasePath(path)
}

// WithPathInfo routes on the PATH_INFO server variable.
func WithPathInfo() Option {
	return internal.WithPathInfo()
}

// WithMaxBodyBytes caps parsed request bodies.
func WithMaxBodyBytes(n int64) Option {
	return internal.WithMaxBodyBytes(n)
}

// WithMaxFileBytes caps each uploaded file.
func WithMaxFileBytes(n int64) Option {
	return internal.WithMaxFileBytes(n)
}

// WithLogger creates a logger with a component name and optional extractors.
//
// Example:
//
//	subframe.WithLogger("website", middlewares.RequestIDExtractor())
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets a fully configured logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// Health options

func WithLivenessPath(path string) HealthOption  { return internal.WithLivenessPath(path) }
func WithReadinessPath(path string) HealthOption { return internal.WithReadinessPath(path) }
func WithReadinessTimeout(d time.Duration) HealthOption {
	return internal.WithReadinessTimeout(d)
}

// WithReadinessCheck adds a named check to the readiness endpoint.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Run options

// Logger sets the runtime logger. Defaults to the app logger.
func Logger(l *slog.Logger) RunOption { return internal.Logger(l) }

// ShutdownTimeout bounds graceful shutdown. Default: 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption { return internal.ShutdownTimeout(d) }

// StartupHook runs before the server starts listening.
func StartupHook(fn func(context.Context) error) RunOption { return internal.StartupHook(fn) }

// ShutdownHook runs after the server stopped.
func ShutdownHook(fn func(context.Context) error) RunOption { return internal.ShutdownHook(fn) }

// Background runs fn alongside the server until shutdown.
// A failing background task stops the server.
func Background(fn func(context.Context) error) RunOption { return internal.Background(fn) }

// WithContext sets the base context. Cancelling it stops the server.
func WithContext(ctx context.Context) RunOption { return internal.WithContext(ctx) }
