package middlewares

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/subframe/internal"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists accepted origins; "*" accepts any.
	AllowOrigins []string
	// AllowOriginFunc replaces AllowOrigins when set.
	AllowOriginFunc func(origin string) bool
	AllowMethods    []string
	AllowHeaders    []string
	ExposeHeaders   []string
	// AllowCredentials echoes the origin instead of "*" and sends
	// Access-Control-Allow-Credentials.
	AllowCredentials bool
	// MaxAge is the preflight lifetime. Zero omits the header.
	MaxAge time.Duration
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOrigins = origins }
}

func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOriginFunc = fn }
}

func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowMethods = methods }
}

func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowHeaders = headers }
}

func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.ExposeHeaders = headers }
}

func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowCredentials = true }
}

func WithMaxAge(d time.Duration) CORSOption {
	return func(cfg *CORSConfig) { cfg.MaxAge = d }
}

// corsPolicy is a CORSConfig with its header values rendered once.
type corsPolicy struct {
	allow       func(origin string) bool
	echoOrigin  bool
	credentials bool
	methods     string
	headers     string
	expose      string
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	anyOrigin := slices.Contains(cfg.AllowOrigins, "*")
	p := &corsPolicy{
		allow:       cfg.AllowOriginFunc,
		echoOrigin:  cfg.AllowCredentials || !anyOrigin,
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowMethods, ", "),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
	}
	if p.allow == nil {
		p.allow = func(origin string) bool {
			return anyOrigin || slices.Contains(cfg.AllowOrigins, origin)
		}
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		p.maxAge = strconv.Itoa(secs)
	}
	return p
}

func (p *corsPolicy) decorate(resp *internal.Response, origin string) *internal.Response {
	allowed := "*"
	if p.echoOrigin {
		allowed = origin
	}
	resp = resp.AddHeader("Vary", "Origin").WithHeader("Access-Control-Allow-Origin", allowed)
	if p.credentials {
		resp = resp.WithHeader("Access-Control-Allow-Credentials", "true")
	}
	if p.expose != "" {
		resp = resp.WithHeader("Access-Control-Expose-Headers", p.expose)
	}
	return resp
}

func (p *corsPolicy) preflight(origin string) *internal.Response {
	resp := p.decorate(internal.NewResponse("", http.StatusNoContent, nil), origin).
		AddHeader("Vary", "Access-Control-Request-Method").
		AddHeader("Vary", "Access-Control-Request-Headers").
		WithHeader("Access-Control-Allow-Methods", p.methods).
		WithHeader("Access-Control-Allow-Headers", p.headers)
	if p.maxAge != "" {
		resp = resp.WithHeader("Access-Control-Max-Age", p.maxAge)
	}
	return resp
}

// CORS answers preflight OPTIONS requests from allowed origins on its own and
// adds CORS headers to the other responses they get. Requests from other
// origins pass through unchanged and the browser blocks them.
//
// Defaults: any origin, the common methods, Origin, Content-Type, Accept and
// Authorization request headers, and a 12 hour preflight lifetime.
func CORS(opts ...CORSOption) internal.Middleware {
	cfg := CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	policy := newCORSPolicy(cfg)

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (*internal.Response, error) {
		origin := req.Header("Origin")
		if origin == "" || !policy.allow(origin) {
			return next.Handle(ctx, req)
		}
		if req.Method() == http.MethodOptions {
			return policy.preflight(origin), nil
		}

		resp, err := next.Handle(ctx, req)
		if resp != nil {
			resp = policy.decorate(resp, origin)
		}
		return resp, err
	})
}
