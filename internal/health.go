package internal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/subframe/pkg/health"
)

// probes are the health endpoints served beside the pipeline. They bypass
// the middleware chain, so a broken cache or error view cannot fail them.
type probes struct {
	checks    health.Checks
	livePath  string
	readyPath string
	timeout   time.Duration
}

func newProbes(opts ...HealthOption) *probes {
	p := &probes{
		checks:    health.Checks{},
		livePath:  "/health/live",
		readyPath: "/health/ready",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HealthOption configures the health endpoints.
type HealthOption func(*probes)

// WithLivenessPath moves the liveness endpoint. Default: /health/live.
func WithLivenessPath(path string) HealthOption {
	return func(p *probes) {
		if path != "" {
			p.livePath = path
		}
	}
}

// WithReadinessPath moves the readiness endpoint. Default: /health/ready.
func WithReadinessPath(path string) HealthOption {
	return func(p *probes) {
		if path != "" {
			p.readyPath = path
		}
	}
}

// WithReadinessTimeout bounds the time all readiness checks may take together.
func WithReadinessTimeout(d time.Duration) HealthOption {
	return func(p *probes) {
		p.timeout = d
	}
}

// WithReadinessCheck adds a named readiness check. A later check with the
// same name replaces the earlier one.
//
//	subframe.WithReadinessCheck("redis", redis.Probe(client))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(p *probes) {
		if fn != nil {
			p.checks[name] = fn
		}
	}
}

// mount registers the endpoints for GET and HEAD.
func (p *probes) mount(mux chi.Router, log *slog.Logger) {
	live := health.LivenessHandler()
	ready := health.ReadinessHandler(p.checks,
		health.WithLogger(log),
		health.WithTimeout(p.timeout),
	)
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		mux.Method(method, p.livePath, live)
		mux.Method(method, p.readyPath, ready)
	}
}
