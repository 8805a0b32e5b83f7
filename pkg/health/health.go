package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/subframe/pkg/logger"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency. redis.Probe and (*sql.DB).PingContext
// both fit.
type CheckFunc func(ctx context.Context) error

// Checks maps check names to probes.
type Checks map[string]CheckFunc

// Response is the JSON body of the readiness endpoint.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the outcome of one probe.
type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures how checks run.
type Option func(*config)

// WithTimeout bounds all checks together. Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger receives a warning per failed check.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) config {
	cfg := config{timeout: 5 * time.Second, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Run executes checks concurrently. The returned error joins ErrCheckFailed
// with one "name: cause" error per failed check, in name order; checks cut
// off by the timeout report ErrCheckTimeout as their cause.
func Run(ctx context.Context, checks Checks, opts ...Option) (*Response, error) {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg config) (*Response, error) {
	resp := &Response{Status: StatusHealthy}
	if len(checks) == 0 {
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var mu sync.Mutex
	causes := make(map[string]error)
	resp.Checks = make(map[string]Check, len(checks))

	// Plain Group: one failing check must not cancel the others.
	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			err := check(ctx)
			if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
				err = ErrCheckTimeout
			}

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				resp.Checks[name] = Check{Status: StatusHealthy}
				return nil
			}
			resp.Checks[name] = Check{Status: StatusUnhealthy, Error: err.Error()}
			causes[name] = err
			return nil
		})
	}
	_ = g.Wait()

	if len(causes) == 0 {
		return resp, nil
	}

	resp.Status = StatusUnhealthy
	errs := []error{ErrCheckFailed}
	for _, name := range slices.Sorted(maps.Keys(causes)) {
		cfg.logger.WarnContext(ctx, "health check failed",
			slog.String("check", name),
			slog.String("error", causes[name].Error()),
		)
		errs = append(errs, fmt.Errorf("%s: %w", name, causes[name]))
	}
	return resp, errors.Join(errs...)
}
