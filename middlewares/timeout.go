package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

// DefaultTimeout applies when Timeout is given a non-positive duration.
const DefaultTimeout = 30 * time.Second

// Timeout bounds the time spent further down the chain. The context handed to
// next carries the deadline; when it passes first, a *TimeoutError is
// returned and the response produced later is discarded. A panic downstream
// comes back as a *PanicError since it happens on another goroutine.
//
// Long-running actions should watch ctx.Done() to stop early.
func Timeout(timeout time.Duration) internal.Middleware {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type result struct {
		resp *internal.Response
		err  error
	}

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (*internal.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan result, 1)
		go func() {
			// A panic here would escape any Recover installed outside.
			defer func() {
				if v := recover(); v != nil {
					done <- result{err: recovered(v, defaultStackSize)}
				}
			}()
			resp, err := next.Handle(ctx, req)
			done <- result{resp: resp, err: err}
		}()

		select {
		case r := <-done:
			return r.resp, r.err
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.FromContext(ctx).WarnContext(ctx, "request timeout",
					slog.String("timeout", timeout.String()),
					slog.String("uri", req.URI()),
				)
				return nil, &TimeoutError{Duration: timeout}
			}
			return nil, ctx.Err()
		}
	})
}
