package internal

import (
	"context"
	"log/slog"
	"time"
)

// RunOption configures App.Run.
type RunOption func(*runConfig)

type runConfig struct {
	baseCtx         context.Context
	logger          *slog.Logger
	shutdownTimeout time.Duration
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	background      []func(context.Context) error
}

// Logger replaces the App logger for server lifecycle messages.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout bounds draining connections and the shutdown hooks
// together. Default: 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// StartupHook runs fn before the listener opens. A failing hook aborts Run
// with its error and nothing else is started.
//
//	subframe.StartupHook(func(ctx context.Context) error {
//	    return pages.Clear(ctx, "")
//	})
func StartupHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.startupHooks = append(c.startupHooks, fn)
		}
	}
}

// ShutdownHook runs fn once the server stopped and background tasks
// returned, in registration order.
//
//	subframe.ShutdownHook(redis.Closer(client))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// Background runs fn for the lifetime of the server. Its context ends on
// shutdown; returning an error shuts the server down.
//
//	subframe.Background(scheduler.Start)
func Background(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.background = append(c.background, fn)
		}
	}
}

// WithContext sets the parent context. Cancelling it stops the server the
// same way SIGINT does.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
