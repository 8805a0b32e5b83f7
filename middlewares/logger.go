package middlewares

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

// LoggerConfig configures the access log middleware.
type LoggerConfig struct {
	Skip  func(req *internal.Request) bool // Requests to leave out of the log
	Level slog.Level                       // Level for successful requests (default: info)
}

// LoggerOption configures LoggerConfig.
type LoggerOption func(*LoggerConfig)

// WithLoggerSkip excludes requests for which fn returns true.
func WithLoggerSkip(fn func(req *internal.Request) bool) LoggerOption {
	return func(cfg *LoggerConfig) {
		cfg.Skip = fn
	}
}

// WithLoggerLevel sets the level used for requests answered below 500.
func WithLoggerLevel(level slog.Level) LoggerOption {
	return func(cfg *LoggerConfig) {
		cfg.Level = level
	}
}

// Logger returns access log middleware. It logs one record per request with
// the method, URI, status, body size and duration, using the logger stored in
// the request context. Requests failing with an error are logged at error level.
func Logger(opts ...LoggerOption) internal.Middleware {
	cfg := &LoggerConfig{
		Level: slog.LevelInfo,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (*internal.Response, error) {
		if cfg.Skip != nil && cfg.Skip(req) {
			return next.Handle(ctx, req)
		}

		start := time.Now()
		resp, err := next.Handle(ctx, req)

		attrs := []slog.Attr{
			slog.String("method", req.Method()),
			slog.String("uri", req.URI()),
			slog.String("remote_addr", req.RemoteAddr()),
			slog.Duration("duration", time.Since(start)),
		}

		level := cfg.Level
		switch {
		case err != nil:
			level = slog.LevelError
			attrs = append(attrs, slog.Int("status", internal.StatusCode(err)), slog.String("error", err.Error()))
		case resp != nil:
			if resp.StatusCode() >= 500 {
				level = slog.LevelError
			}
			attrs = append(attrs, slog.Int("status", resp.StatusCode()), slog.Int("size", resp.BodyLen()))
		}

		logger.FromContext(ctx).LogAttrs(ctx, level, "request", attrs...)
		return resp, err
	})
}
