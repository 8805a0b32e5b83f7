package middlewares

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

const defaultStackSize = 4 << 10

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	StackSize         int  // Bytes of stack to capture (default: 4 KiB)
	DisablePrintStack bool // Skip stack capture entirely
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.StackSize = size
	}
}

func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// Recover turns a panic further down the chain into a *PanicError, after
// logging it with the request method and URI. Place it inside Errors so the
// boundary renders the 500.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := RecoverConfig{StackSize: defaultStackSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	stackSize := cfg.StackSize
	if cfg.DisablePrintStack {
		stackSize = 0
	}

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (resp *internal.Response, err error) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}

			pe := recovered(v, stackSize)
			log := logger.FromContext(ctx).With(
				slog.Any("panic", v),
				slog.String("method", req.Method()),
				slog.String("uri", req.URI()),
			)
			if pe.Stack != nil {
				log = log.With(slog.String("stack", string(pe.Stack)))
			}
			log.ErrorContext(ctx, "panic recovered")

			resp, err = nil, pe
		}()

		return next.Handle(ctx, req)
	})
}
