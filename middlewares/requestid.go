package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

type requestIDKey struct{}

// maxRequestIDLen bounds IDs accepted from upstream headers.
const maxRequestIDLen = 128

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string // Default: UUIDv7
	ResponseHeader string        // Empty: do not echo the ID
	Headers        []string      // Checked in order for an upstream ID
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

// RequestID gives every request an ID: the first acceptable value among the
// upstream headers (X-Request-ID, then X-Correlation-ID) or a fresh one.
// Upstream values longer than 128 bytes or containing anything but printable
// ASCII are ignored. The ID is stored in the context, echoed on the response
// and picked up by loggers built with RequestIDExtractor.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	cfg := RequestIDConfig{
		Headers:        []string{"X-Request-ID", "X-Correlation-ID"},
		Generator:      newRequestID,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return internal.MiddlewareFunc(func(ctx context.Context, req *internal.Request, next internal.Handler) (*internal.Response, error) {
		id := upstreamRequestID(req, cfg.Headers)
		if id == "" {
			id = cfg.Generator()
		}

		resp, err := next.Handle(context.WithValue(ctx, requestIDKey{}, id), req)
		if resp != nil && cfg.ResponseHeader != "" {
			resp = resp.WithHeader(cfg.ResponseHeader, id)
		}
		return resp, err
	})
}

func upstreamRequestID(req *internal.Request, headers []string) string {
	for _, h := range headers {
		if v := req.Header(h); validRequestID(v) {
			return v
		}
	}
	return ""
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID returns the ID set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDExtractor adds request_id to records logged with a request
// context. Pass it to logger.NewFromConfig or subframe.WithLogger.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id := GetRequestID(ctx)
		return slog.String("request_id", id), id != ""
	}
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
