package middlewares_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

// respond returns a handler answering with body and status.
func respond(body string, status int) internal.Handler {
	return internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
		return internal.NewResponse(body, status, map[string]string{"Content-Type": "text/html; charset=utf-8"}), nil
	})
}

// fail returns a handler failing with err.
func fail(err error) internal.Handler {
	return internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
		return nil, err
	})
}

// capturingContext returns a context carrying a logger that writes JSON records to buf.
func capturingContext(buf *bytes.Buffer) context.Context {
	l := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger.WithContext(context.Background(), l)
}

func get(uri string, headers map[string]string) *internal.Request {
	return internal.NewRequest(http.MethodGet, uri, internal.WithHeaders(headers))
}
