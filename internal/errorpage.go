package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/subframe/pkg/logger"
	"github.com/dmitrymomot/subframe/pkg/view"
)

// ErrorPage is the data handed to the error view.
type ErrorPage struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Status    int    `json:"status"`
}

// ErrorResponder converts errors that escaped the chain into responses.
//
// Client errors (4xx) echo their message. Server errors hide it behind the
// status text and are logged with the request details instead.
// The body is JSON when the request accepts JSON, the error view when one
// is configured, and plain text otherwise.
type ErrorResponder struct {
	Renderer  view.Renderer
	RequestID func(ctx context.Context) string
	View      string
}

// stackTracer is implemented by errors that captured a stack, like recovered panics.
type stackTracer interface {
	StackTrace() []byte
}

// Respond builds the response for err.
func (e ErrorResponder) Respond(ctx context.Context, req *Request, err error) *Response {
	status := StatusCode(err)
	page := ErrorPage{
		Status: status,
		Title:  http.StatusText(status),
	}

	if e.RequestID != nil {
		page.RequestID = e.RequestID(ctx)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RequestID != "" {
		page.RequestID = httpErr.RequestID
	}

	if status < http.StatusInternalServerError {
		page.Message = err.Error()
		if httpErr != nil {
			page.Message = httpErr.Message
			page.Detail = httpErr.Detail
		}
	} else {
		page.Message = page.Title
		e.log(ctx, req, err, status)
	}

	if req.AcceptsJSON() {
		resp, jerr := FromData(map[string]ErrorPage{"error": page}, status)
		if jerr == nil {
			return resp
		}
	}

	if e.Renderer != nil && e.View != "" {
		resp, verr := FromView(ctx, e.Renderer, e.View, page, status)
		if verr == nil {
			return resp
		}
		logger.FromContext(ctx).ErrorContext(ctx, "error view failed",
			slog.String("view", e.View),
			slog.String("error", verr.Error()),
		)
	}

	return NewResponse(page.Message, status, map[string]string{"Content-Type": "text/plain; charset=utf-8"})
}

func (e ErrorResponder) log(ctx context.Context, req *Request, err error, status int) {
	attrs := []any{
		slog.String("error", err.Error()),
		slog.Int("status", status),
		slog.String("method", req.Method()),
		slog.String("uri", req.URI()),
		slog.String("remote_addr", req.RemoteAddr()),
	}

	var st stackTracer
	if errors.As(err, &st) {
		if stack := st.StackTrace(); len(stack) > 0 {
			attrs = append(attrs, slog.String("stack", string(stack)))
		}
	}

	logger.FromContext(ctx).ErrorContext(ctx, "request failed", attrs...)
}
