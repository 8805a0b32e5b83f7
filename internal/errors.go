package internal

import (
	"errors"
	"net/http"
)

var (
	// ErrEmptyMiddlewareStack means a Chain ran out of links without an
	// answer. App always ends its chain with the router, so only hand-built
	// chains can hit it.
	ErrEmptyMiddlewareStack = errors.New("subframe: middleware stack is empty")

	// ErrRouteNotFound is what the router returns when no route answered.
	ErrRouteNotFound = NewHTTPError(http.StatusNotFound, "Route not found.")

	// ErrPayloadTooLarge marks a request whose body or uploads were dropped
	// for exceeding the configured limits.
	ErrPayloadTooLarge = NewHTTPError(http.StatusRequestEntityTooLarge, "Total upload size exceeds limit.")

	ErrNoRenderer = errors.New("subframe: no view renderer configured")
	ErrViewRender = errors.New("subframe: view render failed")
)

// HTTPError is an error that knows its status. Message is shown to clients
// for 4xx codes; Err stays in the logs.
type HTTPError struct {
	Err       error
	Message   string
	Detail    string
	RequestID string
	Code      int
}

func (e *HTTPError) Error() string   { return e.Message }
func (e *HTTPError) Unwrap() error   { return e.Err }
func (e *HTTPError) StatusCode() int { return e.Code }

// StatusText is the standard reason phrase for Code.
func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithDetail(detail string) HTTPErrorOption {
	return func(e *HTTPError) { e.Detail = detail }
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) { e.RequestID = id }
}

// WithError records the cause; it is logged but never rendered.
func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) { e.Err = err }
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

// AsHTTPError returns the first *HTTPError in err's chain, or nil.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// StatusCode maps err to a response status: the StatusCode() of the first
// error in the chain that has one, when it is a 4xx or 5xx, and 500
// otherwise.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}
