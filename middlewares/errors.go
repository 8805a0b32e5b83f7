package middlewares

import (
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// PanicError carries a value recovered from a panic further down the chain.
// The error boundary answers it with 500 and logs Stack.
type PanicError struct {
	Value any
	Stack []byte // nil when stack capture is off
}

// recovered wraps a recover() value, capturing up to stackSize bytes of the
// current goroutine's stack.
func recovered(v any, stackSize int) *PanicError {
	pe := &PanicError{Value: v}
	if stackSize > 0 {
		buf := make([]byte, stackSize)
		pe.Stack = buf[:runtime.Stack(buf, false)]
	}
	return pe
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes panics raised with an error value to errors.Is.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func (e *PanicError) StackTrace() []byte {
	return e.Stack
}

func (e *PanicError) StatusCode() int {
	return http.StatusInternalServerError
}

// TimeoutError reports a request the Timeout middleware cut off. It is
// answered with 503.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return "request timeout after " + e.Duration.String()
}

func (e *TimeoutError) StatusCode() int {
	return http.StatusServiceUnavailable
}
