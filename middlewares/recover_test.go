package middlewares_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/middlewares"
)

func TestRecover(t *testing.T) {
	t.Parallel()

	panicking := internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
		panic("boom")
	})

	t.Run("converts panic to PanicError", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		resp, err := middlewares.Recover().Process(capturingContext(&buf), get("/", nil), panicking)
		require.Nil(t, resp)
		var pe *middlewares.PanicError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, "boom", pe.Value)
		require.NotEmpty(t, pe.Stack)
		require.Equal(t, http.StatusInternalServerError, internal.StatusCode(err))
		require.Contains(t, buf.String(), "panic recovered")
	})

	t.Run("without stack", func(t *testing.T) {
		t.Parallel()

		_, err := middlewares.Recover(middlewares.WithRecoverDisablePrintStack()).
			Process(context.Background(), get("/", nil), panicking)

		var pe *middlewares.PanicError
		require.ErrorAs(t, err, &pe)
		require.Nil(t, pe.Stack)
	})

	t.Run("error panics unwrap", func(t *testing.T) {
		t.Parallel()

		errCause := errors.New("cause")
		h := internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
			panic(errCause)
		})

		_, err := middlewares.Recover().Process(context.Background(), get("/", nil), h)
		require.ErrorIs(t, err, errCause)
	})

	t.Run("passes through", func(t *testing.T) {
		t.Parallel()

		resp, err := middlewares.Recover().Process(context.Background(), get("/", nil), respond("ok", 0))
		require.NoError(t, err)
		require.Equal(t, "ok", resp.BodyString())
	})
}
