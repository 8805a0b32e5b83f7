package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subframe/pkg/health"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()

		resp, err := health.Run(context.Background(), nil)
		require.NoError(t, err)
		require.Equal(t, health.StatusHealthy, resp.Status)
	})

	t.Run("failing check is reported", func(t *testing.T) {
		t.Parallel()

		resp, err := health.Run(context.Background(), health.Checks{
			"ok":   func(context.Context) error { return nil },
			"down": func(context.Context) error { return errors.New("connection refused") },
		})
		require.ErrorIs(t, err, health.ErrCheckFailed)
		require.Equal(t, health.StatusUnhealthy, resp.Status)
		require.Equal(t, health.StatusHealthy, resp.Checks["ok"].Status)
		require.Equal(t, "connection refused", resp.Checks["down"].Error)
	})

	t.Run("slow check times out", func(t *testing.T) {
		t.Parallel()

		resp, err := health.Run(context.Background(), health.Checks{
			"slow": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, health.WithTimeout(20*time.Millisecond))
		require.ErrorIs(t, err, health.ErrCheckTimeout)
		require.Equal(t, health.ErrCheckTimeout.Error(), resp.Checks["slow"].Error)
	})

	t.Run("error names failed checks in order", func(t *testing.T) {
		t.Parallel()

		down := func(context.Context) error { return errors.New("down") }
		_, err := health.Run(context.Background(), health.Checks{"redis": down, "db": down, "ok": func(context.Context) error { return nil }})
		require.ErrorIs(t, err, health.ErrCheckFailed)
		require.Equal(t, "health: check failed\ndb: down\nredis: down", err.Error())
	})
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("readiness json", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"cache": func(context.Context) error { return errors.New("boom") },
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp health.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, health.StatusUnhealthy, resp.Status)
		require.Equal(t, "boom", resp.Checks["cache"].Error)
	})

	t.Run("readiness plain text", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"cache": func(context.Context) error { return nil },
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})
}
