package redis_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subframe/pkg/logger"
	"github.com/dmitrymomot/subframe/pkg/redis"
)

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults fill unset fields", func(t *testing.T) {
		t.Parallel()

		opts, err := redis.Config{URL: "redis://localhost:6379/2"}.Options()
		require.NoError(t, err)
		require.Equal(t, "localhost:6379", opts.Addr)
		require.Equal(t, 2, opts.DB)

		d := redis.DefaultConfig()
		require.Equal(t, d.PoolSize, opts.PoolSize)
		require.Equal(t, d.MinIdleConns, opts.MinIdleConns)
		require.Equal(t, d.ReadTimeout, opts.ReadTimeout)
	})

	t.Run("explicit values win", func(t *testing.T) {
		t.Parallel()

		opts, err := redis.Config{
			URL:         "rediss://cache.internal:6380",
			PoolSize:    50,
			DialTimeout: time.Second,
		}.Options()
		require.NoError(t, err)
		require.Equal(t, 50, opts.PoolSize)
		require.Equal(t, time.Second, opts.DialTimeout)
		require.NotNil(t, opts.TLSConfig)
	})

	t.Run("rejected urls", func(t *testing.T) {
		t.Parallel()

		_, err := redis.Config{}.Options()
		require.ErrorIs(t, err, redis.ErrEmptyURL)

		for _, url := range []string{
			"http://localhost:6379",
			"localhost:6379",
			"redis://localhost:notaport",
			"redis://localhost:6379/notanumber",
		} {
			_, err := redis.Config{URL: url}.Options()
			require.ErrorIs(t, err, redis.ErrInvalidURL, url)
		}
	})
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("invalid url fails fast", func(t *testing.T) {
		t.Parallel()

		client, err := redis.Connect(context.Background(), redis.Config{URL: "memcached://x"})
		require.ErrorIs(t, err, redis.ErrInvalidURL)
		require.Nil(t, client)
	})

	t.Run("unreachable server logs every attempt", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		ctx := logger.WithContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

		client, err := redis.Connect(ctx, redis.Config{
			URL:             "redis://127.0.0.1:1",
			DialTimeout:     100 * time.Millisecond,
			ConnectAttempts: 2,
			ConnectBackoff:  10 * time.Millisecond,
		})
		require.ErrorIs(t, err, redis.ErrConnectionFailed)
		require.Nil(t, client)
		require.Contains(t, buf.String(), "attempt=1")
		require.Contains(t, buf.String(), "attempt=2")
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := redis.Connect(ctx, redis.Config{
			URL:             "redis://127.0.0.1:1",
			ConnectAttempts: 10,
			ConnectBackoff:  time.Minute,
		})
		require.ErrorIs(t, err, redis.ErrConnectionFailed)
		require.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestProbeAndCloser(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, redis.Probe(nil)(context.Background()), redis.ErrUnreachable)
	require.NoError(t, redis.Closer(nil)(context.Background()))
}
