package middlewares_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subframe/internal"
	"github.com/dmitrymomot/subframe/middlewares"
	"github.com/dmitrymomot/subframe/pkg/cache"
)

// countingPage counts how often the downstream handler runs.
func countingPage(calls *atomic.Int64, body, contentType string) internal.Handler {
	return internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
		calls.Add(1)
		return internal.NewResponse(body, http.StatusOK, map[string]string{"Content-Type": contentType}), nil
	})
}

func newPageStore(t *testing.T) cache.Cache[middlewares.CachedPage] {
	t.Helper()

	c := cache.NewMemory[middlewares.CachedPage](cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	req := internal.NewRequest(http.MethodGet, "/blog/post.html?page=2&sort=asc")
	require.Equal(t, "response-blog-post-html-page=2-sort=asc", middlewares.CacheKey(req, false))
	require.Equal(t, "response-blog-post-html-page=2-sort=asc.gz", middlewares.CacheKey(req, true))
	require.Equal(t, "response-", middlewares.CacheKey(internal.NewRequest(http.MethodGet, "/"), false))
}

func TestCache(t *testing.T) {
	t.Parallel()

	t.Run("miss stores and stamps validators", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store, middlewares.WithCacheTTL(time.Minute))

		resp, err := mw.Process(context.Background(), get("/about", nil), countingPage(&calls, "<h1>About</h1>", "text/html; charset=utf-8"))
		require.NoError(t, err)
		require.Equal(t, "<h1>About</h1>", resp.BodyString())
		require.NotEmpty(t, resp.Header("ETag"))
		require.NotEmpty(t, resp.Header("Last-Modified"))
		require.Equal(t, "Accept-Encoding", resp.Header("Vary"))

		has, err := store.Has(context.Background(), "response-about")
		require.NoError(t, err)
		require.True(t, has)
	})

	t.Run("hit skips dispatch", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store)
		next := countingPage(&calls, "page", "text/html")

		first, err := mw.Process(context.Background(), get("/", nil), next)
		require.NoError(t, err)

		second, err := mw.Process(context.Background(), get("/", nil), next)
		require.NoError(t, err)
		require.Equal(t, int64(1), calls.Load())
		require.Equal(t, "page", second.BodyString())
		require.Equal(t, first.Header("ETag"), second.Header("ETag"))
		require.Equal(t, "text/html", second.Header("Content-Type"))
	})

	t.Run("if-none-match yields bare 304", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store)
		next := countingPage(&calls, "page", "text/html")

		first, err := mw.Process(context.Background(), get("/contact", nil), next)
		require.NoError(t, err)

		req := get("/contact", map[string]string{"If-None-Match": first.Header("ETag")})
		resp, err := mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotModified, resp.StatusCode())
		require.Empty(t, resp.Body())
		require.Equal(t, first.Header("ETag"), resp.Header("ETag"))
		require.Equal(t, "Accept-Encoding", resp.Header("Vary"))
		require.Equal(t, int64(1), calls.Load())
	})

	t.Run("weak and listed etags match", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store)
		next := countingPage(&calls, "page", "text/html")

		first, err := mw.Process(context.Background(), get("/list", nil), next)
		require.NoError(t, err)

		req := get("/list", map[string]string{"If-None-Match": `"other", W/` + first.Header("ETag")})
		resp, err := mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotModified, resp.StatusCode())
	})

	t.Run("stale etag serves the page", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store)
		next := countingPage(&calls, "page", "text/html")

		_, err := mw.Process(context.Background(), get("/stale", nil), next)
		require.NoError(t, err)

		req := get("/stale", map[string]string{"If-None-Match": `"0123"`})
		resp, err := mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.Equal(t, "page", resp.BodyString())
	})

	t.Run("if-modified-since", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store, middlewares.WithCacheTTL(time.Hour))
		next := countingPage(&calls, "page", "text/html")

		first, err := mw.Process(context.Background(), get("/news", nil), next)
		require.NoError(t, err)

		req := get("/news", map[string]string{"If-Modified-Since": first.Header("Last-Modified")})
		resp, err := mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotModified, resp.StatusCode())

		older := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
		req = get("/news", map[string]string{"If-Modified-Since": older})
		resp, err = mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.Equal(t, int64(1), calls.Load())
	})

	t.Run("gzip variant", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store)
		next := countingPage(&calls, "<p>compressed</p>", "text/html")
		headers := map[string]string{"Accept-Encoding": "br, gzip"}

		first, err := mw.Process(context.Background(), get("/gz", headers), next)
		require.NoError(t, err)
		require.Equal(t, "gzip", first.Header("Content-Encoding"))

		second, err := mw.Process(context.Background(), get("/gz", headers), next)
		require.NoError(t, err)
		require.Equal(t, "gzip", second.Header("Content-Encoding"))

		zr, err := gzip.NewReader(bytes.NewReader(second.Body()))
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.Equal(t, "<p>compressed</p>", string(plain))

		// The identity variant is stored separately.
		third, err := mw.Process(context.Background(), get("/gz", nil), next)
		require.NoError(t, err)
		require.Equal(t, "<p>compressed</p>", third.BodyString())
		require.Equal(t, int64(2), calls.Load())
	})

	t.Run("bypasses non-GET and excluded URIs", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store, middlewares.WithCacheInclude(`^/docs`), middlewares.WithCacheExclude(`/draft`))
		next := countingPage(&calls, "page", "text/html")

		post := internal.NewRequest(http.MethodPost, "/docs")
		for _, req := range []*internal.Request{post, post, get("/blog", nil), get("/blog", nil), get("/docs/draft", nil), get("/docs/draft", nil)} {
			resp, err := mw.Process(context.Background(), req, next)
			require.NoError(t, err)
			require.False(t, resp.HasHeader("ETag"))
		}
		require.Equal(t, int64(6), calls.Load())
	})

	t.Run("does not store json or errors", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store)

		_, err := mw.Process(context.Background(), get("/api", nil), countingPage(&calls, `{"a":1}`, "application/json"))
		require.NoError(t, err)

		notFound := internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
			return internal.NewResponse("missing", http.StatusNotFound, nil), nil
		})
		_, err = mw.Process(context.Background(), get("/gone", nil), notFound)
		require.NoError(t, err)

		for _, key := range []string{"response-api", "response-gone"} {
			has, err := store.Has(context.Background(), key)
			require.NoError(t, err)
			require.False(t, has, key)
		}
	})

	t.Run("expired entry is re-rendered", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store, middlewares.WithCacheTTL(20*time.Millisecond))
		next := countingPage(&calls, "page", "text/html")

		first, err := mw.Process(context.Background(), get("/short", nil), next)
		require.NoError(t, err)

		time.Sleep(40 * time.Millisecond)

		req := get("/short", map[string]string{"If-None-Match": first.Header("ETag")})
		resp, err := mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.Equal(t, int64(2), calls.Load())
	})

	t.Run("entries without expiry get a new etag per write", func(t *testing.T) {
		t.Parallel()

		store := newPageStore(t)
		var calls atomic.Int64
		mw := middlewares.Cache(store, middlewares.WithCacheTTL(-1))
		next := internal.HandlerFunc(func(context.Context, *internal.Request) (*internal.Response, error) {
			n := calls.Add(1)
			return internal.NewResponse(fmt.Sprintf("v%d", n), http.StatusOK, map[string]string{"Content-Type": "text/html"}), nil
		})

		first, err := mw.Process(context.Background(), get("/forever", nil), next)
		require.NoError(t, err)
		require.Equal(t, "v1", first.BodyString())
		require.NotEmpty(t, first.Header("Last-Modified"))

		expiry, err := store.ExpiryTime(context.Background(), "response-forever")
		require.NoError(t, err)
		require.True(t, expiry.IsZero())

		hit, err := mw.Process(context.Background(), get("/forever", map[string]string{"If-None-Match": first.Header("ETag")}), next)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotModified, hit.StatusCode())

		require.NoError(t, store.Delete(context.Background(), "response-forever"))

		second, err := mw.Process(context.Background(), get("/forever", nil), next)
		require.NoError(t, err)
		require.Equal(t, "v2", second.BodyString())
		require.NotEqual(t, first.Header("ETag"), second.Header("ETag"))

		stale, err := mw.Process(context.Background(), get("/forever", map[string]string{"If-None-Match": first.Header("ETag")}), next)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, stale.StatusCode())
		require.Equal(t, "v2", stale.BodyString())
		require.Equal(t, second.Header("ETag"), stale.Header("ETag"))
		require.Equal(t, int64(2), calls.Load())
	})

	t.Run("works over the file store", func(t *testing.T) {
		t.Parallel()

		store, err := cache.NewFile[middlewares.CachedPage](t.TempDir(), nil)
		require.NoError(t, err)

		var calls atomic.Int64
		mw := middlewares.Cache(store)
		next := countingPage(&calls, "page", "text/html")

		first, err := mw.Process(context.Background(), get("/file", nil), next)
		require.NoError(t, err)

		req := get("/file", map[string]string{"If-None-Match": first.Header("ETag")})
		resp, err := mw.Process(context.Background(), req, next)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotModified, resp.StatusCode())
	})
}
