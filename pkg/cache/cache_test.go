package cache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subframe/pkg/cache"
)

type backendFactory func(t *testing.T, defaultTTL time.Duration) cache.Cache[string]

// backends returns every local backend under the same contract.
func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"memory": func(t *testing.T, ttl time.Duration) cache.Cache[string] {
			c := cache.NewMemory[string](cache.WithDefaultTTL(ttl), cache.WithCleanupInterval(0))
			t.Cleanup(func() { _ = c.Close() })
			return c
		},
		"file": func(t *testing.T, ttl time.Duration) cache.Cache[string] {
			c, err := cache.NewFile[string](filepath.Join(t.TempDir(), "cache"), nil, cache.WithFileDefaultTTL(ttl))
			require.NoError(t, err)
			return c
		},
		"sqlite": func(t *testing.T, ttl time.Duration) cache.Cache[string] {
			ctx := context.Background()
			db, err := cache.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			c, err := cache.NewSQLite[string](ctx, db, nil, cache.WithSQLiteDefaultTTL(ttl))
			require.NoError(t, err)
			return c
		},
	}
}

func TestCacheContract(t *testing.T) {
	t.Parallel()

	for name, newCache := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			t.Run("get missing key", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				_, err := c.Get(context.Background(), "missing")
				require.ErrorIs(t, err, cache.ErrNotFound)
			})

			t.Run("set then get", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "response-about.html", "<h1>About</h1>", time.Minute))

				val, err := c.Get(ctx, "response-about.html")
				require.NoError(t, err)
				require.Equal(t, "<h1>About</h1>", val)

				has, err := c.Has(ctx, "response-about.html")
				require.NoError(t, err)
				require.True(t, has)
			})

			t.Run("overwrite", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "k", "one", time.Minute))
				require.NoError(t, c.Set(ctx, "k", "two", time.Minute))

				val, err := c.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "two", val)
			})

			t.Run("expired entry is gone", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "k", "v", 30*time.Millisecond))

				time.Sleep(60 * time.Millisecond)

				_, err := c.Get(ctx, "k")
				require.ErrorIs(t, err, cache.ErrNotFound)

				has, err := c.Has(ctx, "k")
				require.NoError(t, err)
				require.False(t, has)
			})

			t.Run("zero ttl uses default", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, 30*time.Millisecond)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "k", "v", 0))

				has, err := c.Has(ctx, "k")
				require.NoError(t, err)
				require.True(t, has)

				time.Sleep(60 * time.Millisecond)

				has, err = c.Has(ctx, "k")
				require.NoError(t, err)
				require.False(t, has)
			})

			t.Run("negative ttl never expires", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, 10*time.Millisecond)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "k", "forever", -1))

				time.Sleep(30 * time.Millisecond)

				val, err := c.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "forever", val)

				exp, err := c.ExpiryTime(ctx, "k")
				require.NoError(t, err)
				require.True(t, exp.IsZero())
			})

			t.Run("delete", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
				require.NoError(t, c.Delete(ctx, "k"))
				require.NoError(t, c.Delete(ctx, "k"), "deleting a missing key is not an error")

				_, err := c.Get(ctx, "k")
				require.ErrorIs(t, err, cache.ErrNotFound)
			})

			t.Run("expiry time is stable", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				before := time.Now()
				require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

				first, err := c.ExpiryTime(ctx, "k")
				require.NoError(t, err)
				require.WithinDuration(t, before.Add(time.Minute), first, 2*time.Second)

				time.Sleep(5 * time.Millisecond)

				second, err := c.ExpiryTime(ctx, "k")
				require.NoError(t, err)
				require.True(t, first.Equal(second))
			})

			t.Run("expiry time of missing key", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				_, err := c.ExpiryTime(context.Background(), "missing")
				require.ErrorIs(t, err, cache.ErrNotFound)
			})

			t.Run("clear by prefix", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "response-blog-1.html", "a", time.Minute))
				require.NoError(t, c.Set(ctx, "response-blog-2.html", "b", time.Minute))
				require.NoError(t, c.Set(ctx, "response-about.html", "c", time.Minute))

				require.NoError(t, c.Clear(ctx, "response-blog"))

				has, err := c.Has(ctx, "response-blog-1.html")
				require.NoError(t, err)
				require.False(t, has)

				has, err = c.Has(ctx, "response-about.html")
				require.NoError(t, err)
				require.True(t, has)
			})

			t.Run("clear everything", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
				require.NoError(t, c.Set(ctx, "b", "2", -1))

				require.NoError(t, c.Clear(ctx, ""))

				for _, k := range []string{"a", "b"} {
					has, err := c.Has(ctx, k)
					require.NoError(t, err)
					require.False(t, has, k)
				}
			})

			t.Run("purge keeps live entries", func(t *testing.T) {
				t.Parallel()

				c := newCache(t, time.Hour)
				p, ok := c.(cache.Purger)
				require.True(t, ok)

				ctx := context.Background()
				require.NoError(t, c.Set(ctx, "old", "1", 20*time.Millisecond))
				require.NoError(t, c.Set(ctx, "new", "2", time.Minute))

				time.Sleep(40 * time.Millisecond)
				require.NoError(t, p.Purge(ctx))

				_, err := c.ExpiryTime(ctx, "old")
				require.ErrorIs(t, err, cache.ErrNotFound)

				val, err := c.Get(ctx, "new")
				require.NoError(t, err)
				require.Equal(t, "2", val)
			})
		})
	}
}

func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("slashes in keys are flattened", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		c, err := cache.NewFile[[]byte](dir, cache.Raw{})
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "pages/about", []byte("about"), time.Minute))
		require.FileExists(t, filepath.Join(dir, "pages_about"))

		val, err := c.Get(ctx, "pages/about")
		require.NoError(t, err)
		require.Equal(t, []byte("about"), val)
	})

	t.Run("rejects hidden names", func(t *testing.T) {
		t.Parallel()

		c, err := cache.NewFile[string](t.TempDir(), nil)
		require.NoError(t, err)

		err = c.Set(context.Background(), ".hidden", "v", time.Minute)
		require.ErrorIs(t, err, cache.ErrInvalidKey)
	})

	t.Run("set after close", func(t *testing.T) {
		t.Parallel()

		c, err := cache.NewFile[string](t.TempDir(), nil)
		require.NoError(t, err)
		require.NoError(t, c.Close())

		err = c.Set(context.Background(), "k", "v", time.Minute)
		require.ErrorIs(t, err, cache.ErrClosed)
	})
}

func TestSQLite(t *testing.T) {
	t.Parallel()

	t.Run("tables isolate caches in one database", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db, err := cache.OpenSQLite(ctx, ":memory:")
		require.NoError(t, err)
		defer db.Close()

		pages, err := cache.NewSQLite[string](ctx, db, nil, cache.WithSQLiteTable("pages"))
		require.NoError(t, err)
		fragments, err := cache.NewSQLite[string](ctx, db, nil, cache.WithSQLiteTable("fragments"))
		require.NoError(t, err)

		require.NoError(t, pages.Set(ctx, "k", "page", time.Minute))

		_, err = fragments.Get(ctx, "k")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("invalid table name", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db, err := cache.OpenSQLite(ctx, ":memory:")
		require.NoError(t, err)
		defer db.Close()

		_, err = cache.NewSQLite[string](ctx, db, nil, cache.WithSQLiteTable("pages; DROP TABLE x"))
		require.Error(t, err)
	})
}

func TestGetOrSet(t *testing.T) {
	t.Parallel()

	t.Run("returns cached value on hit", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		ctx := context.Background()
		require.NoError(t, c.Set(ctx, "hit", "cached", time.Minute))

		val, err := cache.GetOrSet(ctx, c, "hit", func(_ context.Context) (string, time.Duration, error) {
			t.Fatal("fn should not be called on cache hit")
			return "", 0, nil
		})
		require.NoError(t, err)
		require.Equal(t, "cached", val)
	})

	t.Run("error is not cached", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[string]()
		defer c.Close()

		ctx := context.Background()
		errCompute := errors.New("compute failed")

		_, err := cache.GetOrSet(ctx, c, "failing", func(_ context.Context) (string, time.Duration, error) {
			return "", 0, errCompute
		})
		require.ErrorIs(t, err, errCompute)

		_, err = c.Get(ctx, "failing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("deduplicates concurrent misses", func(t *testing.T) {
		t.Parallel()

		c := cache.NewMemory[int]()
		defer c.Close()

		ctx := context.Background()
		var calls atomic.Int64
		var wg sync.WaitGroup

		for range 10 {
			wg.Go(func() {
				val, err := cache.GetOrSet(ctx, c, "dedup", func(_ context.Context) (int, time.Duration, error) {
					calls.Add(1)
					time.Sleep(10 * time.Millisecond)
					return 42, time.Minute, nil
				})
				require.NoError(t, err)
				require.Equal(t, 42, val)
			})
		}

		wg.Wait()
		require.LessOrEqual(t, calls.Load(), int64(2))
	})

	t.Run("same key in different caches", func(t *testing.T) {
		t.Parallel()

		ints := cache.NewMemory[int]()
		defer ints.Close()
		strs := cache.NewMemory[string]()
		defer strs.Close()

		ctx := context.Background()
		release := make(chan struct{})
		var wg sync.WaitGroup

		wg.Go(func() {
			n, err := cache.GetOrSet(ctx, ints, "shared", func(_ context.Context) (int, time.Duration, error) {
				<-release
				return 7, time.Minute, nil
			})
			require.NoError(t, err)
			require.Equal(t, 7, n)
		})
		wg.Go(func() {
			s, err := cache.GetOrSet(ctx, strs, "shared", func(_ context.Context) (string, time.Duration, error) {
				<-release
				return "seven", time.Minute, nil
			})
			require.NoError(t, err)
			require.Equal(t, "seven", s)
		})

		time.Sleep(10 * time.Millisecond)
		close(release)
		wg.Wait()
	})
}

func TestGetOrDefault(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	defer c.Close()

	ctx := context.Background()
	val, err := cache.GetOrDefault(ctx, c, "missing", "fallback")
	require.NoError(t, err)
	require.Equal(t, "fallback", val)

	require.NoError(t, c.Set(ctx, "present", "value", time.Minute))
	val, err = cache.GetOrDefault(ctx, c, "present", "fallback")
	require.NoError(t, err)
	require.Equal(t, "value", val)
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid schedule", func(t *testing.T) {
		t.Parallel()

		_, err := cache.NewScheduler("every now and then", nil)
		require.ErrorIs(t, err, cache.ErrInvalidSchedule)
	})

	t.Run("purge now joins errors", func(t *testing.T) {
		t.Parallel()

		errA := errors.New("a")
		failing := purgeFunc(func(context.Context) error { return errA })

		c, err := cache.NewFile[string](t.TempDir(), nil)
		require.NoError(t, err)

		s, err := cache.NewScheduler("@hourly", nil, failing, c)
		require.NoError(t, err)
		require.ErrorIs(t, s.PurgeNow(context.Background()), errA)
	})

	t.Run("runs on schedule until cancelled", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		counting := purgeFunc(func(context.Context) error {
			calls.Add(1)
			return nil
		})

		s, err := cache.NewScheduler("@every 1s", nil, counting)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		require.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})
}

type purgeFunc func(ctx context.Context) error

func (f purgeFunc) Purge(ctx context.Context) error { return f(ctx) }
