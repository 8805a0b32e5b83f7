// Package cache provides a generic Cache interface with in-memory, file,
// SQLite and Redis implementations.
//
// All backends share the [Cache] interface. The response cache middleware
// stores rendered pages through it, so the storage can change from files in
// development to Redis in production without touching the pipeline.
//
// # Interface
//
//   - Get(ctx, key) (V, error): retrieve a live value
//   - Set(ctx, key, value, ttl) error: store a value with TTL
//   - Delete(ctx, key) error: remove a key
//   - Has(ctx, key) (bool, error): check for a live value
//   - Clear(ctx, prefix) error: remove keys starting with prefix, plus expired keys
//   - ExpiryTime(ctx, key) (time.Time, error): absolute expiry, zero when persistent
//   - Close() error: release resources
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL
//   - Negative: item never expires
//
// ExpiryTime is stable for the lifetime of an entry, which makes it usable
// as a Last-Modified source and as part of an ETag.
//
// # In-Memory Cache
//
// [NewMemory] keeps entries in process with LRU eviction. Values implementing
// [Sizer] count against the [WithMaxBytes] budget:
//
//	c := cache.NewMemory[string](
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithMaxEntries(10000),
//	)
//	defer c.Close()
//
// # File Cache
//
// [NewFile] writes one file per key. The modification time of each file is
// its expiry time. Slashes in keys become underscores:
//
//	c, err := cache.NewFile[[]byte]("var/cache", cache.Raw{})
//
// # SQLite Cache
//
// [NewSQLite] stores entries in a single table with an index on expiry:
//
//	db, err := cache.OpenSQLite(ctx, "var/cache.db")
//	c, err := cache.NewSQLite[[]byte](ctx, db, cache.Raw{})
//
// # Redis Cache
//
// [NewRedis] requires a [github.com/redis/go-redis/v9.UniversalClient]
// from [github.com/dmitrymomot/subframe/pkg/redis]. ExpiryTime relies on
// PEXPIRETIME, available since Redis 7:
//
//	client, err := redis.Connect(ctx, redis.Config{URL: os.Getenv("REDIS_URL")})
//	c := cache.NewRedis[User](client, nil, cache.WithPrefix("users"))
//
// Pass a custom [Marshaler] to any byte-oriented backend to replace JSON.
// [Raw] stores []byte values unchanged.
//
// # Purging
//
// Files and SQLite rows are not removed when they expire; reads simply
// ignore them. A [Scheduler] purges them on a cron schedule:
//
//	s, err := cache.NewScheduler("*/15 * * * *", logger, fileCache, sqliteCache)
//	go s.Start(ctx)
//
// # Cache Stampede Prevention
//
// [GetOrSet] uses singleflight so that only one goroutine computes a missing value:
//
//	val, err := cache.GetOrSet(ctx, c, "user:123", func(ctx context.Context) (User, time.Duration, error) {
//	    user, err := repo.FindUser(ctx, "123")
//	    return user, 5 * time.Minute, err
//	})
//
// # Error Handling
//
// Use [errors.Is] with the sentinel errors:
//
//	val, err := c.Get(ctx, "key")
//	if errors.Is(err, cache.ErrNotFound) {
//	    // handle miss
//	}
package cache
