package cache

import "time"

// RedisOption configures the Redis cache.
type RedisOption func(*redisOptions)

type redisOptions struct {
	namespace  string
	defaultTTL time.Duration
	scanCount  int64
}

// WithRedisDefaultTTL sets the lifetime used when Set is called with a zero
// TTL. Default: 1 hour.
func WithRedisDefaultTTL(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.defaultTTL = d
	}
}

// WithPrefix namespaces every key as "prefix:key", so that several caches
// can share one database and Clear("") stays within its own keys.
func WithPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.namespace = prefix
	}
}

// WithScanCount sets the COUNT hint Clear passes to SCAN. Default: 100.
func WithScanCount(n int64) RedisOption {
	return func(o *redisOptions) {
		if n > 0 {
			o.scanCount = n
		}
	}
}
