package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps entries in Redis, which expires them on its own. Values are
// encoded with the Marshaler given to NewRedis.
type Redis[V any] struct {
	client redis.UniversalClient
	codec  Marshaler[V]
	opts   redisOptions
}

// NewRedis wraps a client, typically one from pkg/redis.Connect. The client
// stays owned by the caller: Close does not close it.
//
//	pages := cache.NewRedis[middlewares.CachedPage](client, nil,
//	    cache.WithPrefix("pages"),
//	    cache.WithRedisDefaultTTL(30*time.Minute),
//	)
func NewRedis[V any](client redis.UniversalClient, m Marshaler[V], opts ...RedisOption) *Redis[V] {
	o := redisOptions{defaultTTL: time.Hour, scanCount: 100}
	for _, opt := range opts {
		opt(&o)
	}
	return &Redis[V]{client: client, codec: marshalerOrJSON(m), opts: o}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		var zero V
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return r.codec.Unmarshal(data)
}

// Set writes the value with a PX expiry; entries without expiry are
// written without one.
func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := r.codec.Marshal(value)
	if err != nil {
		return err
	}

	var px time.Duration // 0 tells go-redis to send no expiry
	if at := resolveExpiry(ttl, r.opts.defaultTTL); !at.IsZero() {
		px = max(time.Until(at), time.Millisecond)
	}
	return r.client.Set(ctx, r.key(key), data, px).Err()
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis[V]) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return n == 1, err
}

// Clear unlinks the keys under prefix batch by batch while iterating with
// SCAN. Without a namespace and prefix it flushes the whole database.
func (r *Redis[V]) Clear(ctx context.Context, prefix string) error {
	if r.opts.namespace == "" && prefix == "" {
		return r.client.FlushDB(ctx).Err()
	}

	match := globEscaper.Replace(r.key(prefix)) + "*"
	iter := r.client.Scan(ctx, 0, match, r.opts.scanCount).Iterator()

	batch := make([]string, 0, r.opts.scanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) == r.opts.scanCount {
			if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

// ExpiryTime asks the server with PEXPIRETIME, which needs Redis 7.
func (r *Redis[V]) ExpiryTime(ctx context.Context, key string) (time.Time, error) {
	at, err := r.client.PExpireTime(ctx, r.key(key)).Result()
	if err != nil {
		return time.Time{}, err
	}
	// go-redis passes the -2 (missing) and -1 (persistent) replies through
	// unscaled.
	switch {
	case at == -2:
		return time.Time{}, ErrNotFound
	case at < 0:
		return time.Time{}, nil
	}
	return time.UnixMilli(at.Milliseconds()), nil
}

func (r *Redis[V]) Close() error { return nil }

func (r *Redis[V]) key(k string) string {
	if r.opts.namespace == "" {
		return k
	}
	return r.opts.namespace + ":" + k
}

// globEscaper quotes the SCAN MATCH metacharacters.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

var _ Cache[any] = (*Redis[any])(nil)
