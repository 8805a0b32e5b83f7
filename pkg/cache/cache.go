package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores values of one type under string keys.
//
// The ttl passed to Set picks the lifetime: a positive value expires the
// entry after that long, zero applies the backend default and a negative
// value keeps the entry until it is deleted.
type Cache[V any] interface {
	// Get returns ErrNotFound for missing and expired keys.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Delete succeeds for missing keys.
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	// Clear drops keys starting with prefix together with anything already
	// expired. The empty prefix drops everything.
	Clear(ctx context.Context, prefix string) error
	// ExpiryTime reports when key expires, possibly in the past. The zero
	// time means never. Missing keys return ErrNotFound.
	ExpiryTime(ctx context.Context, key string) (time.Time, error)
	Close() error
}

// Purger is implemented by backends that keep expired entries until
// someone removes them. Scheduler calls Purge periodically.
type Purger interface {
	Purge(ctx context.Context) error
}

// Marshaler converts values for backends that store bytes.
// A nil Marshaler selects JSON.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrUnmarshal, err)
	}
	return v, nil
}

// Raw stores []byte values as they are.
type Raw struct{}

func (Raw) Marshal(v []byte) ([]byte, error)      { return v, nil }
func (Raw) Unmarshal(data []byte) ([]byte, error) { return data, nil }

func marshalerOrJSON[V any](m Marshaler[V]) Marshaler[V] {
	if m != nil {
		return m
	}
	return jsonMarshaler[V]{}
}

// resolveExpiry turns a Set ttl into a deadline; the zero time means never.
func resolveExpiry(ttl, defaultTTL time.Duration) time.Time {
	if ttl == 0 {
		ttl = defaultTTL
	}
	if ttl < 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// GetOrDefault returns def instead of ErrNotFound.
func GetOrDefault[V any](ctx context.Context, c Cache[V], key string, def V) (V, error) {
	v, err := c.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return def, nil
	case err != nil:
		return def, err
	}
	return v, nil
}

var flights singleflight.Group

type computed[V any] struct {
	val V
	ttl time.Duration
}

// GetOrSet returns the cached value or computes, stores and returns it.
// Concurrent misses on the same cache and key share a single call to fn.
// Errors from fn are returned and nothing is stored; a failing Set is
// ignored since the value is already in hand.
//
//	page, err := cache.GetOrSet(ctx, pages, uri, func(ctx context.Context) (CachedPage, time.Duration, error) {
//	    return render(ctx, uri)
//	})
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, fn func(ctx context.Context) (V, time.Duration, error)) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	// Flights are scoped to the cache instance so that equal keys in caches
	// of different value types never share a result.
	res, err, _ := flights.Do(fmt.Sprintf("%p\x00%s", c, key), func() (any, error) {
		v, ttl, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, key, v, ttl)
		return computed[V]{val: v, ttl: ttl}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(computed[V]).val, nil
}
