package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// Sizer is implemented by values that know their approximate size in bytes.
// Memory uses it to enforce WithMaxBytes.
type Sizer interface {
	Size() int
}

type memEntry[V any] struct {
	value   V
	expires time.Time // zero: never
	key     string
	size    int
}

func (e *memEntry[V]) expiredAt(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Memory is a process-local cache with TTLs and least-recently-used eviction.
// The list keeps the most recently used entry at the front.
type Memory[V any] struct {
	items   map[string]*list.Element
	lru     *list.List
	onEvict func(key string, value V)
	stop    chan struct{}
	opts    memoryOptions
	bytes   int
	mu      sync.Mutex
	closed  bool
}

// NewMemory creates an in-memory cache.
//
// Example:
//
//	pages := cache.NewMemory[middlewares.CachedPage](
//	    cache.WithDefaultTTL(10 * time.Minute),
//	    cache.WithMaxBytes(64 << 20),
//	)
//	defer pages.Close()
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := memoryOptions{
		defaultTTL: time.Hour,
		sweepEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Memory[V]{
		items: make(map[string]*list.Element),
		lru:   list.New(),
		stop:  make(chan struct{}),
		opts:  o,
	}
	if o.sweepEvery > 0 {
		go m.sweepLoop()
	}
	return m
}

// SetEvictCallback registers fn to be called for every entry leaving the
// cache, whatever the reason. fn runs with the cache locked and must not call back into it.
func (m *Memory[V]) SetEvictCallback(fn func(key string, value V)) {
	m.mu.Lock()
	m.onEvict = fn
	m.mu.Unlock()
}

// Get returns the value of a live entry and marks it as recently used.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key, time.Now())
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	m.lru.MoveToFront(m.items[key])
	return e.value, nil
}

// Set stores value. A positive ttl is a lifetime, zero uses the default
// and a negative ttl never expires.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	size := 0
	if s, ok := any(value).(Sizer); ok {
		size = s.Size()
	}

	if el, ok := m.items[key]; ok {
		e := el.Value.(*memEntry[V])
		m.bytes += size - e.size
		e.value, e.size = value, size
		e.expires = resolveExpiry(ttl, m.opts.defaultTTL)
		m.lru.MoveToFront(el)
	} else {
		e := &memEntry[V]{key: key, value: value, size: size, expires: resolveExpiry(ttl, m.opts.defaultTTL)}
		m.items[key] = m.lru.PushFront(e)
		m.bytes += size
	}

	m.shrink()
	return nil
}

// Delete removes key. Missing keys are not an error.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if el, ok := m.items[key]; ok {
		m.remove(el)
	}
	return nil
}

// Has reports whether key holds a live entry. It does not touch recency.
func (m *Memory[V]) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key, time.Now())
	return ok, nil
}

// Clear removes every entry whose key starts with prefix and every expired
// entry. An empty prefix empties the cache.
func (m *Memory[V]) Clear(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	now := time.Now()
	m.each(func(el *list.Element, e *memEntry[V]) {
		if strings.HasPrefix(e.key, prefix) || e.expiredAt(now) {
			m.remove(el)
		}
	})
	return nil
}

// ExpiryTime returns when key expires, even if that moment has passed and
// the entry is still held. Entries that never expire report the zero time.
func (m *Memory[V]) ExpiryTime(_ context.Context, key string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return el.Value.(*memEntry[V]).expires, nil
}

// Purge drops all expired entries.
func (m *Memory[V]) Purge(_ context.Context) error {
	m.sweep()
	return nil
}

// Len returns the number of entries held, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Bytes returns the summed Size of the held values.
func (m *Memory[V]) Bytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

// Close stops the cleanup goroutine. Later writes fail with ErrClosed.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.stop)
	}
	return nil
}

// live returns the entry for key, dropping it when expired.
func (m *Memory[V]) live(key string, now time.Time) (*memEntry[V], bool) {
	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memEntry[V])
	if e.expiredAt(now) {
		m.remove(el)
		return nil, false
	}
	return e, true
}

func (m *Memory[V]) over() bool {
	return (m.opts.maxEntries > 0 && m.lru.Len() > m.opts.maxEntries) ||
		(m.opts.maxBytes > 0 && m.bytes > m.opts.maxBytes)
}

// shrink evicts from the back until both limits hold.
func (m *Memory[V]) shrink() {
	for m.over() && m.lru.Len() > 0 {
		m.remove(m.lru.Back())
	}
}

func (m *Memory[V]) sweepLoop() {
	t := time.NewTicker(m.opts.sweepEvery)
	defer t.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *Memory[V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.each(func(el *list.Element, e *memEntry[V]) {
		if e.expiredAt(now) {
			m.remove(el)
		}
	})
}

// each visits all entries; fn may remove the visited one.
func (m *Memory[V]) each(fn func(el *list.Element, e *memEntry[V])) {
	for el := m.lru.Front(); el != nil; {
		next := el.Next()
		fn(el, el.Value.(*memEntry[V]))
		el = next
	}
}

func (m *Memory[V]) remove(el *list.Element) {
	e := m.lru.Remove(el).(*memEntry[V])
	delete(m.items, e.key)
	m.bytes -= e.size
	if m.onEvict != nil {
		m.onEvict(e.key, e.value)
	}
}

var (
	_ Cache[any] = (*Memory[any])(nil)
	_ Purger     = (*Memory[any])(nil)
)
