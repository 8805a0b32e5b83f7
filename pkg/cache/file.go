package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// neverExpires is the modification time given to entries without a TTL.
var neverExpires = time.Unix(1<<33, 0)

// File is a cache that keeps one file per key in a directory.
// The file modification time holds the entry's expiry, so expiration
// survives restarts and can be inspected with ordinary tools.
//
// Writes go to a temporary file that is renamed into place, so readers never
// observe a partially written entry.
type File[V any] struct {
	opts      *fileOptions
	marshaler Marshaler[V]
	dir       string
	mu        sync.RWMutex
	closed    bool
}

// NewFile creates a file-backed cache rooted at dir, creating the directory
// when it does not exist.
//
// Example:
//
//	c, err := cache.NewFile[[]byte]("var/cache", cache.Raw{},
//	    cache.WithFileDefaultTTL(10 * time.Minute),
//	)
func NewFile[V any](dir string, m Marshaler[V], opts ...FileOption) (*File[V], error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := os.MkdirAll(dir, o.dirMode); err != nil {
		return nil, fmt.Errorf("cache: create directory %q: %w", dir, err)
	}

	return &File[V]{
		dir:       dir,
		opts:      o,
		marshaler: marshalerOrJSON(m),
	}, nil
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired.
func (f *File[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	ok, err := f.Has(ctx, key)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrNotFound
	}

	path, err := f.path(key)
	if err != nil {
		return zero, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}

	return f.marshaler.Unmarshal(data)
}

// Set stores a value with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = never expires.
func (f *File[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return ErrClosed
	}

	path, err := f.path(key)
	if err != nil {
		return err
	}

	data, err := f.marshaler.Marshal(value)
	if err != nil {
		return err
	}

	expiresAt := resolveExpiry(ttl, f.opts.defaultTTL)
	if expiresAt.IsZero() {
		expiresAt = neverExpires
	}

	// Dot-prefixed so Clear and Purge never pick up half-written files.
	tmp := filepath.Join(f.dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, f.opts.fileMode); err != nil {
		return err
	}
	if err := os.Chtimes(tmp, expiresAt, expiresAt); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (f *File[V]) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Has checks whether a key exists and has not expired.
// An expired entry found on the way is removed.
func (f *File[V]) Has(ctx context.Context, key string) (bool, error) {
	path, err := f.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !info.ModTime().After(time.Now()) {
		_ = f.Delete(ctx, key)
		return false, nil
	}

	return true, nil
}

// Clear removes every entry whose key starts with prefix, and every expired
// entry. An empty prefix removes everything.
func (f *File[V]) Clear(_ context.Context, prefix string) error {
	prefix = fileName(prefix)
	now := time.Now()

	return f.walk(func(name string, info fs.FileInfo) error {
		if strings.HasPrefix(name, prefix) || info.ModTime().Before(now) {
			return f.remove(name)
		}
		return nil
	})
}

// ExpiryTime returns the time the entry expires, even if it already has.
// Entries that never expire report the zero time.
func (f *File[V]) ExpiryTime(_ context.Context, key string) (time.Time, error) {
	path, err := f.path(key)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	if !info.ModTime().Before(neverExpires) {
		return time.Time{}, nil
	}
	return info.ModTime(), nil
}

// Purge removes all expired entries.
func (f *File[V]) Purge(_ context.Context) error {
	now := time.Now()

	return f.walk(func(name string, info fs.FileInfo) error {
		if info.ModTime().Before(now) {
			return f.remove(name)
		}
		return nil
	})
}

// Close marks the cache as closed. Stored files are kept.
func (f *File[V]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// path maps a key to its file, rejecting keys that cannot name a file.
func (f *File[V]) path(key string) (string, error) {
	name := fileName(key)
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.dir, name), nil
}

// walk calls fn for every regular, non-hidden file in the cache directory.
func (f *File[V]) walk(fn func(name string, info fs.FileInfo) error) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(e.Name(), info); err != nil {
			return err
		}
	}

	return nil
}

func (f *File[V]) remove(name string) error {
	if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// fileName flattens a key into a single path element.
func fileName(key string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(key)
}

var (
	_ Cache[any] = (*File[any])(nil)
	_ Purger     = (*File[any])(nil)
)
