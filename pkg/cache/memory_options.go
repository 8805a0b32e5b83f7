package cache

import "time"

// MemoryOption configures the in-memory cache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	defaultTTL time.Duration
	sweepEvery time.Duration
	maxEntries int
	maxBytes   int
}

// WithDefaultTTL sets the lifetime used when Set is called with a zero TTL.
// Default: 1 hour.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.defaultTTL = d
	}
}

// WithCleanupInterval sets how often a background goroutine drops expired
// entries. Zero disables the goroutine; expired entries are then removed
// lazily on access, by Clear or by Purge. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.sweepEvery = d
	}
}

// WithMaxEntries caps the number of entries. The least recently used entry
// goes first. Zero means unlimited.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = max(n, 0)
	}
}

// WithMaxBytes caps the total Size of values implementing Sizer, evicting
// least recently used entries to stay within budget. A value larger than the
// whole budget is not kept. Zero means unlimited.
func WithMaxBytes(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxBytes = max(n, 0)
	}
}
