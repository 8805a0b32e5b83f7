package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" driver
)

var sqliteSchema = []string{
	"CREATE TABLE IF NOT EXISTS %[1]s (key TEXT PRIMARY KEY, expires INTEGER NOT NULL, bytes BLOB)",
	"CREATE INDEX IF NOT EXISTS %[1]s_expires_idx ON %[1]s (expires)",
}

// OpenSQLite opens a SQLite database at path in WAL mode.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}

	// An in-memory database lives and dies with its only connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: enable WAL: %w", err)
	}

	return db, nil
}

// SQLite is a cache stored in a single SQLite table.
// Expiry is kept as Unix milliseconds; zero means the entry never expires.
//
// Writes are serialized with a mutex because SQLite allows one writer at a time.
type SQLite[V any] struct {
	db        *sql.DB
	opts      *sqliteOptions
	marshaler Marshaler[V]
	writeMu   sync.Mutex
}

// NewSQLite creates a cache on top of db, creating its table if needed.
// The caller owns db; Close does not close it.
//
// Example:
//
//	db, err := cache.OpenSQLite(ctx, "var/cache.db")
//	c, err := cache.NewSQLite[[]byte](ctx, db, cache.Raw{},
//	    cache.WithSQLiteTable("pages"),
//	)
func NewSQLite[V any](ctx context.Context, db *sql.DB, m Marshaler[V], opts ...SQLiteOption) (*SQLite[V], error) {
	o := defaultSQLiteOptions()
	for _, opt := range opts {
		opt(o)
	}

	if !validIdentifier(o.table) {
		return nil, fmt.Errorf("cache: invalid sqlite table name %q", o.table)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(stmt, o.table)); err != nil {
			return nil, fmt.Errorf("cache: create sqlite schema: %w", err)
		}
	}

	return &SQLite[V]{
		db:        db,
		opts:      o,
		marshaler: marshalerOrJSON(m),
	}, nil
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired.
func (s *SQLite[V]) Get(ctx context.Context, key string) (V, error) {
	var (
		zero    V
		expires int64
		data    []byte
	)

	err := s.db.QueryRowContext(ctx, s.query("SELECT expires, bytes FROM %s WHERE key = ?"), key).Scan(&expires, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}

	if expired(expires) {
		return zero, ErrNotFound
	}

	return s.marshaler.Unmarshal(data)
}

// Set stores a value with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = never expires.
func (s *SQLite[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := s.marshaler.Marshal(value)
	if err != nil {
		return err
	}

	var expires int64
	if at := resolveExpiry(ttl, s.opts.defaultTTL); !at.IsZero() {
		expires = at.UnixMilli()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, s.query("INSERT OR REPLACE INTO %s (key, expires, bytes) VALUES (?, ?, ?)"), key, expires, data)
	return err
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *SQLite[V]) Delete(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, s.query("DELETE FROM %s WHERE key = ?"), key)
	return err
}

// Has checks whether a key exists and has not expired.
func (s *SQLite[V]) Has(ctx context.Context, key string) (bool, error) {
	var expires int64

	err := s.db.QueryRowContext(ctx, s.query("SELECT expires FROM %s WHERE key = ?"), key).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return !expired(expires), nil
}

// Clear removes every entry whose key starts with prefix, and every expired
// entry. An empty prefix removes everything.
func (s *SQLite[V]) Clear(ctx context.Context, prefix string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		s.query(`DELETE FROM %s WHERE substr(key, 1, length(?)) = ? OR (expires > 0 AND expires <= ?)`),
		prefix, prefix, time.Now().UnixMilli(),
	)
	return err
}

// ExpiryTime returns the time the entry expires, even if it already has.
// Entries that never expire report the zero time.
func (s *SQLite[V]) ExpiryTime(ctx context.Context, key string) (time.Time, error) {
	var expires int64

	err := s.db.QueryRowContext(ctx, s.query("SELECT expires FROM %s WHERE key = ?"), key).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	if expires == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(expires), nil
}

// Purge removes all expired entries.
func (s *SQLite[V]) Purge(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, s.query("DELETE FROM %s WHERE expires > 0 AND expires <= ?"), time.Now().UnixMilli())
	return err
}

// Close is a no-op. The database handle belongs to the caller.
func (s *SQLite[V]) Close() error {
	return nil
}

func (s *SQLite[V]) query(q string) string {
	return fmt.Sprintf(q, s.opts.table)
}

func expired(expiresMilli int64) bool {
	return expiresMilli > 0 && expiresMilli <= time.Now().UnixMilli()
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_'
	}) < 0
}

var (
	_ Cache[any] = (*SQLite[any])(nil)
	_ Purger     = (*SQLite[any])(nil)
)
