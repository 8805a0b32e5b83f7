package cache

import "time"

// SQLiteOption configures the SQLite cache.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	table      string
	defaultTTL time.Duration
}

func defaultSQLiteOptions() *sqliteOptions {
	return &sqliteOptions{
		table:      "cache",
		defaultTTL: time.Hour,
	}
}

// WithSQLiteTable sets the table name. Only letters, digits and underscores
// are allowed. Several caches can share one database using distinct tables.
// Default: "cache".
func WithSQLiteTable(name string) SQLiteOption {
	return func(o *sqliteOptions) {
		o.table = name
	}
}

// WithSQLiteDefaultTTL sets the default expiration for cache entries when
// Set is called with a zero TTL.
// Default: 1 hour.
func WithSQLiteDefaultTTL(d time.Duration) SQLiteOption {
	return func(o *sqliteOptions) {
		o.defaultTTL = d
	}
}
