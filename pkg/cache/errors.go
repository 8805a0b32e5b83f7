package cache

import "errors"

var (
	ErrNotFound   = errors.New("cache: entry not found")
	ErrClosed     = errors.New("cache: closed")
	ErrInvalidKey = errors.New("cache: invalid key")
	ErrMarshal    = errors.New("cache: encode value")
	ErrUnmarshal  = errors.New("cache: decode value")

	// ErrInvalidSchedule is returned by NewScheduler for unparsable cron
	// expressions.
	ErrInvalidSchedule = errors.New("cache: invalid purge schedule")
)
