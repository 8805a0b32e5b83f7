package cache

import (
	"io/fs"
	"time"
)

// FileOption configures the file cache.
type FileOption func(*fileOptions)

type fileOptions struct {
	defaultTTL time.Duration
	dirMode    fs.FileMode
	fileMode   fs.FileMode
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		defaultTTL: 24 * time.Hour,
		dirMode:    0o755,
		fileMode:   0o644,
	}
}

// WithFileDefaultTTL sets the default expiration for cache entries when
// Set is called with a zero TTL.
// Default: 24 hours.
func WithFileDefaultTTL(d time.Duration) FileOption {
	return func(o *fileOptions) {
		o.defaultTTL = d
	}
}

// WithFileMode sets the permissions of cache files and of the directory
// created by NewFile.
// Default: 0644 for files, 0755 for the directory.
func WithFileMode(file, dir fs.FileMode) FileOption {
	return func(o *fileOptions) {
		o.fileMode = file
		o.dirMode = dir
	}
}
