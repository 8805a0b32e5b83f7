package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/subframe/pkg/logger"
	"github.com/dmitrymomot/subframe/pkg/redis"
)

// Driver selects the storage behind the page cache.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
	DriverSQLite Driver = "sqlite"
)

// Config is the file configuration of a subframe application.
type Config struct {
	Address         string        `yaml:"address"`
	BasePath        string        `yaml:"base_path"`
	PathInfo        bool          `yaml:"path_info"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	MaxFileBytes    int64         `yaml:"max_file_bytes"`
	Log             logger.Config `yaml:"log"`
	Cache           Cache         `yaml:"cache"`
	Views           Views         `yaml:"views"`
	Static          Static        `yaml:"static"`
}

// Cache configures the response cache middleware and its store.
type Cache struct {
	Enabled       bool          `yaml:"enabled"`
	Driver        Driver        `yaml:"driver"`
	Dir           string        `yaml:"dir"`  // file driver
	Path          string        `yaml:"path"` // sqlite driver
	Redis         redis.Config  `yaml:"redis"`
	TTL           time.Duration `yaml:"ttl"`
	Include       string        `yaml:"include"`
	Exclude       string        `yaml:"exclude"`
	ContentTypes  []string      `yaml:"content_types"`
	DisableGzip   bool          `yaml:"disable_gzip"`
	PurgeSchedule string        `yaml:"purge_schedule"`
	MaxEntries    int           `yaml:"max_entries"` // memory driver
	MaxBytes      int           `yaml:"max_bytes"`   // memory driver
}

// Views configures template and markdown rendering.
type Views struct {
	Dir       string `yaml:"dir"`
	Layout    string `yaml:"layout"`
	ErrorView string `yaml:"error_view"`
}

// Static maps a URL prefix to a directory of assets.
type Static struct {
	Pattern string `yaml:"pattern"`
	Dir     string `yaml:"dir"`
}

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrParse         = errors.New("config: failed to parse")
)

// Default returns the configuration used for keys missing from a file.
func Default() Config {
	return Config{
		Address:         ":8080",
		ShutdownTimeout: 30 * time.Second,
		MaxBodyBytes:    32 << 20,
		Log: logger.Config{
			Level:  "info",
			Format: logger.FormatJSON,
		},
		Cache: Cache{
			Driver:        DriverFile,
			Dir:           "var/cache",
			Path:          "var/cache.db",
			TTL:           time.Hour,
			PurgeSchedule: "@every 15m",
			MaxEntries:    10000,
			MaxBytes:      64 << 20,
		},
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
// ${VAR} and $VAR references are expanded from the environment before decoding.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Address == "" {
		add("address is required")
	}
	if c.ShutdownTimeout < 0 {
		add("shutdown_timeout must not be negative")
	}
	if c.MaxBodyBytes < 0 {
		add("max_body_bytes must not be negative")
	}
	if c.MaxFileBytes < 0 {
		add("max_file_bytes must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	if _, err := logger.ParseLevel(c.Log.Sentry.MinLevel); err != nil {
		add("log.sentry.min_level: %w", err)
	}
	switch c.Log.Format {
	case "", logger.FormatJSON, logger.FormatText:
	default:
		add("log.format: unknown format %q", c.Log.Format)
	}
	if (c.Static.Pattern == "") != (c.Static.Dir == "") {
		add("static.pattern and static.dir must be set together")
	}
	if c.Cache.Enabled {
		errs = append(errs, c.Cache.validate()...)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

func (c Cache) validate() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("cache."+format, args...))
	}

	switch c.Driver {
	case DriverFile:
		if c.Dir == "" {
			add("dir is required for the file driver")
		}
	case DriverSQLite:
		if c.Path == "" {
			add("path is required for the sqlite driver")
		}
	case DriverRedis:
		if _, err := c.Redis.Options(); err != nil {
			add("redis: %w", err)
		}
	case DriverMemory:
		if c.MaxEntries < 0 {
			add("max_entries must not be negative")
		}
		if c.MaxBytes < 0 {
			add("max_bytes must not be negative")
		}
	default:
		add("driver: unknown driver %q", c.Driver)
	}

	if c.TTL < 0 {
		add("ttl must not be negative")
	}
	for key, pattern := range map[string]string{"include": c.Include, "exclude": c.Exclude} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			add("%s: %w", key, err)
		}
	}
	if c.PurgeSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.PurgeSchedule); err != nil {
			add("purge_schedule: %w", err)
		}
	}
	return errs
}
