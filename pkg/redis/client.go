package redis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/subframe/pkg/health"
	"github.com/dmitrymomot/subframe/pkg/logger"
)

// Config describes a connection to the Redis server that backs the page cache.
// Zero values are replaced by the defaults from DefaultConfig.
type Config struct {
	URL             string        `yaml:"url"`
	PoolSize        int           `yaml:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
}

// DefaultConfig returns the connection settings used for unset fields.
func DefaultConfig() Config {
	return Config{
		PoolSize:        10,
		MinIdleConns:    2,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		ConnectAttempts: 3,
		ConnectBackoff:  time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	} else if c.MinIdleConns == 0 {
		c.MinIdleConns = d.MinIdleConns
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = d.ConnectAttempts
	}
	if c.ConnectBackoff <= 0 {
		c.ConnectBackoff = d.ConnectBackoff
	}
	return c
}

// Options converts the configuration into go-redis client options.
func (c Config) Options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, ErrEmptyURL
	}
	if !strings.HasPrefix(c.URL, "redis://") && !strings.HasPrefix(c.URL, "rediss://") {
		return nil, ErrInvalidURL
	}

	c = c.withDefaults()
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = c.MinIdleConns
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	return opts, nil
}

// Connect opens a client and pings the server until it answers or the
// configured attempts run out. The wait between attempts grows linearly.
// Failed attempts are logged through the logger stored in ctx.
func Connect(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= cfg.ConnectAttempts; attempt++ {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		log.WarnContext(ctx, "redis ping failed",
			slog.Int("attempt", attempt),
			slog.String("addr", opts.Addr),
			slog.String("error", lastErr.Error()),
		)
		if attempt == cfg.ConnectAttempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*cfg.ConnectBackoff); err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
	}

	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

// Probe returns a readiness check that pings the server.
func Probe(client redis.UniversalClient) health.CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrUnreachable
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrUnreachable, err)
		}
		return nil
	}
}

// Closer adapts the client to a shutdown hook.
func Closer(client redis.UniversalClient) func(context.Context) error {
	return func(context.Context) error {
		if client == nil {
			return nil
		}
		return client.Close()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
