package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig forwards records to Sentry when DSN is set.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"` // default: production
	Release     string `yaml:"release"`
	// MinLevel names the lowest level stored as a Sentry log (default: warn).
	// Errors always become issues.
	MinLevel string `yaml:"min_level"`
}

// sentryLevels are the levels the SDK handler knows, lowest first.
var sentryLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

// withSentry tees h into Sentry. Without a DSN, or when the SDK refuses the
// configuration, h is returned as is and the failure is logged through h.
func withSentry(h slog.Handler, cfg SentryConfig) slog.Handler {
	if cfg.DSN == "" {
		return h
	}

	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(h).Error("sentry disabled", slog.String("error", err.Error()))
		return h
	}

	minLevel := slog.LevelWarn
	if cfg.MinLevel != "" {
		if l, err := ParseLevel(cfg.MinLevel); err == nil {
			minLevel = l
		}
	}
	var logLevels []slog.Level
	for _, l := range sentryLevels {
		if l >= minLevel {
			logLevels = append(logLevels, l)
		}
	}

	return fanout{h, sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevels,
	}.NewSentryHandler(context.Background())}
}

// FlushSentry waits for buffered Sentry events until ctx ends. It is a no-op
// when Sentry was never initialized, so it can always be registered as a
// shutdown hook.
func FlushSentry(ctx context.Context) error {
	if sentry.CurrentHub().Client() == nil {
		return nil
	}
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !sentry.Flush(timeout) {
		return context.DeadlineExceeded
	}
	return nil
}
