// Package logger builds the slog loggers used across subframe.
//
// [NewFromConfig] creates a JSON or text logger from the "log" section of the
// configuration file. [ContextExtractor] functions add request-scoped
// attributes, such as the request ID, to every record logged with a context:
//
//	log, err := logger.NewFromConfig(cfg.Log, os.Stdout, middlewares.RequestIDExtractor())
//	if err != nil {
//		return err
//	}
//	log.InfoContext(ctx, "page cached", slog.String("key", key))
//	// {"level":"INFO","msg":"page cached","key":"response-blog","request_id":"0190..."}
//
// # Request Scope
//
// The application stores its logger in every request context. Middlewares and
// actions retrieve it with [FromContext], which falls back to a logger that
// discards everything:
//
//	logger.FromContext(ctx).WarnContext(ctx, "page cache write failed", slog.String("error", err.Error()))
//
// # Sentry
//
// When a Sentry DSN is configured, records are sent both to the local handler
// and to Sentry: errors become issues, records from MinLevel up are kept as
// logs. An empty DSN or a failing SDK initialization leaves local logging
// untouched. Register [FlushSentry] as a shutdown hook so buffered events
// leave before the process does.
//
// [NewContextHandler] can wrap any slog.Handler to get the same extraction.
package logger
