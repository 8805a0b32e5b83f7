package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically purges expired entries from caches whose storage
// does not expire them on its own (files, SQLite).
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	caches  []Purger
	timeout time.Duration
	mu      sync.Mutex
	started bool
}

// NewScheduler creates a purge scheduler from a standard 5-field cron
// expression (minute hour day-of-month month day-of-week), e.g. "*/15 * * * *".
// Descriptors such as "@hourly" and "@every 10m" are accepted too.
func NewScheduler(schedule string, logger *slog.Logger, caches ...Purger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, schedule, err)
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		logger:  logger,
		caches:  caches,
		timeout: time.Minute,
	}
	s.cron.Schedule(sched, cron.FuncJob(s.run))

	return s, nil
}

// Start begins running purges in the background.
// It blocks until ctx is cancelled, then waits for a running purge to finish.
// Compatible with the app runtime's background task signature.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("cache: scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()

	return nil
}

// PurgeNow runs one purge of every cache synchronously.
// Every cache is tried; the errors are joined.
func (s *Scheduler) PurgeNow(ctx context.Context) error {
	var errs []error
	for _, c := range s.caches {
		if err := c.Purge(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.PurgeNow(ctx); err != nil {
		s.logger.ErrorContext(ctx, "cache purge failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}

	s.logger.DebugContext(ctx, "cache purged",
		slog.Int("caches", len(s.caches)),
		slog.Duration("duration", time.Since(start)),
	)
}
