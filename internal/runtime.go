package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/subframe/pkg/logger"
)

const (
	defaultAddress           = ":8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
	defaultShutdownTimeout   = 30 * time.Second
)

// server drives one handler through its lifecycle: startup hooks, serving
// alongside background tasks, then draining and shutdown hooks.
type server struct {
	srv *http.Server
	cfg runConfig
	log *slog.Logger
}

func newServer(addr string, h http.Handler, cfg runConfig) *server {
	if addr == "" {
		addr = defaultAddress
	}
	if cfg.baseCtx == nil {
		cfg.baseCtx = context.Background()
	}
	if cfg.shutdownTimeout <= 0 {
		cfg.shutdownTimeout = defaultShutdownTimeout
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}

	return &server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			MaxHeaderBytes:    defaultMaxHeaderBytes,
		},
		cfg: cfg,
		log: cfg.logger,
	}
}

// run blocks until a signal arrives, the base context ends, serving fails
// or a background task returns an error.
func (s *server) run() error {
	ctx, stop := signal.NotifyContext(s.cfg.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, s.log)

	for _, hook := range s.cfg.startupHooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range s.cfg.background {
		g.Go(func() error { return task(gctx) })
	}
	g.Go(func() error {
		s.log.Info("server started", slog.String("address", ln.Addr().String()))
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	<-gctx.Done()
	return s.shutdown(g)
}

// shutdown drains connections, waits for the group and runs the hooks, all
// within one shutdown timeout. Every failure is reported.
func (s *server) shutdown(g *errgroup.Group) error {
	s.log.Info("server stopping")

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), s.log), s.cfg.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain connections: %w", err))
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	for _, hook := range s.cfg.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Error("server stopped with errors", slog.String("error", err.Error()))
		return err
	}
	s.log.Info("server stopped")
	return nil
}
