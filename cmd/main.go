package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/wastesync/internal/adapters/http/api"
	"github.com/okian/wastesync/internal/adapters/http/swagger"
	"github.com/okian/wastesync/internal/bootstrap"
	"github.com/okian/wastesync/internal/config"
	"github.com/okian/wastesync/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("wastesync: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled.
func run(ctx context.Context) error {
	// defaults -> optional file -> .env -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := bootstrap.Logger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	shutdownTracer, err := bootstrap.Tracer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn(ctx, "trace exporter shutdown failed", logger.Error(err))
		}
	}()

	svc, closeSink, err := bootstrap.Service(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	if err := svc.TestConnection(ctx); err != nil {
		log.Warn(ctx, "sink not reachable at startup", logger.String("sink", cfg.Sink), logger.Error(err))
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, cfg.MaxRecentLimit).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("sink", cfg.Sink))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}
