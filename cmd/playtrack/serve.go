package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/playtrack"
)

const shutdownTimeout = 5 * time.Second

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Serve runs the daemon until SIGINT or SIGTERM.
func (c *command) Serve(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := playtrack.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = closer.Close() }()
	slog.SetDefault(logger)

	tr, err := playtrack.New(cfg, playtrack.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			logger.Warn("close tracker", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		if err := playtrack.RegisterMetricsDefault(); err != nil {
			logger.Warn("failed to register metrics", "error", err)
		}
		msrv := playtrack.NewMetricsServer(cfg.Metrics.Listen)
		go func() {
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "listen", cfg.Metrics.Listen, "error", err)
			}
		}()
		defer shutdown(msrv)
		logger.Info("metrics listening", "listen", cfg.Metrics.Listen)
	}

	ctx, stop := signalContext(ctx)
	defer stop()

	tr.Init(ctx)
	if err := tr.Start(ctx); err != nil {
		return err
	}
	logger.Info("tracker started", "interval", tr.Interval(), "catalog", len(tr.Catalog()))

	if cfg.Catalog.RescanInterval > 0 {
		sched := playtrack.NewScheduler(logger)
		err := sched.Add(&playtrack.Job{
			Name:      "catalog-rescan",
			Schedule:  cfg.Catalog.RescanInterval.String(),
			Singleton: true,
			Run:       func(context.Context) { tr.RescanCatalog() },
		})
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if cfg.Server.Enabled {
		srv, err := playtrack.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, tr)
		if err != nil {
			return fmt.Errorf("start api server: %w", err)
		}
		defer shutdown(srv)
		logger.Info("api listening", "listen", cfg.Server.Listen, "base_path", cfg.Server.BasePath)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
