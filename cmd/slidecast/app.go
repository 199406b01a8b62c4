package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidecast/internal/config"
	"github.com/ivlev/slidecast/internal/coordinator"
	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/metrics"
	"github.com/ivlev/slidecast/internal/storage/sqlite"
)

type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *sqlite.Store
	metrics *metrics.Metrics
	coord   *coordinator.Coordinator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	a := &app{
		cfg:     cfg,
		log:     logger.DefaultLogger,
		store:   store,
		metrics: metrics.New(),
	}
	a.coord = coordinator.New(coordinator.Config{
		Store:         store,
		Logger:        a.log,
		Metrics:       a.metrics,
		AutoPlayDelay: cfg.AutoPlayDelay,
		AutoPlayCount: cfg.AutoPlayCount,
	})
	return a, nil
}

func (a *app) close() {
	if a.coord != nil {
		_ = a.coord.Close()
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

// serveMetrics exposes /metrics until ctx is done. It does nothing when no
// address is configured.
func (a *app) serveMetrics(ctx context.Context, g *errgroup.Group) {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		fmt.Printf("[*] Метрики: http://%s/metrics\n", a.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
