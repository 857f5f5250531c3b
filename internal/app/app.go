// Package app assembles the ingestion runner and its collaborators from
// configuration. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/similarweb-ingest/internal/api"
	"github.com/ignite/similarweb-ingest/internal/archive"
	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/ingest"
	"github.com/ignite/similarweb-ingest/internal/metrics"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
	"github.com/ignite/similarweb-ingest/internal/runstore"
	"github.com/ignite/similarweb-ingest/internal/similarweb"
	"github.com/ignite/similarweb-ingest/internal/warehouse"
)

// App holds the process-lifetime clients.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Client    *similarweb.Client
	Warehouse warehouse.Warehouse
	Store     *runstore.Store // nil unless Redis is configured
	Runner    *ingest.Runner
}

// New opens the warehouse and the optional run store and archive. Run
// store and archive failures are logged and the feature is disabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	m := metrics.New()
	client := similarweb.NewClient(cfg.Similarweb, cfg.Ingest, similarweb.WithMetrics(m))

	wh, err := warehouse.New(ctx, cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("opening warehouse: %w", err)
	}

	a := &App{Config: cfg, Metrics: m, Client: client, Warehouse: wh}
	opts := []ingest.Option{ingest.WithMetrics(m)}

	if cfg.Redis.Enabled() {
		store, err := runstore.NewFromURL(ctx, cfg.Redis.URL, cfg.Redis.HistorySize)
		if err != nil {
			logger.Warn("app: run store disabled", "error", err)
		} else {
			a.Store = store
			opts = append(opts, ingest.WithRunStore(store))
		}
	}

	if cfg.Archive.Enabled {
		arch, err := archive.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			logger.Warn("app: archive disabled", "error", err)
		} else {
			opts = append(opts, ingest.WithArchiver(arch))
		}
	}

	a.Runner = ingest.NewRunner(cfg, client, wh, opts...)
	return a, nil
}

// HealthChecker builds the health checker for the configured dependencies.
func (a *App) HealthChecker() *api.HealthChecker {
	hc := api.NewHealthChecker(a.Warehouse)
	if a.Store != nil {
		hc.AddCheck("redis", a.Store)
	} else {
		hc.AddCheck("redis", nil)
	}
	return hc
}

// Server builds the HTTP server.
func (a *App) Server() *api.Server {
	return api.NewServer(a.Config.Server, api.NewHandlers(a.Runner), a.HealthChecker(), a.Metrics)
}

// Close releases the warehouse and run store connections.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Warehouse != nil {
		errs = append(errs, a.Warehouse.Close())
	}
	return errors.Join(errs...)
}
