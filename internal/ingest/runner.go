// Package ingest runs the provision, fetch and load pipeline for the
// configured domains.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/metrics"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
	"github.com/ignite/similarweb-ingest/internal/similarweb"
	"github.com/ignite/similarweb-ingest/internal/warehouse"
)

// Fetcher returns the traffic rows for one domain.
type Fetcher interface {
	FetchVisits(ctx context.Context, site string) ([]domain.TrafficRow, error)
}

// RunStore persists run records. Implementations return (nil, nil) from
// Last when no run has been recorded.
type RunStore interface {
	Save(ctx context.Context, rec domain.RunRecord) error
	Last(ctx context.Context) (*domain.RunRecord, error)
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// Archiver keeps a copy of a loaded batch and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, runID string, at time.Time, rows []domain.TrafficRow) (string, error)
}

// Result is returned by a successful run.
type Result struct {
	RunID    string `json:"run_id"`
	Inserted int    `json:"inserted"`
}

// StatusReport summarises the configuration without doing any work.
type StatusReport struct {
	Status  string            `json:"status"`
	Domains []string          `json:"domains"`
	Dataset string            `json:"dataset"`
	LastRun *domain.RunRecord `json:"last_run,omitempty"`
}

// Runner executes ingestion runs. It holds no per-run state, so concurrent
// Run calls are allowed and are not serialized.
type Runner struct {
	apiKey    string
	domains   []string
	fetcher   Fetcher
	warehouse warehouse.Warehouse
	store     RunStore
	archiver  Archiver
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

// Option customises a Runner.
type Option func(*Runner)

// WithRunStore records every run that passes the API key check.
func WithRunStore(s RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithArchiver archives each successfully loaded batch.
func WithArchiver(a Archiver) Option {
	return func(r *Runner) { r.archiver = a }
}

// WithMetrics records run outcomes and inserted rows.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock overrides time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithIDGenerator overrides the run ID source, uuid.NewString by default.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) { r.newID = newID }
}

// NewRunner wires a runner from configuration and its collaborators.
func NewRunner(cfg *config.Config, fetcher Fetcher, wh warehouse.Warehouse, opts ...Option) *Runner {
	r := &Runner{
		apiKey:    cfg.Similarweb.APIKey,
		domains:   append([]string(nil), cfg.Ingest.Domains...),
		fetcher:   fetcher,
		warehouse: wh,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Domains returns the configured domains in fetch order.
func (r *Runner) Domains() []string {
	return append([]string(nil), r.domains...)
}

// Run provisions the table, fetches every domain in order and loads the
// combined batch. Any provisioning or fetch failure aborts before loading.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.apiKey == "" {
		r.metrics.ObserveRun(metrics.OutcomeConfigError, 0, 0)
		return nil, ErrMissingAPIKey
	}

	runID := r.newID()
	started := r.now()
	logger.Info("ingest: run started", "run_id", runID, "domains", r.domains, "table", r.warehouse.TableID())

	rows, err := r.collect(ctx)
	inserted := 0
	if err == nil {
		inserted, err = r.load(ctx, rows)
	}

	rec := domain.RunRecord{
		RunID:      runID,
		StartedAt:  started.UTC(),
		FinishedAt: r.now().UTC(),
		Domains:    r.Domains(),
		Inserted:   inserted,
	}
	if err != nil {
		// records are served over HTTP; never persist a key
		rec.Error = logger.RedactURL(err.Error())
	}
	r.metrics.ObserveRun(outcomeFor(err), inserted, rec.Duration())
	r.record(ctx, rec)

	if err != nil {
		logger.Error("ingest: run failed", "run_id", runID, "error", err)
		return nil, err
	}

	logger.Info("ingest: run finished", "run_id", runID, "inserted", inserted,
		"duration", rec.Duration().String())
	r.archive(ctx, runID, started, rows)
	return &Result{RunID: runID, Inserted: inserted}, nil
}

// collect provisions the destination and fetches every domain sequentially.
func (r *Runner) collect(ctx context.Context) ([]domain.TrafficRow, error) {
	if err := r.warehouse.EnsureTable(ctx); err != nil {
		return nil, err
	}

	var rows []domain.TrafficRow
	for _, site := range r.domains {
		siteRows, err := r.fetcher.FetchVisits(ctx, site)
		if err != nil {
			return nil, err
		}
		logger.Debug("ingest: fetched", "domain", site, "rows", len(siteRows))
		rows = append(rows, siteRows...)
	}
	return rows, nil
}

// load appends rows in one call. An empty batch never reaches the warehouse.
func (r *Runner) load(ctx context.Context, rows []domain.TrafficRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := r.warehouse.InsertRows(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *Runner) record(ctx context.Context, rec domain.RunRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, rec); err != nil {
		logger.Warn("ingest: failed to record run", "run_id", rec.RunID, "error", err)
	}
}

func (r *Runner) archive(ctx context.Context, runID string, at time.Time, rows []domain.TrafficRow) {
	if r.archiver == nil || len(rows) == 0 {
		return
	}
	key, err := r.archiver.Archive(ctx, runID, at, rows)
	if err != nil {
		logger.Warn("ingest: failed to archive batch", "run_id", runID, "error", err)
		return
	}
	logger.Debug("ingest: archived batch", "run_id", runID, "key", key)
}

// Status reports the configured domains and destination. The last run is
// included when a run store is configured and reachable.
func (r *Runner) Status(ctx context.Context) StatusReport {
	report := StatusReport{
		Status:  "ok",
		Domains: r.Domains(),
		Dataset: r.warehouse.TableID(),
	}
	if r.store == nil {
		return report
	}
	last, err := r.store.Last(ctx)
	if err != nil {
		logger.Warn("ingest: failed to read last run", "error", err)
		return report
	}
	report.LastRun = last
	return report
}

// History returns up to limit recent runs, newest first. Without a run
// store it returns an empty list.
func (r *Runner) History(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if r.store == nil {
		return []domain.RunRecord{}, nil
	}
	return r.store.List(ctx, limit)
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case similarweb.IsGatewayError(err):
		return metrics.OutcomeGatewayError
	case warehouse.IsProvisionError(err):
		return metrics.OutcomeProvisionFail
	default:
		return metrics.OutcomeLoadError
	}
}
