package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"cloud.google.com/go/bigquery"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

const timestampLayout = "2006-01-02 15:04:05.000000"

type datasetAPI interface {
	Create(ctx context.Context, md *bigquery.DatasetMetadata) error
}

type tableAPI interface {
	Metadata(ctx context.Context) (*bigquery.TableMetadata, error)
	Create(ctx context.Context, md *bigquery.TableMetadata) error
	Put(ctx context.Context, src interface{}) error
}

// bqTable adapts *bigquery.Table to tableAPI.
type bqTable struct {
	table *bigquery.Table
}

func (t bqTable) Metadata(ctx context.Context) (*bigquery.TableMetadata, error) {
	return t.table.Metadata(ctx)
}

func (t bqTable) Create(ctx context.Context, md *bigquery.TableMetadata) error {
	return t.table.Create(ctx, md)
}

func (t bqTable) Put(ctx context.Context, src interface{}) error {
	return t.table.Inserter().Put(ctx, src)
}

// BigQuery appends rows to a date-partitioned BigQuery table.
type BigQuery struct {
	client  *bigquery.Client
	tableID string
	dataset datasetAPI
	table   tableAPI
}

// NewBigQuery creates a client for cfg.Project. When a credentials file is
// configured it is used as a service-account key; otherwise Application
// Default Credentials apply.
func NewBigQuery(ctx context.Context, cfg config.WarehouseConfig, opts ...option.ClientOption) (*BigQuery, error) {
	if cfg.Project == "" {
		return nil, errors.New("bigquery: project is required")
	}

	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials: %w", err)
		}
		jwt, err := google.JWTConfigFromJSON(data, bigquery.Scope)
		if err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(jwt.TokenSource(ctx)))
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}

	ds := client.Dataset(cfg.Dataset)
	return &BigQuery{
		client:  client,
		tableID: cfg.TableID(),
		dataset: ds,
		table:   bqTable{table: ds.Table(cfg.Table)},
	}, nil
}

func (b *BigQuery) TableID() string { return b.tableID }

// EnsureTable creates the dataset and the partitioned, clustered table if
// the table does not exist yet.
func (b *BigQuery) EnsureTable(ctx context.Context) error {
	_, err := b.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !hasStatus(err, http.StatusNotFound) {
		return &ProvisionError{Table: b.tableID, Op: "lookup table", Err: err}
	}

	if err := b.dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !hasStatus(err, http.StatusConflict) {
		return &ProvisionError{Table: b.tableID, Op: "create dataset", Err: err}
	}

	md := &bigquery.TableMetadata{
		Schema: bigQuerySchema(),
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: partitionColumn,
		},
		Clustering: &bigquery.Clustering{Fields: []string{clusterColumn}},
	}
	if err := b.table.Create(ctx, md); err != nil && !hasStatus(err, http.StatusConflict) {
		return &ProvisionError{Table: b.tableID, Op: "create table", Err: err}
	}

	logger.Info("warehouse: created table", "table", b.tableID, "backend", config.BackendBigQuery)
	return nil
}

// InsertRows streams rows with a single Put call.
func (b *BigQuery) InsertRows(ctx context.Context, rows []domain.TrafficRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*rowSaver, len(rows))
	for i := range rows {
		savers[i] = &rowSaver{row: rows[i]}
	}

	if err := b.table.Put(ctx, savers); err != nil {
		var multi bigquery.PutMultiError
		if errors.As(err, &multi) {
			msgs := make([]string, 0, len(multi))
			for _, rowErr := range multi {
				msgs = append(msgs, fmt.Sprintf("row %d: %v", rowErr.RowIndex, rowErr.Errors))
			}
			return &InsertError{Table: b.tableID, Errors: msgs, Err: err}
		}
		return &InsertError{Table: b.tableID, Err: err}
	}
	return nil
}

// Ping checks that the API answers for the destination. A missing table
// still counts as reachable.
func (b *BigQuery) Ping(ctx context.Context) error {
	_, err := b.table.Metadata(ctx)
	if err == nil || hasStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (b *BigQuery) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// rowSaver maps a TrafficRow onto the table columns.
type rowSaver struct {
	row domain.TrafficRow
}

// Save implements bigquery.ValueSaver. The insert ID is left empty: the
// client then generates a random one per row, so streaming dedup never
// spans runs and re-running a window appends duplicates.
func (s *rowSaver) Save() (map[string]bigquery.Value, string, error) {
	r := s.row
	return map[string]bigquery.Value{
		"domain":             r.Domain,
		"date":               r.Date,
		"visits":             floatValue(r.Visits),
		"avg_visit_duration": floatValue(r.AvgVisitDuration),
		"pages_per_visit":    floatValue(r.PagesPerVisit),
		"bounce_rate":        floatValue(r.BounceRate),
		"source":             r.Source,
		"ingested_at":        r.IngestedAt.UTC().Format(timestampLayout),
	}, "", nil
}

func floatValue(v *float64) bigquery.Value {
	if v == nil {
		return nil
	}
	return *v
}

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
