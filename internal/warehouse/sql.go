package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	sf "github.com/snowflakedb/gosnowflake"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/pkg/distlock"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

// insertChunkSize caps the rows per multi-row INSERT statement.
const insertChunkSize = 500

// dialect captures what differs between the SQL backends.
type dialect struct {
	name        string
	placeholder func(n int) string
	existsQuery string
	ddl         func(schema, table string) []string
	// lockDDL runs provisioning in one transaction under an advisory lock.
	lockDDL bool
}

var snowflakeDialect = dialect{
	name:        config.BackendSnowflake,
	placeholder: func(int) string { return "?" },
	existsQuery: `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = UPPER(?) AND table_name = UPPER(?)`,
	ddl: func(schema, table string) []string {
		return []string{
			fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	domain STRING NOT NULL,
	date DATE NOT NULL,
	visits FLOAT,
	avg_visit_duration FLOAT,
	pages_per_visit FLOAT,
	bounce_rate FLOAT,
	source STRING,
	ingested_at TIMESTAMP_NTZ
) CLUSTER BY (date, domain)`, schema, table),
		}
	},
}

var postgresDialect = dialect{
	name:        config.BackendPostgres,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	existsQuery: `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`,
	ddl: func(schema, table string) []string {
		return []string{
			fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	domain TEXT NOT NULL,
	date DATE NOT NULL,
	visits DOUBLE PRECISION,
	avg_visit_duration DOUBLE PRECISION,
	pages_per_visit DOUBLE PRECISION,
	bounce_rate DOUBLE PRECISION,
	source TEXT,
	ingested_at TIMESTAMPTZ
) PARTITION BY RANGE (date)`, schema, table),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s_default PARTITION OF %s.%s DEFAULT",
				schema, table, schema, table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_domain_idx ON %s.%s (domain)",
				table, schema, table),
		}
	},
	lockDDL: true,
}

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLWarehouse is a database/sql backed Warehouse.
type SQLWarehouse struct {
	db      *sql.DB
	dialect dialect
	schema  string
	table   string
	tableID string
}

// NewSnowflake opens a Snowflake connection. The warehouse project maps to
// the Snowflake database and the dataset to the schema.
func NewSnowflake(cfg config.WarehouseConfig) (*SQLWarehouse, error) {
	sfc := cfg.Snowflake
	if sfc.Account == "" || sfc.User == "" {
		return nil, errors.New("snowflake: account and user are required")
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   sfc.Account,
		User:      sfc.User,
		Password:  sfc.Password,
		Database:  cfg.Project,
		Schema:    cfg.Dataset,
		Warehouse: sfc.Warehouse,
		Role:      sfc.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("building snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLWarehouse(db, snowflakeDialect, cfg.Dataset, cfg.Table, cfg.TableID()), nil
}

// NewPostgres opens a PostgreSQL connection. The dataset maps to the schema;
// the database comes from the connection URL.
func NewPostgres(cfg config.WarehouseConfig) (*SQLWarehouse, error) {
	if cfg.Postgres.URL == "" {
		return nil, errors.New("postgres: DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLWarehouse(db, postgresDialect, cfg.Dataset, cfg.Table, QualifiedName(cfg)), nil
}

func newSQLWarehouse(db *sql.DB, d dialect, schema, table, tableID string) *SQLWarehouse {
	return &SQLWarehouse{db: db, dialect: d, schema: schema, table: table, tableID: tableID}
}

func (w *SQLWarehouse) TableID() string { return w.tableID }

func (w *SQLWarehouse) qualified() string {
	return w.schema + "." + w.table
}

// EnsureTable creates the schema and table when the table is absent.
// Concurrent CREATE ... IF NOT EXISTS can still collide in Postgres, so
// that backend re-checks and creates under an advisory lock.
func (w *SQLWarehouse) EnsureTable(ctx context.Context) error {
	exists, err := w.tableExists(ctx, w.db)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if w.dialect.lockDDL {
		err = w.createLocked(ctx)
	} else {
		err = w.create(ctx, w.db)
	}
	if err != nil {
		return err
	}

	logger.Info("warehouse: created table", "table", w.tableID, "backend", w.dialect.name)
	return nil
}

func (w *SQLWarehouse) tableExists(ctx context.Context, q sqlExecutor) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, w.dialect.existsQuery, w.schema, w.table).Scan(&count); err != nil {
		return false, &ProvisionError{Table: w.tableID, Op: "lookup table", Err: err}
	}
	return count > 0, nil
}

func (w *SQLWarehouse) create(ctx context.Context, q sqlExecutor) error {
	for _, stmt := range w.dialect.ddl(w.schema, w.table) {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return &ProvisionError{Table: w.tableID, Op: "create table", Err: err}
		}
	}
	return nil
}

func (w *SQLWarehouse) createLocked(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return &ProvisionError{Table: w.tableID, Op: "begin", Err: err}
	}
	defer tx.Rollback()

	if err := distlock.LockTx(ctx, tx, "warehouse:"+w.tableID); err != nil {
		return &ProvisionError{Table: w.tableID, Op: "lock", Err: err}
	}

	// another process may have finished while we waited
	exists, err := w.tableExists(ctx, tx)
	if err != nil {
		return err
	}
	if !exists {
		if err := w.create(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &ProvisionError{Table: w.tableID, Op: "commit", Err: err}
	}
	return nil
}

// InsertRows appends rows in a single transaction.
func (w *SQLWarehouse) InsertRows(ctx context.Context, rows []domain.TrafficRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return &InsertError{Table: w.tableID, Err: fmt.Errorf("begin: %w", err)}
	}

	for start := 0; start < len(rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args := w.buildInsert(rows[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return &InsertError{Table: w.tableID, Errors: []string{err.Error()}, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &InsertError{Table: w.tableID, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func (w *SQLWarehouse) buildInsert(rows []domain.TrafficRow) (string, []interface{}) {
	cols := columnNames()
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", w.qualified(), strings.Join(cols, ", "))

	args := make([]interface{}, 0, len(rows)*len(cols))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(w.dialect.placeholder(len(args) + j + 1))
		}
		b.WriteString(")")
		args = append(args,
			r.Domain,
			r.Date,
			nullFloat(r.Visits),
			nullFloat(r.AvgVisitDuration),
			nullFloat(r.PagesPerVisit),
			nullFloat(r.BounceRate),
			r.Source,
			r.IngestedAt.UTC(),
		)
	}
	return b.String(), args
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Ping tests the database connection
func (w *SQLWarehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// Close closes the database connection
func (w *SQLWarehouse) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}
