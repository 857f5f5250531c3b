package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

similarweb:
  api_key: "test-api-key"
  base_url: "https://sw.test/v1"
  timeout_seconds: 45
  requests_per_second: 2.5

ingest:
  domains: ["a.com", "b.com"]
  start_date: "2023-06"
  end_date: "2023-12"
  granularity: "daily"
  main_domain_only: false

warehouse:
  backend: "snowflake"
  project: "ANALYTICS"
  dataset: "WEB"
  table: "TRAFFIC"
  snowflake:
    account: "acme-xy123"
    user: "loader"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "test-api-key", cfg.Similarweb.APIKey)
	assert.Equal(t, "https://sw.test/v1", cfg.Similarweb.BaseURL)
	assert.Equal(t, 45, cfg.Similarweb.TimeoutSeconds)
	assert.Equal(t, 2.5, cfg.Similarweb.RequestsPerSecond)

	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Ingest.Domains)
	assert.Equal(t, "2023-06", cfg.Ingest.StartDate)
	assert.Equal(t, "2023-12", cfg.Ingest.EndDate)
	assert.Equal(t, "daily", cfg.Ingest.Granularity)
	assert.False(t, cfg.Ingest.MainDomain())

	assert.Equal(t, BackendSnowflake, cfg.Warehouse.Backend)
	assert.Equal(t, "ANALYTICS.WEB.TRAFFIC", cfg.Warehouse.TableID())
	assert.Equal(t, "acme-xy123", cfg.Warehouse.Snowflake.Account)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("warehouse:\n  project: p\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "https://api.similarweb.com/v1", cfg.Similarweb.BaseURL)
	assert.Equal(t, 60, cfg.Similarweb.TimeoutSeconds)
	assert.Equal(t, []string{"example.com"}, cfg.Ingest.Domains)
	assert.Equal(t, "2024-01", cfg.Ingest.StartDate)
	assert.Equal(t, time.Now().Format("2006-01"), cfg.Ingest.EndDate)
	assert.Equal(t, "monthly", cfg.Ingest.Granularity)
	assert.True(t, cfg.Ingest.MainDomain())
	assert.Equal(t, BackendBigQuery, cfg.Warehouse.Backend)
	assert.Equal(t, "p.marketing.similarweb_traffic", cfg.Warehouse.TableID())
	assert.Equal(t, 50, cfg.Redis.HistorySize)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
similarweb:
  api_key: "file-key"
ingest:
  domains: ["file.com"]
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("SIMILARWEB_API_KEY", "env-key")
	t.Setenv("DOMAINS", " a.com, ,b.com ,")
	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("BQ_DATASET", "ds")
	t.Setenv("BQ_TABLE", "tbl")
	t.Setenv("MAIN_DOMAIN_ONLY", "FALSE")
	t.Setenv("START_DATE", "2022-02")
	t.Setenv("END_DATE", "2022-05")
	t.Setenv("GRANULARITY", "weekly")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "env-key", cfg.Similarweb.APIKey)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Ingest.Domains)
	assert.Equal(t, "proj.ds.tbl", cfg.Warehouse.TableID())
	assert.False(t, cfg.Ingest.MainDomain())
	assert.Equal(t, "2022-02", cfg.Ingest.StartDate)
	assert.Equal(t, "2022-05", cfg.Ingest.EndDate)
	assert.Equal(t, "weekly", cfg.Ingest.Granularity)
}

func TestLoadFromEnvMissingFile(t *testing.T) {
	t.Setenv("PROJECT_ID", "proj")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "proj.marketing.similarweb_traffic", cfg.Warehouse.TableID())
	assert.Equal(t, []string{"example.com"}, cfg.Ingest.Domains)
}

func TestLoadFromEnvBadNumber(t *testing.T) {
	t.Setenv("SIMILARWEB_RPS", "fast")

	_, err := LoadFromEnv("")
	assert.Error(t, err)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestSplitDomains(t *testing.T) {
	assert.Equal(t, []string{"x.com"}, SplitDomains("x.com"))
	assert.Equal(t, []string{"x.com", "y.org"}, SplitDomains("x.com,y.org"))
	assert.Equal(t, []string{}, SplitDomains(" , "))
}

func TestLoadFromEnvBlankDomainsStayEmpty(t *testing.T) {
	t.Setenv("DOMAINS", " , ")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.NotNil(t, cfg.Ingest.Domains)
	assert.Empty(t, cfg.Ingest.Domains)
}

func TestTimeout(t *testing.T) {
	cfg := SimilarwebConfig{TimeoutSeconds: 45}
	assert.Equal(t, 45*time.Second, cfg.Timeout())
}
