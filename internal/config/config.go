package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Similarweb SimilarwebConfig `yaml:"similarweb"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// Cloud Run and ECS need all interfaces
	if os.Getenv("K_SERVICE") != "" || os.Getenv("ECS_CONTAINER_METADATA_URI") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// SimilarwebConfig holds Similarweb API configuration
type SimilarwebConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables pacing
	Burst             int     `yaml:"burst"`
}

// Timeout returns the configured timeout as a duration
func (c SimilarwebConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IngestConfig holds the query parameters shared by every domain fetch.
type IngestConfig struct {
	Domains        []string `yaml:"domains"`
	StartDate      string   `yaml:"start_date"` // Format: "2024-01"
	EndDate        string   `yaml:"end_date"`   // Format: "2024-12"
	Granularity    string   `yaml:"granularity"`
	MainDomainOnly *bool    `yaml:"main_domain_only"`
}

// MainDomain reports the main-domain-only flag, defaulting to true.
func (c IngestConfig) MainDomain() bool {
	if c.MainDomainOnly == nil {
		return true
	}
	return *c.MainDomainOnly
}

// Warehouse backends
const (
	BackendBigQuery  = "bigquery"
	BackendSnowflake = "snowflake"
	BackendPostgres  = "postgres"
)

// WarehouseConfig identifies the destination table and the backend holding it.
type WarehouseConfig struct {
	Backend         string          `yaml:"backend"`
	Project         string          `yaml:"project"`
	Dataset         string          `yaml:"dataset"`
	Table           string          `yaml:"table"`
	CredentialsFile string          `yaml:"credentials_file"`
	Snowflake       SnowflakeConfig `yaml:"snowflake"`
	Postgres        PostgresConfig  `yaml:"postgres"`
}

// TableID returns the three-part destination identifier.
func (c WarehouseConfig) TableID() string {
	return fmt.Sprintf("%s.%s.%s", c.Project, c.Dataset, c.Table)
}

// SnowflakeConfig holds Snowflake connection settings. The warehouse
// project maps to the Snowflake database and the dataset to the schema.
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Warehouse string `yaml:"warehouse"`
	Role      string `yaml:"role"`
}

// PostgresConfig holds the PostgreSQL connection URL.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional run-history store settings.
type RedisConfig struct {
	URL         string `yaml:"url"`
	HistorySize int    `yaml:"history_size"`
}

// Enabled reports whether a Redis URL is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// ArchiveConfig holds the optional S3 batch archive settings.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults(time.Now())
	return &cfg, nil
}

func (cfg *Config) applyDefaults(now time.Time) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Similarweb.BaseURL == "" {
		cfg.Similarweb.BaseURL = "https://api.similarweb.com/v1"
	}
	if cfg.Similarweb.TimeoutSeconds == 0 {
		cfg.Similarweb.TimeoutSeconds = 60
	}
	if cfg.Similarweb.Burst == 0 {
		cfg.Similarweb.Burst = 1
	}
	// an explicitly empty list (DOMAINS=" , ") is kept; runs then load nothing
	if cfg.Ingest.Domains == nil {
		cfg.Ingest.Domains = []string{"example.com"}
	}
	if cfg.Ingest.StartDate == "" {
		cfg.Ingest.StartDate = "2024-01"
	}
	if cfg.Ingest.EndDate == "" {
		cfg.Ingest.EndDate = now.Format("2006-01")
	}
	if cfg.Ingest.Granularity == "" {
		cfg.Ingest.Granularity = "monthly"
	}
	if cfg.Warehouse.Backend == "" {
		cfg.Warehouse.Backend = BackendBigQuery
	}
	if cfg.Warehouse.Dataset == "" {
		cfg.Warehouse.Dataset = "marketing"
	}
	if cfg.Warehouse.Table == "" {
		cfg.Warehouse.Table = "similarweb_traffic"
	}
	if cfg.Redis.HistorySize == 0 {
		cfg.Redis.HistorySize = 50
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "similarweb"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars when deployed.
// A missing config file is not an error: defaults plus environment apply.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(time.Now())
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	// Destination
	if v := os.Getenv("WAREHOUSE_BACKEND"); v != "" {
		cfg.Warehouse.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PROJECT_ID"); v != "" {
		cfg.Warehouse.Project = v
	}
	if v := os.Getenv("BQ_DATASET"); v != "" {
		cfg.Warehouse.Dataset = v
	}
	if v := os.Getenv("BQ_TABLE"); v != "" {
		cfg.Warehouse.Table = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Warehouse.CredentialsFile = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Warehouse.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Warehouse.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Warehouse.Snowflake.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_WAREHOUSE"); v != "" {
		cfg.Warehouse.Snowflake.Warehouse = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Warehouse.Postgres.URL = v
	}

	// Similarweb
	if v := os.Getenv("SIMILARWEB_API_KEY"); v != "" {
		cfg.Similarweb.APIKey = v
	}
	if v := os.Getenv("SIMILARWEB_BASE_URL"); v != "" {
		cfg.Similarweb.BaseURL = v
	}
	if v := os.Getenv("SIMILARWEB_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SIMILARWEB_RPS: %w", err)
		}
		cfg.Similarweb.RequestsPerSecond = rps
	}

	// Query parameters
	if v := os.Getenv("DOMAINS"); v != "" {
		cfg.Ingest.Domains = SplitDomains(v)
	}
	if v := os.Getenv("START_DATE"); v != "" {
		cfg.Ingest.StartDate = v
	}
	if v := os.Getenv("END_DATE"); v != "" {
		cfg.Ingest.EndDate = v
	}
	if v := os.Getenv("GRANULARITY"); v != "" {
		cfg.Ingest.Granularity = v
	}
	if v := os.Getenv("MAIN_DOMAIN_ONLY"); v != "" {
		flag := strings.ToLower(v) == "true"
		cfg.Ingest.MainDomainOnly = &flag
	}

	// Optional collaborators
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.Region = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// SplitDomains parses a comma-separated domain list, dropping blanks. The
// result is never nil, so an all-blank list stays empty.
func SplitDomains(s string) []string {
	domains := []string{}
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}
