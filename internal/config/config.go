// Package config handles loading and validating Bureau configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for Bureau.
type Config struct {
	DataDir       string               `json:"data_dir,omitempty" yaml:"data_dir,omitempty"` // Persistent data directory. Default: ~/.bureau/data. Override: BUREAU_DATA_DIR env var.
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"`   // nil = SQLite under DataDir
	HTTP          HTTPConfig           `json:"http" yaml:"http"`
	Security      SecurityConfig       `json:"security" yaml:"security"`
	RateLimit     RateLimitConfig      `json:"rate_limit" yaml:"rate_limit"`
	Visitors      VisitorsConfig       `json:"visitors" yaml:"visitors"`
	Scheduler     *SchedulerConfig     `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`         // nil = background jobs disabled
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
}

// StorageConfig configures the persistence backend.
type StorageConfig struct {
	Driver   string                 `json:"driver" yaml:"driver"` // "sqlite" (default) or "postgres".
	SQLite   *SQLiteStorageConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	Postgres *PostgresStorageConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return "sqlite"
}

// SQLiteStorageConfig holds SQLite-specific settings.
type SQLiteStorageConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"` // Default: <data_dir>/bureau.db.
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`     // "wal" (default), "delete", "truncate", etc.
}

// PostgresStorageConfig holds PostgreSQL-specific settings.
type PostgresStorageConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`                                 // Override: BUREAU_DB_DSN env var.
	MaxOpenConns     int    `json:"max_open_conns" yaml:"max_open_conns"`           // Default: 25
	MaxIdleConns     int    `json:"max_idle_conns" yaml:"max_idle_conns"`           // Default: 5
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s" yaml:"conn_max_lifetime_s"` // Default: 1800 (30 min)
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	ListenAddr     string         `json:"listen_addr" yaml:"listen_addr"`           // Default: ":8080".
	EnableDocs     bool           `json:"enable_docs" yaml:"enable_docs"`           // Serve OpenAPI docs.
	MaxRequestSize int64          `json:"max_request_size" yaml:"max_request_size"` // Bytes. Default: 1 MB.
	APIKeys        []APIKeyConfig `json:"api_keys" yaml:"api_keys"`
	AdminKeys      []string       `json:"admin_keys" yaml:"admin_keys"` // Keys allowed on /v1/admin. BUREAU_ADMIN_KEY is appended.
	FeedPath       string         `json:"feed_path" yaml:"feed_path"`   // Default: "/v1/visits/feed".
	// FeedHeartbeatSeconds is the ping interval on live feed connections. Default: 30.
	FeedHeartbeatSeconds int `json:"feed_heartbeat_seconds" yaml:"feed_heartbeat_seconds"`
}

// APIKeyConfig maps an API key to the email of the user it acts as. The
// user is looked up in the company named by the X-Company-ID header.
type APIKeyConfig struct {
	Key   string `json:"key" yaml:"key"`
	Email string `json:"email" yaml:"email"`
}

// Addr returns the listen address with a default of ":8080".
func (h HTTPConfig) Addr() string {
	if h.ListenAddr != "" {
		return h.ListenAddr
	}
	return ":8080"
}

// RequestLimit returns the maximum request body size with a default of 1 MB.
func (h HTTPConfig) RequestLimit() int64 {
	if h.MaxRequestSize > 0 {
		return h.MaxRequestSize
	}
	return 1 << 20
}

// FeedRoute returns the live feed path with a default of "/v1/visits/feed".
func (h HTTPConfig) FeedRoute() string {
	if h.FeedPath != "" {
		return h.FeedPath
	}
	return "/v1/visits/feed"
}

// FeedHeartbeat returns the feed ping interval with a default of 30s.
func (h HTTPConfig) FeedHeartbeat() time.Duration {
	if h.FeedHeartbeatSeconds > 0 {
		return time.Duration(h.FeedHeartbeatSeconds) * time.Second
	}
	return 30 * time.Second
}

// SecurityConfig configures roles. Empty Roles means the built-in roles.
type SecurityConfig struct {
	Roles []RoleConfig `json:"roles" yaml:"roles"`
}

// RoleConfig is a named set of "resource:action" permissions.
type RoleConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// RateLimitConfig configures per-user request limits.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"` // 0 = unlimited.
	BurstSize         int `json:"burst_size" yaml:"burst_size"`                   // Default: requests_per_minute.
}

// VisitorsConfig configures visitor management.
type VisitorsConfig struct {
	StaleAfterHours int `json:"stale_after_hours" yaml:"stale_after_hours"` // Open visits older than this are auto-closed. Default: 12.
	FeedBuffer      int `json:"feed_buffer" yaml:"feed_buffer"`             // Per-subscriber event buffer. Default: 32.
}

// StaleAfter returns the auto-checkout threshold with a default of 12h.
func (v VisitorsConfig) StaleAfter() time.Duration {
	if v.StaleAfterHours > 0 {
		return time.Duration(v.StaleAfterHours) * time.Hour
	}
	return 12 * time.Hour
}

// Buffer returns the feed buffer size with a default of 32.
func (v VisitorsConfig) Buffer() int {
	if v.FeedBuffer > 0 {
		return v.FeedBuffer
	}
	return 32
}

// SchedulerConfig configures background jobs. Schedules use cron syntax
// including descriptors such as "@every 15m".
type SchedulerConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	CloseStaleVisits   string `json:"close_stale_visits" yaml:"close_stale_visits"`     // Default: "@every 15m".
	PruneRateLimiter   string `json:"prune_rate_limiter" yaml:"prune_rate_limiter"`     // Default: "@hourly".
	JobTimeoutSeconds  int    `json:"job_timeout_seconds" yaml:"job_timeout_seconds"`   // Default: 300.
	MaxConcurrentJobs  int    `json:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`   // Default: 2.
	LimiterIdleMinutes int    `json:"limiter_idle_minutes" yaml:"limiter_idle_minutes"` // Default: 30.
}

// CloseStaleSchedule returns the stale-visit schedule with a default of every 15 minutes.
func (s *SchedulerConfig) CloseStaleSchedule() string {
	if s != nil && s.CloseStaleVisits != "" {
		return s.CloseStaleVisits
	}
	return "@every 15m"
}

// PruneSchedule returns the limiter prune schedule with a default of hourly.
func (s *SchedulerConfig) PruneSchedule() string {
	if s != nil && s.PruneRateLimiter != "" {
		return s.PruneRateLimiter
	}
	return "@hourly"
}

// JobTimeout returns the per-run timeout with a default of 5 minutes.
func (s *SchedulerConfig) JobTimeout() time.Duration {
	if s != nil && s.JobTimeoutSeconds > 0 {
		return time.Duration(s.JobTimeoutSeconds) * time.Second
	}
	return 5 * time.Minute
}

// MaxConcurrent returns the max concurrent jobs with a default of 2.
func (s *SchedulerConfig) MaxConcurrent() int {
	if s != nil && s.MaxConcurrentJobs > 0 {
		return s.MaxConcurrentJobs
	}
	return 2
}

// LimiterIdle returns how long a rate limit bucket may sit idle before it is pruned.
func (s *SchedulerConfig) LimiterIdle() time.Duration {
	if s != nil && s.LimiterIdleMinutes > 0 {
		return time.Duration(s.LimiterIdleMinutes) * time.Minute
	}
	return 30 * time.Minute
}

// ObservabilityConfig configures metrics, tracing, health checks, and anomaly detection.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Health  *HealthConfig  `json:"health,omitempty" yaml:"health,omitempty"`
	Anomaly *AnomalyConfig `json:"anomaly,omitempty" yaml:"anomaly,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "bureau"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// HealthConfig configures dependency health checks for readiness probes.
type HealthConfig struct {
	IncludeDB bool `json:"include_db" yaml:"include_db"`
}

// AnomalyConfig configures threshold-based anomaly detection on HTTP errors.
type AnomalyConfig struct {
	Enabled            bool    `json:"enabled" yaml:"enabled"`
	ErrorRateThreshold float64 `json:"error_rate_threshold" yaml:"error_rate_threshold"` // e.g. 0.5 = 50% errors
	WindowSeconds      int     `json:"window_seconds" yaml:"window_seconds"`             // Sliding window. Default: 300
}

// DefaultConfigPath returns the default config file path (~/.bureau/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/bureau.yaml"
	}
	return filepath.Join(home, ".bureau", "config.yaml")
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything else for JSON.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
		}
	}

	return finish(&cfg)
}

// Default returns a validated Config built only from defaults and the
// environment, for running without a config file.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if env := os.Getenv("BUREAU_DATA_DIR"); env != "" {
		c.DataDir = env
	}
	if env := os.Getenv("BUREAU_DB_DSN"); env != "" {
		if c.Storage == nil {
			c.Storage = &StorageConfig{}
		}
		c.Storage.Driver = "postgres"
		if c.Storage.Postgres == nil {
			c.Storage.Postgres = &PostgresStorageConfig{}
		}
		c.Storage.Postgres.DSN = env
	}
	if env := os.Getenv("BUREAU_ADMIN_KEY"); env != "" {
		c.HTTP.AdminKeys = append(c.HTTP.AdminKeys, env)
	}
}

// resolvePath expands ~ to the user home directory and returns an absolute path.
func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}

// ResolvedDataDir returns the data directory, resolving ~ if needed.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		return filepath.Join(home, ".bureau", "data")
	}
	resolved, err := resolvePath(c.DataDir)
	if err != nil {
		return c.DataDir
	}
	return resolved
}

// DatabasePath returns the SQLite database path.
func (c *Config) DatabasePath() string {
	if c.Storage != nil && c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		return c.Storage.SQLite.Path
	}
	return filepath.Join(c.ResolvedDataDir(), "bureau.db")
}

// StorageDriverName returns the effective storage driver name.
func (c *Config) StorageDriverName() string {
	return c.Storage.StorageDriver()
}

// RoleNames returns the configured role names in order.
func (c *Config) RoleNames() []string {
	names := make([]string, len(c.Security.Roles))
	for i, r := range c.Security.Roles {
		names[i] = r.Name
	}
	return names
}

func (c *Config) validate() error {
	switch c.StorageDriverName() {
	case "sqlite":
	case "postgres":
		if c.Storage.Postgres == nil || c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver (set BUREAU_DB_DSN env var)")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported (use sqlite or postgres)", c.Storage.Driver)
	}

	roles := make(map[string]bool, len(c.Security.Roles))
	for i, r := range c.Security.Roles {
		if r.Name == "" {
			return fmt.Errorf("security.roles[%d].name is required", i)
		}
		if roles[r.Name] {
			return fmt.Errorf("security.roles[%d]: duplicate role %q", i, r.Name)
		}
		roles[r.Name] = true
		if len(r.Permissions) == 0 {
			return fmt.Errorf("security.roles.%s.permissions must not be empty", r.Name)
		}
	}

	seen := make(map[string]bool, len(c.HTTP.APIKeys)+len(c.HTTP.AdminKeys))
	for i, k := range c.HTTP.APIKeys {
		if k.Key == "" || k.Email == "" {
			return fmt.Errorf("http.api_keys[%d]: key and email are required", i)
		}
		if seen[k.Key] {
			return fmt.Errorf("http.api_keys[%d]: duplicate key", i)
		}
		seen[k.Key] = true
	}
	for i, k := range c.HTTP.AdminKeys {
		if k == "" {
			return fmt.Errorf("http.admin_keys[%d] must not be empty", i)
		}
		if seen[k] {
			return fmt.Errorf("http.admin_keys[%d]: key is already used", i)
		}
		seen[k] = true
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.BurstSize < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if c.Visitors.StaleAfterHours < 0 {
		return fmt.Errorf("visitors.stale_after_hours must not be negative")
	}
	if t := c.Observability; t != nil && t.Tracing != nil && t.Tracing.Enabled && t.Tracing.Endpoint == "" {
		return fmt.Errorf("observability.tracing.endpoint is required when tracing is enabled")
	}
	return nil
}
