package config

import "time"

// Config is the root configuration structure for Custodian.
// It contains the database, file tree, scheduling, policy source, ops
// server and telemetry sections.
type Config struct {
	// Database selects the SQL backend holding policies, retention records
	// and processing logs.
	Database DatabaseConfig `yaml:"database"`

	// FileTree selects where the governed files live.
	FileTree FileTreeConfig `yaml:"filetree"`

	// Scanner controls the scheduled expiry scan.
	Scanner ScannerConfig `yaml:"scanner"`

	// Notifications controls the upcoming-expiry notifier.
	Notifications NotificationsConfig `yaml:"notifications"`

	// Policies configures the optional YAML policy file.
	Policies PoliciesConfig `yaml:"policies"`

	// Server contains the ops HTTP server configuration (health, readiness,
	// metrics).
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig contains SQL storage configuration.
type DatabaseConfig struct {
	// Driver is the database/sql driver name.
	// Options: "sqlite3" (mattn, cgo), "sqlite" (modernc, pure Go), "pgx" (PostgreSQL)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// DSN is a file path for the SQLite drivers or a connection URL for pgx.
	// Default: "data/custodian.db"
	DSN string `yaml:"dsn"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables SQLite write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MigrateOnStart applies pending schema migrations when the store opens.
	// Default: true
	MigrateOnStart bool `yaml:"migrate_on_start"`
}

// FileTreeConfig contains file tree backend configuration.
type FileTreeConfig struct {
	// Backend selects the implementation.
	// Options: "local", "memory", "s3"
	// Default: "local"
	Backend string `yaml:"backend"`

	// Root is the directory the local backend is rooted at.
	// Default: "data/files"
	Root string `yaml:"root"`

	// S3 contains settings for the s3 backend.
	S3 S3Config `yaml:"s3"`
}

// S3Config contains S3-compatible object storage settings.
type S3Config struct {
	// Bucket is the bucket name. Required for the s3 backend.
	Bucket string `yaml:"bucket"`

	// Region is the bucket region.
	// Default: "us-east-1"
	Region string `yaml:"region"`

	// Endpoint overrides the service endpoint for S3-compatible stores
	// such as MinIO.
	Endpoint string `yaml:"endpoint"`

	// Prefix is the key prefix under which the tree lives.
	Prefix string `yaml:"prefix"`

	// AccessKeyID is the static access key. Prefer CUSTODIAN_FILETREE_S3_ACCESS_KEY_ID.
	AccessKeyID string `yaml:"access_key_id"`

	// SecretAccessKey is the static secret. Prefer CUSTODIAN_FILETREE_S3_SECRET_ACCESS_KEY.
	SecretAccessKey string `yaml:"secret_access_key"`

	// UsePathStyle addresses buckets by path instead of virtual host.
	UsePathStyle bool `yaml:"use_path_style"`
}

// ScannerConfig contains expiry scan configuration.
type ScannerConfig struct {
	// Enabled schedules the scan in "run" mode.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a standard five-field cron expression.
	// Default: "0 2 * * *" (daily at 02:00)
	Schedule string `yaml:"schedule"`

	// ClaimTTL is how long a claimed record stays reserved before another
	// scan may reclaim it.
	// Default: 1h
	ClaimTTL time.Duration `yaml:"claim_ttl"`

	// Timeout bounds a single scan run. Zero means no limit.
	// Default: 0
	Timeout time.Duration `yaml:"timeout"`
}

// NotificationsConfig contains upcoming-expiry notifier configuration.
type NotificationsConfig struct {
	// Enabled schedules the notifier in "run" mode.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a standard five-field cron expression.
	// Default: "0 8 * * *" (daily at 08:00)
	Schedule string `yaml:"schedule"`
}

// PoliciesConfig contains the YAML policy file configuration.
type PoliciesConfig struct {
	// FilePath is the policy file imported on start. Empty disables import.
	FilePath string `yaml:"file_path"`

	// Watch re-imports the file when it changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a change is re-imported.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// ServerConfig contains configuration for the ops HTTP server.
type ServerConfig struct {
	// Enabled starts the server in "run" mode.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:9090").
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the grace period for in-flight requests on stop.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "custodian"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "retention"
	Subsystem string `yaml:"subsystem"`

	// ScanDurationBuckets defines histogram buckets for scan duration (seconds).
	// Default: [0.1, 0.5, 1, 5, 15, 60, 300, 900]
	ScanDurationBuckets []float64 `yaml:"scan_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP/gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "custodian"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
