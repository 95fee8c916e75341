package config

import "time"

// Default values for configuration fields.
const (
	// Database defaults
	DefaultDatabaseDriver       = "sqlite3"
	DefaultDatabaseDSN          = "data/custodian.db"
	DefaultDatabaseMaxOpenConns = 10
	DefaultDatabaseMaxIdleConns = 5
	DefaultDatabaseWALMode      = true
	DefaultDatabaseBusyTimeout  = 5 * time.Second
	DefaultDatabaseMigrate      = true

	// File tree defaults
	DefaultFileTreeBackend = "local"
	DefaultFileTreeRoot    = "data/files"
	DefaultS3Region        = "us-east-1"

	// Scanner defaults
	DefaultScannerEnabled  = true
	DefaultScannerSchedule = "0 2 * * *"
	DefaultScannerClaimTTL = time.Hour

	// Notification defaults
	DefaultNotificationsEnabled  = true
	DefaultNotificationsSchedule = "0 8 * * *"

	// Policy file defaults
	DefaultPoliciesDebounce = 250 * time.Millisecond

	// Server defaults
	DefaultServerEnabled         = true
	DefaultListenAddress         = "127.0.0.1:9090"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerIdleTimeout     = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "custodian"
	DefaultMetricsSubsystem    = "retention"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "custodian"
	DefaultOTLPInsecure        = true
	DefaultOTLPTimeout         = 10 * time.Second
)

// DefaultScanDurationBuckets are the scan duration histogram buckets in seconds.
var DefaultScanDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900}

// NewDefaultConfig returns a Config with every default applied, including
// the boolean defaults that ApplyDefaults cannot infer from zero values.
// LoadConfig decodes the YAML file on top of it.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			WALMode:        DefaultDatabaseWALMode,
			MigrateOnStart: DefaultDatabaseMigrate,
		},
		Scanner:       ScannerConfig{Enabled: DefaultScannerEnabled},
		Notifications: NotificationsConfig{Enabled: DefaultNotificationsEnabled},
		Server:        ServerConfig{Enabled: DefaultServerEnabled},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
				OTLP:    OTLPConfig{Insecure: DefaultOTLPInsecure},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// Booleans are left alone; see NewDefaultConfig.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDatabaseDSN
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDatabaseMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDatabaseMaxIdleConns
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultDatabaseBusyTimeout
	}

	// File tree defaults
	if cfg.FileTree.Backend == "" {
		cfg.FileTree.Backend = DefaultFileTreeBackend
	}
	if cfg.FileTree.Root == "" {
		cfg.FileTree.Root = DefaultFileTreeRoot
	}
	if cfg.FileTree.S3.Region == "" {
		cfg.FileTree.S3.Region = DefaultS3Region
	}

	// Scanner defaults
	if cfg.Scanner.Schedule == "" {
		cfg.Scanner.Schedule = DefaultScannerSchedule
	}
	if cfg.Scanner.ClaimTTL == 0 {
		cfg.Scanner.ClaimTTL = DefaultScannerClaimTTL
	}

	// Notification defaults
	if cfg.Notifications.Schedule == "" {
		cfg.Notifications.Schedule = DefaultNotificationsSchedule
	}

	// Policy file defaults
	if cfg.Policies.Debounce == 0 {
		cfg.Policies.Debounce = DefaultPoliciesDebounce
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.ScanDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.ScanDurationBuckets = append([]float64(nil), DefaultScanDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
