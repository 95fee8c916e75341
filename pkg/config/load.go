package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CUSTODIAN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over NewDefaultConfig, so omitted keys keep their
// defaults. An empty path yields the defaults alone. Unknown keys are
// rejected. The result is validated; environment variables are not
// consulted, use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CUSTODIAN_SECTION_FIELD (e.g., CUSTODIAN_DATABASE_DSN) and
// always take precedence over the file.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Decode the YAML file, if any
// 3. Apply environment variable overrides
// 4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Database overrides
	envString("DATABASE_DRIVER", &cfg.Database.Driver)
	envString("DATABASE_DSN", &cfg.Database.DSN)
	envInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	envBool("DATABASE_WAL_MODE", &cfg.Database.WALMode)
	envDuration("DATABASE_BUSY_TIMEOUT", &cfg.Database.BusyTimeout)
	envBool("DATABASE_MIGRATE_ON_START", &cfg.Database.MigrateOnStart)

	// File tree overrides
	envString("FILETREE_BACKEND", &cfg.FileTree.Backend)
	envString("FILETREE_ROOT", &cfg.FileTree.Root)
	envString("FILETREE_S3_BUCKET", &cfg.FileTree.S3.Bucket)
	envString("FILETREE_S3_REGION", &cfg.FileTree.S3.Region)
	envString("FILETREE_S3_ENDPOINT", &cfg.FileTree.S3.Endpoint)
	envString("FILETREE_S3_PREFIX", &cfg.FileTree.S3.Prefix)
	envString("FILETREE_S3_ACCESS_KEY_ID", &cfg.FileTree.S3.AccessKeyID)
	envString("FILETREE_S3_SECRET_ACCESS_KEY", &cfg.FileTree.S3.SecretAccessKey)
	envBool("FILETREE_S3_USE_PATH_STYLE", &cfg.FileTree.S3.UsePathStyle)

	// Scanner overrides
	envBool("SCANNER_ENABLED", &cfg.Scanner.Enabled)
	envString("SCANNER_SCHEDULE", &cfg.Scanner.Schedule)
	envDuration("SCANNER_CLAIM_TTL", &cfg.Scanner.ClaimTTL)
	envDuration("SCANNER_TIMEOUT", &cfg.Scanner.Timeout)

	// Notification overrides
	envBool("NOTIFICATIONS_ENABLED", &cfg.Notifications.Enabled)
	envString("NOTIFICATIONS_SCHEDULE", &cfg.Notifications.Schedule)

	// Policy file overrides
	envString("POLICIES_FILE_PATH", &cfg.Policies.FilePath)
	envBool("POLICIES_WATCH", &cfg.Policies.Watch)
	envDuration("POLICIES_DEBOUNCE", &cfg.Policies.Debounce)

	// Server overrides
	envBool("SERVER_ENABLED", &cfg.Server.Enabled)
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
