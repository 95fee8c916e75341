package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration.
	globalConfig *Config

	// globalPath is the file globalConfig was loaded from.
	globalPath string

	// configMutex protects globalConfig and globalPath.
	configMutex sync.RWMutex

	// initOnce makes Initialize load at most once.
	initOnce sync.Once
)

// Initialize loads configuration with environment overrides and stores it
// as the process-wide configuration. Only the first call loads; later calls
// return nil without reloading. Use ReloadConfig to pick up changes.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		store(cfg, path)
	})

	return initErr
}

func store(cfg *Config, path string) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
	globalPath = path
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize. Components should receive a *Config explicitly;
// this accessor is for the CLI entry points.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration. Intended for tests.
func SetConfig(cfg *Config) {
	store(cfg, "")
}

// ReloadConfig loads the file again and swaps it in. An empty path reuses
// the path given to Initialize. On failure the current configuration stays
// in place.
func ReloadConfig(path string) error {
	if path == "" {
		configMutex.RLock()
		path = globalPath
		configMutex.RUnlock()
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	store(cfg, path)
	return nil
}

// MustGetConfig is GetConfig that panics when nothing was initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
