package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configMutex protects access to globalConfig.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global singleton configuration.
// Subsequent calls are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})

	return initErr
}

// GetConfig returns the global configuration instance, or nil if
// Initialize has not been called successfully.
//
// The span pipeline never reads this; it is handed a *TracingConfig
// explicitly. GetConfig serves the command line entry points.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig sets the global configuration instance.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads the configuration from the specified path. The
// existing configuration is kept when loading or validation fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	SetConfig(cfg)
	return nil
}

// WatchAndReload reloads the global configuration whenever the file at
// path changes, until ctx is cancelled. onReload, when non-nil, is called
// with the new configuration after each successful reload.
//
// A running Guard keeps the sinks it was built with; a reload only affects
// guards initialized afterwards.
func WatchAndReload(ctx context.Context, path string, logger *slog.Logger, onReload func(*Config)) error {
	return WatchFile(ctx, path, DefaultDebounceInterval, logger, func() error {
		if err := ReloadConfig(path); err != nil {
			return err
		}
		if onReload != nil {
			onReload(GetConfig())
		}
		return nil
	})
}
