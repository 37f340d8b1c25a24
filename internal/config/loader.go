// Package config provides centralized configuration management for edgarlens.
// It implements a three-layer config pattern:
// Layer 1: Built-in defaults (Default)
// Layer 2: User overrides (config file discovered via XDG paths or --config)
// Layer 3: Environment variables and runtime overrides
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AppName names the config directory and the environment prefix.
const AppName = "edgarlens"

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "EDGARLENS_"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load resolves the effective configuration from v (file values and bound
// flags), environment variables and runtime overrides, in increasing order of
// precedence. A nil v loads defaults plus environment only.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	ApplyDefaults(v)

	// Load environment variable overrides
	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	allOverrides := []map[string]any{envOverrides}
	allOverrides = append(allOverrides, runtimeOverrides...)
	for _, overrides := range allOverrides {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	// Unmarshal into typed config struct
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// ApplyDefaults registers every default from Default on v.
func ApplyDefaults(v *viper.Viper) {
	def := Default()

	// Client defaults
	v.SetDefault("client.base_url", def.Client.BaseURL)
	v.SetDefault("client.files_url", def.Client.FilesURL)
	v.SetDefault("client.user_agent", def.Client.UserAgent)
	v.SetDefault("client.timeout", def.Client.Timeout)
	v.SetDefault("client.max_requests_per_second", def.Client.MaxRequestsPerSecond)
	v.SetDefault("client.window", def.Client.Window)
	v.SetDefault("client.smoothing", def.Client.Smoothing)

	// Cache defaults
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.size", def.Cache.Size)

	// Retry defaults
	v.SetDefault("retry.attempts", def.Retry.Attempts)
	v.SetDefault("retry.initial_backoff", def.Retry.InitialBackoff)
	v.SetDefault("retry.max_backoff", def.Retry.MaxBackoff)
	v.SetDefault("retry.multiplier", def.Retry.Multiplier)

	// Server defaults
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", def.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit", def.Server.RateLimit)
	v.SetDefault("server.burst", def.Server.Burst)

	// Logging defaults
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.profile", def.Logging.Profile)

	// Metrics defaults
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.port", def.Metrics.Port)

	// Worker defaults
	v.SetDefault("workers", def.Workers)
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps EDGARLENS_{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := EnvPrefix

	return []EnvVarSpec{
		// Client config
		{Name: prefix + "BASE_URL", Path: []string{"client", "base_url"}, Type: EnvString},
		{Name: prefix + "FILES_URL", Path: []string{"client", "files_url"}, Type: EnvString},
		{Name: prefix + "USER_AGENT", Path: []string{"client", "user_agent"}, Type: EnvString},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "TIMEOUT", Path: []string{"client", "timeout"}, Type: EnvString},
		{Name: prefix + "MAX_REQUESTS_PER_SECOND", Path: []string{"client", "max_requests_per_second"}, Type: EnvInt},
		{Name: prefix + "WINDOW", Path: []string{"client", "window"}, Type: EnvString},
		{Name: prefix + "SMOOTHING", Path: []string{"client", "smoothing"}, Type: EnvBool},

		// Cache config
		{Name: prefix + "CACHE_ENABLED", Path: []string{"cache", "enabled"}, Type: EnvBool},
		{Name: prefix + "CACHE_SIZE", Path: []string{"cache", "size"}, Type: EnvInt},

		// Retry config
		{Name: prefix + "RETRY_ATTEMPTS", Path: []string{"retry", "attempts"}, Type: EnvInt},
		{Name: prefix + "RETRY_INITIAL_BACKOFF", Path: []string{"retry", "initial_backoff"}, Type: EnvString},
		{Name: prefix + "RETRY_MAX_BACKOFF", Path: []string{"retry", "max_backoff"}, Type: EnvString},
		{Name: prefix + "RETRY_MULTIPLIER", Path: []string{"retry", "multiplier"}, Type: EnvString},

		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "SERVER_RATE_LIMIT", Path: []string{"server", "rate_limit"}, Type: EnvString},
		{Name: prefix + "SERVER_BURST", Path: []string{"server", "burst"}, Type: EnvInt},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Workers
		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// UserConfigPaths lists the config files checked when --config is not given.
func UserConfigPaths() []string {
	return gfconfig.GetAppConfigPaths(AppName)
}
