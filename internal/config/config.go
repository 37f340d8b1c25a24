package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Config represents the complete application configuration.
// Values are layered as: built-in defaults, then the user config file
// (~/.config/edgarlens/config.yaml), then EDGARLENS_* environment variables
// and runtime overrides.
type Config struct {
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Retry   RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Workers int           `mapstructure:"workers" yaml:"workers"`
}

// ClientConfig contains upstream API settings.
type ClientConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	FilesURL  string        `mapstructure:"files_url" yaml:"files_url"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxRequestsPerSecond is the client-side quota. The published limit is 10.
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second" yaml:"max_requests_per_second"`
	Window               time.Duration `mapstructure:"window" yaml:"window"`

	// Smoothing spreads concurrent admissions across the rest of the window
	// instead of releasing them as a burst.
	Smoothing bool `mapstructure:"smoothing" yaml:"smoothing"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Size    int  `mapstructure:"size" yaml:"size"`
}

// RetryConfig controls retries of transient upstream failures.
type RetryConfig struct {
	Attempts       int           `mapstructure:"attempts" yaml:"attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// RateLimit is the inbound request rate (req/s) accepted by serve.
	// Zero disables inbound throttling.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only (CLI)
// - STRUCTURED: JSON output with correlation fields (serve)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port" yaml:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL:              "https://data.sec.gov",
			FilesURL:             "https://www.sec.gov",
			UserAgent:            "Mozilla/5.0 (compatible; SEC-API/1.0; +https://www.sec.gov)",
			Timeout:              10 * time.Second,
			MaxRequestsPerSecond: 10,
			Window:               time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    256,
		},
		Retry: RetryConfig{
			Attempts:       3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8790,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			Burst:           40,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Profile: "SIMPLE",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9790,
		},
		Workers: 4,
	}
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var problems []string
	for name, raw := range map[string]string{"client.base_url": c.Client.BaseURL, "client.files_url": c.Client.FilesURL} {
		if strings.TrimSpace(raw) == "" {
			problems = append(problems, name+" is required")
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			problems = append(problems, fmt.Sprintf("%s %q is not an absolute URL", name, raw))
		}
	}
	if c.Client.MaxRequestsPerSecond <= 0 {
		problems = append(problems, "client.max_requests_per_second must be positive")
	}
	if c.Client.Window <= 0 {
		problems = append(problems, "client.window must be positive")
	}
	if c.Client.Timeout <= 0 {
		problems = append(problems, "client.timeout must be positive")
	}
	if c.Cache.Size <= 0 {
		problems = append(problems, "cache.size must be positive")
	}
	if c.Retry.Attempts <= 0 {
		problems = append(problems, "retry.attempts must be positive")
	}
	if c.Retry.Multiplier < 1 {
		problems = append(problems, "retry.multiplier must be at least 1")
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rate_limit must not be negative")
	}
	if c.Workers <= 0 {
		problems = append(problems, "workers must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}
