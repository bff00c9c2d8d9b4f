// Package config loads routeright configuration through viper.
//
// Values come from (highest precedence first): bound command-line flags,
// ROUTERIGHT_* environment variables, the config file and built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ROUTERIGHT_API_BASE_URL.
const EnvPrefix = "ROUTERIGHT"

// Config represents the complete routeright configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Location LocationConfig `mapstructure:"location"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Demo     DemoConfig     `mapstructure:"demo"`
}

// APIConfig controls how the planning service is reached
type APIConfig struct {
	// BaseURL is the planning service root (default: http://localhost:8000)
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a single blocking request (default: 60s). Streaming
	// requests are bounded by the dispatch watchdog instead.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second sent to the service (default: 2)
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the limiter burst size (default: 2)
	RateBurst int `mapstructure:"rate_burst"`
}

// DispatchConfig controls plan generation
type DispatchConfig struct {
	// Mode selects the transport strategy: "auto", "stream" or "synthetic" (default: "auto")
	Mode string `mapstructure:"mode"`
	// Watchdog fails a generation that has not finished in time (default: 2m, 0 = disabled)
	Watchdog time.Duration `mapstructure:"watchdog"`
	// SyntheticPacing scales the synthetic progress schedule (default: 1.0)
	SyntheticPacing float64 `mapstructure:"synthetic_pacing"`
	// MaxRecordBytes caps a single stream record (default: 1 MiB)
	MaxRecordBytes int `mapstructure:"max_record_bytes"`
}

// LocationConfig controls how the user's coordinates are obtained
type LocationConfig struct {
	// Lat and Lng pin a fixed location. Both must be set to take effect.
	Lat *float64 `mapstructure:"lat"`
	Lng *float64 `mapstructure:"lng"`
	// LookupURL is an IP geolocation endpoint returning {lat, lng} (empty = disabled)
	LookupURL string `mapstructure:"lookup_url"`
	// Timeout bounds a location lookup (default: 10s)
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is where the TUI writes its log (default: <config dir>/routeright.log)
	File string `mapstructure:"file"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. "127.0.0.1:9464"
	Addr string `mapstructure:"addr"`
}

// DemoConfig controls the built-in demo planning service
type DemoConfig struct {
	// Preset is the pacing preset: "quick", "medium", "slow" (default: "quick")
	Preset string `mapstructure:"preset"`
	// Scenario is the outcome to play: "success", "fail", "malformed", "invalid" (default: "success")
	Scenario string `mapstructure:"scenario"`
	// Streaming selects a streamed response; false answers with one JSON body (default: true)
	Streaming bool `mapstructure:"streaming"`
	// Addr is the listen address for `routeright demo serve` (default: 127.0.0.1:8000)
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   60 * time.Second,
			RateLimit: 2,
			RateBurst: 2,
		},
		Dispatch: DispatchConfig{
			Mode:            "auto",
			Watchdog:        2 * time.Minute,
			SyntheticPacing: 1.0,
			MaxRecordBytes:  1 << 20,
		},
		Location: LocationConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "routeright.log"),
		},
		Demo: DemoConfig{
			Preset:    "quick",
			Scenario:  "success",
			Streaming: true,
			Addr:      "127.0.0.1:8000",
		},
	}
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.timeout", defaults.API.Timeout)
	v.SetDefault("api.rate_limit", defaults.API.RateLimit)
	v.SetDefault("api.rate_burst", defaults.API.RateBurst)

	v.SetDefault("dispatch.mode", defaults.Dispatch.Mode)
	v.SetDefault("dispatch.watchdog", defaults.Dispatch.Watchdog)
	v.SetDefault("dispatch.synthetic_pacing", defaults.Dispatch.SyntheticPacing)
	v.SetDefault("dispatch.max_record_bytes", defaults.Dispatch.MaxRecordBytes)

	v.SetDefault("location.lookup_url", defaults.Location.LookupURL)
	v.SetDefault("location.timeout", defaults.Location.Timeout)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	v.SetDefault("demo.preset", defaults.Demo.Preset)
	v.SetDefault("demo.scenario", defaults.Demo.Scenario)
	v.SetDefault("demo.streaming", defaults.Demo.Streaming)
	v.SetDefault("demo.addr", defaults.Demo.Addr)
}

// Init prepares v to read the config file and environment.
// An empty cfgFile searches the default locations.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// ROUTERIGHT_DISPATCH_MODE for dispatch.mode
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return cfg, nil
}

// HasStaticLocation reports whether fixed coordinates are configured.
func (c *LocationConfig) HasStaticLocation() bool {
	return c.Lat != nil && c.Lng != nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "routeright")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".routeright"
	}
	return filepath.Join(home, ".config", "routeright")
}
