package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000")
	}
	if cfg.API.Timeout != 60*time.Second {
		t.Errorf("API.Timeout = %v, want 60s", cfg.API.Timeout)
	}
	if cfg.Dispatch.Mode != "auto" {
		t.Errorf("Dispatch.Mode = %q, want auto", cfg.Dispatch.Mode)
	}
	if cfg.Dispatch.Watchdog != 2*time.Minute {
		t.Errorf("Dispatch.Watchdog = %v, want 2m", cfg.Dispatch.Watchdog)
	}
	if cfg.Dispatch.MaxRecordBytes != 1<<20 {
		t.Errorf("Dispatch.MaxRecordBytes = %d, want 1MiB", cfg.Dispatch.MaxRecordBytes)
	}
	if cfg.Location.HasStaticLocation() {
		t.Error("no static location should be configured by default")
	}
	if !cfg.Demo.Streaming {
		t.Error("Demo.Streaming should be true by default")
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.RateBurst != 2 {
		t.Errorf("API.RateBurst = %d, want 2", cfg.API.RateBurst)
	}
	if cfg.Location.Timeout != 10*time.Second {
		t.Errorf("Location.Timeout = %v, want 10s", cfg.Location.Timeout)
	}
}

func TestInit_ReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: https://plans.example.com
  timeout: 15s
dispatch:
  mode: stream
location:
  lat: 37.77
  lng: -122.41
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROUTERIGHT_DISPATCH_WATCHDOG", "30s")

	v := viper.New()
	if err := Init(v, path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://plans.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.Dispatch.Mode != "stream" {
		t.Errorf("Dispatch.Mode = %q, want stream", cfg.Dispatch.Mode)
	}
	if cfg.Dispatch.Watchdog != 30*time.Second {
		t.Errorf("Dispatch.Watchdog = %v, want 30s from env", cfg.Dispatch.Watchdog)
	}
	if !cfg.Location.HasStaticLocation() {
		t.Fatal("expected static location from file")
	}
	if *cfg.Location.Lat != 37.77 || *cfg.Location.Lng != -122.41 {
		t.Errorf("Location = %v,%v", *cfg.Location.Lat, *cfg.Location.Lng)
	}
}

func TestInit_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Errorf("Init() with no config file error = %v", err)
	}
}

func TestInit_MissingExplicitFileFails(t *testing.T) {
	v := viper.New()
	if err := Init(v, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Init() with a missing explicit file should fail")
	}
}

func TestLoad_ReturnsValidationErrors(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("dispatch.mode", "carrier-pigeon")
	v.Set("api.rate_burst", 0)

	_, err := Load(v)
	if err == nil {
		t.Fatal("Load() should fail")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}
	if !strings.Contains(err.Error(), "2 validation errors") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidate(t *testing.T) {
	lat, badLat, lng := 10.0, 95.0, 20.0

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/plan" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"negative watchdog", func(c *Config) { c.Dispatch.Watchdog = -time.Second }, "dispatch.watchdog"},
		{"zero pacing", func(c *Config) { c.Dispatch.SyntheticPacing = 0 }, "dispatch.synthetic_pacing"},
		{"tiny record cap", func(c *Config) { c.Dispatch.MaxRecordBytes = 10 }, "dispatch.max_record_bytes"},
		{"lat without lng", func(c *Config) { c.Location.Lat = &lat }, "location"},
		{"lat out of range", func(c *Config) { c.Location.Lat, c.Location.Lng = &badLat, &lng }, "location.lat"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad preset", func(c *Config) { c.Demo.Preset = "warp" }, "demo.preset"},
		{"bad scenario", func(c *Config) { c.Demo.Scenario = "explode" }, "demo.scenario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() = %v, want exactly one error", errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "routeright") {
		t.Errorf("ConfigDir() = %q", got)
	}
}
