package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"suntimes/internal/model"
	"suntimes/internal/solar"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment variables (optionally from a .env file) are
// applied on top by ApplyEnv.

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "5 0 * * *"
	defaultHorizonDays = 2
	maxHorizonDays     = 366
)

// Environment variable names understood by ApplyEnv.
const (
	EnvConfigPath = "SUNTIMES_CONFIG"
	EnvListen     = "SUNTIMES_LISTEN"
	EnvTimezone   = "SUNTIMES_TIMEZONE"
	EnvLatitude   = "SUNTIMES_LATITUDE"
	EnvLongitude  = "SUNTIMES_LONGITUDE"
)

// LocationConfig is the fixed observer position.
type LocationConfig struct {
	// Name is a human-friendly label, used in calendar feeds.
	Name      string  `yaml:"name" json:"name"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Coordinate returns the location as a solar.Coordinate.
func (l LocationConfig) Coordinate() solar.Coordinate {
	return solar.Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to resolve the UTC offset of each
	// date (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Location is the observer position.
	Location LocationConfig `yaml:"location" json:"location"`

	// Sunrise / Sunset control alert planning per event type.
	Sunrise model.AlertConfig `yaml:"sunrise" json:"sunrise"`
	Sunset  model.AlertConfig `yaml:"sunset" json:"sunset"`

	// TimeFormat24h selects 15:04 over 3:04 PM in human output.
	TimeFormat24h bool `yaml:"time_format_24h" json:"time_format_24h"`

	// HorizonDays is the number of days (starting today) to plan.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// RefreshCron is a cron-style schedule string used to re-plan alerts.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration. Alert defaults
// follow the mobile apps: sunrise on, sunset off, no offset.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		Location:      LocationConfig{},
		Sunrise:       model.AlertConfig{Enabled: true},
		Sunset:        model.AlertConfig{Enabled: false},
		TimeFormat24h: true,
		HorizonDays:   defaultHorizonDays,
		RefreshCron:   defaultRefreshCron,
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.HorizonDays > maxHorizonDays {
		c.HorizonDays = maxHorizonDays
	}
}

// Validate checks the fields Normalize cannot repair.
func (c *Config) Validate() error {
	if err := c.Location.Coordinate().Validate(); err != nil {
		return fmt.Errorf("config location: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// TimeLocation resolves Timezone.
func (c *Config) TimeLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding existing variables.
// A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides fields from SUNTIMES_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvLatitude); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLatitude, err)
		}
		c.Location.Latitude = f
	}
	if v := os.Getenv(EnvLongitude); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLongitude, err)
		}
		c.Location.Longitude = f
	}
	return nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".suntimes-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
