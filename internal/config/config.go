package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// License modes. Cloud installs resolve organizations by platform instance
// id; OSS installs resolve by statically configured slugs.
const (
	LicenseCloud = "cloud"
	LicenseOSS   = "oss"
)

// Config holds all service configuration. Values come from an optional YAML
// file and are overridden by OPSGRID_* environment variables, so nothing in
// the auth layer reaches for globals.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logger   LoggerConfig   `yaml:"logger"`
	Platform PlatformConfig `yaml:"platform"`
	Tenancy  TenancyConfig  `yaml:"tenancy"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RateLimitPerSec int           `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PlatformConfig describes the hosting platform the plugin and
// service-account schemes talk to.
type PlatformConfig struct {
	BaseURL        string        `yaml:"base_url"`
	SigningSecret  string        `yaml:"signing_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TenancyConfig selects how unknown requests map to organizations.
type TenancyConfig struct {
	License   string `yaml:"license"`
	OrgSlug   string `yaml:"org_slug"`
	StackSlug string `yaml:"stack_slug"`
}

// AuthConfig holds static credentials that are not persisted.
type AuthConfig struct {
	IncidentStaticKey string `yaml:"incident_static_key"`
}

// Load reads configuration from the YAML file at path (optional, pass ""
// to skip), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			RateLimitPerSec: 50,
			RateLimitBurst:  100,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Platform: PlatformConfig{
			RequestTimeout: 10 * time.Second,
		},
		Tenancy: TenancyConfig{
			License: LicenseOSS,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPSGRID_LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("OPSGRID_PG_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("OPSGRID_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("OPSGRID_LICENSE"); v != "" {
		cfg.Tenancy.License = v
	}
	if v := os.Getenv("OPSGRID_ORG_SLUG"); v != "" {
		cfg.Tenancy.OrgSlug = v
	}
	if v := os.Getenv("OPSGRID_STACK_SLUG"); v != "" {
		cfg.Tenancy.StackSlug = v
	}
	if v := os.Getenv("OPSGRID_PLATFORM_URL"); v != "" {
		cfg.Platform.BaseURL = v
	}
	if v := os.Getenv("OPSGRID_PLATFORM_SIGNING_SECRET"); v != "" {
		cfg.Platform.SigningSecret = v
	}
	if v := os.Getenv("OPSGRID_INCIDENT_STATIC_KEY"); v != "" {
		cfg.Auth.IncidentStaticKey = v
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Tenancy.License)) {
	case LicenseCloud, LicenseOSS:
		c.Tenancy.License = strings.ToLower(strings.TrimSpace(c.Tenancy.License))
	default:
		return fmt.Errorf("config: unknown license mode %q", c.Tenancy.License)
	}
	if c.Tenancy.License == LicenseOSS {
		if c.Tenancy.OrgSlug == "" || c.Tenancy.StackSlug == "" {
			return fmt.Errorf("config: oss license requires org_slug and stack_slug")
		}
	}
	if c.Server.RateLimitPerSec <= 0 || c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("config: rate limit values must be positive")
	}
	return nil
}
