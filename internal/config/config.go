package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the episode service.
// Environment variables are automatically parsed from the EPISODE_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage driver: memory, sqlite or postgres. "auto" picks sqlite when
	// SQLITE_PATH is set, postgres when POSTGRES_DSN is set, else memory.
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
}

// ResolveDefaults derives DBDriver when set to "auto" or empty and checks
// the chosen driver has what it needs.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		switch {
		case c.SQLitePath != "":
			c.DBDriver = "sqlite"
		case c.PostgresDSN != "":
			c.DBDriver = "postgres"
		default:
			c.DBDriver = "memory"
		}
	}

	switch c.DBDriver {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("DB_DRIVER=sqlite requires SQLITE_PATH")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: EPISODE_HTTP_PORT, EPISODE_DB_DRIVER.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("EPISODE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("sqlite_path_present", boolStr(cfg.SQLitePath != "")).
		Str("postgres_dsn_present", boolStr(cfg.PostgresDSN != "")).
		Msg("Configuration loaded")

	return &cfg, nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment: EnvTesting,
		HTTPPort:    8080,
		DBDriver:    "memory",
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
