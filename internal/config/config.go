// Package config loads and finalizes the service configuration from TOML
// files and environment variables. A base config.toml is optional; an
// environment overlay (config.<env>.toml) merges over it, then PARASOL_*
// environment variables override individual values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/parasol-ins/parasol/internal/escrow"
	"github.com/parasol-ins/parasol/internal/evaluator"
	"github.com/parasol-ins/parasol/pkg/database"
	"github.com/parasol-ins/parasol/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvParasolEnv             = "PARASOL_ENV"
	EnvParasolShutdownTimeout = "PARASOL_SHUTDOWN_TIMEOUT"
	EnvParasolVersion         = "PARASOL_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "PARASOL_DB_HOST",
	Port:            "PARASOL_DB_PORT",
	Name:            "PARASOL_DB_NAME",
	User:            "PARASOL_DB_USER",
	Password:        "PARASOL_DB_PASSWORD",
	SSLMode:         "PARASOL_DB_SSL_MODE",
	MaxOpenConns:    "PARASOL_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PARASOL_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PARASOL_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PARASOL_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "PARASOL_STORAGE_CONTAINER_NAME",
	ConnectionString: "PARASOL_STORAGE_CONNECTION_STRING",
}

var evaluatorEnv = &evaluator.Env{
	BaseURL:   "PARASOL_EVALUATOR_BASE_URL",
	Timeout:   "PARASOL_EVALUATOR_TIMEOUT",
	Threshold: "PARASOL_EVALUATOR_THRESHOLD",
}

var escrowEnv = &escrow.Env{
	BaseURL: "PARASOL_ESCROW_BASE_URL",
	APIKey:  "PARASOL_ESCROW_API_KEY",
	Timeout: "PARASOL_ESCROW_TIMEOUT",
}

// Config is the root configuration for the Parasol service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	Evaluator       evaluator.Config `toml:"evaluator"`
	Escrow          escrow.Config    `toml:"escrow"`
	API             APIConfig        `toml:"api"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the PARASOL_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvParasolEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Evaluator.Merge(&overlay.Evaluator)
	c.Escrow.Merge(&overlay.Escrow)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Evaluator.Finalize(evaluatorEnv); err != nil {
		return fmt.Errorf("evaluator: %w", err)
	}
	if err := c.Escrow.Finalize(escrowEnv); err != nil {
		return fmt.Errorf("escrow: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvParasolShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvParasolVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvParasolEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
