package evaluator

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds evaluation service connection parameters and the
// auto-approval confidence threshold.
type Config struct {
	BaseURL   string  `toml:"base_url"`
	Timeout   string  `toml:"timeout"`
	Threshold float64 `toml:"threshold"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL   string
	Timeout   string
	Threshold string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Threshold != 0 {
		c.Threshold = overlay.Threshold
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "20s"
	}
	if c.Threshold == 0 {
		c.Threshold = 0.8
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.Threshold != "" {
		if v := os.Getenv(env.Threshold); v != "" {
			if t, err := strconv.ParseFloat(v, 64); err == nil {
				c.Threshold = t
			}
		}
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1]")
	}
	return nil
}
