package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/parasol-ins/parasol/pkg/formatting"
	"github.com/parasol-ins/parasol/pkg/middleware"
	"github.com/parasol-ins/parasol/pkg/openapi"
	"github.com/parasol-ins/parasol/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "PARASOL_CORS_ENABLED",
	Origins:          "PARASOL_CORS_ORIGINS",
	AllowedMethods:   "PARASOL_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "PARASOL_CORS_ALLOWED_HEADERS",
	AllowCredentials: "PARASOL_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "PARASOL_CORS_MAX_AGE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:  "PARASOL_AUTH_ENABLED",
	Issuer:   "PARASOL_AUTH_ISSUER",
	Audience: "PARASOL_AUTH_AUDIENCE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "PARASOL_OPENAPI_TITLE",
	Description: "PARASOL_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "PARASOL_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "PARASOL_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, auth, and pagination settings.
// Operators lists the subjects allowed to call cross-owner operational
// endpoints such as the payout sweep; an empty list denies them all.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	Operators     []string              `toml:"operators"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Auth          middleware.AuthConfig `toml:"auth"`
	OpenAPI       openapi.Config        `toml:"openapi"`
	Pagination    pagination.Config     `toml:"pagination"`
}

func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 50 * 1024 * 1024 // 50MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS, auth, and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if len(overlay.Operators) > 0 {
		c.Operators = overlay.Operators
	}

	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("PARASOL_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("PARASOL_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv("PARASOL_API_OPERATORS"); v != "" {
		var operators []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				operators = append(operators, s)
			}
		}
		c.Operators = operators
	}
}
