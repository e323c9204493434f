// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/parasol-ins/parasol/internal/config"
	"github.com/parasol-ins/parasol/internal/infrastructure"
	"github.com/parasol-ins/parasol/pkg/middleware"
	"github.com/parasol-ins/parasol/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// OIDC discovery runs during construction when auth is enabled, so the
// context should carry the caller's startup deadline.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	verifier, err := newVerifier(ctx, cfg, runtime)
	if err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Auth(verifier, runtime.Logger))

	return m, nil
}

func newVerifier(
	ctx context.Context,
	cfg *config.Config,
	runtime *Runtime,
) (middleware.Verifier, error) {
	if !cfg.API.Auth.Enabled {
		runtime.Logger.Warn("auth disabled; bearer subjects are trusted without verification")
		return middleware.InsecureVerifier(), nil
	}

	verifier, err := middleware.NewOIDCVerifier(ctx, &cfg.API.Auth)
	if err != nil {
		return nil, fmt.Errorf("oidc verifier init failed: %w", err)
	}
	return verifier, nil
}
