package api

import (
	"github.com/parasol-ins/parasol/internal/config"
	"github.com/parasol-ins/parasol/internal/infrastructure"
	"github.com/parasol-ins/parasol/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Threshold  float64
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Evaluator: infra.Evaluator,
			Escrow:    infra.Escrow,
		},
		Pagination: cfg.API.Pagination,
		Threshold:  cfg.Evaluator.Threshold,
	}
}
