package api

import (
	"net/http"

	"github.com/parasol-ins/parasol/internal/config"
	"github.com/parasol-ins/parasol/pkg/routes"
	"github.com/parasol-ins/parasol/pkg/storage"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Products.Handler().Routes(),
		domain.Policies.Handler().Routes(),
		domain.Claims.Handler(cfg.API.MaxUploadSizeBytes(), cfg.API.Operators).Routes(),
		newStorageHandler(
			runtime.Storage,
			domain.Claims,
			runtime.Logger,
			storage.MaxListCap,
			cfg.API.Operators,
		).routes(),
	)
}
