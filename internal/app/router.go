package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/forgeline-mes/forgeline-mes/internal/assembly"
	"github.com/forgeline-mes/forgeline-mes/internal/backup"
	"github.com/forgeline-mes/forgeline-mes/internal/inventory"
	"github.com/forgeline-mes/forgeline-mes/internal/orders"
	"github.com/forgeline-mes/forgeline-mes/internal/packaging"
	"github.com/forgeline-mes/forgeline-mes/internal/production"
	"github.com/forgeline-mes/forgeline-mes/internal/rbac"
	"github.com/forgeline-mes/forgeline-mes/internal/reports"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	RBAC              rbac.Middleware
	InventoryHandler  *inventory.Handler
	OrdersHandler     *orders.Handler
	ProductionHandler *production.Handler
	AssemblyHandler   *assembly.Handler
	PackagingHandler  *packaging.Handler
	ReportsHandler    *reports.Handler
	BackupHandler     *backup.Handler
}

// NewRouter constructs the chi.Router with Forgeline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
		RBAC:   params.RBAC,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", params.InventoryHandler.MountRoutes)
		r.Route("/purchase-orders", params.OrdersHandler.MountRoutes)
		r.Route("/work-orders", params.ProductionHandler.MountRoutes)
		r.Route("/assembly", params.AssemblyHandler.MountRoutes)
		r.Route("/packaging", params.PackagingHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		r.Route("/backups", params.BackupHandler.MountRoutes)
	})

	return r
}
