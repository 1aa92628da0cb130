package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
	"github.com/forgeline-mes/forgeline-mes/internal/rbac"
)

// Handler wires HTTP endpoints for production reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("production_reports", "read"))
		r.Get("/production", h.production)
		r.Get("/summary", h.summary)
	})
}

func (h *Handler) production(w http.ResponseWriter, r *http.Request) {
	rng := Range(r.URL.Query().Get("range"))
	if rng == "" {
		rng = RangeDaily
	}
	report, err := h.service.Production(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	rng := Range(r.URL.Query().Get("range"))
	if rng == "" {
		rng = RangeWeekly
	}
	summary, err := h.service.Summary(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
