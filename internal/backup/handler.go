package backup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgeline-mes/forgeline-mes/internal/platform/httpx"
	"github.com/forgeline-mes/forgeline-mes/internal/rbac"
	"github.com/forgeline-mes/forgeline-mes/internal/shared"
)

// EnqueuerPort hands the export to the background queue.
type EnqueuerPort interface {
	EnqueueBackup(ctx context.Context, requestedBy string) (string, error)
}

// Handler wires the on-demand backup trigger.
type Handler struct {
	logger   *slog.Logger
	enqueuer EnqueuerPort
	rbac     rbac.Middleware
}

// NewHandler constructs backup handler.
func NewHandler(logger *slog.Logger, enqueuer EnqueuerPort, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, enqueuer: enqueuer, rbac: rbac}
}

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("profile_settings", "write"))
		r.Post("/run", h.run)
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	taskID, err := h.enqueuer.EnqueueBackup(r.Context(), actor)
	if err != nil {
		h.logger.Error("enqueue backup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": taskID, "status": "queued"})
}
