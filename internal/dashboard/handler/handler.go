package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/dashboard"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/user/models"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for dashboard aggregation.
type Service interface {
	Overview(ctx context.Context, actor *models.User) (*dashboard.Overview, error)
}

// Handler serves the aggregated dashboard payload to any active principal.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/stats", h.HandleStats)
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	overview, err := h.service.Overview(ctx, middleware.Principal(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build dashboard overview",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}
