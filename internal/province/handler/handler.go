package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/province"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for province reads.
type Service interface {
	List(ctx context.Context) ([]province.Provincia, error)
	Get(ctx context.Context, id int64) (*province.Provincia, error)
	Map(ctx context.Context) ([]province.MapEntry, error)
}

// Handler serves province reference data to any active principal.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/provincias", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/dashboard/mapa", h.HandleMap)
		r.Get("/{id}", h.HandleGet)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provinces, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list provinces",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if provinces == nil {
		provinces = []province.Provincia{}
	}
	httputil.WriteJSON(w, http.StatusOK, provinces)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid id"))
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.Map(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build province map",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
