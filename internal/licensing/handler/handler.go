package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/licensing"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for licence operations.
type Service interface {
	Create(ctx context.Context, actor *models.User, in licensing.CreateInput) (*licensing.Licenciamento, error)
	Get(ctx context.Context, id int64) (*licensing.Licenciamento, error)
	List(ctx context.Context, f licensing.Filter, skip, limit int) ([]licensing.Licenciamento, error)
	Update(ctx context.Context, actor *models.User, id int64, in licensing.UpdateInput) (*licensing.Licenciamento, error)
	UpdateStatus(ctx context.Context, actor *models.User, id int64, status licensing.StatusLicenciamento, observacoes *string) (*licensing.Licenciamento, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
	Stats(ctx context.Context) (*licensing.Stats, error)
}

// Handler wires licence endpoints to the licensing service. Reads are open to
// any active principal; mutations require GESTAO_DADOS or ROOT.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/licenciamentos", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/dashboard/stats", h.HandleStats)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManagerOrAdmin)
			r.Post("/", h.HandleCreate)
			r.Put("/{id}", h.HandleUpdate)
			r.Put("/{id}/status", h.HandleUpdateStatus)
			r.Delete("/{id}", h.HandleDelete)
		})
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in licensing.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	lic, err := h.service.Create(ctx, middleware.Principal(ctx), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "licence created",
		"request_id", middleware.GetRequestID(ctx),
		"licence_id", lic.ID,
		"project_id", lic.ProjetoID,
	)
	httputil.WriteJSON(w, http.StatusCreated, lic)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	licences, err := h.service.List(ctx, f, skip, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list licences",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if licences == nil {
		licences = []licensing.Licenciamento{}
	}
	httputil.WriteJSON(w, http.StatusOK, licences)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lic, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lic)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in licensing.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	lic, err := h.service.Update(ctx, middleware.Principal(ctx), id, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lic)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in struct {
		Status      licensing.StatusLicenciamento `json:"status"`
		Observacoes *string                       `json:"observacoes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	lic, err := h.service.UpdateStatus(ctx, middleware.Principal(ctx), id, in.Status, in.Observacoes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "licence status changed",
		"request_id", middleware.GetRequestID(ctx),
		"licence_id", lic.ID,
		"status", lic.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, lic)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, middleware.Principal(ctx), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "licence deleted"})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func filterFromQuery(r *http.Request) (licensing.Filter, error) {
	q := r.URL.Query()
	var f licensing.Filter

	if raw := q.Get("projeto_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid projeto_id")
		}
		f.ProjetoID = &id
	}
	if raw := q.Get("status"); raw != "" {
		f.Status = licensing.StatusLicenciamento(raw)
		if !f.Status.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown status")
		}
	}
	if raw := q.Get("entidade_responsavel"); raw != "" {
		f.Entidade = licensing.EntidadeResponsavel(raw)
		if !f.Entidade.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown entidade_responsavel")
		}
	}
	f.Search = q.Get("search")
	return f, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid id"))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
