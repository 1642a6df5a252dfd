package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/planaxis"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for 5W2H axis operations.
type Service interface {
	Create(ctx context.Context, actor *models.User, in planaxis.CreateInput) (*planaxis.Eixo, error)
	Get(ctx context.Context, id int64) (*planaxis.Eixo, error)
	List(ctx context.Context, f planaxis.Filter, skip, limit int) ([]planaxis.Eixo, error)
	Update(ctx context.Context, actor *models.User, id int64, in planaxis.UpdateInput) (*planaxis.Eixo, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
	ByProjectPeriodo(ctx context.Context, projetoID int64) (map[planaxis.Periodo][]planaxis.Eixo, error)
	Stats(ctx context.Context) (*planaxis.Stats, error)
}

// Handler wires 5W2H endpoints to the planning service. Reads are open to any
// active principal; mutations require GESTAO_DADOS or ROOT.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/eixos-5w2h", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/dashboard/stats", h.HandleStats)
		r.Get("/projeto/{projetoID}/periodos", h.HandleByProjectPeriodo)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManagerOrAdmin)
			r.Post("/", h.HandleCreate)
			r.Put("/{id}", h.HandleUpdate)
			r.Delete("/{id}", h.HandleDelete)
		})
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in planaxis.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	eixo, err := h.service.Create(ctx, middleware.Principal(ctx), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "axis created",
		"request_id", middleware.GetRequestID(ctx),
		"axis_id", eixo.ID,
		"project_id", eixo.ProjetoID,
		"periodo", eixo.Periodo,
	)
	httputil.WriteJSON(w, http.StatusCreated, eixo)
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

	eixos, err := h.service.List(ctx, f, skip, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list axes",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if eixos == nil {
		eixos = []planaxis.Eixo{}
	}
	httputil.WriteJSON(w, http.StatusOK, eixos)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	eixo, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eixo)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in planaxis.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	eixo, err := h.service.Update(ctx, middleware.Principal(ctx), id, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eixo)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, middleware.Principal(ctx), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "axis deleted"})
}

func (h *Handler) HandleByProjectPeriodo(w http.ResponseWriter, r *http.Request) {
	projetoID, ok := pathID(w, r, "projetoID")
	if !ok {
		return
	}

	grouped, err := h.service.ByProjectPeriodo(r.Context(), projetoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, grouped)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func filterFromQuery(r *http.Request) (planaxis.Filter, error) {
	q := r.URL.Query()
	var f planaxis.Filter

	if raw := q.Get("projeto_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid projeto_id")
		}
		f.ProjetoID = &id
	}
	if raw := q.Get("periodo"); raw != "" {
		f.Periodo = planaxis.Periodo(raw)
		if !f.Periodo.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown periodo")
		}
	}
	f.Search = q.Get("search")
	return f, nil
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
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
