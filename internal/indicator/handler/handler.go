package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/indicator"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for indicator operations.
type Service interface {
	Create(ctx context.Context, actor *models.User, in indicator.CreateInput) (*indicator.Indicador, error)
	Get(ctx context.Context, id int64) (*indicator.Indicador, error)
	List(ctx context.Context, f indicator.Filter, skip, limit int) ([]indicator.Indicador, error)
	Update(ctx context.Context, actor *models.User, id int64, in indicator.UpdateInput) (*indicator.Indicador, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
	Stats(ctx context.Context) (*indicator.Stats, error)
	ExportCSV(ctx context.Context, actor *models.User, f indicator.Filter) ([]byte, error)
	ImportCSV(ctx context.Context, actor *models.User, data []byte) (int, error)
}

// maxImportBody bounds the CSV import payload.
const maxImportBody = 5 << 20

// Handler wires indicator endpoints to the indicator service. Reads are open
// to any active principal; mutations require GESTAO_DADOS or ROOT.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/indicadores", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/dashboard/stats", h.HandleStats)
		r.Get("/export/csv", h.HandleExportCSV)
		r.Get("/{id}", h.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManagerOrAdmin)
			r.Post("/", h.HandleCreate)
			r.Put("/{id}", h.HandleUpdate)
			r.Delete("/{id}", h.HandleDelete)
			r.Post("/import/csv", h.HandleImportCSV)
		})
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in indicator.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	ind, err := h.service.Create(ctx, middleware.Principal(ctx), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "indicator created",
		"request_id", middleware.GetRequestID(ctx),
		"indicator_id", ind.ID,
		"project_id", ind.ProjetoID,
	)
	httputil.WriteJSON(w, http.StatusCreated, ind)
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

	indicators, err := h.service.List(ctx, f, skip, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list indicators",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if indicators == nil {
		indicators = []indicator.Indicador{}
	}
	httputil.WriteJSON(w, http.StatusOK, indicators)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ind, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ind)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in indicator.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	ind, err := h.service.Update(ctx, middleware.Principal(ctx), id, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ind)
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
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "indicator deleted"})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	data, err := h.service.ExportCSV(ctx, middleware.Principal(ctx), f)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to export indicators",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename=indicadores.csv`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) HandleImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "failed to read request body"))
		return
	}

	imported, err := h.service.ImportCSV(ctx, middleware.Principal(ctx), data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "indicators imported",
		"request_id", middleware.GetRequestID(ctx),
		"count", imported,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

func filterFromQuery(r *http.Request) (indicator.Filter, error) {
	q := r.URL.Query()
	var f indicator.Filter

	if raw := q.Get("projeto_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid projeto_id")
		}
		f.ProjetoID = &id
	}
	if raw := q.Get("periodo_referencia"); raw != "" {
		f.Periodo = indicator.Trimestre(raw)
		if !f.Periodo.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown periodo_referencia")
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
