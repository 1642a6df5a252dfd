package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/project"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// maxImportBody bounds the CSV import payload.
const maxImportBody = 5 << 20

// Service defines the interface for project operations.
type Service interface {
	Create(ctx context.Context, actor *models.User, in project.CreateInput) (*project.Projeto, error)
	Get(ctx context.Context, id int64) (*project.Projeto, error)
	List(ctx context.Context, f project.Filter, skip, limit int) ([]project.Projeto, error)
	Update(ctx context.Context, actor *models.User, id int64, in project.UpdateInput) (*project.Projeto, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
	ExportCSV(ctx context.Context, actor *models.User, f project.Filter) ([]byte, error)
	ImportCSV(ctx context.Context, actor *models.User, data []byte) (int, error)
	Stats(ctx context.Context) (*project.Stats, error)
}

// Handler wires project endpoints to the project service. Reads are open to
// any active principal; mutations require GESTAO_DADOS or ROOT.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/projetos", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/export/csv", h.HandleExportCSV)
		r.Get("/dashboard/stats", h.HandleStats)
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

	var in project.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.service.Create(ctx, middleware.Principal(ctx), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "project created",
		"request_id", middleware.GetRequestID(ctx),
		"project_id", p.ID,
		"provincia_id", p.ProvinciaID,
	)
	httputil.WriteJSON(w, http.StatusCreated, p)
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

	projects, err := h.service.List(ctx, f, skip, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list projects",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if projects == nil {
		projects = []project.Projeto{}
	}
	httputil.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in project.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.service.Update(ctx, middleware.Principal(ctx), id, in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
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

	h.logger.InfoContext(ctx, "project deleted",
		"request_id", middleware.GetRequestID(ctx),
		"project_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
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
		h.logger.ErrorContext(ctx, "failed to export projects",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename=projetos.csv`)
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

	h.logger.InfoContext(ctx, "projects imported",
		"request_id", middleware.GetRequestID(ctx),
		"count", imported,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute project stats",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func filterFromQuery(r *http.Request) (project.Filter, error) {
	q := r.URL.Query()
	var f project.Filter

	if raw := q.Get("provincia_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid provincia_id")
		}
		f.ProvinciaID = &id
	}
	if raw := q.Get("tipo"); raw != "" {
		f.Tipo = project.Tipo(raw)
		if !f.Tipo.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown tipo")
		}
	}
	if raw := q.Get("fonte_financiamento"); raw != "" {
		f.Fonte = project.Fonte(raw)
		if !f.Fonte.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown fonte_financiamento")
		}
	}
	if raw := q.Get("estado"); raw != "" {
		f.Estado = project.Estado(raw)
		if !f.Estado.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "unknown estado")
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
