package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/audit"
	"aquicultura/internal/platform/middleware"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for audit trail queries.
type Service interface {
	List(ctx context.Context, f audit.Filter, skip, limit int) ([]audit.Entry, error)
	Count(ctx context.Context, f audit.Filter) (int64, error)
	Get(ctx context.Context, id int64) (*audit.Entry, error)
	Stats(ctx context.Context) (*audit.Stats, error)
	ExportCSV(ctx context.Context, f audit.Filter) ([]byte, error)
}

// Handler serves the audit trail to administrators. Every route is mounted
// behind RequireAdmin; the trail is ROOT-only.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/auditoria", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.HandleList)
		r.Get("/dashboard/stats", h.HandleStats)
		r.Get("/export/csv", h.HandleExportCSV)
		r.Get("/{id}", h.HandleGet)
	})
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// listResponse is the paginated trail plus the aggregate block the admin UI
// renders alongside it.
type listResponse struct {
	Logs       []audit.Entry `json:"logs"`
	Stats      *audit.Stats  `json:"stats"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int64         `json:"total_pages"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	entries, err := h.service.List(ctx, f, (page-1)*limit, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit entries",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	total, err := h.service.Count(ctx, f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.Stats(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if entries == nil {
		entries = []audit.Entry{}
	}
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Logs:       entries,
		Stats:      stats,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid id"))
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
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

	data, err := h.service.ExportCSV(ctx, f)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to export audit trail",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename=auditoria.csv`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func filterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	var f audit.Filter

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid user_id")
		}
		f.UserID = &id
	}
	if raw := q.Get("acao"); raw != "" {
		action := audit.Action(raw)
		if !action.Valid() {
			return f, domainerrors.New(domainerrors.CodeBadRequest, fmt.Sprintf("unknown action %q", raw))
		}
		f.Acao = action
	}
	f.Entidade = q.Get("entidade")
	f.Search = q.Get("search")

	if raw := q.Get("data_inicio"); raw != "" {
		t, err := parseTime(raw, false)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid data_inicio")
		}
		f.From = &t
	}
	if raw := q.Get("data_fim"); raw != "" {
		t, err := parseTime(raw, true)
		if err != nil {
			return f, domainerrors.New(domainerrors.CodeBadRequest, "invalid data_fim")
		}
		f.To = &t
	}
	return f, nil
}

// parseTime accepts RFC 3339 timestamps or bare dates. A bare end date is
// pushed to the end of that day so the range stays inclusive.
func parseTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
