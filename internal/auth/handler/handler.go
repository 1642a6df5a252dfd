package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aquicultura/internal/auth/service"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
)

// Service defines the interface for authentication operations.
type Service interface {
	Login(ctx context.Context, email, password, userAgent string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, actor *models.User) error
}

// Handler wires authentication endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the auth endpoints. Login and refresh are public; logout
// and me run behind the given authentication middleware.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/refresh", h.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", h.HandleLogout)
			r.Get("/me", h.HandleMe)
		})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "email and password are required"))
		return
	}

	pair, err := h.service.Login(ctx, req.Email, req.Password, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", middleware.GetRequestID(ctx),
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login succeeded",
		"request_id", middleware.GetRequestID(ctx),
		"email", req.Email,
	)
	httputil.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.RefreshToken == "" {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "refresh_token is required"))
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.Principal(ctx)
	if actor == nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "not authenticated"))
		return
	}

	if err := h.service.Logout(ctx, actor); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", actor.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

// HandleMe returns the authenticated principal as seen by the middleware,
// with the role taken from the token snapshot.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Principal(r.Context())
	if actor == nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "not authenticated"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, actor)
}
