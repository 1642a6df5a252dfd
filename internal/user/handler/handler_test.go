package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/user/models"
	"aquicultura/internal/user/service"
	"aquicultura/internal/user/store"
	"aquicultura/pkg/platform/tx"
)

type UserHandlerSuite struct {
	suite.Suite
	svc   *service.Service
	users *store.InMemory
	admin *models.User
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

func (s *UserHandlerSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.svc = service.New(s.users, audit.NewService(auditmemory.New(), nil, nil), tx.Passthrough{})

	admin, err := s.svc.Create(context.Background(), nil, service.CreateInput{
		Email:    "root@aquicultura.ao",
		Password: "admin123456",
		FullName: "Administrador",
		Role:     models.RoleRoot,
	})
	s.Require().NoError(err)
	s.admin = admin
}

// router mounts the handler behind a stub that injects the given principal,
// standing in for RequireAuth.
func (s *UserHandlerSuite) router(principal *models.User) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			if principal != nil {
				ctx = context.WithValue(ctx, middleware.ContextKeyPrincipal, principal)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	New(s.svc, logger).Register(r)
	return r
}

func (s *UserHandlerSuite) do(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (s *UserHandlerSuite) TestCreateAndGet() {
	h := s.router(s.admin)

	rec := s.do(h, http.MethodPost, "/users/", map[string]any{
		"email":     "gestor@aquicultura.ao",
		"password":  "secret-password",
		"full_name": "Gestor",
		"role":      "GESTAO_DADOS",
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var created models.User
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Equal(models.RoleGestaoDados, created.Role)
	s.NotContains(rec.Body.String(), "hashed_password")

	rec = s.do(h, http.MethodGet, "/users/"+itoa(created.ID), nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *UserHandlerSuite) TestCreateDuplicateEmail() {
	h := s.router(s.admin)
	rec := s.do(h, http.MethodPost, "/users/", map[string]any{
		"email":     "root@aquicultura.ao",
		"password":  "x12345678",
		"full_name": "Duplicado",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *UserHandlerSuite) TestNonAdminForbidden() {
	viewer := &models.User{ID: 99, Email: "viewer@aquicultura.ao", Role: models.RoleVisualizacao, IsActive: true}
	h := s.router(viewer)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/users/"},
		{http.MethodPost, "/users/"},
		{http.MethodGet, "/users/1"},
		{http.MethodPut, "/users/1"},
		{http.MethodDelete, "/users/1"},
	} {
		rec := s.do(h, tc.method, tc.path, nil)
		s.Equal(http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func (s *UserHandlerSuite) TestUpdate() {
	h := s.router(s.admin)
	rec := s.do(h, http.MethodPut, "/users/"+itoa(s.admin.ID), map[string]any{
		"full_name": "Administrador Geral",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var updated models.User
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal("Administrador Geral", updated.FullName)
}

func (s *UserHandlerSuite) TestDeleteDeactivates() {
	viewer, err := s.svc.Create(context.Background(), s.admin, service.CreateInput{
		Email:    "viewer@aquicultura.ao",
		Password: "x12345678",
		FullName: "Visualizador",
	})
	s.Require().NoError(err)

	h := s.router(s.admin)
	rec := s.do(h, http.MethodDelete, "/users/"+itoa(viewer.ID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	got, err := s.users.FindByID(context.Background(), viewer.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)
}

func (s *UserHandlerSuite) TestGetNotFound() {
	h := s.router(s.admin)
	rec := s.do(h, http.MethodGet, "/users/999", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(h, http.MethodGet, "/users/abc", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *UserHandlerSuite) TestChangePassword() {
	h := s.router(s.admin)

	rec := s.do(h, http.MethodPost, "/users/change-password", map[string]any{
		"old_password": "wrong",
		"new_password": "new-password-1",
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(h, http.MethodPost, "/users/change-password", map[string]any{
		"old_password": "admin123456",
		"new_password": "new-password-1",
	})
	s.Equal(http.StatusOK, rec.Code)

	// Viewers may change their own password too.
	viewer, err := s.svc.Create(context.Background(), s.admin, service.CreateInput{
		Email:    "viewer@aquicultura.ao",
		Password: "viewer-pass-1",
		FullName: "Visualizador",
	})
	s.Require().NoError(err)

	rec = s.do(s.router(viewer), http.MethodPost, "/users/change-password", map[string]any{
		"old_password": "viewer-pass-1",
		"new_password": "viewer-pass-2",
	})
	s.Equal(http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
