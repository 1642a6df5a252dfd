package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/auth/jwt"
	authservice "aquicultura/internal/auth/service"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/ratelimit"
	ratelimitstore "aquicultura/internal/ratelimit/store"
	"aquicultura/internal/user/models"
	userservice "aquicultura/internal/user/service"
	userstore "aquicultura/internal/user/store"
	"aquicultura/pkg/platform/tx"
)

type AuthHandlerSuite struct {
	suite.Suite
	router http.Handler
	users  *userstore.InMemory
	user   *models.User
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.users = userstore.NewInMemory()
	auditor := audit.NewService(auditmemory.New(), nil, nil)
	usersvc := userservice.New(s.users, auditor, tx.Passthrough{})
	tokens := jwt.NewService("test-secret", "aquicultura", 30*time.Minute, 7*24*time.Hour)
	limiter := ratelimit.New(ratelimitstore.NewMemory(), 5, 5*time.Minute, 15*time.Minute, logger, nil)
	svc := authservice.New(usersvc, s.users, tokens, limiter, auditor, tx.Passthrough{}, nil)

	user, err := usersvc.Create(context.Background(), nil, userservice.CreateInput{
		Email:    "gestor@aquicultura.ao",
		Password: "secret-password",
		FullName: "Gestor",
		Role:     models.RoleGestaoDados,
	})
	s.Require().NoError(err)
	s.user = user

	r := chi.NewRouter()
	r.Use(middleware.ClientIP)
	New(svc, logger).Register(r, middleware.RequireAuth(tokens, s.users, logger))
	s.router = r
}

func (s *AuthHandlerSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:52000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AuthHandlerSuite) login() authservice.TokenPair {
	rec := s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "gestor@aquicultura.ao",
		"password": "secret-password",
	}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var pair authservice.TokenPair
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

func (s *AuthHandlerSuite) TestLoginReturnsTokens() {
	pair := s.login()
	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
	s.Equal("bearer", pair.TokenType)
}

func (s *AuthHandlerSuite) TestLoginBadCredentials() {
	rec := s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "gestor@aquicultura.ao",
		"password": "wrong",
	}, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestLoginMissingFields() {
	rec := s.do(http.MethodPost, "/auth/login", map[string]string{"email": "gestor@aquicultura.ao"}, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthHandlerSuite) TestLoginRateLimited() {
	for i := 0; i < 5; i++ {
		s.do(http.MethodPost, "/auth/login", map[string]string{
			"email":    "gestor@aquicultura.ao",
			"password": "wrong",
		}, nil)
	}
	rec := s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "gestor@aquicultura.ao",
		"password": "secret-password",
	}, nil)
	s.Equal(http.StatusTooManyRequests, rec.Code)
}

func (s *AuthHandlerSuite) TestRefresh() {
	pair := s.login()

	rec := s.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var refreshed authservice.TokenPair
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &refreshed))
	s.NotEmpty(refreshed.AccessToken)

	// An access token is not a refresh token.
	rec = s.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.AccessToken}, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestMe() {
	pair := s.login()

	rec := s.do(http.MethodGet, "/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var me models.User
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &me))
	s.Equal("gestor@aquicultura.ao", me.Email)
	s.NotContains(rec.Body.String(), "hashed_password")
}

func (s *AuthHandlerSuite) TestMeUnauthenticated() {
	rec := s.do(http.MethodGet, "/auth/me", nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestMeInactiveUser() {
	pair := s.login()

	s.user.IsActive = false
	s.Require().NoError(s.users.Update(context.Background(), s.user))

	rec := s.do(http.MethodGet, "/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthHandlerSuite) TestLogout() {
	pair := s.login()

	rec := s.do(http.MethodPost, "/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	s.Equal(http.StatusOK, rec.Code)
}
