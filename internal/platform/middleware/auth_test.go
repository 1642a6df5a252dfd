package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquicultura/internal/auth/jwt"
	"aquicultura/internal/user/models"
	"aquicultura/pkg/platform/sentinel"
)

type fakeResolver struct {
	users map[string]*models.User
}

func (r *fakeResolver) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := r.users[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

var discard = slog.New(slog.DiscardHandler)

func newTestGate() (*jwt.Service, *fakeResolver) {
	svc := jwt.NewService("gate-test-key", "test", time.Hour, time.Hour)
	resolver := &fakeResolver{users: map[string]*models.User{
		"root@aquicultura.ao":   {ID: 1, Email: "root@aquicultura.ao", Role: models.RoleRoot, IsActive: true},
		"gestor@aquicultura.ao": {ID: 2, Email: "gestor@aquicultura.ao", Role: models.RoleGestaoDados, IsActive: true},
		"viewer@aquicultura.ao": {ID: 3, Email: "viewer@aquicultura.ao", Role: models.RoleVisualizacao, IsActive: true},
		"off@aquicultura.ao":    {ID: 4, Email: "off@aquicultura.ao", Role: models.RoleGestaoDados, IsActive: false},
	}}
	return svc, resolver
}

func doRequest(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRequireAuth_MissingToken(t *testing.T) {
	svc, resolver := newTestGate()
	called := false
	handler := RequireAuth(svc, resolver, discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	rr := doRequest(t, handler, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, called)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	svc, resolver := newTestGate()
	handler := RequireAuth(svc, resolver, discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rr := doRequest(t, handler, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	svc, resolver := newTestGate()
	token, err := svc.GenerateRefreshToken(resolver.users["root@aquicultura.ao"])
	require.NoError(t, err)

	handler := RequireAuth(svc, resolver, discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rr := doRequest(t, handler, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuth_InactiveUser(t *testing.T) {
	svc, resolver := newTestGate()
	token, err := svc.GenerateAccessToken(resolver.users["off@aquicultura.ao"])
	require.NoError(t, err)

	handler := RequireAuth(svc, resolver, discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rr := doRequest(t, handler, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequireAuth_UnknownPrincipal(t *testing.T) {
	svc, resolver := newTestGate()
	ghost := &models.User{ID: 9, Email: "ghost@aquicultura.ao", Role: models.RoleRoot, IsActive: true}
	token, err := svc.GenerateAccessToken(ghost)
	require.NoError(t, err)

	handler := RequireAuth(svc, resolver, discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rr := doRequest(t, handler, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuth_SetsPrincipal(t *testing.T) {
	svc, resolver := newTestGate()
	token, err := svc.GenerateAccessToken(resolver.users["gestor@aquicultura.ao"])
	require.NoError(t, err)

	var got *models.User
	handler := RequireAuth(svc, resolver, discard)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = Principal(r.Context())
	}))
	rr := doRequest(t, handler, token)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, models.RoleGestaoDados, got.Role)
}

// Tier enforcement: p can invoke the endpoint iff p's tier satisfies the gate.
func TestTierGates(t *testing.T) {
	svc, resolver := newTestGate()

	gates := map[string]func(http.Handler) http.Handler{
		"manager": RequireManagerOrAdmin,
		"admin":   RequireAdmin,
	}
	want := map[string]map[string]int{
		"manager": {
			"root@aquicultura.ao":   http.StatusOK,
			"gestor@aquicultura.ao": http.StatusOK,
			"viewer@aquicultura.ao": http.StatusForbidden,
		},
		"admin": {
			"root@aquicultura.ao":   http.StatusOK,
			"gestor@aquicultura.ao": http.StatusForbidden,
			"viewer@aquicultura.ao": http.StatusForbidden,
		},
	}

	for gateName, gate := range gates {
		for email, status := range want[gateName] {
			token, err := svc.GenerateAccessToken(resolver.users[email])
			require.NoError(t, err)

			called := false
			handler := RequireAuth(svc, resolver, discard)(gate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			})))
			rr := doRequest(t, handler, token)
			assert.Equal(t, status, rr.Code, "%s gate for %s", gateName, email)
			assert.Equal(t, status == http.StatusOK, called, "%s gate for %s", gateName, email)
		}
	}
}

func TestTierGate_WithoutPrincipal(t *testing.T) {
	rr := doRequest(t, RequireAdmin(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
