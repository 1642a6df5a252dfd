package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	auditmemory "aquicultura/internal/audit/store/memory"
	"aquicultura/internal/auth/jwt"
	"aquicultura/internal/ratelimit"
	ratelimitstore "aquicultura/internal/ratelimit/store"
	"aquicultura/internal/user/models"
	userservice "aquicultura/internal/user/service"
	userstore "aquicultura/internal/user/store"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type AuthServiceSuite struct {
	suite.Suite
	users    *userstore.InMemory
	auditLog *auditmemory.Store
	tokens   *jwt.Service
	svc      *Service
	ctx      context.Context
	user     *models.User
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.users = userstore.NewInMemory()
	s.auditLog = auditmemory.New()
	s.tokens = jwt.NewService("test-secret", "aquicultura", 30*time.Minute, 7*24*time.Hour)

	auditor := audit.NewService(s.auditLog, nil, nil)
	usersvc := userservice.New(s.users, auditor, tx.Passthrough{})
	limiter := ratelimit.New(ratelimitstore.NewMemory(), 5, 5*time.Minute, 15*time.Minute, logger, nil)
	s.svc = New(usersvc, s.users, s.tokens, limiter, auditor, tx.Passthrough{}, nil)
	s.ctx = requestcontext.WithClientIP(context.Background(), "10.0.0.1")

	user, err := usersvc.Create(context.Background(), nil, userservice.CreateInput{
		Email:    "gestor@aquicultura.ao",
		Password: "secret-password",
		FullName: "Gestor",
		Role:     models.RoleGestaoDados,
	})
	s.Require().NoError(err)
	s.user = user
}

func (s *AuthServiceSuite) lastEntry() audit.Entry {
	entries, err := s.auditLog.List(s.ctx, audit.Filter{}, 0, 1)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	return entries[0]
}

func (s *AuthServiceSuite) TestLoginIssuesTokenPair() {
	pair, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().NoError(err)
	s.Equal("bearer", pair.TokenType)

	claims, err := s.tokens.ValidateToken(pair.AccessToken, jwt.TypeAccess)
	s.Require().NoError(err)
	s.Equal("gestor@aquicultura.ao", claims.Subject)
	s.Equal(string(models.RoleGestaoDados), claims.Role)

	_, err = s.tokens.ValidateToken(pair.RefreshToken, jwt.TypeRefresh)
	s.Require().NoError(err)

	// Access token is not accepted where a refresh token is expected.
	_, err = s.tokens.ValidateToken(pair.AccessToken, jwt.TypeRefresh)
	s.Error(err)

	got, err := s.users.FindByID(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.NotNil(got.LastLogin)

	entry := s.lastEntry()
	s.Equal(audit.ActionLogin, entry.Acao)
	s.Equal(s.user.ID, *entry.UserID)
	s.Equal("10.0.0.1", *entry.IP)
	s.Contains(*entry.Detalhes, "gestor@aquicultura.ao")
	s.Contains(*entry.Detalhes, "Chrome")
}

func (s *AuthServiceSuite) TestLoginWrongPassword() {
	_, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "wrong", chromeUA)
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeUnauthorized))

	// No LOGIN entry recorded for the failed attempt.
	count, err := s.auditLog.Count(s.ctx, audit.Filter{Acao: audit.ActionLogin})
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *AuthServiceSuite) TestLoginInactiveUser() {
	s.user.IsActive = false
	s.Require().NoError(s.users.Update(s.ctx, s.user))

	_, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeInactive))
}

func (s *AuthServiceSuite) TestLoginBlockedAfterRepeatedFailures() {
	for i := 0; i < 5; i++ {
		_, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "wrong", chromeUA)
		s.True(domainerrors.Is(err, domainerrors.CodeUnauthorized))
	}

	// Even the correct password is refused while the IP is blocked.
	_, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeTooManyRequests))

	// A different source IP is unaffected.
	other := requestcontext.WithClientIP(context.Background(), "10.0.0.2")
	_, err = s.svc.Login(other, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.NoError(err)
}

func (s *AuthServiceSuite) TestLoginSuccessResetsCounter() {
	for i := 0; i < 4; i++ {
		_, _ = s.svc.Login(s.ctx, "gestor@aquicultura.ao", "wrong", chromeUA)
	}
	_, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().NoError(err)

	// The counter restarted, so a few more failures do not block yet.
	for i := 0; i < 4; i++ {
		_, _ = s.svc.Login(s.ctx, "gestor@aquicultura.ao", "wrong", chromeUA)
	}
	_, err = s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.NoError(err)
}

func (s *AuthServiceSuite) TestRefresh() {
	pair, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().NoError(err)

	refreshed, err := s.svc.Refresh(s.ctx, pair.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(refreshed.AccessToken)
	s.Equal("bearer", refreshed.TokenType)

	claims, err := s.tokens.ValidateToken(refreshed.AccessToken, jwt.TypeAccess)
	s.Require().NoError(err)
	s.Equal("gestor@aquicultura.ao", claims.Subject)
}

func (s *AuthServiceSuite) TestRefreshRejectsAccessToken() {
	pair, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().NoError(err)

	_, err = s.svc.Refresh(s.ctx, pair.AccessToken)
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestRefreshDeactivatedUser() {
	pair, err := s.svc.Login(s.ctx, "gestor@aquicultura.ao", "secret-password", chromeUA)
	s.Require().NoError(err)

	s.user.IsActive = false
	s.Require().NoError(s.users.Update(s.ctx, s.user))

	_, err = s.svc.Refresh(s.ctx, pair.RefreshToken)
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeInactive))
}

func (s *AuthServiceSuite) TestLogoutRecordsAudit() {
	s.Require().NoError(s.svc.Logout(s.ctx, s.user))

	entry := s.lastEntry()
	s.Equal(audit.ActionLogout, entry.Acao)
	s.Equal(s.user.ID, *entry.UserID)
	s.Nil(entry.EntidadeID)
}
