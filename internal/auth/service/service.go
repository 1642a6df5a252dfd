package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mssola/useragent"

	"aquicultura/internal/audit"
	"aquicultura/internal/auth/jwt"
	"aquicultura/internal/platform/metrics"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/sentinel"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/requestcontext"
)

// Authenticator verifies credentials against the user store.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// UserDirectory is the slice of the user store the auth flow needs.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

// LoginLimiter throttles credential attempts per source IP.
type LoginLimiter interface {
	Check(ctx context.Context, ip string) error
	RecordFailure(ctx context.Context, ip string)
	Reset(ctx context.Context, ip string)
}

// Auditor records authentication events on the audit trail.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) (*audit.Entry, error)
}

// TokenPair is the login response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Service implements the login, refresh and logout flows.
type Service struct {
	authenticator Authenticator
	users         UserDirectory
	tokens        *jwt.Service
	limiter       LoginLimiter
	auditor       Auditor
	runner        tx.Runner
	metrics       *metrics.Metrics
}

func New(authenticator Authenticator, users UserDirectory, tokens *jwt.Service, limiter LoginLimiter, auditor Auditor, runner tx.Runner, m *metrics.Metrics) *Service {
	return &Service{
		authenticator: authenticator,
		users:         users,
		tokens:        tokens,
		limiter:       limiter,
		auditor:       auditor,
		runner:        runner,
		metrics:       m,
	}
}

// Login verifies credentials and issues an access/refresh token pair. The
// rate limiter is consulted before credentials are even looked at, so a
// blocked IP learns nothing about account existence.
func (s *Service) Login(ctx context.Context, email, password, userAgent string) (*TokenPair, error) {
	ip := requestcontext.ClientIP(ctx)

	if err := s.limiter.Check(ctx, ip); err != nil {
		s.countLogin("blocked")
		return nil, err
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeUnauthorized) {
			s.limiter.RecordFailure(ctx, ip)
			s.countLogin("failure")
		}
		return nil, err
	}
	if !user.IsActive {
		s.countLogin("failure")
		return nil, domainerrors.New(domainerrors.CodeInactive, "inactive user")
	}

	s.limiter.Reset(ctx, ip)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
			return err
		}
		_, err := s.auditor.Record(ctx, audit.Record{
			UserID:   &user.ID,
			Papel:    string(user.Role),
			Acao:     audit.ActionLogin,
			Entidade: "User",
			IP:       ip,
			Detalhes: loginDetail(user.Email, userAgent),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	s.countLogin("success")
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// account is re-checked so a deactivated user cannot refresh their way back
// in, and the role claim is re-read from the store at this boundary.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, jwt.TypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "could not validate credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domainerrors.New(domainerrors.CodeInactive, "inactive user")
	}

	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &TokenPair{AccessToken: access, TokenType: "bearer"}, nil
}

// Logout records the event on the audit trail. Tokens are not revoked
// server-side; they simply age out.
func (s *Service) Logout(ctx context.Context, actor *models.User) error {
	_, err := s.auditor.Record(ctx, audit.Record{
		UserID:   &actor.ID,
		Papel:    string(actor.Role),
		Acao:     audit.ActionLogout,
		Entidade: "User",
		IP:       requestcontext.ClientIP(ctx),
		Detalhes: fmt.Sprintf("Logout of %s", actor.Email),
	})
	return err
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func loginDetail(email, rawUserAgent string) string {
	if rawUserAgent == "" {
		return fmt.Sprintf("Login of %s", email)
	}
	ua := useragent.New(rawUserAgent)
	browser, version := ua.Browser()
	if browser == "" {
		return fmt.Sprintf("Login of %s", email)
	}
	return fmt.Sprintf("Login of %s via %s %s on %s", email, browser, version, ua.OS())
}
