package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"aquicultura/internal/auth/jwt"
	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
	"aquicultura/pkg/platform/httputil"
	"aquicultura/pkg/platform/sentinel"
)

// TokenValidator verifies bearer credentials.
type TokenValidator interface {
	ValidateToken(tokenString, wantType string) (*jwt.Claims, error)
}

// PrincipalResolver loads the current user record for an authenticated email.
type PrincipalResolver interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type contextKeyPrincipal struct{}

// ContextKeyPrincipal is exported for use in handlers.
var ContextKeyPrincipal = contextKeyPrincipal{}

// Principal retrieves the authenticated user from the context. Nil means the
// request did not pass RequireAuth.
func Principal(ctx context.Context) *models.User {
	p, ok := ctx.Value(ContextKeyPrincipal).(*models.User)
	if !ok {
		return nil
	}
	return p
}

// RequireAuth resolves and verifies the bearer credential, re-checks that the
// principal still exists and is active, and stashes it in context. The role
// claim inside the token is trusted for the token's lifetime; only identity
// and active status are re-validated per request.
func RequireAuth(validator TokenValidator, users PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token, jwt.TypeAccess)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			user, err := users.FindByEmail(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "could not validate credentials"))
					return
				}
				logger.ErrorContext(ctx, "failed to resolve principal",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to resolve principal"))
				return
			}
			if !user.IsActive {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeInactive, "inactive user"))
				return
			}

			// The token's role snapshot governs authorization for this request.
			user.Role = models.Role(claims.Role)

			ctx = context.WithValue(ctx, ContextKeyPrincipal, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requireTier(tier models.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := Principal(r.Context())
			if p == nil {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "not authenticated"))
				return
			}
			if !p.Role.AtLeast(tier) {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeForbidden, "not enough permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireManagerOrAdmin allows GESTAO_DADOS and ROOT.
func RequireManagerOrAdmin(next http.Handler) http.Handler {
	return requireTier(models.TierManager)(next)
}

// RequireAdmin allows ROOT only.
func RequireAdmin(next http.Handler) http.Handler {
	return requireTier(models.TierAdmin)(next)
}
