package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
)

// Token types carried in the "type" claim. A refresh token can never be used
// as a bearer credential and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the JWT claims for access and refresh tokens. The role is a
// snapshot taken at issuance; it is not re-validated against the store until
// the token is refreshed.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(signingKey, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateAccessToken mints a short-lived credential carrying the role claim.
func (s *Service) GenerateAccessToken(user *models.User) (string, error) {
	return s.sign(Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		Type:   TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	})
}

// GenerateRefreshToken mints a longer-lived credential carrying identity only.
// It is used solely to obtain a new access token.
func (s *Service) GenerateRefreshToken(user *models.User) (string, error) {
	return s.sign(Claims{
		UserID: user.ID,
		Type:   TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	})
}

func (s *Service) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken verifies signature, expiry and token type, returning the
// claims on success. Every verification failure maps to CodeUnauthorized.
func (s *Service) ValidateToken(tokenString, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.New(domainerrors.CodeUnauthorized, "token has expired")
		}
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Type != wantType {
		return nil, domainerrors.New(domainerrors.CodeUnauthorized, "wrong token type")
	}
	return claims, nil
}
