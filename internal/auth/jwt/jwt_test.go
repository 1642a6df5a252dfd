package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquicultura/internal/user/models"
	domainerrors "aquicultura/pkg/domainerrors"
)

var svc = NewService("test-signing-key", "test-issuer", time.Hour, 7*24*time.Hour)

func testUser() *models.User {
	return &models.User{
		ID:       42,
		Email:    "gestor@aquicultura.ao",
		Role:     models.RoleGestaoDados,
		IsActive: true,
	}
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "gestor@aquicultura.ao", claims.Subject)
	assert.Equal(t, string(models.RoleGestaoDados), claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateRefreshToken_CarriesIdentityOnly(t *testing.T) {
	token, err := svc.GenerateRefreshToken(testUser())
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Empty(t, claims.Role)
	assert.Equal(t, TypeRefresh, claims.Type)
}

func Test_ValidateToken_RejectsWrongType(t *testing.T) {
	refresh, err := svc.GenerateRefreshToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(refresh, TypeAccess)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeUnauthorized))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := svc.ValidateToken("invalid-token-string", TypeAccess)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	expired := NewService("test-signing-key", "test-issuer", -time.Hour, -time.Hour)
	token, err := expired.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token, TypeAccess)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeUnauthorized))
	assert.EqualError(t, err, "token has expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewService("another-key", "test-issuer", time.Hour, time.Hour)
	token, err := other.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token, TypeAccess)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.CodeUnauthorized))
}
