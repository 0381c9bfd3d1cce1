package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homepage-content-api/internal/models"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Minute,
		Issuer:            "homepage-content-api",
		Audience:          []string{"admin"},
	})
}

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := newTestAuthService()
	token, expiresAt, err := svc.GenerateToken(models.Actor{TenantID: "tenant-1", UserID: "user-1", Role: models.RoleEditor}, "ed@example.com")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleEditor, claims.Role)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	token, _, err := newTestAuthService().GenerateToken(models.Actor{TenantID: "tenant-1", UserID: "user-1"}, "")
	require.NoError(t, err)

	other := NewAuthService(AuthConfig{AccessTokenSecret: "other", Issuer: "homepage-content-api"})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRequiresTenant(t *testing.T) {
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "homepage-content-api",
			Audience:  jwt.ClaimStrings{"admin"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newTestAuthService().ValidateToken(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tenant")
}

func TestAuthServiceRejectsExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: -time.Minute})
	assert.Equal(t, 15*time.Minute, svc.config.AccessTokenExpiry)

	claims := &models.JWTClaims{
		UserID:   "user-1",
		TenantID: "tenant-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}
