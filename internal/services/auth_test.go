package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/pkg/models"
)

const testJWTSecret = "test-secret"

func signedToken(t *testing.T, userID string, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newTestAuthService() *AuthService {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: testJWTSecret}}
	return NewAuthService(cfg, testLogger(), nil)
}

func TestAuthService_ValidateToken(t *testing.T) {
	auth := newTestAuthService()

	t.Run("accepts a valid token", func(t *testing.T) {
		token := signedToken(t, "u1", testJWTSecret, time.Now().Add(time.Hour))
		claims, err := auth.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		token := signedToken(t, "u1", "other-secret", time.Now().Add(time.Hour))
		_, err := auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := signedToken(t, "u1", testJWTSecret, time.Now().Add(-time.Hour))
		_, err := auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("rejects a token without a user id", func(t *testing.T) {
		token := signedToken(t, "", testJWTSecret, time.Now().Add(time.Hour))
		_, err := auth.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	auth := newTestAuthService()
	ctx := context.Background()

	t.Run("empty token is anonymous", func(t *testing.T) {
		assert.Equal(t, "", auth.ResolveIdentity(ctx, ""))
	})

	t.Run("garbage token is anonymous, not an error", func(t *testing.T) {
		assert.Equal(t, "", auth.ResolveIdentity(ctx, "not-a-jwt"))
	})

	t.Run("valid token resolves to its user id", func(t *testing.T) {
		token := signedToken(t, "u1", testJWTSecret, time.Now().Add(time.Hour))
		assert.Equal(t, "u1", auth.ResolveIdentity(ctx, token))
	})
}
