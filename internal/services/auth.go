package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/pkg/models"
)

// AuthService resolves an opaque bearer token to a stable user identifier.
// Absence of a valid token means anonymous, never an error: anonymous
// requests route to population-level recommendations.
type AuthService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	jwtSecret   []byte
}

func NewAuthService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		jwtSecret:   []byte(cfg.Auth.JWTSecret),
	}
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token carries no user id")
	}
	return claims, nil
}

// ResolveIdentity returns the user id for a bearer token, or "" for
// anonymous. A revoked session also resolves to anonymous.
func (s *AuthService) ResolveIdentity(ctx context.Context, tokenString string) string {
	if tokenString == "" {
		return ""
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		s.logger.WithError(err).Debug("Token rejected, treating request as anonymous")
		return ""
	}

	if s.redisClient != nil {
		sessionKey := fmt.Sprintf("session:%s", claims.UserID)
		exists, err := s.redisClient.Exists(ctx, sessionKey).Result()
		if err != nil {
			s.logger.WithError(err).Warn("Failed to check session in Redis")
			// Token signature already checked; stay identified if Redis is down.
		} else if exists == 0 {
			return ""
		}
	}

	return claims.UserID
}
