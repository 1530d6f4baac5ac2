package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shop-recommender/config"
	"shop-recommender/logging"
	"shop-recommender/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	UserIDHeader    = "X-User-ID"
)

// RequestIDMiddleware keeps an upstream X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// MetricsMiddleware records request counts and latency by route template
func MetricsMiddleware(rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveHTTP(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// AccessClaims are the claims of an access token issued by the auth system
type AccessClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the calling user from a Bearer access token.
// When allowed by config, X-User-ID is accepted instead for local development.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || len(secret) == 0 {
				respondUnauthorized(c, "Bearer token required")
				return
			}
			userID, err := parseAccessToken(token, secret)
			if err != nil {
				_ = c.Error(err)
				respondUnauthorized(c, "invalid or expired token")
				return
			}
			c.Set(logging.UserIDKey, userID)
			c.Next()
			return
		}

		if cfg.AllowHeaderIdentity {
			if raw := c.GetHeader(UserIDHeader); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil || id == 0 {
					respondUnauthorized(c, "invalid "+UserIDHeader)
					return
				}
				c.Set(logging.UserIDKey, uint(id))
				c.Next()
				return
			}
		}

		respondUnauthorized(c, "authentication required")
	}
}

func parseAccessToken(raw string, secret []byte) (uint, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("parse access token: %w", err)
	}
	if claims.UserID == 0 {
		return 0, errors.New("access token has no user_id")
	}
	return claims.UserID, nil
}
