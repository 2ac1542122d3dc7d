package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Baaaki/daily-report/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CSRFHeader is the request header carrying the token returned at login
const CSRFHeader = "X-CSRF-Token"

var ErrNoSession = errors.New("csrf: session id is required")

// CSRFStore keeps one CSRF token per login session in Redis. Tokens expire together
// with the session token.
type CSRFStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCSRFStore(redisClient *redis.Client, ttl time.Duration) *CSRFStore {
	return &CSRFStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

func csrfKey(sessionID string) string {
	return fmt.Sprintf("csrf:%s", sessionID)
}

// Issue creates a fresh token for sessionID, replacing any earlier one
func (s *CSRFStore) Issue(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}

	token := uuid.NewString()
	if err := s.redis.Set(ctx, csrfKey(sessionID), token, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Validate reports whether token is the live token of sessionID
func (s *CSRFStore) Validate(ctx context.Context, sessionID, token string) (bool, error) {
	if sessionID == "" || token == "" {
		return false, nil
	}

	stored, err := s.redis.Get(ctx, csrfKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

func (s *CSRFStore) Revoke(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, csrfKey(sessionID)).Err()
}

// Middleware rejects state-changing requests without a valid CSRF header.
// It must run after AuthMiddleware.
func (s *CSRFStore) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		claims, ok := ClaimsFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
			})
			c.Abort()
			return
		}

		valid, err := s.Validate(c.Request.Context(), claims.ID, c.GetHeader(CSRFHeader))
		if err != nil {
			logger.Log.Error("CSRF token lookup failed",
				zap.Uint("employee_id", claims.EmployeeID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			c.Abort()
			return
		}
		if !valid {
			logger.Log.Warn("Invalid CSRF token",
				zap.Uint("employee_id", claims.EmployeeID),
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Invalid CSRF token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
