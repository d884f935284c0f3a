// Package middleware holds the gin middleware of the HTTP surface.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
)

const sessionKey = "session"

// SessionResolver turns a cookie value into a session and decides admin access.
type SessionResolver interface {
	Session(token string) (security.Session, error)
	IsAdmin(ctx context.Context, s security.Session) bool
}

// SessionMiddleware attaches the session carried by cookieName, if any.
// Invalid tokens are treated as anonymous.
func SessionMiddleware(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			if s, err := resolver.Session(token); err == nil {
				c.Set(sessionKey, s)
			}
		}
		c.Next()
	}
}

// GetSession returns the session attached by SessionMiddleware.
func GetSession(c *gin.Context) (security.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return security.Session{}, false
	}
	s, ok := value.(security.Session)
	return s, ok
}

// RequireAdmin rejects requests without an admin session: 401 when anonymous,
// 403 when the account is not in the admin set.
func RequireAdmin(resolver SessionResolver, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := GetSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !resolver.IsAdmin(c.Request.Context(), s) {
			logger.Auth().Warn("Admin access denied", "userId", s.UserID, "provider", s.Provider, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
