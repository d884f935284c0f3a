package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
)

const visitCookieMaxAge = 365 * 24 * 60 * 60

var untrackedPrefixes = []string{"/admin", "/api", "/auth", "/static", "/ws", "/healthz"}

// VisitTracker records one page view.
type VisitTracker interface {
	TrackVisit(ctx context.Context, path, visitID string)
}

// Trackable reports whether a request path counts as a page view: not under
// an internal prefix and without a file extension.
func Trackable(p string) bool {
	for _, prefix := range untrackedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return false
		}
	}
	return path.Ext(p) == ""
}

// VisitMiddleware counts GET page views and assigns each browser a ULID visit
// cookie valid for a year.
func VisitMiddleware(tracker VisitTracker, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || !Trackable(p) {
			c.Next()
			return
		}
		visitID, err := c.Cookie(cookieName)
		if err != nil || visitID == "" {
			visitID = security.GenerateULID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, visitID, visitCookieMaxAge, "/", "", secure, true)
		}
		tracker.TrackVisit(c.Request.Context(), p, visitID)
		c.Next()
	}
}
