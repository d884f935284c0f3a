package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

// RequestLogger replaces gin's default logger with the http channel.
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"clientIp", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			logger.HTTP().Error("Request failed", attrs...)
		case status >= 400:
			logger.HTTP().Warn("Request rejected", attrs...)
		default:
			logger.HTTP().Info("Request served", attrs...)
		}
	}
}
