package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// RequestLogger logs every request once it has been served. The status
// code picks the level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if strings.HasSuffix(path, "/health") {
			return
		}

		statusCode := c.Writer.Status()
		if raw != "" && !strings.Contains(raw, "token=") {
			path = path + "?" + raw
		}

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Request.UserAgent()),
		}
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			attrs = append(attrs, slog.String("error", errorMessage))
		}

		// carries request_id and user_id when set by earlier middleware
		log := logger.FromContext(c.Request.Context())

		msg := "request served"
		switch {
		case statusCode >= 500:
			log.Error(msg, attrs...)
		case statusCode >= 400:
			log.Warn(msg, attrs...)
		default:
			log.Info(msg, attrs...)
		}
	}
}
