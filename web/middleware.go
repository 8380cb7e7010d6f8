package web

import (
	"net/http"
	"strings"
	"time"

	"stemsep/config"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceHeader = "X-Trace-ID"
	traceKey    = "trace_id"
)

// TraceMiddleware tags every request with an identifier, honoring one the
// caller already sent, and echoes it back in the response headers.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(traceKey, traceID)
		c.Writer.Header().Set(TraceHeader, traceID)
		c.Next()
	}
}

// LogMiddleware writes one line per request once it finished.
func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"trace_id": c.GetString(traceKey),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("Request completed")
	}
}

// AuthMiddleware gates a route behind the configured bearer token. Replies
// name the rejection reason; the same reason lands in the request log.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnable {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			rejectAuth(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			rejectAuth(c, "Invalid Authorization header format")
			return
		}

		if parts[1] != cfg.AuthKey {
			rejectAuth(c, "Invalid token")
			return
		}

		c.Next()
	}
}

func rejectAuth(c *gin.Context, reason string) {
	log.WithFields(log.Fields{
		"trace_id": c.GetString(traceKey),
		"path":     c.Request.URL.Path,
		"reason":   reason,
	}).Warn("Rejected unauthorized request")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
}
