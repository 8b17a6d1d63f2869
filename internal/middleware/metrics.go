package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/gin-gonic/gin"
)

// routeOf returns the matched route template so that per-endpoint metrics
// do not grow with every topic or workflow id.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

// MetricsMiddleware tracks request counts and latency per route
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start).Milliseconds()
		status := c.Writer.Status()

		m := metrics.Get()
		m.IncrementRequests(status < http.StatusBadRequest, latency)
		m.TrackEndpoint(routeOf(c), c.Request.Method, status, latency)
	}
}

// auditedPrefixes are the API areas whose writes are audited
var auditedPrefixes = []string{
	"/api/topics",
	"/api/nodes",
	"/api/workflows",
	"/api/quiz",
	"/api/calendar",
	"/api/validate-path",
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func audited(route string) bool {
	for _, p := range auditedPrefixes {
		if strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

// AuditMiddleware writes an audit entry for every write to the learning API
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		if !isWrite(c.Request.Method) || !audited(route) {
			return
		}

		logger.AuditRequest(
			c.Request.Context(),
			c.Request.Method,
			route,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.GetString(ContextUserID),
			c.ClientIP(),
		)
	}
}
