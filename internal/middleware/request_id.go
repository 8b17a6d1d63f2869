package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID é o header HTTP para request ID
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID é o header HTTP para trace ID (distributed tracing)
	HeaderTraceID = "X-Trace-ID"

	maxIncomingIDLength = 64
)

// Sondas do orquestrador só aparecem em debug
var probePaths = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
}

// incomingID aceita o ID enviado pelo cliente apenas se for curto e
// composto de caracteres seguros para log
func incomingID(v string) (string, bool) {
	if v == "" || len(v) > maxIncomingIDLength {
		return "", false
	}
	for _, r := range v {
		ok := r == '-' || r == '_' || r == '.' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !ok {
			return "", false
		}
	}
	return v, true
}

// RequestID propaga request e trace IDs e registra início e fim de cada requisição
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID, ok := incomingID(c.GetHeader(HeaderRequestID))
		if !ok {
			requestID = uuid.NewString()[:8]
		}
		traceID, ok := incomingID(c.GetHeader(HeaderTraceID))
		if !ok {
			traceID = uuid.NewString()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		log := logger.Get(ctx)
		level := zerolog.InfoLevel
		if probePaths[c.Request.URL.Path] {
			level = zerolog.DebugLevel
		}

		log.WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", redactedQuery(c.Request.URL.Query())).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int64("content_length", c.Request.ContentLength).
			Msg("Request started")

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		log.WithLevel(level).
			Str("route", c.FullPath()).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Float64("latency_ms", float64(duration.Microseconds())/1000).
			Msg("Request completed")
	}
}

// redactedQuery encodes the query string with session tokens and OAuth
// codes masked.
func redactedQuery(q url.Values) string {
	for _, k := range []string{"token", "code", "state"} {
		if q.Has(k) {
			q.Set(k, "[REDACTED]")
		}
	}
	return q.Encode()
}
