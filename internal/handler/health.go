package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/TimUdinusYes/backend/internal/database"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

const (
	maxWSConnections = 500
	maxRSSMB         = 512
)

// HealthHandler serves the probes and the metrics endpoints.
type HealthHandler struct {
	db        *sql.DB
	hub       *websocket.Hub
	version   string
	startTime time.Time
}

// NewHealthHandler creates a health handler. hub may be nil.
func NewHealthHandler(db *sql.DB, hub *websocket.Hub, version string) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, version: version, startTime: time.Now()}
}

// LivenessCheck only says the process is up.
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadinessCheck covers what a request needs: the database and memory headroom.
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.respond(c, h.components(c.Request.Context(), false))
}

// DetailedHealthCheck adds the hub and the model to the readiness components.
// @Router /health [get]
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	h.respond(c, h.components(c.Request.Context(), true))
}

func (h *HealthHandler) components(ctx context.Context, detailed bool) map[string]metrics.HealthStatus {
	components := map[string]metrics.HealthStatus{
		"database": metrics.CheckDatabaseHealth(ctx, h.db),
		"memory":   metrics.CheckMemoryHealth(maxRSSMB),
	}
	if !detailed {
		return components
	}

	if h.hub != nil {
		components["websocket"] = metrics.CheckWebSocketHealth(h.hub.GetConnectionCount(), maxWSConnections)
	}
	components["llm"] = metrics.CheckLLMHealth(metrics.Get().Snapshot())
	return components
}

func (h *HealthHandler) respond(c *gin.Context, components map[string]metrics.HealthStatus) {
	report := metrics.HealthCheck{
		Status:     metrics.DetermineOverallStatus(components),
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	status := http.StatusOK
	if report.Status == metrics.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// GetMetrics returns the full snapshot.
// @Router /api/metrics/full [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Get().Snapshot())
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// GetMetricsSummary groups the counters the dashboard shows.
// @Router /api/metrics [get]
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	s := metrics.Get().Snapshot()

	websocketSection := gin.H{"connections": s.WebSocket.Connections}
	if h.hub != nil {
		websocketSection["running_exports"] = h.hub.RunningExports()
	}

	summary := gin.H{
		"uptime_seconds": s.UptimeSeconds,
		"version":        h.version,
		"requests": gin.H{
			"total":        s.Requests.Total,
			"success_rate": percent(s.Requests.Successful, s.Requests.Total),
			"avg_latency":  s.Requests.AvgLatencyMs,
		},
		"validations": gin.H{
			"database":     s.Validations.Database,
			"cache":        s.Validations.Cache,
			"model":        s.Validations.Model,
			"hit_rate_pct": s.Validations.HitRatePct,
		},
		"llm": gin.H{
			"calls":        s.LLM.Calls,
			"success_rate": percent(s.LLM.Calls-s.LLM.Errors, s.LLM.Calls),
			"avg_latency":  s.LLM.AvgLatencyMs,
		},
		"calendar": gin.H{
			"implements":     s.Calendar.Implements,
			"events_created": s.Calendar.EventsCreated,
			"errors":         s.Calendar.Errors,
		},
		"quiz": gin.H{
			"generated":    s.Quiz.Generated,
			"submitted":    s.Quiz.Submitted,
			"correct":      s.Quiz.Correct,
			"correct_rate": percent(s.Quiz.Correct, s.Quiz.Submitted),
		},
		"websocket": websocketSection,
		"system": gin.H{
			"goroutines":  s.System.Goroutines,
			"heap_mb":     s.System.HeapAllocMB,
			"heap_use_mb": s.System.HeapInUseMB,
			"rss_mb":      s.System.RSSMB,
		},
	}
	if h.db != nil {
		summary["database"] = database.GetPoolStats(h.db)
	}
	c.JSON(http.StatusOK, summary)
}

// GetEndpointMetrics breaks requests down by route template.
// @Router /api/metrics/endpoints [get]
func (h *HealthHandler) GetEndpointMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"endpoints": metrics.Get().Snapshot().Endpoints})
}
