package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"
)

// Component health states, from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const (
	slowPing = 100 * time.Millisecond

	// The model is only judged once it has seen a few calls.
	minLLMCallsForHealth = 10
	maxLLMErrorRatio     = 0.5
)

// HealthStatus is the state of one component
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck is the response of the health endpoints
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckDatabaseHealth pings the database. A slow ping is degraded.
func CheckDatabaseHealth(ctx context.Context, db *sql.DB) HealthStatus {
	if db == nil {
		return HealthStatus{Status: StatusUnhealthy, Message: "database connection not initialized"}
	}

	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	switch {
	case err != nil:
		return HealthStatus{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.Milliseconds()}
	case latency > slowPing:
		return HealthStatus{Status: StatusDegraded, Message: "high latency", Latency: latency.Milliseconds()}
	}
	return HealthStatus{Status: StatusHealthy, Latency: latency.Milliseconds()}
}

// CheckMemoryHealth compares the process resident set with maxRSSMB,
// falling back to the Go heap when process stats are unavailable. Above
// 80% of the limit the process is degraded.
func CheckMemoryHealth(maxRSSMB uint64) HealthStatus {
	usedMB, err := processRSS()
	if err == nil {
		usedMB /= 1024 * 1024
	} else {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		usedMB = ms.HeapAlloc / 1024 / 1024
	}
	return memoryStatus(usedMB, maxRSSMB)
}

func memoryStatus(usedMB, maxMB uint64) HealthStatus {
	switch {
	case usedMB > maxMB:
		return HealthStatus{Status: StatusUnhealthy, Message: "memory exceeds limit"}
	case usedMB > maxMB*80/100:
		return HealthStatus{Status: StatusDegraded, Message: "memory usage high"}
	}
	return HealthStatus{Status: StatusHealthy}
}

// CheckLLMHealth reports the model as degraded when most calls fail.
// Model-backed operations fall back to defaults, so it is never unhealthy.
func CheckLLMHealth(s MetricsSnapshot) HealthStatus {
	calls, errs := s.LLM.Calls, s.LLM.Errors
	if calls >= minLLMCallsForHealth && float64(errs)/float64(calls) > maxLLMErrorRatio {
		return HealthStatus{Status: StatusDegraded, Message: "high model failure rate, serving fallback answers"}
	}
	return HealthStatus{Status: StatusHealthy}
}

// CheckWebSocketHealth is degraded above maxConnections.
func CheckWebSocketHealth(connections, maxConnections int) HealthStatus {
	if connections > maxConnections {
		return HealthStatus{Status: StatusDegraded, Message: "WebSocket connections near limit"}
	}
	return HealthStatus{Status: StatusHealthy}
}

var statusRank = map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

// DetermineOverallStatus returns the worst component status
func DetermineOverallStatus(components map[string]HealthStatus) string {
	overall := StatusHealthy
	for _, c := range components {
		if statusRank[c.Status] > statusRank[overall] {
			overall = c.Status
		}
	}
	return overall
}
