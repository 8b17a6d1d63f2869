package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]HealthStatus
		want       string
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]HealthStatus{"a": {Status: StatusHealthy}, "b": {Status: StatusHealthy}}, StatusHealthy},
		{"one degraded", map[string]HealthStatus{"a": {Status: StatusHealthy}, "b": {Status: StatusDegraded}}, StatusDegraded},
		{"unhealthy wins", map[string]HealthStatus{"a": {Status: StatusUnhealthy}, "b": {Status: StatusDegraded}}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineOverallStatus(tt.components))
		})
	}
}

func TestMemoryStatus(t *testing.T) {
	assert.Equal(t, StatusHealthy, memoryStatus(100, 512).Status)
	assert.Equal(t, StatusDegraded, memoryStatus(450, 512).Status)
	assert.Equal(t, StatusUnhealthy, memoryStatus(600, 512).Status)
}

func TestCheckLLMHealth(t *testing.T) {
	var s MetricsSnapshot
	s.LLM.Calls, s.LLM.Errors = 4, 4
	assert.Equal(t, StatusHealthy, CheckLLMHealth(s).Status, "too few calls to judge")

	s.LLM.Calls, s.LLM.Errors = 20, 15
	assert.Equal(t, StatusDegraded, CheckLLMHealth(s).Status)

	s.LLM.Errors = 5
	assert.Equal(t, StatusHealthy, CheckLLMHealth(s).Status)
}

func TestCheckDatabaseHealthWithoutConnection(t *testing.T) {
	assert.Equal(t, StatusUnhealthy, CheckDatabaseHealth(context.Background(), nil).Status)
}

func TestSnapshotValidationHitRate(t *testing.T) {
	m := newMetrics()
	m.IncrementValidation(SourceDatabase)
	m.IncrementValidation(SourceCache)
	m.IncrementValidation(SourceModel)
	m.IncrementValidation(SourceModel)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Validations.Model)
	assert.Equal(t, 50.0, s.Validations.HitRatePct)
}

func TestSnapshotEndpoints(t *testing.T) {
	m := newMetrics()
	m.IncrementRequests(true, 10)
	m.IncrementRequests(false, 30)
	m.TrackEndpoint("/api/topics", "GET", 200, 10)
	m.TrackEndpoint("/api/topics", "GET", 500, 30)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.Requests.Successful)
	assert.Equal(t, 20.0, s.Requests.AvgLatencyMs)
	ep := s.Endpoints["GET /api/topics"]
	assert.Equal(t, int64(2), ep.Requests)
	assert.Equal(t, 50.0, ep.ErrorRate)
	assert.Equal(t, 20.0, ep.AvgLatencyMs)
}
