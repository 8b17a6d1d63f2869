package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	// Content operations
	AuditActionTopicCreate    AuditAction = "TOPIC_CREATE"
	AuditActionNodeCreate     AuditAction = "NODE_CREATE"
	AuditActionNodeDelete     AuditAction = "NODE_DELETE"
	AuditActionNodeRejected   AuditAction = "NODE_REJECTED_DUPLICATE"
	AuditActionWorkflowCreate AuditAction = "WORKFLOW_CREATE"
	AuditActionWorkflowUpdate AuditAction = "WORKFLOW_UPDATE"
	AuditActionWorkflowDelete AuditAction = "WORKFLOW_DELETE"

	AuditActionPathValidate AuditAction = "PATH_VALIDATE"

	// Schedule operations
	AuditActionScheduleEstimate AuditAction = "SCHEDULE_ESTIMATE"
	AuditActionScheduleExport   AuditAction = "SCHEDULE_EXPORT"
	AuditActionImplement        AuditAction = "WORKFLOW_IMPLEMENT"
	AuditActionImplementFailed  AuditAction = "WORKFLOW_IMPLEMENT_FAILED"

	AuditActionCalendarLink AuditAction = "CALENDAR_LINK"
	AuditActionQuizSubmit   AuditAction = "QUIZ_SUBMIT"

	AuditActionWSConnect    AuditAction = "WS_CONNECT"
	AuditActionWSDisconnect AuditAction = "WS_DISCONNECT"

	AuditActionAPIRequest AuditAction = "API_REQUEST"
	AuditActionAPIError   AuditAction = "API_ERROR"
)

// AuditEvent is one audit log entry. Empty request, operation and user
// fields are filled from the context.
type AuditEvent struct {
	Action      AuditAction
	UserID      string
	Username    string
	Resource    string
	ResourceID  string
	Details     map[string]interface{}
	ClientIP    string
	RequestID   string
	OperationID string
	Success     bool
	Error       string
	Duration    int64 // milliseconds
	Method      string
	Path        string
	StatusCode  int
}

var auditLogger zerolog.Logger

// InitAudit derives the audit logger from the global one
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func optStr(e *zerolog.Event, key, v string) {
	if v != "" {
		e.Str(key, v)
	}
}

// Audit writes an audit event. Failures are logged at warn level.
func Audit(ctx context.Context, event AuditEvent) {
	fill(&event.RequestID, GetRequestID(ctx))
	fill(&event.OperationID, GetOperationID(ctx))
	fill(&event.UserID, GetUserID(ctx))
	fill(&event.Username, GetUsername(ctx))

	e := auditLogger.Info()
	if !event.Success {
		e = auditLogger.Warn()
	}

	e.Str("action", string(event.Action)).
		Str("user_id", event.UserID).
		Str("resource", event.Resource).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	optStr(e, "username", event.Username)
	optStr(e, "resource_id", event.ResourceID)
	optStr(e, "client_ip", event.ClientIP)
	optStr(e, "request_id", event.RequestID)
	optStr(e, "operation_id", event.OperationID)
	optStr(e, "error", event.Error)
	optStr(e, "method", event.Method)
	optStr(e, "path", event.Path)
	if event.Duration > 0 {
		e.Int64("duration_ms", event.Duration)
	}
	if event.StatusCode > 0 {
		e.Int("status_code", event.StatusCode)
	}
	if len(event.Details) > 0 {
		e.Interface("details", event.Details)
	}

	e.Msg("Audit event")
}

// AuditResource records a successful change to a user-owned resource
func AuditResource(ctx context.Context, action AuditAction, userID, resource, resourceID string) {
	Audit(ctx, AuditEvent{
		Action:     action,
		UserID:     userID,
		Resource:   resource,
		ResourceID: resourceID,
		Success:    true,
	})
}

// AuditRequest logs an API request audit event
func AuditRequest(ctx context.Context, method, path string, statusCode int, duration int64, userID, clientIP string) {
	action := AuditActionAPIRequest
	if statusCode >= 400 {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		UserID:     userID,
		Resource:   "api",
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		ClientIP:   clientIP,
		Success:    statusCode < 400,
	})
}

// AuditImplement logs the outcome of a calendar export for a workflow
func AuditImplement(ctx context.Context, userID, workflowID string, created, total int, err error) {
	event := AuditEvent{
		Action:     AuditActionImplement,
		UserID:     userID,
		Resource:   "workflow",
		ResourceID: workflowID,
		Success:    err == nil,
		Details: map[string]interface{}{
			"events_created": created,
			"events_total":   total,
		},
	}
	if err != nil {
		event.Action = AuditActionImplementFailed
		event.Error = err.Error()
	}
	Audit(ctx, event)
}

// AuditWebSocket logs WebSocket connection events
func AuditWebSocket(ctx context.Context, action AuditAction, userID, clientIP string, details map[string]interface{}) {
	Audit(ctx, AuditEvent{
		Action:   action,
		UserID:   userID,
		Resource: "websocket",
		ClientIP: clientIP,
		Success:  true,
		Details:  details,
	})
}
