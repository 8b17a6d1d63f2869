package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ServiceName identifica o serviço em todas as linhas de log
const ServiceName = "learning-path-api"

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	userIDKey
	usernameKey
	operationIDKey
	traceIDKey
)

var globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configura o logger global e o de auditoria
func Init(level string, jsonFormat bool) {
	globalLogger = New(os.Stdout, level, jsonFormat)
	InitAudit()
}

// New cria um logger com os campos padrão do serviço. Níveis
// desconhecidos caem para info; sem JSON a saída é legível no terminal.
func New(w io.Writer, level string, jsonFormat bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if !jsonFormat {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// Global retorna o logger global
func Global() *zerolog.Logger {
	return &globalLogger
}

// Get retorna o logger do contexto ou o global
func Get(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok {
			return l
		}
	}
	return &globalLogger
}

// FromGin extrai o logger da requisição Gin
func FromGin(c *gin.Context) *zerolog.Logger {
	return Get(c.Request.Context())
}

// with guarda value sob key e o anexa como field ao logger do contexto
func with(ctx context.Context, key ctxKey, field, value string) context.Context {
	l := Get(ctx).With().Str(field, value).Logger()
	ctx = context.WithValue(ctx, key, value)
	return context.WithValue(ctx, loggerKey, &l)
}

// WithRequestID inicia o logger da requisição a partir do global
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, loggerKey, &l)
}

// WithUserInfo anexa o usuário autenticado
func WithUserInfo(ctx context.Context, userID, username string) context.Context {
	ctx = with(ctx, userIDKey, "user_id", userID)
	return with(ctx, usernameKey, "username", username)
}

// WithOperationID marca operações longas, como uma exportação de calendário
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return with(ctx, operationIDKey, "operation_id", operationID)
}

// WithTraceID anexa o trace ID propagado pelo cliente
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, traceIDKey, "trace_id", traceID)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// GetRequestID extrai request_id do contexto
func GetRequestID(ctx context.Context) string { return value(ctx, requestIDKey) }

// GetUserID extrai user_id do contexto
func GetUserID(ctx context.Context) string { return value(ctx, userIDKey) }

// GetUsername extrai username do contexto
func GetUsername(ctx context.Context) string { return value(ctx, usernameKey) }

// GetOperationID extrai operation_id do contexto
func GetOperationID(ctx context.Context) string { return value(ctx, operationIDKey) }
