// Package logger wraps log/slog with the request-scoped fields and event
// helpers used across the service.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

// Context keys read by WithContext.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

var contextFields = []contextKey{RequestIDKey, UserIDKey, TraceIDKey}

// Logger is a slog.Logger with service-specific helpers.
type Logger struct {
	*slog.Logger
}

// New returns a text logger at debug level for "development" and a JSON
// logger at info level for every other environment.
func New(env string) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// WithContext attaches request_id, user_id and trace_id when ctx carries them.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	for _, key := range contextFields {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{l.With(attrs...)}
}

// HTTPRequest logs a completed request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs a request that ended with an error attached to the gin context.
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// Transition records an applied appointment status change.
func (l *Logger) Transition(appointmentID int64, from, to, actor string) {
	l.Info("appointment_transition",
		slog.Int64("appointment_id", appointmentID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("actor", actor),
	)
}

// DatabaseError logs a store failure; attrs are extra key/value pairs such
// as the appointment or property id.
func (l *Logger) DatabaseError(operation string, err error, attrs ...any) {
	l.Error("database_error", append([]any{
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, attrs...)...)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded", slog.String("client_ip", clientIP), slog.String("path", path))
}
