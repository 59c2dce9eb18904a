// Package logger provides structured logging infrastructure for the
// application. This is part of the platform layer and contains no business
// logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TeamIDKey is the context key for the resolved tenant
	TeamIDKey contextKey = "team_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if teamID, ok := ctx.Value(TeamIDKey).(string); ok && teamID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("team_id", teamID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// PipelineDrop logs an inbound event that was acknowledged but not processed
// further. These are expected conditions, not failures.
func (l *Logger) PipelineDrop(stage, reason, sender string) {
	l.Info("pipeline_drop",
		slog.String("stage", stage),
		slog.String("reason", reason),
		slog.String("sender", sender),
	)
}

// DispatchResult logs the outcome of an outbound send.
func (l *Logger) DispatchResult(to, messageID string, err error) {
	if err == nil {
		l.Info("dispatch_ok",
			slog.String("to", to),
			slog.String("message_id", messageID),
		)
		return
	}
	l.Error("dispatch_failed",
		slog.String("to", to),
		slog.String("message_id", messageID),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
