// Package logging wraps log/slog with the small surface the rest of the
// program needs: a configurable global logger, request-ID propagation
// through contexts, and a few structured event helpers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Level selects the minimum severity that gets logged.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the output encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

var (
	logger *slog.Logger

	// output is swapped by tests to capture log lines.
	output io.Writer = os.Stdout
)

func init() {
	InitLogger(LevelInfo, FormatJSON)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger replaces the global logger. Timestamps are rendered as
// RFC 3339 in both formats.
func InitLogger(level Level, format Format) {
	opts := &slog.HandlerOptions{
		Level: slogLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	var h slog.Handler
	if format == FormatText {
		h = slog.NewTextHandler(output, opts)
	} else {
		h = slog.NewJSONHandler(output, opts)
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request ID stored in the context, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LoggerFromContext returns the global logger, with the context's
// request ID attached when one is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}

func Debug(msg string, args ...any) { logger.Debug(msg, args...) }
func Info(msg string, args ...any)  { logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { logger.Warn(msg, args...) }
func Error(msg string, args ...any) { logger.Error(msg, args...) }

// WebSocketEvent logs a websocket lifecycle event with the current
// client count.
func WebSocketEvent(event string, clientCount int, args ...any) {
	all := append([]any{"event", event, "client_count", clientCount}, args...)
	logger.Info("websocket_event", all...)
}

// ServerStartup logs that a server began listening.
func ServerStartup(serverType, addr string, args ...any) {
	all := append([]any{"server_type", serverType, "addr", addr}, args...)
	logger.Info("server_startup", all...)
}
