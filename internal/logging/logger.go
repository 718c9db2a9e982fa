// Package logging defines the structured logger used by the server. Handlers,
// the OTP consumer and startup code log through this interface so the output
// format (JSON on stdout in production) is decided in one place.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "list bootstrapped", "user_id", uid, "lists", 3)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// New builds a JSON slog logger writing to w. Debug level is enabled outside
// of production environments.
func New(w io.Writer, env string) *SlogLogger {
	level := slog.LevelDebug
	switch strings.ToLower(env) {
	case "prod", "production":
		level = slog.LevelInfo
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(h))
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
