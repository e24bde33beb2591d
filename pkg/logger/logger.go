package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns the process logger: JSON to stdout, debug level outside
// staging/production. LOG_LEVEL overrides the default when set.
func New(appEnv string) *slog.Logger {
	return NewWithWriter(appEnv, os.Getenv("LOG_LEVEL"), os.Stdout)
}

func NewWithWriter(appEnv, levelOverride string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(levelOverride)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "outreach-dialer")
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ForAccount returns a context whose logger carries account_id.
func ForAccount(ctx context.Context, accountID string) context.Context {
	return With(ctx, From(ctx).With("account_id", accountID))
}
