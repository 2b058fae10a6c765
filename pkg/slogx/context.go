package slogx

import (
	"context"
	"log/slog"

	"github.com/pavohq/folio/pkg/idx"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithAttempt attaches a logger carrying the given attempt ID to the context.
// Auth flows use this so every log line of one submission shares an ID.
func WithAttempt(ctx context.Context, attempt idx.ID) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("attempt_id", attempt.String()))
}
