package store

import (
	"context"
	"log/slog"
	"sync"
)

// FallbackSessions wraps a primary Sessions with an in-memory fallback. The
// first failed write flips the wrapper to the fallback for the rest of the
// process: the session keeps working, it just stops surviving restarts. This
// is the degrade path for storage-quota and disk errors, which must never be
// fatal.
type FallbackSessions struct {
	primary  Sessions
	fallback Sessions
	logger   *slog.Logger

	mu       sync.Mutex
	degraded bool
}

func NewFallbackSessions(primary, fallback Sessions, logger *slog.Logger) *FallbackSessions {
	return &FallbackSessions{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Degraded reports whether writes have been redirected to the fallback.
func (f *FallbackSessions) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

func (f *FallbackSessions) active() Sessions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return f.fallback
	}
	return f.primary
}

func (f *FallbackSessions) degrade(op string, err error) {
	f.mu.Lock()
	already := f.degraded
	f.degraded = true
	f.mu.Unlock()

	if !already {
		f.logger.Warn("durable session storage failed, session is now in-memory only",
			"op", op, "error", err)
	}
}

func (f *FallbackSessions) Token(ctx context.Context) (string, error) {
	return f.active().Token(ctx)
}

func (f *FallbackSessions) User(ctx context.Context) ([]byte, error) {
	return f.active().User(ctx)
}

func (f *FallbackSessions) SetSession(ctx context.Context, token string, user []byte) error {
	if err := f.active().SetSession(ctx, token, user); err != nil {
		f.degrade("set_session", err)
		return f.fallback.SetSession(ctx, token, user)
	}
	return nil
}

func (f *FallbackSessions) Clear(ctx context.Context) error {
	if err := f.active().Clear(ctx); err != nil {
		f.degrade("clear", err)
		return f.fallback.Clear(ctx)
	}
	return nil
}
