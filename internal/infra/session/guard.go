package session

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/lucasvrm/previso/internal/infra/metrics"
)

// ExpiryGuard turns any number of unauthorized outcomes into a single forced
// login. One guard is created per process and shared by every client; once
// fired it stays fired until the process restarts.
type ExpiryGuard struct {
	fired     atomic.Bool
	provider  Provider
	navigator Navigator
}

// NewExpiryGuard creates a guard. provider may be nil when there is no local
// session to clear.
func NewExpiryGuard(provider Provider, navigator Navigator) *ExpiryGuard {
	return &ExpiryGuard{
		provider:  provider,
		navigator: navigator,
	}
}

// Trigger fires the guard. Only the first call clears the session and
// navigates; later and concurrent calls return immediately.
func (g *ExpiryGuard) Trigger(ctx context.Context) {
	if !g.fired.CompareAndSwap(false, true) {
		return
	}

	metrics.SessionExpiries.Inc()
	slog.Warn("Session expired, redirecting to login")

	if g.provider != nil {
		if err := g.provider.Clear(ctx); err != nil {
			slog.Warn("Failed to clear session", "error", err)
		}
	}
	if g.navigator != nil {
		g.navigator.GoToLogin(ctx)
	}
}

// Fired reports whether the guard has already fired.
func (g *ExpiryGuard) Fired() bool {
	return g.fired.Load()
}

// Reset re-arms the guard. Tests only.
func (g *ExpiryGuard) Reset() {
	g.fired.Store(false)
}
