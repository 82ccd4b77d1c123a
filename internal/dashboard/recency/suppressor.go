package recency

import (
	"context"
	"log/slog"
	"time"

	"github.com/lucasvrm/previso/internal/infra/metrics"
)

// DefaultCooldown is the window in which a repeated fetch is skipped.
const DefaultCooldown = 5 * time.Second

// Suppressor decides whether a keyed fetch should run. It is advisory: a
// failing store never blocks a fetch.
type Suppressor struct {
	store    Store
	cooldown time.Duration
	now      func() time.Time
}

// NewSuppressor creates a suppressor. A nil store means in-memory; a
// non-positive cooldown means DefaultCooldown.
func NewSuppressor(store Store, cooldown time.Duration) *Suppressor {
	if store == nil {
		store = NewMemoryStore()
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Suppressor{
		store:    store,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Cooldown returns the effective window.
func (s *Suppressor) Cooldown() time.Duration {
	return s.cooldown
}

// ShouldFetch reports false only when the last success for key is younger
// than the cooldown.
func (s *Suppressor) ShouldFetch(ctx context.Context, key string) bool {
	at, ok, err := s.store.LastSuccess(ctx, key)
	if err != nil {
		slog.Warn("Recency lookup failed, fetching anyway", "key", key, "error", err)
		return true
	}
	if !ok {
		return true
	}
	if s.now().Sub(at) < s.cooldown {
		metrics.FetchesSuppressed.WithLabelValues(key).Inc()
		slog.Debug("Skipping fetch inside cooldown", "key", key, "last_success", at)
		return false
	}
	return true
}

// RecordSuccess stamps key with the current time.
func (s *Suppressor) RecordSuccess(ctx context.Context, key string) {
	now := s.now()
	if err := s.store.SetLastSuccess(ctx, key, now); err != nil {
		slog.Warn("Failed to record fetch success", "key", key, "error", err)
		return
	}
	metrics.LastSuccessfulFetch.WithLabelValues(key).Set(float64(now.Unix()))
}

// ForceNext clears key so the next ShouldFetch returns true.
func (s *Suppressor) ForceNext(ctx context.Context, key string) {
	if err := s.store.Clear(ctx, key); err != nil {
		slog.Warn("Failed to clear fetch record", "key", key, "error", err)
	}
}

// Fetch runs fn unless a fetch for key succeeded within the cooldown. force
// bypasses the check. The returned bool reports whether fn ran.
func (s *Suppressor) Fetch(ctx context.Context, key string, force bool, fn func(ctx context.Context) error) (bool, error) {
	if force {
		s.ForceNext(ctx, key)
	} else if !s.ShouldFetch(ctx, key) {
		return false, nil
	}

	if err := fn(ctx); err != nil {
		return true, err
	}
	s.RecordSuccess(ctx, key)
	return true, nil
}
