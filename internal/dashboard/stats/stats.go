// Package stats loads the admin usage summary behind the fetch cooldown.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lucasvrm/previso/internal/core/domain"
	"github.com/lucasvrm/previso/internal/dashboard/recency"
	"github.com/lucasvrm/previso/internal/infra/apiclient"
	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

const (
	// Key identifies the stats fetch in the recency store.
	Key = "admin-stats"

	// Path is the stats endpoint.
	Path = "/api/admin/stats"

	defaultMaxRetries = 3
)

// Getter is the subset of the API client the service needs.
type Getter interface {
	Get(ctx context.Context, path string, opts apiclient.Options) (json.RawMessage, error)
}

// Service fetches admin stats and remembers the last good value.
type Service struct {
	api        Getter
	suppressor *recency.Suppressor
	maxRetries int

	mu   sync.RWMutex
	last *domain.AdminStats
}

// NewService creates a stats service. A nil suppressor disables suppression.
func NewService(api Getter, suppressor *recency.Suppressor) *Service {
	return &Service{
		api:        api,
		suppressor: suppressor,
		maxRetries: defaultMaxRetries,
	}
}

// Load returns fresh stats, or the last known value when a fetch succeeded
// within the cooldown. The bool reports whether a request was made.
func (s *Service) Load(ctx context.Context) (*domain.AdminStats, bool, error) {
	return s.load(ctx, false)
}

// Refresh fetches regardless of the cooldown.
func (s *Service) Refresh(ctx context.Context) (*domain.AdminStats, error) {
	st, _, err := s.load(ctx, true)
	return st, err
}

// Last returns the most recent successful result, or nil.
func (s *Service) Last() *domain.AdminStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Service) load(ctx context.Context, force bool) (*domain.AdminStats, bool, error) {
	if s.suppressor == nil {
		st, err := s.fetch(ctx)
		return st, true, err
	}

	var fresh *domain.AdminStats
	ran, err := s.suppressor.Fetch(ctx, Key, force, func(ctx context.Context) error {
		var err error
		fresh, err = s.fetch(ctx)
		return err
	})
	if err != nil {
		return nil, ran, err
	}
	if !ran {
		return s.Last(), false, nil
	}
	return fresh, true, nil
}

func (s *Service) fetch(ctx context.Context) (*domain.AdminStats, error) {
	body, err := s.api.Get(ctx, Path, apiclient.Options{
		MaxRetries:  s.maxRetries,
		RequireAuth: apiclient.Bool(true),
	})
	if err != nil {
		slog.Warn("Failed to fetch admin stats", "error", err)
		return nil, err
	}

	var st domain.AdminStats
	if len(body) > 0 {
		if err := json.Unmarshal(body, &st); err != nil {
			return nil, apierr.New(0, classify.KindUnknown, apierr.MsgInvalidResponse,
				map[string]any{"type": apierr.TypeInvalidJSON}, fmt.Errorf("decode stats: %w", err))
		}
	}
	st.FetchedAt = time.Now()

	s.mu.Lock()
	s.last = &st
	s.mu.Unlock()

	return &st, nil
}

// Failure is a display-ready description of a stats error.
type Failure struct {
	Type    domain.StatsErrorType
	Message string
}

// Describe maps an error from Load or Refresh to a consumer error type.
func Describe(err error) Failure {
	ae, ok := apierr.As(err)
	if !ok {
		return Failure{domain.StatsErrorNetwork, "Stats unavailable: unexpected error. Try again."}
	}

	switch {
	case ae.Status == 401 || ae.Type() == apierr.TypeNoSession:
		return Failure{domain.StatsErrorUnauthorized, "Session expired. Please log in again."}
	case ae.Status == 403:
		return Failure{domain.StatsErrorForbidden, "You do not have permission to view these statistics."}
	case ae.Type() == apierr.TypeInvalidAPIKey:
		return Failure{domain.StatsErrorServer, "Stats unavailable: server configuration failure (invalid API key)."}
	case ae.Type() == apierr.TypeInvalidJSON:
		return Failure{domain.StatsErrorServer, "Stats unavailable: invalid server response."}
	case ae.Status >= 500:
		return Failure{domain.StatsErrorServer, "Stats unavailable: server error. Check the backend configuration."}
	case ae.Status == 0 || ae.Kind == classify.KindCORS || strings.Contains(ae.Message, "CORS") || ae.Message == apierr.MsgNetwork:
		return Failure{domain.StatsErrorNetwork, "Stats unavailable: connection error or CORS blocked."}
	case ae.Message != "":
		return Failure{domain.StatsErrorServer, ae.Message}
	default:
		return Failure{domain.StatsErrorServer, "Failed to load statistics."}
	}
}
