package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/transport"
	"github.com/lucasvrm/previso/internal/infra/metrics"
)

// Checker reports the health of one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// Monitor aggregates health status from registered checkers.
type Monitor struct {
	checkers   []Checker
	minPeriod  time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a monitor. Reports are cached for minPeriod to avoid
// pinging dependencies on every scrape.
func NewMonitor(minPeriod time.Duration, checkers ...Checker) *Monitor {
	return &Monitor{
		checkers:  checkers,
		minPeriod: minPeriod,
	}
}

// Register adds a checker.
func (m *Monitor) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
	m.lastCheck = time.Time{}
}

// CheckHealth runs every checker, or returns the cached report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.minPeriod {
		return m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checkers)),
		CheckedAt:    time.Now(),
	}
	for _, c := range m.checkers {
		h := c.Check(ctx)
		h.Name = c.Name()
		report.Components[h.Name] = h
		report.SystemStatus = worst(report.SystemStatus, h.Status)
	}

	m.lastCheck = report.CheckedAt
	m.lastReport = report
	return report
}

// TransportCheck reports backend reachability from a transport monitor.
type TransportCheck struct {
	Monitor *transport.Monitor
}

func (TransportCheck) Name() string { return "backend" }

func (c TransportCheck) Check(context.Context) ComponentHealth {
	stats := c.Monitor.GetStats()
	h := ComponentHealth{Stats: stats}
	if !stats.LastSuccessAt.IsZero() {
		at := stats.LastSuccessAt
		h.LastSuccessAt = &at
	}

	switch stats.Status {
	case transport.StatusUnreachable:
		h.Status = StatusCritical
		h.Detail = fmt.Sprintf("%d consecutive failures", stats.ConsecutiveFailures)
		metrics.BackendUp.Set(0)
	case transport.StatusDegraded:
		h.Status = StatusDegraded
		h.Detail = fmt.Sprintf("average latency %s", stats.AverageLatency)
		metrics.BackendUp.Set(1)
	default:
		h.Status = StatusHealthy
		metrics.BackendUp.Set(1)
	}
	return h
}

// PingCheck reports a dependency that can be pinged, such as a database.
// A failing ping is degraded, not critical: the poller runs without it.
type PingCheck struct {
	Component string
	Ping      func(ctx context.Context) error
	Timeout   time.Duration
}

func (c PingCheck) Name() string { return c.Component }

func (c PingCheck) Check(ctx context.Context) ComponentHealth {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		return ComponentHealth{Status: StatusDegraded, Detail: err.Error()}
	}
	return ComponentHealth{Status: StatusHealthy}
}

// SessionCheck reports whether the session-expiry guard has fired.
type SessionCheck struct {
	Expired func() bool
}

func (SessionCheck) Name() string { return "session" }

func (c SessionCheck) Check(context.Context) ComponentHealth {
	if c.Expired() {
		return ComponentHealth{Status: StatusCritical, Detail: "session expired, run previso login"}
	}
	return ComponentHealth{Status: StatusHealthy}
}
