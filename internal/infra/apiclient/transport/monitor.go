package transport

import (
	"sync"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

// Status represents the observed health of the backend behind a transport.
type Status int

const (
	StatusHealthy     Status = iota // Backend answers normally
	StatusDegraded                  // Backend is slow or failing intermittently
	StatusUnreachable               // Nothing is getting through
)

func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "healthy"
	}
}

// MarshalText renders the status name in JSON reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MonitorStats holds monitoring statistics for a transport.
type MonitorStats struct {
	Status              Status         `json:"status"`
	AverageLatency      time.Duration  `json:"average_latency"`
	Requests            int            `json:"requests"`
	Failures            map[string]int `json:"failures"`
	RateLimited         int            `json:"rate_limited"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	LastSuccessAt       time.Time      `json:"last_success_at"`
	LastFailureAt       time.Time      `json:"last_failure_at"`
}

// Monitor tracks latency and failures of the exchanges a transport performs.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	requests            int
	failures            map[classify.Kind]int
	rateLimited         int
	consecutiveFailures int
	consecutiveNetwork  int
	lastSuccessAt       time.Time
	lastFailureAt       time.Time

	slowResponseThreshold time.Duration
	degradedAfter         int
	unreachableAfter      int
}

// NewMonitor creates a new monitor with default thresholds.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		failures:              make(map[classify.Kind]int),
		slowResponseThreshold: 3 * time.Second,
		degradedAfter:         3,
		unreachableAfter:      5,
	}
}

// RecordSuccess records a 2xx exchange with its latency.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.consecutiveFailures = 0
	m.consecutiveNetwork = 0
	m.lastSuccessAt = time.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordFailure records a failed exchange. status is 0 when no response
// was received.
func (m *Monitor) RecordFailure(kind classify.Kind, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.failures[kind]++
	m.consecutiveFailures++
	m.lastFailureAt = time.Now()

	if status == 429 {
		m.rateLimited++
	}
	if status == 0 && kind == classify.KindNetwork {
		m.consecutiveNetwork++
	} else {
		m.consecutiveNetwork = 0
	}
}

// CheckStatus returns the current status of the backend.
func (m *Monitor) CheckStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() Status {
	if m.consecutiveNetwork >= m.unreachableAfter {
		return StatusUnreachable
	}
	if m.consecutiveFailures >= m.degradedAfter {
		return StatusDegraded
	}
	if len(m.recentLatencies) > 10 && m.averageLatencyLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetAverageLatency returns the average latency of recent successful requests.
func (m *Monitor) GetAverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLatencyLocked()
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}

	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// GetStats returns current monitoring statistics.
func (m *Monitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failures := make(map[string]int, len(m.failures))
	for k, n := range m.failures {
		failures[k.String()] = n
	}

	return MonitorStats{
		Status:              m.statusLocked(),
		AverageLatency:      m.averageLatencyLocked(),
		Requests:            m.requests,
		Failures:            failures,
		RateLimited:         m.rateLimited,
		ConsecutiveFailures: m.consecutiveFailures,
		LastSuccessAt:       m.lastSuccessAt,
		LastFailureAt:       m.lastFailureAt,
	}
}
