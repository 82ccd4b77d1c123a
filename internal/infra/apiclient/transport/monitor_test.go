package transport

import (
	"testing"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

func TestMonitorAccumulation(t *testing.T) {
	m := NewMonitor()

	m.RecordSuccess(100 * time.Millisecond)
	for i := 0; i < 9; i++ {
		m.RecordSuccess(50 * time.Millisecond)
	}
	m.RecordFailure(classify.KindClientError, 429)

	stats := m.GetStats()
	if stats.Requests != 11 {
		t.Errorf("Expected 11 requests, got %d", stats.Requests)
	}
	if stats.RateLimited != 1 {
		t.Errorf("Expected 1 rate limited, got %d", stats.RateLimited)
	}
	if stats.Failures["clientError"] != 1 {
		t.Errorf("Expected 1 clientError failure, got %v", stats.Failures)
	}
	if stats.AverageLatency != 55*time.Millisecond {
		t.Errorf("Expected 55ms average latency, got %v", stats.AverageLatency)
	}
	if stats.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %v", stats.Status)
	}
}

func TestMonitorStatusTransitions(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < 3; i++ {
		m.RecordFailure(classify.KindServer, 503)
	}
	if got := m.CheckStatus(); got != StatusDegraded {
		t.Errorf("Expected degraded after 3 server failures, got %v", got)
	}

	for i := 0; i < 5; i++ {
		m.RecordFailure(classify.KindNetwork, 0)
	}
	if got := m.CheckStatus(); got != StatusUnreachable {
		t.Errorf("Expected unreachable after 5 network failures, got %v", got)
	}

	m.RecordSuccess(10 * time.Millisecond)
	if got := m.CheckStatus(); got != StatusHealthy {
		t.Errorf("Expected healthy after a success, got %v", got)
	}
}
