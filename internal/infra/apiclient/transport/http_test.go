package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

func TestHTTP_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/stats" {
			t.Errorf("expected path /api/admin/stats, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected method POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("expected bearer header, got %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body["num"] != float64(12345) {
			t.Errorf("expected num=12345, got %v", body["num"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer server.Close()

	tr := NewHTTP(5 * time.Second)
	defer tr.Close()

	resp, err := tr.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    server.URL + "/api/admin/stats",
		Header: http.Header{"Authorization": []string{"Bearer abc"}},
		Body:   []byte(`{"num":12345}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if tr.Monitor.GetStats().Requests != 1 {
		t.Errorf("expected monitor to record the request")
	}
}

func TestHTTP_ErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewHTTP(5 * time.Second)
	resp, err := tr.Do(context.Background(), &Request{Method: http.MethodGet, URL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if tr.Monitor.GetStats().Failures["server"] != 1 {
		t.Errorf("expected one server failure, got %v", tr.Monitor.GetStats().Failures)
	}
}

func TestHTTP_NoResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := NewHTTP(time.Second)
	_, err := tr.Do(context.Background(), &Request{Method: http.MethodGet, URL: url})
	if err == nil {
		t.Fatalf("expected error for closed server")
	}
	if kind := classify.Classify(err, 0); kind != classify.KindNetwork {
		t.Errorf("expected network kind, got %v", kind)
	}
}

func TestHTTP_CanceledCallsAreNotFailures(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	tr := NewHTTP(5 * time.Second)
	defer tr.Close()

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		if _, err := tr.Do(ctx, &Request{Method: http.MethodGet, URL: server.URL}); err == nil {
			t.Fatalf("expected error for canceled call")
		}
		cancel()
	}

	stats := tr.Monitor.GetStats()
	if stats.Requests != 0 || stats.ConsecutiveFailures != 0 {
		t.Errorf("expected canceled calls to be ignored, got %+v", stats)
	}
	if stats.Status != StatusHealthy {
		t.Errorf("expected healthy, got %v", stats.Status)
	}
}

func TestHTTP_DeadlineIsFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	tr := NewHTTP(5 * time.Second)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := tr.Do(ctx, &Request{Method: http.MethodGet, URL: server.URL}); err == nil {
		t.Fatalf("expected deadline error")
	}

	if got := tr.Monitor.GetStats().Failures["network"]; got != 1 {
		t.Errorf("expected one network failure, got %v", tr.Monitor.GetStats().Failures)
	}
}
