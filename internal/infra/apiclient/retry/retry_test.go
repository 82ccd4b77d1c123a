package retry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
	"github.com/lucasvrm/previso/internal/infra/apiclient/pipeline"
	"github.com/lucasvrm/previso/internal/infra/apiclient/transport"
	"github.com/lucasvrm/previso/internal/infra/session"
)

// scriptedSender replays outcomes in order, repeating the last one.
type scriptedSender struct {
	mu       sync.Mutex
	outcomes []pipeline.Outcome
	calls    int
}

func (s *scriptedSender) Send(ctx context.Context, req pipeline.Request) pipeline.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	s.calls++
	return s.outcomes[i]
}

func (s *scriptedSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func serverError(status int) pipeline.Outcome {
	return pipeline.Failure(status, classify.FromStatus(status), "boom", nil, nil)
}

func networkError() pipeline.Outcome {
	return pipeline.Failure(0, classify.KindNetwork, apierr.MsgNetwork, nil, syscall.ECONNREFUSED)
}

func fastConfig() Config {
	return Config{BaseDelay: time.Millisecond, MaxDelay: time.Second, MaxRetriesCap: 5}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		name string
		out  pipeline.Outcome
		want bool
	}{
		{"success", pipeline.Success(200, nil), false},
		{"network", networkError(), true},
		{"cors", pipeline.Failure(0, classify.KindCORS, "cors", nil, nil), false},
		{"unknown no response", pipeline.Failure(0, classify.KindUnknown, "x", nil, nil), false},
		{"500", serverError(500), true},
		{"503", serverError(503), true},
		{"599", serverError(599), true},
		{"400", serverError(400), false},
		{"401", serverError(401), false},
		{"403", serverError(403), false},
		{"404", serverError(404), false},
		{"429", serverError(429), false},
	}

	for _, tt := range tests {
		if got := DefaultRetryable(tt.out); got != tt.want {
			t.Errorf("%s: DefaultRetryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAlsoRetry(t *testing.T) {
	p := AlsoRetry(classify.KindCORS)

	if !p(pipeline.Failure(0, classify.KindCORS, "cors", nil, nil)) {
		t.Error("expected cors to be retryable")
	}
	if !p(serverError(502)) {
		t.Error("expected 5xx to stay retryable")
	}
	if p(serverError(404)) {
		t.Error("expected 404 to stay final")
	}
}

func TestExecute_PersistentServerError(t *testing.T) {
	for _, budget := range []int{0, 1, 3} {
		sender := &scriptedSender{outcomes: []pipeline.Outcome{serverError(500)}}
		var delays []time.Duration
		c := New(sender, fastConfig(), WithHook(func(_ pipeline.Request, _ int, d time.Duration, _ pipeline.Outcome) {
			delays = append(delays, d)
		}))

		_, err := c.Execute(context.Background(), pipeline.Request{Method: http.MethodGet, Path: "/x", RetryBudget: budget})

		if got := sender.Calls(); got != budget+1 {
			t.Errorf("budget %d: expected %d calls, got %d", budget, budget+1, got)
		}
		if apierr.StatusOf(err) != 500 {
			t.Errorf("budget %d: expected status 500, got %v", budget, err)
		}
		if len(delays) != budget {
			t.Fatalf("budget %d: expected %d waits, got %v", budget, budget, delays)
		}
		for k, d := range delays {
			if want := time.Millisecond << k; d != want {
				t.Errorf("budget %d: delay %d = %v, want %v", budget, k, d, want)
			}
		}
	}
}

func TestExecute_ClientErrorsAreFinal(t *testing.T) {
	for _, status := range []int{400, 404, 409, 422, 429} {
		sender := &scriptedSender{outcomes: []pipeline.Outcome{serverError(status)}}
		c := New(sender, fastConfig())

		_, err := c.Execute(context.Background(), pipeline.Request{Method: http.MethodGet, Path: "/x", RetryBudget: 5})

		if sender.Calls() != 1 {
			t.Errorf("status %d: expected exactly one call, got %d", status, sender.Calls())
		}
		if apierr.StatusOf(err) != status {
			t.Errorf("status %d: unexpected error %v", status, err)
		}
	}
}

func TestExecute_NetworkFailuresExhaustBudget(t *testing.T) {
	sender := &scriptedSender{outcomes: []pipeline.Outcome{networkError(), networkError()}}
	c := New(sender, fastConfig())

	body, err := c.Execute(context.Background(), pipeline.Request{Method: http.MethodGet, Path: "/x", RetryBudget: 1})

	if body != nil {
		t.Errorf("expected no body, got %s", body)
	}
	if sender.Calls() != 2 {
		t.Errorf("expected two calls, got %d", sender.Calls())
	}
	ae, ok := apierr.As(err)
	if !ok {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if ae.Status != 0 || ae.Message != apierr.MsgNetwork {
		t.Errorf("expected status 0 %q, got %d %q", apierr.MsgNetwork, ae.Status, ae.Message)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("expected transport cause in chain")
	}
}

func TestExecute_SucceedsAfterServiceUnavailable(t *testing.T) {
	sender := &scriptedSender{outcomes: []pipeline.Outcome{
		pipeline.Failure(503, classify.KindServer, "unavailable", nil, nil),
		pipeline.Success(201, json.RawMessage(`{"id":"c1"}`)),
	}}
	c := New(sender, fastConfig())

	body, err := c.Execute(context.Background(), pipeline.Request{
		Method:      http.MethodPost,
		Path:        "/checkins",
		Body:        map[string]any{"mood": 3},
		RetryBudget: 2,
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(body) != `{"id":"c1"}` {
		t.Errorf("expected second body, got %s", body)
	}
	if sender.Calls() != 2 {
		t.Errorf("expected two calls, got %d", sender.Calls())
	}
}

func TestExecute_BudgetClampedToCap(t *testing.T) {
	sender := &scriptedSender{outcomes: []pipeline.Outcome{serverError(502)}}
	cfg := fastConfig()
	cfg.MaxRetriesCap = 2
	c := New(sender, cfg)

	_, _ = c.Execute(context.Background(), pipeline.Request{Method: http.MethodGet, Path: "/x", RetryBudget: 10})

	if sender.Calls() != 3 {
		t.Errorf("expected cap of 2 retries (3 calls), got %d", sender.Calls())
	}
	if c.Budget(-1) != 0 {
		t.Errorf("expected negative budget to clamp to 0")
	}
}

func TestExecuteWith_PredicateOverride(t *testing.T) {
	cors := pipeline.Failure(0, classify.KindCORS, "failed to fetch", nil, nil)

	sender := &scriptedSender{outcomes: []pipeline.Outcome{cors, pipeline.Success(200, json.RawMessage(`[]`))}}
	c := New(sender, fastConfig())

	if _, err := c.Execute(context.Background(), pipeline.Request{Method: http.MethodGet, RetryBudget: 3}); err == nil {
		t.Fatal("expected default predicate to stop on cors")
	}
	if sender.Calls() != 1 {
		t.Errorf("expected one call with default predicate, got %d", sender.Calls())
	}

	sender = &scriptedSender{outcomes: []pipeline.Outcome{cors, pipeline.Success(200, json.RawMessage(`[]`))}}
	c = New(sender, fastConfig())
	body, err := c.ExecuteWith(context.Background(), pipeline.Request{Method: http.MethodGet, RetryBudget: 3}, AlsoRetry(classify.KindCORS))
	if err != nil || string(body) != `[]` {
		t.Fatalf("expected success after cors retry, got %s %v", body, err)
	}
}

func TestExecute_CancelDuringBackoff(t *testing.T) {
	sender := &scriptedSender{outcomes: []pipeline.Outcome{serverError(500)}}
	c := New(sender, Config{BaseDelay: time.Hour, MaxDelay: time.Hour, MaxRetriesCap: 3})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Execute(ctx, pipeline.Request{Method: http.MethodGet, RetryBudget: 3})

	if time.Since(start) > 5*time.Second {
		t.Fatal("backoff wait did not honor cancellation")
	}
	ae, ok := apierr.As(err)
	if !ok || ae.Message != apierr.MsgCanceled || ae.Kind != classify.KindUnknown {
		t.Errorf("expected canceled error, got %v", err)
	}
	if sender.Calls() != 1 {
		t.Errorf("expected one call before cancel, got %d", sender.Calls())
	}
}

func TestExecute_ConcurrentUnauthorizedNavigatesOnce(t *testing.T) {
	tr := transport.Func(func(context.Context, *transport.Request) (*transport.Response, error) {
		return &transport.Response{
			StatusCode: 401,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       []byte(`{"detail":"token expired"}`),
		}, nil
	})

	var navigations atomic.Int32
	sessions := session.NewMemory("stale")
	guard := session.NewExpiryGuard(sessions, session.NavigatorFunc(func(context.Context) {
		navigations.Add(1)
	}))
	c := New(pipeline.New(pipeline.Config{BaseURL: "http://api"}, tr, sessions, guard), fastConfig())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Execute(context.Background(), pipeline.Request{Method: http.MethodGet, Path: "/me", RetryBudget: 3})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if apierr.StatusOf(err) != 401 {
			t.Errorf("request %d: expected 401, got %v", i, err)
		}
	}
	if navigations.Load() != 1 {
		t.Errorf("expected exactly one navigation, got %d", navigations.Load())
	}
	if cred, _ := sessions.Credential(context.Background()); cred != nil {
		t.Error("expected session to be cleared")
	}
}
