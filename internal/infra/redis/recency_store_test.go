package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lucasvrm/previso/internal/dashboard/recency"
)

var _ recency.Store = (*RecencyStore)(nil)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("PREVISO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PREVISO_TEST_REDIS_URL not set")
	}
	c, err := NewClient(Config{URL: url, KeyPrefix: "previso-test"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestRecencyStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewRecencyStore(newTestClient(t), time.Minute)
	key := "admin-stats-" + uuid.NewString()

	if _, ok, err := store.LastSuccess(ctx, key); err != nil || ok {
		t.Fatalf("expected no record, got ok=%v err=%v", ok, err)
	}

	at := time.Now().Truncate(time.Millisecond)
	if err := store.SetLastSuccess(ctx, key, at); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := store.LastSuccess(ctx, key)
	if err != nil || !ok || !got.Equal(at) {
		t.Fatalf("expected %v, got %v ok=%v err=%v", at, got, ok, err)
	}

	if err := store.Clear(ctx, key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.LastSuccess(ctx, key); ok {
		t.Error("expected record to be cleared")
	}
}

func TestRecencyStore_WithSuppressor(t *testing.T) {
	ctx := context.Background()
	s := recency.NewSuppressor(NewRecencyStore(newTestClient(t), time.Minute), time.Minute)
	key := "shared-" + uuid.NewString()

	s.RecordSuccess(ctx, key)
	if s.ShouldFetch(ctx, key) {
		t.Error("expected shared record to suppress")
	}
	s.ForceNext(ctx, key)
	if !s.ShouldFetch(ctx, key) {
		t.Error("expected fetch after ForceNext")
	}
}
