package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingProvider struct {
	cleared atomic.Int32
}

func (p *countingProvider) Credential(context.Context) (*Credential, error) { return nil, nil }

func (p *countingProvider) Clear(context.Context) error {
	p.cleared.Add(1)
	return nil
}

func TestExpiryGuard_FiresOnceUnderConcurrency(t *testing.T) {
	provider := &countingProvider{}
	var navigations atomic.Int32
	guard := NewExpiryGuard(provider, NavigatorFunc(func(context.Context) {
		navigations.Add(1)
	}))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			guard.Trigger(context.Background())
		}()
	}
	close(start)
	wg.Wait()

	if got := navigations.Load(); got != 1 {
		t.Errorf("expected exactly 1 navigation, got %d", got)
	}
	if got := provider.cleared.Load(); got != 1 {
		t.Errorf("expected session cleared once, got %d", got)
	}
	if !guard.Fired() {
		t.Errorf("expected guard to report fired")
	}
}

func TestExpiryGuard_Reset(t *testing.T) {
	var navigations int
	guard := NewExpiryGuard(nil, NavigatorFunc(func(context.Context) { navigations++ }))

	guard.Trigger(context.Background())
	guard.Trigger(context.Background())
	guard.Reset()
	guard.Trigger(context.Background())

	if navigations != 2 {
		t.Errorf("expected 2 navigations across a reset, got %d", navigations)
	}
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("token-1234567890")

	cred, err := m.Credential(ctx)
	if err != nil || cred == nil || cred.Token != "token-1234567890" {
		t.Fatalf("expected credential, got %v, %v", cred, err)
	}
	if cred.Prefix() != "token-1234..." {
		t.Errorf("unexpected prefix %q", cred.Prefix())
	}

	m.Set(&Credential{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	if cred, _ := m.Credential(ctx); cred != nil {
		t.Errorf("expected expired credential to be hidden")
	}

	_ = m.Clear(ctx)
	if cred, _ := m.Credential(ctx); cred != nil {
		t.Errorf("expected no credential after clear")
	}

	if cred, _ := (Static{}).Credential(ctx); cred != nil {
		t.Errorf("expected empty static token to yield no credential")
	}
}
