// Package session defines the credential source and login navigation used by
// the API client, plus the process-wide session-expiry guard.
package session

import (
	"context"
	"sync"
	"time"
)

// Credential is a bearer token for the backend API.
type Credential struct {
	Token     string
	ExpiresAt time.Time // zero means no known expiry
}

// Expired reports whether the credential is past its expiry at now.
func (c *Credential) Expired(now time.Time) bool {
	return c != nil && !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Prefix returns the first characters of the token, safe for logs.
func (c *Credential) Prefix() string {
	if c == nil || c.Token == "" {
		return "none"
	}
	if len(c.Token) <= 10 {
		return c.Token[:len(c.Token)/2] + "..."
	}
	return c.Token[:10] + "..."
}

// Provider resolves the current credential. The client never authenticates
// itself; it only asks a Provider for a token per request.
type Provider interface {
	// Credential returns the current credential, or nil when there is no
	// session.
	Credential(ctx context.Context) (*Credential, error)

	// Clear drops the local session.
	Clear(ctx context.Context) error
}

// Navigator sends the user to the login flow.
type Navigator interface {
	GoToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) GoToLogin(ctx context.Context) { f(ctx) }

// Static serves a fixed token, e.g. one supplied through the environment.
type Static struct {
	Token string
}

func (s Static) Credential(context.Context) (*Credential, error) {
	if s.Token == "" {
		return nil, nil
	}
	return &Credential{Token: s.Token}, nil
}

// Clear is a no-op; a static token cannot be revoked locally.
func (Static) Clear(context.Context) error { return nil }

// Memory is an in-process Provider.
type Memory struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemory creates a Memory provider holding token (empty for no session).
func NewMemory(token string) *Memory {
	m := &Memory{}
	if token != "" {
		m.cred = &Credential{Token: token}
	}
	return m
}

func (m *Memory) Credential(context.Context) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil || m.cred.Expired(time.Now()) {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

// Set replaces the held credential.
func (m *Memory) Set(cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
}

func (m *Memory) Clear(context.Context) error {
	m.Set(nil)
	return nil
}
