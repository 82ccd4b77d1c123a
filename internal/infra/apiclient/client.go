// Package apiclient is the consumer-facing API client for the check-in
// backend.
//
// A Client composes three layers:
//   - pipeline: one authenticated attempt, normalized into an Outcome
//   - retry: exponential backoff over transient outcomes
//   - session: the process-wide expiry guard fired on unauthorized
//
// Every method returns either the raw JSON body or an *apierr.Error.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
	"github.com/lucasvrm/previso/internal/infra/apiclient/pipeline"
	"github.com/lucasvrm/previso/internal/infra/apiclient/retry"
	"github.com/lucasvrm/previso/internal/infra/apiclient/transport"
	"github.com/lucasvrm/previso/internal/infra/session"
)

// Error is the typed API error returned by every Client method.
type Error = apierr.Error

// Options tunes a single call. The zero value means no retries, the client's
// default timeout and auth requirement.
type Options struct {
	MaxRetries  int
	Headers     map[string]string
	Params      map[string]string
	Timeout     time.Duration
	RequireAuth *bool

	// Retryable overrides the retry predicate for this call.
	Retryable retry.Predicate
}

// Config holds client settings.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RequireAuth bool
	Retry       retry.Config
}

// Client issues API calls through the retry controller.
type Client struct {
	cfg        Config
	pipeline   *pipeline.Pipeline
	controller *retry.Controller
	transport  transport.Transport
}

// New creates a client. guard may be shared by several clients; it should be
// the single per-process instance.
func New(cfg Config, t transport.Transport, sessions session.Provider, guard *session.ExpiryGuard, opts ...retry.Option) *Client {
	if t == nil {
		t = transport.NewHTTP(cfg.Timeout)
	}

	var trigger pipeline.ExpiryTrigger
	if guard != nil {
		trigger = guard
	}

	p := pipeline.New(pipeline.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, t, sessions, trigger)
	return &Client{
		cfg:        cfg,
		pipeline:   p,
		controller: retry.New(p, cfg.Retry, opts...),
		transport:  t,
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts Options) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts Options) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts)
}

// Do issues a request with any supported method.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts Options) (json.RawMessage, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, apierr.New(0, classify.KindUnknown, fmt.Sprintf("unsupported method %q", method), nil, nil)
	}

	requireAuth := c.cfg.RequireAuth
	if opts.RequireAuth != nil {
		requireAuth = *opts.RequireAuth
	}

	req := pipeline.Request{
		Method:      method,
		Path:        path,
		Body:        body,
		Headers:     opts.Headers,
		Params:      opts.Params,
		RetryBudget: c.controller.Budget(opts.MaxRetries),
		Timeout:     opts.Timeout,
		RequireAuth: requireAuth,
		ID:          uuid.NewString(),
	}
	return c.controller.ExecuteWith(ctx, req, opts.Retryable)
}

// Transport returns the underlying transport, e.g. to read its monitor.
func (c *Client) Transport() transport.Transport {
	return c.transport
}

// Bool returns a pointer to b, for Options.RequireAuth.
func Bool(b bool) *bool { return &b }
