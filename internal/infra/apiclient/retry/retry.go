// Package retry re-invokes the request pipeline with exponential backoff
// while an outcome is transient and the call's retry budget allows it.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
	"github.com/lucasvrm/previso/internal/infra/apiclient/pipeline"
	"github.com/lucasvrm/previso/internal/infra/metrics"
)

// Sender performs one attempt. *pipeline.Pipeline implements it.
type Sender interface {
	Send(ctx context.Context, req pipeline.Request) pipeline.Outcome
}

// Predicate decides whether a failed outcome may be retried.
type Predicate func(out pipeline.Outcome) bool

// DefaultRetryable retries only when no response arrived at all (network)
// or the server answered 5xx. Every 4xx, including 429, is final.
func DefaultRetryable(out pipeline.Outcome) bool {
	if out.OK() {
		return false
	}
	if out.Status == 0 {
		return out.Kind == classify.KindNetwork
	}
	return out.Status >= 500 && out.Status <= 599
}

// AlsoRetry extends DefaultRetryable with extra kinds.
func AlsoRetry(kinds ...classify.Kind) Predicate {
	return func(out pipeline.Outcome) bool {
		if DefaultRetryable(out) {
			return true
		}
		if out.OK() {
			return false
		}
		for _, k := range kinds {
			if out.Kind == k {
				return true
			}
		}
		return false
	}
}

// Config holds backoff settings.
type Config struct {
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	MaxRetriesCap int           `yaml:"max_retries_cap"`
	JitterPercent uint64        `yaml:"jitter_percent"`
}

// DefaultConfig returns the production schedule: 1s, 2s, 4s ... capped at 10s,
// at most 3 retries, no jitter.
func DefaultConfig() Config {
	return Config{
		BaseDelay:     time.Second,
		MaxDelay:      10 * time.Second,
		MaxRetriesCap: 3,
	}
}

// Hook observes every scheduled retry. attempt is the zero-based index of
// the attempt that just failed.
type Hook func(req pipeline.Request, attempt int, delay time.Duration, last pipeline.Outcome)

// Option configures a Controller.
type Option func(*Controller)

// WithPredicate replaces DefaultRetryable for every call of the controller.
func WithPredicate(p Predicate) Option {
	return func(c *Controller) {
		if p != nil {
			c.retryable = p
		}
	}
}

// WithHook registers a retry observer.
func WithHook(h Hook) Option {
	return func(c *Controller) {
		c.hook = h
	}
}

// Controller runs the retry loop. It holds no per-call state, so one
// controller is safe for concurrent use.
type Controller struct {
	cfg       Config
	sender    Sender
	retryable Predicate
	hook      Hook
}

// New creates a controller around sender.
func New(sender Sender, cfg Config, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = def.MaxDelay
		if cfg.MaxDelay < cfg.BaseDelay {
			cfg.MaxDelay = cfg.BaseDelay
		}
	}
	if cfg.MaxRetriesCap < 0 {
		cfg.MaxRetriesCap = 0
	}
	if cfg.JitterPercent > 100 {
		cfg.JitterPercent = 100
	}

	c := &Controller{
		cfg:       cfg,
		sender:    sender,
		retryable: DefaultRetryable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective settings.
func (c *Controller) Config() Config {
	return c.cfg
}

// Execute sends req, retrying with the controller's predicate.
func (c *Controller) Execute(ctx context.Context, req pipeline.Request) (json.RawMessage, error) {
	return c.ExecuteWith(ctx, req, nil)
}

// ExecuteWith sends req, retrying with retryable instead of the controller's
// predicate when it is non-nil. The returned error is always *apierr.Error.
func (c *Controller) ExecuteWith(ctx context.Context, req pipeline.Request, retryable Predicate) (json.RawMessage, error) {
	if retryable == nil {
		retryable = c.retryable
	}

	var (
		last    pipeline.Outcome
		attempt int
		sent    bool
	)

	backoff := c.backoff(c.Budget(req.RetryBudget), func(d time.Duration) {
		slog.Debug("Retrying request",
			"method", req.Method,
			"path", req.Path,
			"attempt", attempt,
			"delay", d,
			"status", last.Status,
			"kind", last.Kind,
		)
		metrics.APIRetriesTotal.WithLabelValues(req.Method, last.Kind.String()).Inc()
		if c.hook != nil {
			c.hook(req, attempt-1, d, last)
		}
	})

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		last = c.sender.Send(ctx, req)
		attempt++
		sent = true

		if last.OK() {
			return nil
		}
		if retryable(last) {
			return goretry.RetryableError(last.Err())
		}
		return last.Err()
	})
	if err == nil {
		return last.Body, nil
	}

	if ae, ok := apierr.As(err); ok {
		if attempt > 1 {
			slog.Debug("Request failed after retries", "path", req.Path, "attempts", attempt, "error", ae)
		}
		return nil, ae
	}
	return nil, contextError(err, last, sent)
}

// Budget clamps a requested retry budget into [0, MaxRetriesCap].
func (c *Controller) Budget(requested int) int {
	if requested < 0 {
		return 0
	}
	if requested > c.cfg.MaxRetriesCap {
		return c.cfg.MaxRetriesCap
	}
	return requested
}

func (c *Controller) backoff(budget int, onRetry func(time.Duration)) goretry.Backoff {
	b := goretry.NewExponential(c.cfg.BaseDelay)
	b = goretry.WithCappedDuration(c.cfg.MaxDelay, b)
	if c.cfg.JitterPercent > 0 {
		b = goretry.WithJitterPercent(c.cfg.JitterPercent, b)
	}
	b = goretry.WithMaxRetries(uint64(budget), b)

	return goretry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if !stop {
			onRetry(d)
		}
		return d, stop
	})
}

// contextError maps a context error from the wait loop to the API error
// shape. A caller cancel is reported as such; a parent deadline keeps the
// last transient failure when there was one.
func contextError(err error, last pipeline.Outcome, sent bool) *apierr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		if sent && !last.OK() {
			return last.Err()
		}
		return apierr.New(0, classify.KindNetwork, apierr.MsgNetwork,
			map[string]any{"originalError": err.Error()}, err)
	}
	return apierr.New(0, classify.KindUnknown, apierr.MsgCanceled, nil, err)
}
