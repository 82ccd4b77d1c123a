// Package pipeline performs single authenticated attempts against the
// backend API and normalizes every result into an Outcome.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
	"github.com/lucasvrm/previso/internal/infra/apiclient/transport"
	"github.com/lucasvrm/previso/internal/infra/metrics"
	"github.com/lucasvrm/previso/internal/infra/session"
)

// Request describes one logical API call. It is not modified by the pipeline
// and may be re-sent as-is on retry.
type Request struct {
	Method      string
	Path        string
	Body        any
	Headers     map[string]string
	Params      map[string]string
	RetryBudget int
	Timeout     time.Duration
	RequireAuth bool

	// ID correlates all attempts of one logical call (X-Request-ID).
	ID string
}

// ExpiryTrigger is fired when an attempt comes back unauthorized.
type ExpiryTrigger interface {
	Trigger(ctx context.Context)
}

// Config holds pipeline settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Pipeline resolves credentials, dispatches and classifies.
type Pipeline struct {
	cfg       Config
	transport transport.Transport
	sessions  session.Provider
	expiry    ExpiryTrigger
}

// New creates a pipeline. sessions and expiry may be nil.
func New(
	cfg Config,
	t transport.Transport,
	sessions session.Provider,
	expiry ExpiryTrigger,
) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Pipeline{
		cfg:       cfg,
		transport: t,
		sessions:  sessions,
		expiry:    expiry,
	}
}

// Send performs a single attempt. It never returns a raw transport error:
// every failure is folded into the Outcome.
func (p *Pipeline) Send(ctx context.Context, req Request) Outcome {
	start := time.Now()
	out := p.send(ctx, req)

	label := "ok"
	if !out.OK() {
		label = out.Kind.String()
	}
	metrics.APIRequestsTotal.WithLabelValues(req.Method, label).Inc()
	metrics.APILatency.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	if !out.OK() && out.Kind == classify.KindUnauthorized && p.expiry != nil {
		p.expiry.Trigger(ctx)
	}
	return out
}

func (p *Pipeline) send(ctx context.Context, req Request) Outcome {
	header := make(http.Header, len(req.Headers)+3)
	for k, v := range req.Headers {
		header.Set(k, v)
	}
	header.Set("Accept", "application/json")
	if req.ID != "" {
		header.Set("X-Request-ID", req.ID)
	}

	cred := p.credential(ctx)
	if cred != nil {
		header.Set("Authorization", "Bearer "+cred.Token)
	} else if req.RequireAuth {
		return Failure(
			http.StatusUnauthorized,
			classify.KindUnauthorized,
			"session is missing or expired, please log in again",
			map[string]any{"type": apierr.TypeNoSession},
			nil,
		)
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return Failure(0, classify.KindUnknown, "encode request body", nil, fmt.Errorf("marshal request: %w", err))
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.cfg.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.transport.Do(attemptCtx, &transport.Request{
		Method: req.Method,
		URL:    p.buildURL(req.Path, req.Params),
		Header: header,
		Body:   body,
	})
	if err != nil {
		return p.noResponse(ctx, req, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return successOutcome(resp)
	}
	return errorOutcome(resp)
}

func (p *Pipeline) credential(ctx context.Context) *session.Credential {
	if p.sessions == nil {
		return nil
	}

	cred, err := p.sessions.Credential(ctx)
	if err != nil {
		slog.Warn("Failed to resolve session credential", "error", err)
		return nil
	}
	if cred == nil || cred.Token == "" {
		return nil
	}

	slog.Debug("Access token retrieved", "prefix", cred.Prefix())
	return cred
}

func (p *Pipeline) noResponse(ctx context.Context, req Request, err error) Outcome {
	if errors.Is(ctx.Err(), context.Canceled) {
		return Failure(0, classify.KindUnknown, apierr.MsgCanceled, nil, ctx.Err())
	}

	kind := classify.Classify(err, 0)
	slog.Debug("Request failed without response",
		"method", req.Method,
		"path", req.Path,
		"kind", kind,
		"error", err,
	)
	message := apierr.MsgNetwork
	if kind != classify.KindNetwork {
		message = apierr.UserMessage(kind)
	}
	return Failure(0, kind, message, map[string]any{"originalError": err.Error()}, err)
}

func (p *Pipeline) buildURL(path string, params map[string]string) string {
	var target string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		target = path
	} else {
		target = strings.TrimRight(p.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}

	if len(params) == 0 {
		return target
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode()
}

func successOutcome(resp *transport.Response) Outcome {
	if len(resp.Body) == 0 || !isJSON(resp.Header) {
		return Success(resp.StatusCode, nil)
	}
	if !json.Valid(resp.Body) {
		return Failure(
			resp.StatusCode,
			classify.KindUnknown,
			apierr.MsgInvalidResponse,
			map[string]any{"type": apierr.TypeInvalidJSON},
			errors.New("parse response: invalid JSON"),
		)
	}
	return Success(resp.StatusCode, json.RawMessage(resp.Body))
}

func errorOutcome(resp *transport.Response) Outcome {
	status := resp.StatusCode
	kind := classify.FromStatus(status)
	message := fmt.Sprintf("request failed with status %d", status)
	var details map[string]any

	if isJSON(resp.Header) && len(resp.Body) > 0 {
		var payload any
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			message = apierr.MsgInvalidResponse
		} else if obj, ok := payload.(map[string]any); ok {
			details = obj
			if s, ok := obj["detail"].(string); ok && s != "" {
				message = s
			} else if s, ok := obj["message"].(string); ok && s != "" {
				message = s
			}
		} else {
			details = map[string]any{"body": payload}
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		details = withType(details, apierr.TypeUnauthorized)
	case status == http.StatusForbidden:
		details = withType(details, apierr.TypeForbidden)
	case kind == classify.KindServer && strings.Contains(strings.ToLower(message), "invalid api key"):
		details = withType(details, apierr.TypeInvalidAPIKey)
	}

	return Failure(status, kind, message, details, nil)
}

func withType(details map[string]any, t string) map[string]any {
	if details == nil {
		details = make(map[string]any, 1)
	}
	details["type"] = t
	return details
}

func isJSON(h http.Header) bool {
	ct := h.Get("Content-Type")
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
