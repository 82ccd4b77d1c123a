package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

// maxBodyBytes bounds how much of a response body is buffered.
const maxBodyBytes = 10 << 20

// HTTP implements Transport over net/http.
type HTTP struct {
	httpClient *http.Client

	Monitor *Monitor
}

// NewHTTP creates an HTTP transport. timeout is an upper bound for a single
// exchange; per-request deadlines come from the context.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Monitor: NewMonitor(),
	}
}

// Do sends req and buffers the response body.
func (t *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.recordFailure(ctx, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		t.recordFailure(ctx, err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	latency := time.Since(start)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		t.Monitor.RecordSuccess(latency)
	} else {
		t.Monitor.RecordFailure(classify.FromStatus(resp.StatusCode), resp.StatusCode)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// recordFailure records err unless the caller canceled the exchange.
func (t *HTTP) recordFailure(ctx context.Context, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	t.Monitor.RecordFailure(classify.Classify(err, 0), 0)
}

// Close releases idle connections.
func (t *HTTP) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
