// Package transport implements outbound HTTP dispatch for the API client.
//
// This package contains:
//   - Transport interface: the single-attempt dispatch abstraction
//   - HTTP: net/http implementation with connection pooling
//   - Monitor: latency and failure tracking per transport
package transport

import (
	"context"
	"net/http"
)

// Request is a fully resolved outbound request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a completed HTTP exchange. Body is fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport dispatches a single request. It returns an error only when no
// response was received; any HTTP status, including 5xx, is a Response.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
