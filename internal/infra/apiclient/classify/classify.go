// Package classify maps failed API attempts to a closed set of error kinds.
//
// Classification is pure and deterministic: the same error shape and status
// always produce the same Kind. The cors kind is a best-effort heuristic and
// cannot always be told apart from a plain network drop.
package classify

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Kind is the category of a failed attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindServer
	KindCORS
	KindClientError
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindServer:
		return "server"
	case KindCORS:
		return "cors"
	case KindClientError:
		return "clientError"
	default:
		return "unknown"
	}
}

// OpaqueError is implemented by transports that can tell the response was
// hidden from the caller, the way a browser fetch hides a cross-origin block.
type OpaqueError interface {
	Opaque() bool
}

// corsPatterns are matched only against errors that carry no request URL.
var corsPatterns = []string{
	"cors policy",
	"cross-origin",
	"failed to fetch",
	"access-control-allow-origin",
}

var networkPatterns = []string{
	"network error",
	"connection reset",
	"connection refused",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"i/o timeout",
}

// Classify returns the Kind of a failed attempt. status is the HTTP status
// code of the response, or 0 when no response reached the caller.
func Classify(err error, status int) Kind {
	if status != 0 {
		return FromStatus(status)
	}
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	if isOpaque(err) {
		return KindCORS
	}
	if isNetwork(err) {
		return KindNetwork
	}
	if isCORSText(err) {
		return KindCORS
	}
	if containsAny(err.Error(), networkPatterns) {
		return KindNetwork
	}

	return KindUnknown
}

// FromStatus classifies an HTTP status code.
func FromStatus(code int) Kind {
	switch {
	case code == 401:
		return KindUnauthorized
	case code == 403:
		return KindForbidden
	case code >= 500 && code <= 599:
		return KindServer
	case code >= 400 && code <= 499:
		return KindClientError
	default:
		return KindUnknown
	}
}

func isOpaque(err error) bool {
	var oe OpaqueError
	return errors.As(err, &oe) && oe.Opaque()
}

func isCORSText(err error) bool {
	var ue *url.Error
	if errors.As(err, &ue) {
		return false
	}
	return containsAny(err.Error(), corsPatterns)
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
			syscall.EPIPE, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}

	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func containsAny(s string, patterns []string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
