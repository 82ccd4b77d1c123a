// Package apierr defines the only error shape callers above the request
// pipeline ever see.
package apierr

import (
	"errors"
	"fmt"

	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

// Detail types attached under the "type" key of Error.Details.
const (
	TypeNoSession     = "NO_SESSION"
	TypeUnauthorized  = "UNAUTHORIZED"
	TypeForbidden     = "FORBIDDEN"
	TypeInvalidJSON   = "INVALID_JSON"
	TypeInvalidAPIKey = "INVALID_API_KEY"
)

// Fixed messages used when the server gives nothing better.
const (
	MsgNetwork         = "Network Error"
	MsgInvalidResponse = "invalid server response"
	MsgCanceled        = "request canceled"
)

// Error is the normalized API failure.
//
// Status is the HTTP status of the last attempt, 0 when no response was
// received. Details carries the parsed error body (if any) plus a "type"
// marker for well-known conditions; it may be nil.
type Error struct {
	Message string
	Status  int
	Details map[string]any
	Kind    classify.Kind

	cause error
}

// New creates an Error. Details are copied.
func New(status int, kind classify.Kind, message string, details map[string]any, cause error) *Error {
	return &Error{
		Message: message,
		Status:  status,
		Details: cloneMap(details),
		Kind:    kind,
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status == 0 {
		return fmt.Sprintf("api %s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api %s error (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Type returns the "type" detail, or "" if none was set.
func (e *Error) Type() string {
	if e == nil || e.Details == nil {
		return ""
	}
	t, _ := e.Details["type"].(string)
	return t
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// StatusOf returns the status carried by err, or -1 if err is not an *Error.
func StatusOf(err error) int {
	if ae, ok := As(err); ok {
		return ae.Status
	}
	return -1
}

// UserMessage returns display text for a kind. Wording is not a contract.
func UserMessage(kind classify.Kind) string {
	switch kind {
	case classify.KindNetwork:
		return "Connection error. Check your network and try again."
	case classify.KindCORS:
		return "Communication failure (CORS/network). Check that the backend is reachable."
	case classify.KindServer:
		return "Server error. Try again later."
	case classify.KindUnauthorized:
		return "Session expired. Please log in again."
	case classify.KindForbidden:
		return "You do not have permission to perform this action."
	case classify.KindClientError:
		return "The request was rejected. Check the data and try again."
	default:
		return "An unexpected error occurred. Try again."
	}
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
