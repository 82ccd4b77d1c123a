package pipeline

import (
	"encoding/json"

	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
	"github.com/lucasvrm/previso/internal/infra/apiclient/classify"
)

// Outcome is the result of one dispatch attempt: either a success carrying
// the response body, or a failure carrying status, message and kind.
type Outcome struct {
	Status int
	Body   json.RawMessage

	Kind    classify.Kind
	Message string
	Details map[string]any
	Cause   error

	ok bool
}

// Success builds a successful outcome.
func Success(status int, body json.RawMessage) Outcome {
	return Outcome{Status: status, Body: body, ok: true}
}

// Failure builds a failed outcome.
func Failure(status int, kind classify.Kind, message string, details map[string]any, cause error) Outcome {
	return Outcome{
		Status:  status,
		Kind:    kind,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool { return o.ok }

// Responded reports whether a response reached the client.
func (o Outcome) Responded() bool { return o.Status != 0 }

// Err converts a failed outcome into the typed API error. It returns nil for
// a successful outcome.
func (o Outcome) Err() *apierr.Error {
	if o.ok {
		return nil
	}
	return apierr.New(o.Status, o.Kind, o.Message, o.Details, o.Cause)
}
