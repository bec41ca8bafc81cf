package detector

import (
	"context"
	"errors"
	"strings"
)

// Invocation failures fall into two retry categories. Anything that is
// neither terminal nor transient propagates immediately and is not retried.
var (
	// ErrTerminal marks an invocation the service itself rejected;
	// retrying the same input cannot succeed.
	ErrTerminal = errors.New("terminal model error")
	// ErrTransient marks a failure of service health rather than input:
	// throttling, unavailability, internal faults, timeouts.
	ErrTransient = errors.New("transient invocation error")
)

// transientMarkers identify retryable failures by message fragment,
// compared case-insensitively.
var transientMarkers = []string{
	"serviceunavailable",
	"throttlingexception",
	"internalfailure",
	"timeout",
	"timed out",
}

// classified attaches a retry category to an invocation failure without
// rewriting its message.
type classified struct {
	kind  error
	cause error
}

func (c *classified) Error() string   { return c.cause.Error() }
func (c *classified) Unwrap() []error { return []error{c.kind, c.cause} }

func asTerminal(err error) error  { return &classified{kind: ErrTerminal, cause: err} }
func asTransient(err error) error { return &classified{kind: ErrTransient, cause: err} }

// Classify decides the retry category of an invocation failure. Errors that
// already carry a category pass through. Deadline expiry and the well-known
// service fault markers become transient; everything else keeps its original
// shape and is never retried.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTerminal) || errors.Is(err, ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return asTransient(err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return asTransient(err)
		}
	}
	return err
}
