// Package gateway defines the shared error vocabulary for the external
// capabilities the controller depends on: reasoning, web search, and memory.
// Gateway failures are data, not control flow — the controller records them
// in the transcript and keeps going.
package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind string

const (
	// Unavailable covers transient failures: timeouts, network errors,
	// rate limits. The run continues without the result.
	Unavailable Kind = "unavailable"

	// InvalidRequest covers malformed tool calls or arguments. The run
	// continues; the failure is surfaced to the model as a tool result.
	InvalidRequest Kind = "invalid_request"
)

// Error is a classified failure from an external gateway.
type Error struct {
	Kind    Kind
	Gateway string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s gateway %s: %v", e.Gateway, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailablef builds an Unavailable error for the named gateway.
func Unavailablef(name, format string, args ...interface{}) *Error {
	return &Error{Kind: Unavailable, Gateway: name, Err: fmt.Errorf(format, args...)}
}

// InvalidRequestf builds an InvalidRequest error for the named gateway.
func InvalidRequestf(name, format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidRequest, Gateway: name, Err: fmt.Errorf(format, args...)}
}

// Classify wraps an arbitrary error from the named gateway as Unavailable.
// Timeouts, network errors and context expiry all land here; an existing
// *Error passes through unchanged so InvalidRequest is not reclassified.
func Classify(name string, err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: Unavailable, Gateway: name, Err: err}
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}
