package engine

import (
	"fmt"
	"strings"
)

// TransportError wraps a network-level or unexpected-status failure talking to
// the engine. Status is 0 when the request never produced a response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: engine returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a structured 400-class rejection of a workflow graph.
// Details holds one line per (node, error type) finding, in the order the
// engine reported them.
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ":\n" + strings.Join(e.Details, "\n")
}

// ProtocolError marks an engine response that violates the expected contract,
// such as a successful submission without a prompt id. Not retryable.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }
