// Package monitor implements the execution-monitoring protocol: detecting
// completion or failure of a queued workflow, either over the engine's event
// stream or by polling its work lists.
package monitor

import "context"

// Handle identifies one submitted job. ClientID scopes the event
// subscription; PromptID correlates messages and records with the job.
type Handle struct {
	ClientID string
	PromptID string
}

// State is the terminal state a monitor observed.
type State int

const (
	StateCompleted State = iota
	StateExecutionError
	StateTimedOut
	StateChannelFailure
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateExecutionError:
		return "execution_error"
	case StateTimedOut:
		return "timed_out"
	case StateChannelFailure:
		return "channel_failure"
	default:
		return "unknown"
	}
}

// NodeError carries the engine-reported identity of a failed node.
type NodeError struct {
	NodeID   string
	NodeType string
	Message  string
}

// Outcome is the single terminal result of monitoring one job. Errors holds
// human-readable error lines; it is empty exactly when State is
// StateCompleted.
type Outcome struct {
	State  State
	Node   *NodeError
	Errors []string
}

// Done reports whether the workflow finished successfully.
func (o Outcome) Done() bool { return o.State == StateCompleted }

// Completed returns the successful outcome.
func Completed() Outcome { return Outcome{State: StateCompleted} }

// Monitor awaits the terminal state of a submitted workflow. Implementations
// never panic or return partial results: every call yields exactly one
// Outcome.
type Monitor interface {
	Monitor(ctx context.Context, h Handle) Outcome
}
