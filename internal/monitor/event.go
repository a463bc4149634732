package monitor

import "encoding/json"

// Event is one decoded message from the engine's event stream. The stream is
// multiplexed across clients, so every variant carries enough identity for
// the monitor to discard messages that belong to other jobs.
type Event interface{ eventTag() }

// StatusEvent is informational queue-depth chatter. It never changes state.
type StatusEvent struct {
	QueueRemaining int
}

// ExecutingEvent reports the node currently being executed. A nil Node with a
// matching prompt id means the workflow finished.
type ExecutingEvent struct {
	Node     *string
	PromptID string
}

// ExecutionErrorEvent reports a node failure.
type ExecutionErrorEvent struct {
	PromptID string
	NodeID   string
	NodeType string
	Message  string
}

// UnknownEvent is any well-formed message of an unrecognized type. Unknown
// variants are dropped, not errors.
type UnknownEvent struct {
	Type string
}

func (StatusEvent) eventTag()         {}
func (ExecutingEvent) eventTag()      {}
func (ExecutionErrorEvent) eventTag() {}
func (UnknownEvent) eventTag()        {}

type eventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses a raw stream message into its closed variant set.
// Malformed payloads return an error so the caller can log and skip them.
func DecodeEvent(raw []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "status":
		var data struct {
			Status struct {
				ExecInfo struct {
					QueueRemaining int `json:"queue_remaining"`
				} `json:"exec_info"`
			} `json:"status"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return StatusEvent{QueueRemaining: data.Status.ExecInfo.QueueRemaining}, nil

	case "executing":
		var data struct {
			Node     *string `json:"node"`
			PromptID string  `json:"prompt_id"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return ExecutingEvent{Node: data.Node, PromptID: data.PromptID}, nil

	case "execution_error":
		var data struct {
			PromptID string `json:"prompt_id"`
			NodeID   string `json:"node_id"`
			NodeType string `json:"node_type"`
			Message  string `json:"exception_message"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
		return ExecutionErrorEvent{
			PromptID: data.PromptID,
			NodeID:   data.NodeID,
			NodeType: data.NodeType,
			Message:  data.Message,
		}, nil

	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}
