package engine

import (
	"encoding/json"
	"strings"
)

// Artifact kinds reported by the engine manifest.
const (
	KindOutput = "output"
	KindTemp   = "temp"
	KindInput  = "input"
)

// ImageRef locates one artifact on the engine's filesystem.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// NodeOutput is the per-node slice of the manifest.
type NodeOutput struct {
	Images []ImageRef `json:"images,omitempty"`
}

// HistoryEntry is the completed-work record for one prompt.
type HistoryEntry struct {
	Outputs map[string]NodeOutput `json:"outputs"`
}

// QueueSnapshot is the engine's pending/running work list. Entries are kept
// raw: their shape is engine-internal and only membership matters here.
type QueueSnapshot struct {
	Running []json.RawMessage `json:"queue_running"`
	Pending []json.RawMessage `json:"queue_pending"`
}

// Contains reports whether the prompt id appears anywhere in the pending or
// running entries.
func (q *QueueSnapshot) Contains(promptID string) bool {
	for _, item := range q.Running {
		if strings.Contains(string(item), promptID) {
			return true
		}
	}
	for _, item := range q.Pending {
		if strings.Contains(string(item), promptID) {
			return true
		}
	}
	return false
}

type submitRequest struct {
	Prompt   map[string]json.RawMessage `json:"prompt"`
	ClientID string                     `json:"client_id"`
}

type submitResponse struct {
	PromptID string `json:"prompt_id"`
}
