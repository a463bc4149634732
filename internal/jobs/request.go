package jobs

import (
	"bytes"
	"encoding/json"

	"comfybridge/pkg/types"
)

// ParseRequest validates a raw job payload and returns the typed request.
// Validation happens before any network call; every failure is an
// *InputValidationError with a caller-facing message.
func ParseRequest(raw json.RawMessage) (*types.Request, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &InputValidationError{Message: "Please provide input"}
	}

	// The platform may deliver the payload as a JSON-encoded string.
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, &InputValidationError{Message: "Invalid JSON format in input"}
		}
		return ParseRequest(json.RawMessage(inner))
	}

	var envelope struct {
		Workflow json.RawMessage `json:"workflow"`
		Images   json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, &InputValidationError{Message: "Invalid JSON format in input"}
	}

	workflow, err := parseWorkflow(envelope.Workflow)
	if err != nil {
		return nil, err
	}

	images, err := parseImages(envelope.Images)
	if err != nil {
		return nil, err
	}

	return &types.Request{Workflow: workflow, Images: images}, nil
}

func parseWorkflow(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &InputValidationError{Message: "Missing 'workflow' parameter"}
	}
	if trimmed[0] != '{' {
		return nil, &InputValidationError{Message: "'workflow' must be a JSON object"}
	}

	var workflow map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &workflow); err != nil {
		return nil, &InputValidationError{Message: "'workflow' must be a JSON object"}
	}
	if len(workflow) == 0 {
		return nil, &InputValidationError{Message: "'workflow' cannot be empty"}
	}
	return workflow, nil
}

func parseImages(raw json.RawMessage) ([]types.InputImage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, &InputValidationError{Message: "'images' must be a list"}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, &InputValidationError{Message: "'images' must be a list"}
	}

	images := make([]types.InputImage, 0, len(entries))
	for _, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 || entry[0] != '{' {
			return nil, &InputValidationError{Message: "Each image must be an object"}
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			return nil, &InputValidationError{Message: "Each image must be an object"}
		}
		if _, ok := fields["name"]; !ok {
			return nil, &InputValidationError{Message: "'images' must contain objects with 'name' and 'image' keys"}
		}
		if _, ok := fields["image"]; !ok {
			return nil, &InputValidationError{Message: "'images' must contain objects with 'name' and 'image' keys"}
		}

		var img types.InputImage
		if err := json.Unmarshal(entry, &img); err != nil {
			return nil, &InputValidationError{Message: "'images' must contain objects with 'name' and 'image' keys"}
		}
		images = append(images, img)
	}
	return images, nil
}
