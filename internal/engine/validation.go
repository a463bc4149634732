package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// parseValidationError turns a 400 response body into a *ValidationError.
// The body carries an `error` object with a message and a `node_errors`
// mapping of node id to {error type -> message}. Detail lines must come out
// in the order the engine wrote them, so the mapping is walked with a token
// decoder instead of being unmarshalled into a Go map.
func parseValidationError(body []byte) *ValidationError {
	var payload struct {
		Error      json.RawMessage `json:"error"`
		NodeErrors json.RawMessage `json:"node_errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &ValidationError{Message: fmt.Sprintf("workflow validation failed: %s", bytes.TrimSpace(body))}
	}

	message := "Workflow validation failed"
	if len(payload.Error) > 0 {
		var errObj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &errObj); err == nil && errObj.Message != "" {
			message = errObj.Message
		} else {
			var s string
			if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
				message = s
			}
		}
	}

	return &ValidationError{
		Message: message,
		Details: parseNodeErrorDetails(payload.NodeErrors),
	}
}

// parseNodeErrorDetails flattens node_errors into one line per (node, error
// type) pair, preserving encounter order.
func parseNodeErrorDetails(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var details []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return details
		}
		nodeID, ok := keyTok.(string)
		if !ok {
			return details
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return details
		}
		details = append(details, nodeErrorLines(nodeID, value)...)
	}
	return details
}

// nodeErrorLines renders one node's findings. Object values yield one line
// per error type; anything else is rendered as a single line.
func nodeErrorLines(nodeID string, value json.RawMessage) []string {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			v = string(value)
		}
		return []string{fmt.Sprintf("Node %s: %v", nodeID, v)}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil
	}

	var lines []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return lines
		}
		errType, ok := keyTok.(string)
		if !ok {
			return lines
		}

		var msg interface{}
		if err := dec.Decode(&msg); err != nil {
			return lines
		}
		lines = append(lines, fmt.Sprintf("Node %s (%s): %v", nodeID, errType, msg))
	}
	return lines
}
