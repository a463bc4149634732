package jobs

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRequest_ValidWorkflow(t *testing.T) {
	input := json.RawMessage(`{"workflow": {"1": {"class_type": "KSampler", "inputs": {}}}}`)

	req, err := ParseRequest(input)
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if len(req.Workflow) != 1 {
		t.Errorf("expected 1 workflow node, got %d", len(req.Workflow))
	}
	if len(req.Images) != 0 {
		t.Errorf("expected no images, got %d", len(req.Images))
	}
}

func TestParseRequest_StringPayload(t *testing.T) {
	// The platform sometimes delivers the payload as a JSON-encoded string.
	input := json.RawMessage(`"{\"workflow\": {\"1\": {\"class_type\": \"KSampler\"}}}"`)

	req, err := ParseRequest(input)
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if len(req.Workflow) != 1 {
		t.Errorf("expected 1 workflow node, got %d", len(req.Workflow))
	}
}

func TestParseRequest_WithImages(t *testing.T) {
	input := json.RawMessage(`{
		"workflow": {"1": {"class_type": "LoadImage"}},
		"images": [{"name": "in.png", "image": "aGVsbG8="}]
	}`)

	req, err := ParseRequest(input)
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if len(req.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(req.Images))
	}
	if req.Images[0].Name != "in.png" {
		t.Errorf("expected image name in.png, got %q", req.Images[0].Name)
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty input", ``, "Please provide input"},
		{"null input", `null`, "Please provide input"},
		{"invalid json", `{not json`, "Invalid JSON format in input"},
		{"string with invalid json", `"{broken"`, "Invalid JSON format in input"},
		{"missing workflow", `{}`, "Missing 'workflow' parameter"},
		{"null workflow", `{"workflow": null}`, "Missing 'workflow' parameter"},
		{"workflow not object", `{"workflow": [1, 2]}`, "'workflow' must be a JSON object"},
		{"workflow a string", `{"workflow": "nope"}`, "'workflow' must be a JSON object"},
		{"empty workflow", `{"workflow": {}}`, "'workflow' cannot be empty"},
		{"images not a list", `{"workflow": {"1": {}}, "images": "x"}`, "'images' must be a list"},
		{"image not an object", `{"workflow": {"1": {}}, "images": [42]}`, "Each image must be an object"},
		{"image missing name", `{"workflow": {"1": {}}, "images": [{"image": "x"}]}`, "'images' must contain objects with 'name' and 'image' keys"},
		{"image missing data", `{"workflow": {"1": {}}, "images": [{"name": "x"}]}`, "'images' must contain objects with 'name' and 'image' keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(json.RawMessage(tt.input))
			if err == nil {
				t.Fatalf("expected error, got none")
			}

			var verr *InputValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *InputValidationError, got %T", err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, verr.Message)
			}
		})
	}
}

func TestParseRequest_ValidationBeforeNetwork(t *testing.T) {
	// Rejection must not depend on any engine call; ParseRequest is pure.
	if _, err := ParseRequest(json.RawMessage(`{"workflow": {}}`)); err == nil {
		t.Fatal("expected validation error for empty workflow")
	}
}
