package monitor

import "testing"

func TestDecodeEvent_Status(t *testing.T) {
	raw := []byte(`{"type": "status", "data": {"status": {"exec_info": {"queue_remaining": 3}}}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	status, ok := ev.(StatusEvent)
	if !ok {
		t.Fatalf("expected StatusEvent, got %T", ev)
	}
	if status.QueueRemaining != 3 {
		t.Errorf("expected queue_remaining 3, got %d", status.QueueRemaining)
	}
}

func TestDecodeEvent_ExecutingWithNode(t *testing.T) {
	raw := []byte(`{"type": "executing", "data": {"node": "7", "prompt_id": "p-1"}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	exec, ok := ev.(ExecutingEvent)
	if !ok {
		t.Fatalf("expected ExecutingEvent, got %T", ev)
	}
	if exec.Node == nil || *exec.Node != "7" {
		t.Errorf("expected node 7, got %v", exec.Node)
	}
	if exec.PromptID != "p-1" {
		t.Errorf("expected prompt id p-1, got %q", exec.PromptID)
	}
}

func TestDecodeEvent_ExecutingDone(t *testing.T) {
	// A null node with a matching prompt id is the completion signal.
	raw := []byte(`{"type": "executing", "data": {"node": null, "prompt_id": "p-1"}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	exec := ev.(ExecutingEvent)
	if exec.Node != nil {
		t.Errorf("expected nil node, got %v", *exec.Node)
	}
}

func TestDecodeEvent_ExecutionError(t *testing.T) {
	raw := []byte(`{"type": "execution_error", "data": {
		"prompt_id": "p-1", "node_id": "4", "node_type": "KSampler",
		"exception_message": "CUDA out of memory"
	}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	execErr, ok := ev.(ExecutionErrorEvent)
	if !ok {
		t.Fatalf("expected ExecutionErrorEvent, got %T", ev)
	}
	if execErr.NodeID != "4" || execErr.NodeType != "KSampler" {
		t.Errorf("unexpected node identity: %+v", execErr)
	}
	if execErr.Message != "CUDA out of memory" {
		t.Errorf("unexpected message %q", execErr.Message)
	}
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	raw := []byte(`{"type": "progress", "data": {"value": 5}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	unknown, ok := ev.(UnknownEvent)
	if !ok {
		t.Fatalf("expected UnknownEvent, got %T", ev)
	}
	if unknown.Type != "progress" {
		t.Errorf("expected type progress, got %q", unknown.Type)
	}
}

func TestDecodeEvent_Malformed(t *testing.T) {
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed message")
	}
	if _, err := DecodeEvent([]byte(`{"type": "executing", "data": "not an object"}`)); err == nil {
		t.Error("expected error for malformed data")
	}
}
