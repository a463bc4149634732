package jobs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// WorkflowSchema optionally pre-validates the shape of each workflow node
// before submission, catching graphs the engine would reject anyway. Enabled
// by configuration; the engine remains the authority on workflow semantics.
type WorkflowSchema struct {
	node *jsonschema.Schema
}

// NewWorkflowSchema compiles the embedded node schema.
func NewWorkflowSchema() (*WorkflowSchema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource("node.json", strings.NewReader(workflowNodeSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add node schema: %w", err)
	}
	node, err := compiler.Compile("node.json")
	if err != nil {
		return nil, fmt.Errorf("compile node schema: %w", err)
	}
	return &WorkflowSchema{node: node}, nil
}

// Validate checks every node in the workflow and returns one finding line per
// violation, sorted by node id for determinism. An empty result means the
// workflow passed.
func (s *WorkflowSchema) Validate(workflow map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(workflow))
	for id := range workflow {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var findings []string
	for _, id := range ids {
		var node interface{}
		if err := json.Unmarshal(workflow[id], &node); err != nil {
			findings = append(findings, fmt.Sprintf("node %s: invalid JSON: %v", id, err))
			continue
		}
		if err := s.node.Validate(node); err != nil {
			for _, msg := range schemaMessages(err) {
				findings = append(findings, fmt.Sprintf("node %s: %s", id, msg))
			}
		}
	}
	return findings
}

// schemaMessages flattens a validation error into its leaf messages.
func schemaMessages(err error) []string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return msgs
}

const workflowNodeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "node.json",
  "title": "Workflow Node",
  "description": "Shape of one node in an API-format workflow graph",
  "type": "object",
  "required": ["class_type"],
  "properties": {
    "class_type": {
      "type": "string",
      "minLength": 1,
      "description": "Node implementation identifier"
    },
    "inputs": {
      "type": "object",
      "description": "Node input values and upstream links"
    },
    "_meta": {
      "type": "object",
      "description": "Optional editor metadata"
    }
  }
}`
