// Package types defines the public job payload and record types for the
// comfybridge worker.
package types

import "encoding/json"

// Artifact encodings returned to the caller.
const (
	EncodingBase64 = "base64"
	EncodingS3URL  = "s3_url"
)

// InputImage is a caller-supplied input artifact. Image holds base64 data,
// optionally prefixed with a data URI header.
type InputImage struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Request is a validated job payload: a workflow graph in the engine's API
// format plus optional input images to stage before submission.
type Request struct {
	Workflow map[string]json.RawMessage `json:"workflow"`
	Images   []InputImage               `json:"images,omitempty"`
}

// Artifact is one produced output, either inlined as base64 text or referenced
// by an external object-store URL.
type Artifact struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Data     string `json:"data"`
}

// StatusNoImages marks a job that completed without producing any output
// artifacts. This is a success variant, not an error.
const StatusNoImages = "success_no_images"

// Response is the success payload returned to the caller. Errors carries
// non-fatal failures that occurred alongside usable output.
type Response struct {
	Images []Artifact `json:"images"`
	Errors []string   `json:"errors,omitempty"`
	Status string     `json:"status,omitempty"`
}
