// Package upload provides external object storage for collected artifacts.
package upload

import "context"

// Uploader stores a local file externally and returns a reference the caller
// can use to retrieve it.
type Uploader interface {
	// Upload stores the file at path under the given job id and returns an
	// externally accessible URL.
	Upload(ctx context.Context, jobID, path string) (string, error)
}
