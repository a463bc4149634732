package collect

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"comfybridge/internal/engine"
	"comfybridge/pkg/types"
)

// mockUploader implements upload.Uploader for testing.
type mockUploader struct {
	uploadFunc func(ctx context.Context, jobID, path string) (string, error)
	paths      []string
}

func (m *mockUploader) Upload(ctx context.Context, jobID, path string) (string, error) {
	m.paths = append(m.paths, path)
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, jobID, path)
	}
	return "https://bucket.example/" + jobID + "/" + filepath.Base(path), nil
}

// viewServer serves artifact bytes keyed by filename; missing names 404.
func viewServer(t *testing.T, files map[string][]byte) *engine.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Query().Get("filename")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return engine.NewClient(strings.TrimPrefix(srv.URL, "http://"), nil)
}

func outputs(images ...engine.ImageRef) map[string]engine.NodeOutput {
	return map[string]engine.NodeOutput{"9": {Images: images}}
}

func TestCollect_Base64(t *testing.T) {
	client := viewServer(t, map[string][]byte{"out.png": []byte("pixels")})
	c := New(client, nil, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1",
		outputs(engine.ImageRef{Filename: "out.png", Type: engine.KindOutput}))

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	if artifacts[0].Type != types.EncodingBase64 {
		t.Errorf("expected base64 encoding, got %q", artifacts[0].Type)
	}
	if artifacts[0].Data != base64.StdEncoding.EncodeToString([]byte("pixels")) {
		t.Errorf("unexpected artifact data %q", artifacts[0].Data)
	}
}

func TestCollect_SkipsTempImages(t *testing.T) {
	client := viewServer(t, map[string][]byte{"keep.png": []byte("pixels")})
	c := New(client, nil, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1", outputs(
		engine.ImageRef{Filename: "preview.png", Type: engine.KindTemp},
		engine.ImageRef{Filename: "keep.png", Type: engine.KindOutput},
	))

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(artifacts) != 1 || artifacts[0].Filename != "keep.png" {
		t.Fatalf("expected only keep.png, got %+v", artifacts)
	}
}

func TestCollect_MissingFilename(t *testing.T) {
	client := viewServer(t, nil)
	c := New(client, nil, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1",
		outputs(engine.ImageRef{Filename: "", Type: engine.KindOutput}))

	if len(artifacts) != 0 {
		t.Errorf("expected no artifacts, got %d", len(artifacts))
	}
	if len(errs) != 1 || errs[0] != "Missing filename in node 9" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestCollect_FetchFailureContinues(t *testing.T) {
	client := viewServer(t, map[string][]byte{"good.png": []byte("pixels")})
	c := New(client, nil, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1", outputs(
		engine.ImageRef{Filename: "gone.png", Type: engine.KindOutput},
		engine.ImageRef{Filename: "good.png", Type: engine.KindOutput},
	))

	if len(artifacts) != 1 || artifacts[0].Filename != "good.png" {
		t.Fatalf("expected good.png to survive, got %+v", artifacts)
	}
	if len(errs) != 1 || errs[0] != "Failed to fetch image data for gone.png" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestCollect_Upload(t *testing.T) {
	client := viewServer(t, map[string][]byte{"out.png": []byte("pixels")})
	up := &mockUploader{}
	c := New(client, up, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1",
		outputs(engine.ImageRef{Filename: "out.png", Type: engine.KindOutput}))

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	if artifacts[0].Type != types.EncodingS3URL {
		t.Errorf("expected s3_url encoding, got %q", artifacts[0].Type)
	}
	if !strings.HasPrefix(artifacts[0].Data, "https://bucket.example/job-1/") {
		t.Errorf("unexpected URL %q", artifacts[0].Data)
	}

	// The scratch file must be gone once the pass finished.
	for _, path := range up.paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("scratch file %s was not removed", path)
		}
	}
}

func TestCollect_UploadFailure(t *testing.T) {
	client := viewServer(t, map[string][]byte{"out.png": []byte("pixels")})
	up := &mockUploader{
		uploadFunc: func(ctx context.Context, jobID, path string) (string, error) {
			return "", fmt.Errorf("connection refused")
		},
	}
	c := New(client, up, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1",
		outputs(engine.ImageRef{Filename: "out.png", Type: engine.KindOutput}))

	if len(artifacts) != 0 {
		t.Errorf("expected no artifacts, got %d", len(artifacts))
	}
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "S3 upload failed:") {
		t.Errorf("unexpected errors %v", errs)
	}

	// Scratch files are removed even when the upload fails.
	for _, path := range up.paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("scratch file %s was not removed", path)
		}
	}
}

func TestCollect_EmptyManifest(t *testing.T) {
	client := viewServer(t, nil)
	c := New(client, nil, nil)

	artifacts, errs := c.Collect(context.Background(), "job-1", map[string]engine.NodeOutput{})
	if len(artifacts) != 0 || len(errs) != 0 {
		t.Errorf("expected empty result, got %v / %v", artifacts, errs)
	}
}
