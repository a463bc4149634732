// Package collect fetches and encodes the artifacts a finished workflow
// produced.
package collect

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"comfybridge/internal/engine"
	"comfybridge/internal/metrics"
	"comfybridge/internal/upload"
	"comfybridge/pkg/types"
)

// Collector walks a per-node output manifest, retrieves artifact bytes, and
// encodes them for the caller: inline base64, or an external URL when an
// uploader is configured. Collection is best-effort: failures accumulate as
// error lines and never abort the pass.
type Collector struct {
	client   *engine.Client
	uploader upload.Uploader // nil = inline base64
	scratch  string
	logger   *slog.Logger
}

// New creates a collector. uploader may be nil to inline artifacts as base64.
func New(client *engine.Client, uploader upload.Uploader, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client:   client,
		uploader: uploader,
		scratch:  os.TempDir(),
		logger:   logger,
	}
}

// Collect processes every artifact declared in the manifest. Temp-kind
// artifacts are skipped; every failure at fetch, encode, or upload is
// recorded and the pass continues.
func (c *Collector) Collect(ctx context.Context, jobID string, outputs map[string]engine.NodeOutput) ([]types.Artifact, []string) {
	var artifacts []types.Artifact
	var errs []string

	c.logger.Info("processing output nodes", slog.Int("count", len(outputs)))

	for nodeID, nodeOutput := range outputs {
		for _, ref := range nodeOutput.Images {
			if ref.Type == engine.KindTemp {
				c.logger.Info("skipping temp image", slog.String("filename", ref.Filename))
				continue
			}
			if ref.Filename == "" {
				errs = append(errs, fmt.Sprintf("Missing filename in node %s", nodeID))
				continue
			}

			data, err := c.client.View(ctx, ref)
			if err != nil {
				c.logger.Error("failed to fetch image",
					slog.String("filename", ref.Filename),
					slog.Any("error", err),
				)
				errs = append(errs, fmt.Sprintf("Failed to fetch image data for %s", ref.Filename))
				continue
			}

			if c.uploader != nil {
				url, err := c.uploadArtifact(ctx, jobID, ref.Filename, data)
				if err != nil {
					c.logger.Error("upload failed",
						slog.String("filename", ref.Filename),
						slog.Any("error", err),
					)
					errs = append(errs, fmt.Sprintf("S3 upload failed: %v", err))
					continue
				}
				artifacts = append(artifacts, types.Artifact{
					Filename: ref.Filename,
					Type:     types.EncodingS3URL,
					Data:     url,
				})
				metrics.ArtifactsTotal.WithLabelValues(types.EncodingS3URL).Inc()
				c.logger.Info("uploaded artifact", slog.String("filename", ref.Filename))
			} else {
				artifacts = append(artifacts, types.Artifact{
					Filename: ref.Filename,
					Type:     types.EncodingBase64,
					Data:     base64.StdEncoding.EncodeToString(data),
				})
				metrics.ArtifactsTotal.WithLabelValues(types.EncodingBase64).Inc()
				c.logger.Info("encoded artifact", slog.String("filename", ref.Filename))
			}
		}
	}

	return artifacts, errs
}

// uploadArtifact writes the bytes to a scratch file, delegates the upload,
// and removes the scratch file whether or not the upload succeeded.
func (c *Collector) uploadArtifact(ctx context.Context, jobID, filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}

	f, err := os.CreateTemp(c.scratch, "artifact-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			c.logger.Warn("leaking scratch file", slog.String("path", path), slog.Any("error", err))
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close scratch file: %w", err)
	}

	return c.uploader.Upload(ctx, jobID, path)
}
