// Package jobs drives one job through the full submit → monitor → collect
// cycle against the engine.
package jobs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"comfybridge/internal/collect"
	"comfybridge/internal/engine"
	"comfybridge/internal/metrics"
	"comfybridge/internal/monitor"
	"comfybridge/internal/runstore"
	"comfybridge/pkg/types"
)

// Runner abstracts the engine process supervisor so tests can stub it.
type Runner interface {
	EnsureRunning(ctx context.Context) error
}

// Config wires an Orchestrator.
type Config struct {
	Engine    *engine.Client
	Runner    Runner
	Monitor   monitor.Monitor
	Collector *collect.Collector
	Store     runstore.Store  // optional
	Schema    *WorkflowSchema // optional strict pre-validation

	// ProbeAttempts and ProbeInterval bound the pre-submission readiness
	// check, independently of the supervisor's post-start budget.
	ProbeAttempts int
	ProbeInterval time.Duration

	Logger *slog.Logger
}

// Orchestrator composes the submit → monitor → collect protocol into a single
// request/response cycle with a strict error taxonomy. It processes one job
// end-to-end synchronously on the calling goroutine.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger,
		tracer: otel.Tracer("comfybridge/jobs"),
	}
}

// Handle runs one job to completion. Hard failures come back as typed errors
// (*InputValidationError, *engine.ValidationError, *engine.TransportError,
// *engine.ProtocolError, *ProcessingError); partial failures ride along in
// the response's error list.
func (o *Orchestrator) Handle(ctx context.Context, jobID string, input json.RawMessage) (*types.Response, error) {
	start := time.Now()
	logger := o.logger.With(slog.String("job_id", jobID))
	logger.Info("processing job")

	resp, err := o.handle(ctx, jobID, input, logger)

	status := types.JobStatusSucceeded
	if err != nil {
		status = types.JobStatusFailed
	}
	metrics.JobsTotal.WithLabelValues(string(status)).Inc()
	metrics.JobDuration.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())
	return resp, err
}

func (o *Orchestrator) handle(ctx context.Context, jobID string, input json.RawMessage, logger *slog.Logger) (*types.Response, error) {
	req, err := ParseRequest(input)
	if err != nil {
		return nil, err
	}

	if o.cfg.Schema != nil {
		if findings := o.cfg.Schema.Validate(req.Workflow); len(findings) > 0 {
			return nil, &InputValidationError{
				Message: "Workflow failed schema validation",
				Details: findings,
			}
		}
	}

	rec := &types.JobRecord{
		ID:        jobID,
		Status:    types.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	o.record(ctx, rec, false, logger)

	if err := o.cfg.Runner.EnsureRunning(ctx); err != nil {
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		return nil, &ProcessingError{Message: fmt.Sprintf("Failed to start ComfyUI server: %v", err)}
	}

	// Independent reachability budget before submission.
	if !o.cfg.Engine.Probe(ctx, o.cfg.ProbeAttempts, o.cfg.ProbeInterval) {
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		return nil, &ProcessingError{Message: fmt.Sprintf("ComfyUI server (%s) not reachable", o.cfg.Engine.Host())}
	}

	if len(req.Images) > 0 {
		if details := o.uploadInputImages(ctx, req.Images, logger); len(details) > 0 {
			o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
			return nil, &ProcessingError{Message: "Failed to upload input images", Details: details}
		}
	}

	clientID := uuid.New().String()
	handle, err := o.submit(ctx, req.Workflow, clientID, logger)
	if err != nil {
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		return nil, err
	}

	now := time.Now().UTC()
	rec.Status = types.JobStatusRunning
	rec.ClientID = handle.ClientID
	rec.PromptID = handle.PromptID
	rec.StartedAt = &now
	o.record(ctx, rec, true, logger)

	outcome := o.monitorExecution(ctx, handle)
	errs := append([]string(nil), outcome.Errors...)

	if !outcome.Done() && len(errs) == 0 {
		// A monitor that reports neither success nor errors broke its
		// contract; fail the request rather than guess.
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		return nil, &ProcessingError{Message: "Workflow monitoring exited without completion or error"}
	}

	logger.Info("fetching history", slog.String("prompt_id", handle.PromptID))
	history, err := o.cfg.Engine.History(ctx, handle.PromptID)
	if err != nil {
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		return nil, err
	}

	entry, ok := history[handle.PromptID]
	if !ok {
		msg := fmt.Sprintf("Prompt ID %s not found in history", handle.PromptID)
		logger.Error(msg)
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		if len(errs) == 0 {
			return nil, &ProcessingError{Message: msg}
		}
		return nil, &ProcessingError{Message: "Job processing failed", Details: append(errs, msg)}
	}

	artifacts, collectErrs := o.collect(ctx, jobID, entry.Outputs)
	errs = append(errs, collectErrs...)

	if len(artifacts) == 0 && len(errs) > 0 {
		rec.Errors = errs
		o.finishRecord(ctx, rec, types.JobStatusFailed, logger)
		return nil, &ProcessingError{Message: "Job processing failed", Details: errs}
	}

	resp := &types.Response{Images: artifacts, Errors: errs}
	if len(artifacts) == 0 {
		// Completed without producing anything: a success variant.
		logger.Info("job completed but produced no images")
		resp.Images = []types.Artifact{}
		resp.Status = types.StatusNoImages
	}

	rec.ImageCount = len(artifacts)
	rec.Errors = errs
	o.finishRecord(ctx, rec, types.JobStatusSucceeded, logger)

	logger.Info("job completed",
		slog.Int("images", len(artifacts)),
		slog.Int("errors", len(errs)),
	)
	return resp, nil
}

// uploadInputImages stages caller-supplied artifacts into the engine's input
// folder. All-or-nothing: any failure aborts the job before submission.
func (o *Orchestrator) uploadInputImages(ctx context.Context, images []types.InputImage, logger *slog.Logger) []string {
	logger.Info("uploading input images", slog.Int("count", len(images)))

	var details []string
	for _, img := range images {
		data, err := decodeImagePayload(img.Image)
		if err != nil {
			msg := fmt.Sprintf("Error decoding base64 for %s: %v", img.Name, err)
			logger.Error(msg)
			details = append(details, msg)
			continue
		}
		if err := o.cfg.Engine.UploadImage(ctx, img.Name, data); err != nil {
			msg := fmt.Sprintf("Error uploading %s: %v", img.Name, err)
			logger.Error(msg)
			details = append(details, msg)
			continue
		}
		logger.Info("uploaded input image", slog.String("name", img.Name))
	}
	return details
}

func (o *Orchestrator) submit(ctx context.Context, workflow map[string]json.RawMessage, clientID string, logger *slog.Logger) (monitor.Handle, error) {
	ctx, span := o.tracer.Start(ctx, "submit")
	defer span.End()
	start := time.Now()

	logger.Info("queuing workflow")
	promptID, err := o.cfg.Engine.Submit(ctx, workflow, clientID)
	metrics.PhaseDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())
	if err != nil {
		return monitor.Handle{}, err
	}

	span.SetAttributes(attribute.String("prompt_id", promptID))
	logger.Info("workflow queued", slog.String("prompt_id", promptID))
	return monitor.Handle{ClientID: clientID, PromptID: promptID}, nil
}

func (o *Orchestrator) monitorExecution(ctx context.Context, handle monitor.Handle) monitor.Outcome {
	ctx, span := o.tracer.Start(ctx, "monitor",
		trace.WithAttributes(attribute.String("prompt_id", handle.PromptID)))
	defer span.End()
	start := time.Now()

	outcome := o.cfg.Monitor.Monitor(ctx, handle)

	metrics.PhaseDuration.WithLabelValues("monitor").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("state", outcome.State.String()))
	return outcome
}

func (o *Orchestrator) collect(ctx context.Context, jobID string, outputs map[string]engine.NodeOutput) ([]types.Artifact, []string) {
	ctx, span := o.tracer.Start(ctx, "collect")
	defer span.End()
	start := time.Now()

	artifacts, errs := o.cfg.Collector.Collect(ctx, jobID, outputs)

	metrics.PhaseDuration.WithLabelValues("collect").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("artifacts", len(artifacts)))
	return artifacts, errs
}

// record persists the job record, logging rather than failing the job when
// the store is down.
func (o *Orchestrator) record(ctx context.Context, rec *types.JobRecord, update bool, logger *slog.Logger) {
	if o.cfg.Store == nil {
		return
	}
	var err error
	if update {
		err = o.cfg.Store.Update(ctx, rec)
	} else {
		err = o.cfg.Store.Create(ctx, rec)
	}
	if err != nil {
		logger.Warn("failed to record job state", slog.Any("error", err))
	}
}

func (o *Orchestrator) finishRecord(ctx context.Context, rec *types.JobRecord, status types.JobStatus, logger *slog.Logger) {
	now := time.Now().UTC()
	rec.Status = status
	rec.FinishedAt = &now
	o.record(ctx, rec, true, logger)
}

// decodeImagePayload strips an optional data-URI prefix and decodes base64.
func decodeImagePayload(payload string) ([]byte, error) {
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

// NewJobID returns an identifier for jobs submitted without one.
func NewJobID() string { return uuid.New().String() }
