// Package api exposes the worker's HTTP surface: job submission, job records,
// health, readiness, and metrics.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"comfybridge/internal/engine"
	"comfybridge/internal/jobs"
	"comfybridge/internal/runstore"
	"comfybridge/pkg/types"
)

// Handlers bundles dependencies for the HTTP surface.
type Handlers struct {
	orchestrator *jobs.Orchestrator
	engine       *engine.Client
	store        runstore.Store
	logger       *slog.Logger
	limiter      *rateLimiter
}

// HandlersConfig wires a Handlers.
type HandlersConfig struct {
	Orchestrator *jobs.Orchestrator
	Engine       *engine.Client
	Store        runstore.Store // optional
	Logger       *slog.Logger

	RateLimitRPS   float64
	RateLimitBurst int
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(cfg HandlersConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		orchestrator: cfg.Orchestrator,
		engine:       cfg.Engine,
		store:        cfg.Store,
		logger:       logger,
		limiter:      newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

// runEnvelope is the accepted request body. The platform wraps the payload in
// an envelope with an optional id; a bare payload is accepted as the input
// itself.
type runEnvelope struct {
	ID    string          `json:"id"`
	Input json.RawMessage `json:"input"`
}

// HandleRun processes one job synchronously and returns its result.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", nil)
		return
	}

	jobID, input := splitEnvelope(body)
	if jobID == "" {
		jobID = jobs.NewJobID()
	}

	resp, err := h.orchestrator.Handle(r.Context(), jobID, input)
	if err != nil {
		h.logger.Error("job failed", slog.String("job_id", jobID), slog.Any("error", err))
		writeJobError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// splitEnvelope extracts the job id and input payload. Bodies without an
// "input" key are treated as the input itself.
func splitEnvelope(body []byte) (string, json.RawMessage) {
	var env runEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Input) > 0 {
		return env.ID, env.Input
	}
	return "", body
}

// HandleGetJob returns the record of one job.
func (h *Handlers) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "job records are not enabled", nil)
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, runstore.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found: "+id, nil)
			return
		}
		h.logger.Error("failed to load job record", slog.String("job_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load job record", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// HandleListJobs returns recent job records, newest first.
func (h *Handlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "job records are not enabled", nil)
		return
	}

	recs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list job records", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list job records", nil)
		return
	}
	if recs == nil {
		recs = []*types.JobRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":  recs,
		"count": len(recs),
	})
}

// HandleHealth reports liveness of the worker process itself.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady reports whether the engine answers a single probe and the job
// store is healthy. Unlike the pre-submission check this does not retry;
// readiness endpoints are polled.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ready := h.engine.Probe(r.Context(), 1, 0)

	storeStatus := "ok"
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			storeStatus = "unavailable"
			ready = false
		}
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not ready"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"engine": h.engine.Host(),
		"store":  storeStatus,
	})
}
