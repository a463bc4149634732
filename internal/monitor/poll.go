package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"comfybridge/internal/engine"
	"comfybridge/internal/metrics"
)

// PollConfig holds configuration for the polling monitor.
type PollConfig struct {
	// Timeout is the wall-clock budget for the whole wait.
	Timeout time.Duration

	// Interval is the fixed delay between iterations.
	Interval time.Duration

	Logger *slog.Logger
}

// PollMonitor is the fallback strategy for environments without streaming
// support. It infers completion from the engine's work lists: once the prompt
// id has left the pending and running queues, presence in the completed-work
// record confirms completion. Each GET is independently retryable, so there
// is no reconnection logic.
type PollMonitor struct {
	client *engine.Client
	cfg    PollConfig
	logger *slog.Logger
}

// NewPollMonitor creates a polling monitor backed by the given engine client.
func NewPollMonitor(client *engine.Client, cfg PollConfig) *PollMonitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	return &PollMonitor{client: client, cfg: cfg, logger: cfg.Logger}
}

// Monitor polls until the workflow completes or the wall-clock budget runs
// out. Transient fetch errors are logged and skipped.
func (m *PollMonitor) Monitor(ctx context.Context, h Handle) (outcome Outcome) {
	m.logger.Info("monitoring execution via polling", slog.String("prompt_id", h.PromptID))

	defer func() {
		metrics.MonitorOutcomes.WithLabelValues(outcome.State.String()).Inc()
	}()

	deadline := time.Now().Add(m.cfg.Timeout)
	for time.Now().Before(deadline) {
		if done := m.checkOnce(ctx, h.PromptID); done {
			m.logger.Info("execution finished", slog.String("prompt_id", h.PromptID))
			return Completed()
		}

		select {
		case <-ctx.Done():
			return Outcome{
				State:  StateTimedOut,
				Errors: []string{fmt.Sprintf("workflow monitoring aborted: %v", ctx.Err())},
			}
		case <-time.After(m.cfg.Interval):
		}
	}

	return Outcome{
		State: StateTimedOut,
		Errors: []string{fmt.Sprintf(
			"Workflow execution timed out after %d seconds", int(m.cfg.Timeout.Seconds()),
		)},
	}
}

// checkOnce takes one snapshot of the work lists and, if the prompt has left
// them, confirms completion against the history record.
func (m *PollMonitor) checkOnce(ctx context.Context, promptID string) bool {
	snap, err := m.client.Queue(ctx)
	if err != nil {
		m.logger.Warn("queue check failed", slog.Any("error", err))
		return false
	}
	if snap.Contains(promptID) {
		return false
	}

	history, err := m.client.History(ctx, promptID)
	if err != nil {
		m.logger.Warn("history check failed", slog.Any("error", err))
		return false
	}
	_, done := history[promptID]
	return done
}
