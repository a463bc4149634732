package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"comfybridge/internal/metrics"
)

// StreamConfig holds configuration for the websocket monitor.
type StreamConfig struct {
	// Host is the engine's host:port.
	Host string

	// ReconnectAttempts bounds recovery from a closed channel. The budget
	// applies per disconnection event, matching the engine's own client.
	ReconnectAttempts int

	// ReconnectDelay is the fixed delay between reconnection attempts.
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds each dial.
	HandshakeTimeout time.Duration

	Logger *slog.Logger
}

// StreamMonitor awaits terminal state over the engine's per-client event
// stream. A closed channel is retried up to the configured budget with a
// fixed same-URL reconnect; exhausting the budget yields StateChannelFailure.
type StreamMonitor struct {
	cfg    StreamConfig
	dialer websocket.Dialer
	logger *slog.Logger
}

// NewStreamMonitor creates a stream monitor for the engine at cfg.Host.
func NewStreamMonitor(cfg StreamConfig) *StreamMonitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &StreamMonitor{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: cfg.Logger,
	}
}

// Monitor subscribes to the event stream scoped by the handle's client id and
// reads until a terminal message for the handle's prompt id arrives. The
// connection is closed on every exit path.
func (m *StreamMonitor) Monitor(ctx context.Context, h Handle) (outcome Outcome) {
	wsURL := url.URL{
		Scheme:   "ws",
		Host:     m.cfg.Host,
		Path:     "/ws",
		RawQuery: "clientId=" + url.QueryEscape(h.ClientID),
	}
	target := wsURL.String()

	m.logger.Info("connecting to event stream", slog.String("url", target))

	defer func() {
		metrics.MonitorOutcomes.WithLabelValues(outcome.State.String()).Inc()
	}()

	conn, ok := m.connect(ctx, target)
	if !ok {
		return m.channelFailure()
	}
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		// The overall wait is bounded only by the caller's deadline.
		if dl, hasDeadline := ctx.Deadline(); hasDeadline {
			conn.SetReadDeadline(dl)
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{
					State:  StateTimedOut,
					Errors: []string{fmt.Sprintf("workflow monitoring aborted: %v", ctx.Err())},
				}
			}

			m.logger.Error("event stream closed", slog.Any("error", err))
			conn.Close()
			conn, ok = m.reconnect(ctx, target)
			if !ok {
				return m.channelFailure()
			}
			continue
		}

		ev, err := DecodeEvent(raw)
		if err != nil {
			m.logger.Warn("skipping malformed stream message", slog.Any("error", err))
			continue
		}

		switch e := ev.(type) {
		case StatusEvent:
			m.logger.Info("queue status", slog.Int("queue_remaining", e.QueueRemaining))

		case ExecutingEvent:
			if e.Node == nil && e.PromptID == h.PromptID {
				m.logger.Info("execution finished", slog.String("prompt_id", h.PromptID))
				return Completed()
			}

		case ExecutionErrorEvent:
			if e.PromptID == h.PromptID {
				node := &NodeError{NodeID: e.NodeID, NodeType: e.NodeType, Message: e.Message}
				detail := fmt.Sprintf("Node Type: %s, Node ID: %s, Message: %s",
					node.NodeType, node.NodeID, node.Message)
				m.logger.Error("execution error", slog.String("detail", detail))
				return Outcome{
					State:  StateExecutionError,
					Node:   node,
					Errors: []string{"Workflow execution error: " + detail},
				}
			}

		case UnknownEvent:
			m.logger.Debug("ignoring unknown stream message", slog.String("type", e.Type))
		}
	}
}

// connect dials once, falling into the reconnection budget on failure so an
// engine that is still settling does not immediately fail the job.
func (m *StreamMonitor) connect(ctx context.Context, target string) (*websocket.Conn, bool) {
	conn, resp, err := m.dialer.DialContext(ctx, target, nil)
	if err == nil {
		m.logger.Info("event stream connected")
		return conn, true
	}
	if resp != nil {
		resp.Body.Close()
	}
	m.logger.Error("event stream connect failed", slog.Any("error", err))
	return m.reconnect(ctx, target)
}

// reconnect retries the same URL with a fixed delay, up to the configured
// number of attempts.
func (m *StreamMonitor) reconnect(ctx context.Context, target string) (*websocket.Conn, bool) {
	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		m.logger.Info("reconnect attempt",
			slog.Int("attempt", attempt),
			slog.Int("max", m.cfg.ReconnectAttempts),
		)
		metrics.StreamReconnects.Inc()

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(m.cfg.ReconnectDelay):
		}

		conn, resp, err := m.dialer.DialContext(ctx, target, nil)
		if err == nil {
			m.logger.Info("reconnected to event stream")
			return conn, true
		}
		if resp != nil {
			resp.Body.Close()
		}
		m.logger.Error("reconnect failed", slog.Any("error", err))
	}
	return nil, false
}

func (m *StreamMonitor) channelFailure() Outcome {
	return Outcome{
		State: StateChannelFailure,
		Errors: []string{fmt.Sprintf(
			"websocket channel failed after %d reconnect attempts", m.cfg.ReconnectAttempts,
		)},
	}
}
