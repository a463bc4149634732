package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %q", cfg.Port)
	}
	if cfg.ComfyHost != "127.0.0.1:8188" {
		t.Errorf("expected default engine host, got %q", cfg.ComfyHost)
	}
	if cfg.MonitorMode != MonitorModeStream {
		t.Errorf("expected stream monitor by default, got %q", cfg.MonitorMode)
	}
	if cfg.WSReconnectTries != 5 {
		t.Errorf("expected 5 reconnect attempts, got %d", cfg.WSReconnectTries)
	}
	if cfg.WSReconnectDelay != 3*time.Second {
		t.Errorf("expected 3s reconnect delay, got %v", cfg.WSReconnectDelay)
	}
	if cfg.PollTimeout != 600*time.Second {
		t.Errorf("expected 600s poll timeout, got %v", cfg.PollTimeout)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("expected 1s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.ProbeAttempts != 500 {
		t.Errorf("expected 500 probe attempts, got %d", cfg.ProbeAttempts)
	}
	if cfg.ProbeInterval != 50*time.Millisecond {
		t.Errorf("expected 50ms probe interval, got %v", cfg.ProbeInterval)
	}
	if !cfg.ManagedEngine {
		t.Error("expected managed engine by default")
	}
	if cfg.StoreType != "memory" {
		t.Errorf("expected memory store by default, got %q", cfg.StoreType)
	}
	if cfg.StrictWorkflowSchema {
		t.Error("expected strict schema validation off by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("COMFY_HOST", "10.0.0.5:8188")
	t.Setenv("MONITOR_MODE", "poll")
	t.Setenv("WEBSOCKET_RECONNECT_ATTEMPTS", "10")
	t.Setenv("WEBSOCKET_RECONNECT_DELAY_S", "1")
	t.Setenv("POLL_TIMEOUT", "2m")
	t.Setenv("COMFY_MANAGED", "false")
	t.Setenv("JOBSTORE", "redis")
	t.Setenv("WORKFLOW_SCHEMA_STRICT", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.ComfyHost != "10.0.0.5:8188" {
		t.Errorf("expected overridden engine host, got %q", cfg.ComfyHost)
	}
	if cfg.MonitorMode != MonitorModePoll {
		t.Errorf("expected poll monitor, got %q", cfg.MonitorMode)
	}
	if cfg.WSReconnectTries != 10 {
		t.Errorf("expected 10 reconnect attempts, got %d", cfg.WSReconnectTries)
	}
	if cfg.WSReconnectDelay != time.Second {
		t.Errorf("expected 1s reconnect delay, got %v", cfg.WSReconnectDelay)
	}
	if cfg.PollTimeout != 2*time.Minute {
		t.Errorf("expected 2m poll timeout, got %v", cfg.PollTimeout)
	}
	if cfg.ManagedEngine {
		t.Error("expected managed engine disabled")
	}
	if cfg.StoreType != "redis" {
		t.Errorf("expected redis store, got %q", cfg.StoreType)
	}
	if !cfg.StrictWorkflowSchema {
		t.Error("expected strict schema validation enabled")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("expected rate limit 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WEBSOCKET_RECONNECT_ATTEMPTS", "not-a-number")
	t.Setenv("COMFY_MANAGED", "not-a-bool")
	t.Setenv("POLL_TIMEOUT", "not-a-duration")

	cfg := Load()

	if cfg.WSReconnectTries != 5 {
		t.Errorf("expected fallback to 5 attempts, got %d", cfg.WSReconnectTries)
	}
	if !cfg.ManagedEngine {
		t.Error("expected fallback to managed engine")
	}
	if cfg.PollTimeout != 600*time.Second {
		t.Errorf("expected fallback poll timeout, got %v", cfg.PollTimeout)
	}
}
