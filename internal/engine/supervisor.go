package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"sync"
	"time"
)

// SupervisorConfig holds configuration for the engine process supervisor.
type SupervisorConfig struct {
	// Dir is the working directory the engine is started from.
	Dir string

	// PythonBin is the interpreter used to launch the engine.
	PythonBin string

	// Host is the listen address (host:port) the engine is bound to.
	Host string

	// Managed controls whether the supervisor may start the process at all.
	// When false, EnsureRunning only probes.
	Managed bool

	// ProbeAttempts and ProbeInterval bound the post-start readiness wait.
	ProbeAttempts int
	ProbeInterval time.Duration
}

// Supervisor owns the single background engine process for this worker. The
// first job to need the engine starts it; later jobs see it running and skip
// the start. The check-then-start sequence is mutex-guarded so concurrent
// cold starts cannot race.
type Supervisor struct {
	cfg    SupervisorConfig
	client *Client
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

// NewSupervisor creates a supervisor for the engine process.
func NewSupervisor(cfg SupervisorConfig, client *Client, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{cfg: cfg, client: client, logger: logger}
}

// EnsureRunning starts the engine process if it is not already running and
// waits for it to answer readiness probes. It is safe to call from every job.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Managed && !s.processAlive() {
		if err := s.start(); err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
	}

	if !s.client.Probe(ctx, s.cfg.ProbeAttempts, s.cfg.ProbeInterval) {
		return fmt.Errorf("engine (%s) failed to become reachable", s.cfg.Host)
	}
	return nil
}

// Stop terminates the engine process if this supervisor started it.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || !s.processAlive() {
		return
	}
	s.logger.Info("stopping engine process", slog.Int("pid", s.cmd.Process.Pid))
	if err := s.cmd.Process.Kill(); err != nil {
		s.logger.Warn("failed to kill engine process", slog.Any("error", err))
	}
	<-s.exited
	s.cmd = nil
}

// processAlive reports whether the supervised process exists and has not
// exited. Callers must hold s.mu.
func (s *Supervisor) processAlive() bool {
	if s.cmd == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// start launches the engine bound to the loopback address. Callers must hold
// s.mu.
func (s *Supervisor) start() error {
	host, port, err := net.SplitHostPort(s.cfg.Host)
	if err != nil {
		return fmt.Errorf("invalid engine host %q: %w", s.cfg.Host, err)
	}

	s.logger.Info("starting engine process", slog.String("dir", s.cfg.Dir))

	cmd := exec.Command(s.cfg.PythonBin, "main.py",
		"--disable-auto-launch",
		"--disable-metadata",
		"--listen", host,
		"--port", port,
	)
	cmd.Dir = s.cfg.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	go s.streamOutput(stdout, slog.LevelInfo)
	go s.streamOutput(stderr, slog.LevelWarn)

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		close(exited)
		if err != nil {
			s.logger.Error("engine process exited", slog.Any("error", err))
		} else {
			s.logger.Info("engine process exited")
		}
	}()

	s.cmd = cmd
	s.exited = exited
	return nil
}

// streamOutput forwards one of the engine's output streams to the log.
func (s *Supervisor) streamOutput(r io.Reader, level slog.Level) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.logger.Log(context.Background(), level, "engine: "+line)
	}
}
