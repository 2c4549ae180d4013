package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"vox/internal/logging"
)

// State describes the supervised server lifecycle.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Snapshot is a point-in-time view of the supervised process.
type Snapshot struct {
	State     State
	PID       int
	StartedAt time.Time
	ReadyAt   time.Time
	Restarts  int
	LastExit  string
}

// Events carries optional lifecycle callbacks. Nil funcs are skipped.
type Events struct {
	Started func(pid int)
	Ready   func(pid int)
	Crashed func(err error, restarts int)
	Failed  func(err error)
	Stopped func()
}

// Options configures a Supervisor.
type Options struct {
	Command        Command
	Probe          func(ctx context.Context) error
	RestartOnCrash bool
	MaxRestarts    int
	Backoff        time.Duration
	BackoffMax     time.Duration
	ReadyTimeout   time.Duration
	HealthInterval time.Duration
	StopGrace      time.Duration
	Logger         *slog.Logger
	Events         Events
}

// Supervisor runs the inference server and keeps it alive according to the
// restart policy. All exported methods are safe for concurrent use.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	snapshot Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSupervisor constructs a Supervisor. A nil probe means the server is
// considered ready as soon as the process starts.
func NewSupervisor(opts Options) *Supervisor {
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.BackoffMax < opts.Backoff {
		opts.BackoffMax = 60 * time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 10 * time.Second
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = 15 * time.Second
	}
	return &Supervisor{
		opts:     opts,
		logger:   logging.WithComponent(opts.Logger, "launcher"),
		snapshot: Snapshot{State: StateStopped},
	}
}

// Start launches the server and begins supervision. It returns immediately;
// readiness is reported through Status and the Ready event.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("server already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.snapshot = Snapshot{State: StateStarting}

	go s.supervise(runCtx)
	return nil
}

// Stop shuts the server down and waits for supervision to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Status returns the current process snapshot.
func (s *Supervisor) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Supervisor) supervise(ctx context.Context) {
	defer close(s.done)
	defer s.setState(func(snap *Snapshot) {
		if snap.State != StateFailed {
			snap.State = StateStopped
		}
		snap.PID = 0
	})

	restarts := 0
	for {
		exitErr, stopped := s.runOnce(ctx, restarts)
		if stopped {
			s.emitStopped()
			return
		}

		restarts++
		s.setState(func(snap *Snapshot) {
			snap.Restarts = restarts
			snap.LastExit = exitString(exitErr)
		})
		s.emitCrashed(exitErr, restarts)

		if !s.opts.RestartOnCrash || (s.opts.MaxRestarts > 0 && restarts > s.opts.MaxRestarts) {
			err := fmt.Errorf("server exited and will not be restarted: %w", exitErr)
			s.logger.Error("giving up on server",
				logging.Error(exitErr),
				logging.Int("restarts", restarts),
				logging.String(logging.FieldEventType, "server_failed"))
			s.setState(func(snap *Snapshot) { snap.State = StateFailed })
			s.emitFailed(err)
			return
		}

		delay := backoffDelay(s.opts.Backoff, s.opts.BackoffMax, restarts)
		s.logger.Warn("server crashed, restarting",
			logging.Error(exitErr),
			logging.Int("restarts", restarts),
			logging.Duration("backoff", delay))
		select {
		case <-ctx.Done():
			s.emitStopped()
			return
		case <-time.After(delay):
		}
	}
}

// runOnce runs a single server process to completion. The stopped return is
// true when the exit was requested via context rather than a crash.
func (s *Supervisor) runOnce(ctx context.Context, restarts int) (error, bool) {
	cmd, err := s.spawn()
	if err != nil {
		return err, false
	}
	pid := cmd.Process.Pid
	s.setState(func(snap *Snapshot) {
		snap.State = StateStarting
		snap.PID = pid
		snap.StartedAt = time.Now()
		snap.ReadyAt = time.Time{}
	})
	s.logger.Info("server started",
		logging.Int("pid", pid),
		logging.Int("restarts", restarts),
		logging.String(logging.FieldEventType, "server_started"))
	s.emitStarted(pid)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	probeCtx, cancelProbe := context.WithCancel(ctx)
	readyCh := s.probeUntilReady(probeCtx)
	defer cancelProbe()

	var healthTick *time.Ticker
	var healthCh <-chan time.Time
	ready := false

	for {
		select {
		case <-ctx.Done():
			if healthTick != nil {
				healthTick.Stop()
			}
			s.terminate(cmd, waitCh)
			return nil, true

		case err, ok := <-readyCh:
			if !ok {
				readyCh = nil
				continue
			}
			if err != nil {
				// Readiness never arrived; treat the run as a crash.
				s.terminate(cmd, waitCh)
				return fmt.Errorf("server not ready: %w", err), false
			}
			ready = true
			s.setState(func(snap *Snapshot) {
				snap.State = StateReady
				snap.ReadyAt = time.Now()
			})
			s.logger.Info("server ready",
				logging.Int("pid", pid),
				logging.String(logging.FieldEventType, "server_ready"))
			s.emitReady(pid)
			if s.opts.Probe != nil {
				healthTick = time.NewTicker(s.opts.HealthInterval)
				healthCh = healthTick.C
			}

		case <-healthCh:
			probe, cancel := context.WithTimeout(ctx, s.opts.HealthInterval)
			err := s.opts.Probe(probe)
			cancel()
			if err != nil && ready {
				s.logger.Warn("health probe failed", logging.Error(err))
			}

		case exitErr := <-waitCh:
			if healthTick != nil {
				healthTick.Stop()
			}
			if exitErr == nil {
				exitErr = errors.New("server exited cleanly without a stop request")
			}
			return exitErr, false
		}
	}
}

// spawn starts the configured command with its output feeding the logger.
func (s *Supervisor) spawn() (*exec.Cmd, error) {
	command := s.opts.Command
	cmd := exec.Command(command.Path, command.Args...) //nolint:gosec
	cmd.Env = command.Env
	cmd.Dir = command.Dir
	cmd.SysProcAttr = procAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}

	serverLog := logging.WithComponent(s.logger, "server")
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				serverLog.Info(line)
			}
		}
	}()

	return cmd, nil
}

// probeUntilReady reports one value: nil once the probe succeeds, or an
// error when the ready timeout expires. Without a probe it succeeds at once.
func (s *Supervisor) probeUntilReady(ctx context.Context) <-chan error {
	ch := make(chan error, 1)
	if s.opts.Probe == nil {
		ch <- nil
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		var deadline <-chan time.Time
		if s.opts.ReadyTimeout > 0 {
			timer := time.NewTimer(s.opts.ReadyTimeout)
			defer timer.Stop()
			deadline = timer.C
		}
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			probe, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := s.opts.Probe(probe)
			cancel()
			if err == nil {
				ch <- nil
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-deadline:
				ch <- fmt.Errorf("no response within %s: %w", s.opts.ReadyTimeout, err)
				return
			case <-ticker.C:
			}
		}
	}()
	return ch
}

// terminate asks the process to exit, escalating to SIGKILL after the
// grace period.
func (s *Supervisor) terminate(cmd *exec.Cmd, waitCh <-chan error) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-waitCh:
		return
	case <-time.After(s.opts.StopGrace):
	}
	s.logger.Warn("server did not exit in time, killing",
		logging.Int("pid", cmd.Process.Pid),
		logging.Duration("grace", s.opts.StopGrace))
	_ = cmd.Process.Kill()
	<-waitCh
}

func (s *Supervisor) setState(mutate func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.snapshot)
}

func (s *Supervisor) emitStarted(pid int) {
	if s.opts.Events.Started != nil {
		s.opts.Events.Started(pid)
	}
}

func (s *Supervisor) emitReady(pid int) {
	if s.opts.Events.Ready != nil {
		s.opts.Events.Ready(pid)
	}
}

func (s *Supervisor) emitCrashed(err error, restarts int) {
	if s.opts.Events.Crashed != nil {
		s.opts.Events.Crashed(err, restarts)
	}
}

func (s *Supervisor) emitFailed(err error) {
	if s.opts.Events.Failed != nil {
		s.opts.Events.Failed(err)
	}
}

func (s *Supervisor) emitStopped() {
	if s.opts.Events.Stopped != nil {
		s.opts.Events.Stopped()
	}
}

func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func exitString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
