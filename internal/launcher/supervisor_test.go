package launcher

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"vox/internal/logging"
)

func shellCommand(script string) Command {
	return Command{Path: "/bin/sh", Args: []string{"-c", script}}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSupervisorReportsReadyAndStops(t *testing.T) {
	ready := make(chan struct{})
	sup := NewSupervisor(Options{
		Command:   shellCommand("sleep 30"),
		StopGrace: 2 * time.Second,
		Logger:    logging.NewNop(),
		Events: Events{
			Ready: func(int) { close(ready) },
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, ready, "ready event")

	snap := sup.Status()
	if snap.State != StateReady {
		t.Fatalf("expected ready state, got %s", snap.State)
	}
	if snap.PID <= 0 {
		t.Fatalf("expected a pid, got %d", snap.PID)
	}

	sup.Stop()
	if got := sup.Status().State; got != StateStopped {
		t.Fatalf("expected stopped after Stop, got %s", got)
	}
}

func TestSupervisorDoubleStartRejected(t *testing.T) {
	sup := NewSupervisor(Options{
		Command: shellCommand("sleep 30"),
		Logger:  logging.NewNop(),
	})
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	if err := sup.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
}

func TestSupervisorFailsWithoutRestartPolicy(t *testing.T) {
	failed := make(chan struct{})
	sup := NewSupervisor(Options{
		Command: shellCommand("exit 7"),
		Logger:  logging.NewNop(),
		Events: Events{
			Failed: func(error) { close(failed) },
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, failed, "failed event")

	snap := sup.Status()
	if snap.State != StateFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
	if snap.LastExit == "" {
		t.Fatal("expected last exit to be recorded")
	}
}

func TestSupervisorRestartsUpToCap(t *testing.T) {
	crashes := make(chan int, 8)
	failed := make(chan struct{})
	sup := NewSupervisor(Options{
		Command:        shellCommand("exit 1"),
		RestartOnCrash: true,
		MaxRestarts:    2,
		Backoff:        10 * time.Millisecond,
		BackoffMax:     20 * time.Millisecond,
		Logger:         logging.NewNop(),
		Events: Events{
			Crashed: func(_ error, n int) { crashes <- n },
			Failed:  func(error) { close(failed) },
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, failed, "failed event")

	close(crashes)
	total := 0
	for range crashes {
		total++
	}
	// Initial run plus two restarts, each ending in a crash.
	if total != 3 {
		t.Fatalf("expected 3 crash events, got %d", total)
	}
	if got := sup.Status().Restarts; got != 3 {
		t.Fatalf("expected restart counter 3, got %d", got)
	}
}

func TestSupervisorProbeGateReadiness(t *testing.T) {
	ready := make(chan struct{})
	sup := NewSupervisor(Options{
		Command:      shellCommand("sleep 30"),
		ReadyTimeout: 10 * time.Second,
		StopGrace:    2 * time.Second,
		Probe:        func(context.Context) error { return nil },
		Logger:       logging.NewNop(),
		Events: Events{
			Ready: func(int) { close(ready) },
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()
	waitFor(t, ready, "probe-gated ready event")
}

func TestSupervisorReadyTimeoutCountsAsCrash(t *testing.T) {
	failed := make(chan struct{})
	sup := NewSupervisor(Options{
		Command:      shellCommand("sleep 30"),
		ReadyTimeout: 50 * time.Millisecond,
		StopGrace:    time.Second,
		Probe:        func(context.Context) error { return errors.New("connection refused") },
		Logger:       logging.NewNop(),
		Events: Events{
			Failed: func(error) { close(failed) },
		},
	})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, failed, "failed event after ready timeout")

	if snap := sup.Status(); snap.State != StateFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	code, err := Run(context.Background(), shellCommand("exit 3"), io.Discard, io.Discard, time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Run(ctx, shellCommand("sleep 30"), io.Discard, io.Discard, 2*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("run did not stop promptly on cancel")
	}
}
