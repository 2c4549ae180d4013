package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// Run executes the server command in the foreground with its output wired
// to the given writers. It blocks until the process exits or the context
// is cancelled and returns the child's exit code.
func Run(ctx context.Context, command Command, stdout, stderr io.Writer, grace time.Duration) (int, error) {
	cmd := exec.Command(command.Path, command.Args...) //nolint:gosec
	cmd.Env = command.Env
	cmd.Dir = command.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = procAttr()

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start server: %w", err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Signal(syscall.SIGTERM)
		if grace <= 0 {
			grace = 10 * time.Second
		}
		select {
		case err := <-waitCh:
			return exitCode(err), nil
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			<-waitCh
			return -1, nil
		}
	case err := <-waitCh:
		if err == nil {
			return 0, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
