package main

import (
	"context"
	"testing"
)

func TestStatusCommandReportsStoppedDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "Not running")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "Queue is empty")
}

func TestStatusCommandReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := env.daemon.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	testsupportJob(t, env, "Visible in status.")

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "pending")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestServerStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"server", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("server status: %v", err)
	}
	requireContains(t, out, "Inference Server")
}

func TestLogsCommandPrintsLines(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := appendLine(env.logPath, "hello from the log"); err != nil {
		t.Fatalf("append log line: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "5"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "hello from the log")
}
