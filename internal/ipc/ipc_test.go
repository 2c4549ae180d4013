package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vox/internal/config"
	"vox/internal/daemon"
	"vox/internal/ipc"
	"vox/internal/logging"
	"vox/internal/queue"
	"vox/internal/testsupport"
)

// newHarness builds a daemon plus an IPC server on a temp socket and
// returns a connected client.
func newHarness(t *testing.T) (*daemon.Daemon, *queue.Store, *ipc.Client) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	runnableConfig(t, cfg)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })

	socketPath := filepath.Join(t.TempDir(), "voxd.sock")
	server, err := ipc.NewServer(context.Background(), socketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return d, store, client
}

// runnableConfig points the server launch at a harmless script and
// creates checkpoint files so preflight passes.
func runnableConfig(t *testing.T, cfg *config.Config) {
	t.Helper()

	base := testsupport.BaseDir(cfg)
	script := filepath.Join(base, "fake-server")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0o755); err != nil {
		t.Fatalf("write fake server: %v", err)
	}
	cfg.Server.Python = script

	llamaDir := filepath.Join(base, "checkpoints", "model")
	if err := os.MkdirAll(llamaDir, 0o755); err != nil {
		t.Fatalf("mkdir checkpoints: %v", err)
	}
	codec := filepath.Join(llamaDir, "codec.pth")
	testsupport.WriteFile(t, codec, 16)
	cfg.Server.LlamaCheckpointPath = llamaDir
	cfg.Server.DecoderCheckpointPath = codec
}

func TestIPCQueueLifecycle(t *testing.T) {
	_, _, client := newHarness(t)

	added, err := client.QueueAdd(ipc.QueueAddRequest{Text: "Hello over the socket."})
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	if added.Job.ID <= 0 {
		t.Fatalf("expected assigned job id, got %d", added.Job.ID)
	}
	if added.Job.Status != string(queue.StatusPending) {
		t.Fatalf("expected pending job, got %s", added.Job.Status)
	}

	described, err := client.QueueDescribe(added.Job.ID)
	if err != nil {
		t.Fatalf("QueueDescribe failed: %v", err)
	}
	if described.Job.Text != "Hello over the socket." {
		t.Fatalf("unexpected job text %q", described.Job.Text)
	}

	listed, err := client.QueueList([]string{string(queue.StatusPending)})
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listed.Jobs) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(listed.Jobs))
	}

	health, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if health.Total != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health counts: %+v", health)
	}

	removed, err := client.QueueRemove([]int64{added.Job.ID})
	if err != nil {
		t.Fatalf("QueueRemove failed: %v", err)
	}
	if removed.Removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed.Removed)
	}

	if _, err := client.QueueRemove(nil); err == nil {
		t.Fatal("expected error for remove without ids")
	}
}

func TestIPCQueueRetryAndClear(t *testing.T) {
	d, store, client := newHarness(t)

	ctx := context.Background()
	job, err := d.AddJob(ctx, &queue.Job{Text: "Retry me."})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	// Force a failure so retry has work to do.
	if _, err := store.MarkSynthesizing(ctx, job.ID); err != nil {
		t.Fatalf("mark synthesizing: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "synthesis exploded"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	retried, err := client.QueueRetry(nil)
	if err != nil {
		t.Fatalf("QueueRetry failed: %v", err)
	}
	if retried.Updated != 1 {
		t.Fatalf("expected 1 retried job, got %d", retried.Updated)
	}

	cleared, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear failed: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected 1 removed job, got %d", cleared.Removed)
	}
}

func TestIPCStatusStopAndNotification(t *testing.T) {
	d, _, client := newHarness(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), status.PID)
	}
	if status.QueueDBPath == "" || status.LockPath == "" {
		t.Fatalf("expected populated paths: %+v", status)
	}

	note, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if note.Sent {
		t.Fatal("expected notification to be skipped without a topic")
	}

	stopped, err := client.Stop(ipc.StopRequest{})
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopped.Stopped {
		t.Fatal("expected stop acknowledgement")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after stop failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected stopped daemon")
	}
}

func TestIPCDatabaseHealth(t *testing.T) {
	_, _, client := newHarness(t)

	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected healthy database: %+v", health)
	}
	if !health.TableExists || len(health.MissingColumns) != 0 {
		t.Fatalf("expected intact schema: %+v", health)
	}
	if !health.IntegrityCheck {
		t.Fatalf("expected passing integrity check: %+v", health)
	}
}

func TestIPCLogTail(t *testing.T) {
	d, _, client := newHarness(t)

	logPath := d.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("first line\nsecond line\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tail, err := client.LogTail(ipc.LogTailRequest{Limit: 10})
	if err != nil {
		t.Fatalf("LogTail failed: %v", err)
	}
	if len(tail.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(tail.Lines), tail.Lines)
	}
	if tail.Lines[0] != "first line" {
		t.Fatalf("unexpected first line %q", tail.Lines[0])
	}
	if tail.Offset == 0 {
		t.Fatal("expected advanced offset")
	}
}

func TestIPCQueueDescribeByKey(t *testing.T) {
	_, _, client := newHarness(t)

	added, err := client.QueueAdd(ipc.QueueAddRequest{Text: "describe me by key"})
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	if added.Job.JobKey == "" {
		t.Fatal("expected generated job key")
	}

	resp, err := client.QueueDescribeByKey(added.Job.JobKey)
	if err != nil {
		t.Fatalf("QueueDescribeByKey failed: %v", err)
	}
	if resp.Job.ID != added.Job.ID {
		t.Fatalf("expected job %d, got %d", added.Job.ID, resp.Job.ID)
	}

	if _, err := client.QueueDescribeByKey("no-such-key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestIPCStopFailPendingFailsQueuedJobs(t *testing.T) {
	_, _, client := newHarness(t)

	added, err := client.QueueAdd(ipc.QueueAddRequest{Text: "abandoned on stop"})
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}

	stopped, err := client.Stop(ipc.StopRequest{FailPending: true})
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopped.Stopped {
		t.Fatal("expected stop acknowledgement")
	}
	if stopped.FailedJobs != 1 {
		t.Fatalf("expected 1 failed job, got %d", stopped.FailedJobs)
	}

	resp, err := client.QueueDescribe(added.Job.ID)
	if err != nil {
		t.Fatalf("QueueDescribe failed: %v", err)
	}
	if resp.Job.Status != string(queue.StatusFailed) {
		t.Fatalf("expected failed job, got %s", resp.Job.Status)
	}
	if resp.Job.ErrorMessage != queue.DaemonStopReason {
		t.Fatalf("unexpected error message %q", resp.Job.ErrorMessage)
	}
}
