package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"vox/internal/queue"
)

func TestSayQueuesJob(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"say", "Hello there.", "--output", "hello.wav"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	requireContains(t, out, "Queued job")
	requireContains(t, out, "hello.wav")

	jobs, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Text != "Hello there." {
		t.Fatalf("unexpected job text %q", jobs[0].Text)
	}
	if jobs[0].Status != queue.StatusPending {
		t.Fatalf("expected pending job, got %s", jobs[0].Status)
	}
}

func TestQueueListAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupportJob(t, env, "List me please.")

	out, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "List me please.")
	requireContains(t, out, string(queue.StatusPending))

	out, _, err = runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, string(queue.StatusPending))

	out, _, err = runCLI(t, []string{"queue", "describe", strconv.FormatInt(job.ID, 10)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue describe: %v", err)
	}
	requireContains(t, out, "List me please.")
	requireContains(t, out, job.JobKey)
}

func TestQueueRemoveAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupportJob(t, env, "Remove me.")
	testsupportJob(t, env, "Clear me.")

	out, _, err := runCLI(t, []string{"queue", "remove", strconv.FormatInt(job.ID, 10)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed 1 jobs")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 queue jobs")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueRetryFailedJob(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupportJob(t, env, "Fail me first.")

	ctx := context.Background()
	if _, err := env.store.MarkSynthesizing(ctx, job.ID); err != nil {
		t.Fatalf("mark synthesizing: %v", err)
	}
	if err := env.store.MarkFailed(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed jobs")

	refreshed, err := env.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", refreshed.Status)
	}
}

func TestQueueHealthOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupportJob(t, env, "Health check job.")

	out, _, err := runCLI(t, []string{"queue", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Total: 1")
	requireContains(t, out, "Pending: 1")

	out, _, err = runCLI(t, []string{"queue", "health", "--database"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health --database: %v", err)
	}
	requireContains(t, out, "Integrity check: yes")
}

func testsupportJob(t *testing.T, env *cliTestEnv, text string) *queue.Job {
	t.Helper()
	job, err := env.daemon.AddJob(context.Background(), &queue.Job{Text: text})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	return job
}

func TestQueueDescribeByKey(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupportJob(t, env, "Find me by key.")

	out, _, err := runCLI(t, []string{"queue", "describe", job.JobKey}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue describe by key: %v", err)
	}
	requireContains(t, out, "Find me by key.")
	requireContains(t, out, strconv.FormatInt(job.ID, 10))
}

func TestSayRepeatableReferenceFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	first := filepath.Join(env.baseDir, "calm.wav")
	second := filepath.Join(env.baseDir, "bright.wav")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte("RIFFref"), 0o644); err != nil {
			t.Fatalf("write reference audio: %v", err)
		}
	}

	_, _, err := runCLI(t, []string{
		"say", "Voice cloning test.",
		"--reference-audio", first, "--reference-text", "a calm greeting",
		"--reference-audio", second, "--reference-text", "a bright greeting",
	}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("say: %v", err)
	}

	jobs, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].ReferenceAudio != first+"\n"+second {
		t.Fatalf("unexpected reference audio list %q", jobs[0].ReferenceAudio)
	}
	if jobs[0].ReferenceText != "a calm greeting\na bright greeting" {
		t.Fatalf("unexpected reference text list %q", jobs[0].ReferenceText)
	}

	_, _, err = runCLI(t, []string{
		"say", "Mismatched.",
		"--reference-text", "orphan transcript",
	}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for transcript without reference audio")
	}
}
