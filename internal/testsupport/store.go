package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"vox/internal/config"
	"vox/internal/queue"
)

// MustOpenStore opens the queue database for tests and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewJob inserts a pending synthesis job with a generated output path.
func NewJob(t testing.TB, store *queue.Store, cfg *config.Config, text string) *queue.Job {
	t.Helper()

	job, err := store.Add(context.Background(), &queue.Job{
		Text:       text,
		OutputPath: filepath.Join(cfg.Paths.OutputDir, "out.wav"),
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	return job
}
