package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vox/internal/config"
	"vox/internal/logging"
)

func TestBuildSocketPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	expected := filepath.Join(cfg.Paths.LogDir, "voxd.sock")
	if got := buildSocketPath(&cfg); got != expected {
		t.Fatalf("expected socket path %q, got %q", expected, got)
	}

	if got := buildSocketPath(nil); got != filepath.Join("", "voxd.sock") {
		t.Fatalf("unexpected default socket path %q", got)
	}
}

func TestCleanupLogsKeepsActiveFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.RetentionDays = 1

	active := buildLogPath(&cfg)
	stale := filepath.Join(cfg.Paths.LogDir, "old.log")
	for _, path := range []string{active, stale} {
		if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("age stale log: %v", err)
	}

	cleanupLogs(&cfg, logging.NewNop())

	if _, err := os.Stat(active); err != nil {
		t.Fatalf("active log should survive cleanup: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale log should be removed, stat err=%v", err)
	}
}
