package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"vox/internal/config"
	"vox/internal/logging"
)

func buildSocketPath(cfg *config.Config) string {
	if cfg == nil {
		return filepath.Join("", "voxd.sock")
	}
	return filepath.Join(cfg.Paths.LogDir, "voxd.sock")
}

func buildLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "vox.log")
}

func buildPIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "voxd.pid")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// newLogger writes to both the daemon log file and stdout.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{buildLogPath(cfg), "stdout"},
	})
}

func cleanupLogs(cfg *config.Config, logger *slog.Logger) {
	if cfg.Logging.RetentionDays <= 0 {
		return
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "*.log", cfg.Logging.RetentionDays, filepath.Base(buildLogPath(cfg)))
}
