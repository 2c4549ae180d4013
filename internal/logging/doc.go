// Package logging builds slog loggers with console and JSON handlers plus
// helpers shared across the daemon and CLI: standard field names, component
// loggers, a no-op logger for tests, and log-file retention pruning.
package logging
