// Package queue persists synthesis jobs in SQLite and mediates their
// lifecycle between the CLI and the daemon workflow.
package queue
