// Package daemon coordinates the long-running vox process.
//
// It wires configuration, queue storage, the server supervisor, and the
// workflow manager into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes queue maintenance helpers,
// emits dependency health summaries, and owns notifications triggered by
// server lifecycle events.
//
// Keep orchestration logic here: synthesis and process supervision live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
