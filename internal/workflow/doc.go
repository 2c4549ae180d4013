// Package workflow drains the synthesis queue against the running
// inference server.
//
// A single background loop claims the oldest pending job, builds a request
// from config defaults plus per-job overrides, and writes the returned audio
// to the job's output path. When the server is unreachable the job is
// returned to the queue and the loop backs off until the supervisor reports
// the server ready again.
package workflow
