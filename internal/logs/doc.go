// Package logs reads daemon log files for the CLI: last-N tailing,
// offset-based forward reads, and bounded follow polling.
package logs
