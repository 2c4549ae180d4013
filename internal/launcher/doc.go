// Package launcher builds the inference server command line and supervises
// the resulting process.
//
// The command construction mirrors the upstream launch script exactly: one
// CUDA_VISIBLE_DEVICES environment variable, then
// python -m tools.api_server with the listen address, checkpoint paths,
// decoder config name, and optional --compile switch. The supervisor adds
// what the script never had: output capture into structured logs, readiness
// probing, crash restarts with backoff, and graceful shutdown.
package launcher
