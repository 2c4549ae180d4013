// Package config loads, normalizes, and validates vox configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VOX_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: checkpoint locations, the accelerator device, the server bind
// address, sampling defaults, and supervision policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, bounded sampling parameters, and clear validation errors.
package config
