// Package config loads, normalizes, and validates traject configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and recording pipeline need: dataset root, frame-rate defaults, queue
// and batch sizing, media codec settings, and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
