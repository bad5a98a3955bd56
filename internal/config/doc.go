// Package config loads, normalizes, and validates shotsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANTHROPIC_API_KEY. The Config type centralizes every knob the daemon and CLI
// need, so state/log directories, provider settings, and pipeline limits are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
