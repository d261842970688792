// Package config loads, normalizes, and validates musicosa configuration data.
//
// It supplies repository defaults, resolves musicosa.toml from an explicit
// path or the working directory, rejects unknown keys, expands relative and
// tilde paths against the config file location, and honours the
// MUSICOSA_DB_PATH environment fallback.
//
// Always obtain settings through this package so stages receive sanitized
// paths, canonical enum values, and clear validation errors.
package config
