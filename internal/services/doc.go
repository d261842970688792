// Package services defines shared utilities consumed by the pipeline stages
// and their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp stage names and the run correlation
//     identifier for logging.
//   - Structured error markers plus the Wrap helper so stage failures can be
//     classified (configuration, validation, external tool, persistence).
//   - The Executor abstraction that makes external command execution testable.
package services
